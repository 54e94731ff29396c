// Package modelkit provides a model lifecycle framework for Go: graph-scoped
// variables, mode-aware construction, step-tagged checkpointing and a
// train/evaluate/predict operation contract.
//
// A model is built once, in a fixed order: its configuration and graph are
// recorded, a global step counter is created, the model's builder hook
// declares its variables, and only then are the saver and the combined init
// op constructed. After construction the model is in train mode; restoring a
// checkpoint moves it to retrain mode, where training resumes from the
// restored variables and step instead of reinitializing.
//
// # Quick start
//
//	cfg := config.Default()
//	cfg.Checkpoint.Dir = "ckpt"
//
//	g := graph.New()
//	clf, err := linear.NewSoftmaxClassifier(4, cfg, g)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sess := graph.NewSession(g)
//
//	ds, _ := dataset.FromMatrices(X, y)
//	if err := clf.Train(sess, ds); err != nil {
//	    log.Fatal(err)
//	}
//	results, _ := clf.Evaluate(sess, ds)
//	fmt.Println(results["accuracy"])
//
// A later process reconstructs the same model, calls Load, and continues:
//
//	if err := clf.Load(sess, ""); err != nil {
//	    log.Fatal(err)
//	}
//	// clf.Mode() == model.ModeRetrain; Train resumes from the checkpoint.
//
// # Packages
//
//   - core/model: lifecycle state machine, operation contracts, callbacks
//   - core/parallel: chunked parallel-for helpers
//   - graph: variables, sessions, the global step
//   - checkpoint: step-tagged variable snapshots with keep-N pruning
//   - dataset: in-memory batch iteration
//   - config: viper-backed configuration with validation
//   - metrics: accuracy, log loss, MSE, metric history plots
//   - linear: SoftmaxClassifier, a complete lifecycle reference model
package modelkit
