package model

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/gomodelkit/modelkit/checkpoint"
	"github.com/gomodelkit/modelkit/config"
	"github.com/gomodelkit/modelkit/dataset"
	"github.com/gomodelkit/modelkit/graph"
	"github.com/gomodelkit/modelkit/pkg/errors"
	"github.com/gomodelkit/modelkit/pkg/log"
)

// BaseModel carries the lifecycle bookkeeping shared by all models: the
// configuration reference, the graph, the mode state machine, the global step
// counter, the saver and the combined init op. Concrete models embed it and
// override the Train/Evaluate/Predict stubs.
//
// Construction order matters and New enforces it: the global step variable is
// created first, then the builder hook declares the model's variables, and
// only then is the saver constructed. A saver created before all persisted
// variables exist cannot restore them.
type BaseModel struct {
	name    string
	id      string
	cfg     *config.Config
	g       *graph.Graph
	mode    Mode
	initOp  graph.Op
	saver   *checkpoint.Saver
	stepVar *graph.Variable
	logger  log.Logger
}

// New constructs the lifecycle state for a model. g may be nil, in which case
// the process-wide default graph is used. builder must be the concrete
// model's graph hook; a nil builder fails with NotImplementedError.
func New(name string, cfg *config.Config, g *graph.Graph, builder GraphBuilder) (*BaseModel, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", "must not be empty", name)
	}
	if cfg == nil {
		return nil, errors.NewValidationError("cfg", "must not be nil", nil)
	}
	if g == nil {
		g = graph.Default()
	}

	m := &BaseModel{
		name: name,
		id:   uuid.NewString(),
		cfg:  cfg,
		g:    g,
	}
	m.logger = log.GetLoggerWithName("core.model").With(
		log.ModelNameKey, name,
		log.ModelIDKey, m.id,
	)

	stepVar, err := graph.NewGlobalStep(g)
	if err != nil {
		return nil, errors.Wrap(err, "creating global step")
	}
	m.stepVar = stepVar

	if builder == nil {
		return nil, errors.NewNotImplementedError(name, "BuildGraph")
	}
	if err := builder.BuildGraph(g); err != nil {
		return nil, errors.Wrapf(err, "%s: building graph", name)
	}

	// The saver snapshots the variable set, so it comes after the builder.
	m.saver = checkpoint.NewSaver(g, checkpoint.WithKeep(cfg.Checkpoint.Keep))
	m.initOp = g.InitAllVariablesOp()
	m.mode = ModeTrain

	m.logger.Debug("model constructed",
		log.ModeKey, m.mode.String(),
		"variables", g.NumVariables(),
	)
	return m, nil
}

// Name returns the model's name.
func (m *BaseModel) Name() string { return m.name }

// ID returns the unique instance id assigned at construction.
func (m *BaseModel) ID() string { return m.id }

// Config returns the configuration the model references.
func (m *BaseModel) Config() *config.Config { return m.cfg }

// Graph returns the graph the model's variables live in.
func (m *BaseModel) Graph() *graph.Graph { return m.g }

// Mode returns the model's current lifecycle mode.
func (m *BaseModel) Mode() Mode { return m.mode }

// InitOp returns the combined initialize-all-variables op. Training loops run
// it once when the mode is ModeTrain; in ModeRetrain the variables already
// hold restored values and the op must not run.
func (m *BaseModel) InitOp() graph.Op { return m.initOp }

// Saver returns the model's checkpoint saver.
func (m *BaseModel) Saver() *checkpoint.Saver { return m.saver }

// Logger returns the model's contextual logger.
func (m *BaseModel) Logger() log.Logger { return m.logger }

// GlobalStep returns the current value of the global step counter.
func (m *BaseModel) GlobalStep() int64 { return graph.GlobalStep(m.g) }

// NextStep increments the global step counter and returns the new value.
// Concrete models call it once per training update.
func (m *BaseModel) NextStep() (int64, error) {
	return graph.IncrementGlobalStep(m.g)
}

// Train is a stub; concrete models override it.
func (m *BaseModel) Train(_ *graph.Session, _ *dataset.Dataset, _ ...TrainOption) error {
	return errors.NewNotImplementedError(m.name, "Train")
}

// Evaluate is a stub; concrete models override it.
func (m *BaseModel) Evaluate(_ *graph.Session, _ *dataset.Dataset) (map[string]float64, error) {
	return nil, errors.NewNotImplementedError(m.name, "Evaluate")
}

// Predict is a stub; concrete models override it.
func (m *BaseModel) Predict(_ *graph.Session, _ *dataset.Dataset) (mat.Matrix, error) {
	return nil, errors.NewNotImplementedError(m.name, "Predict")
}

// Load restores the most recent checkpoint from ckptDir, falling back to the
// configured checkpoint directory when ckptDir is empty. Finding no
// checkpoint is not an error: the call logs and returns with the model
// unchanged. A successful restore replaces every tracked variable's value
// (including the global step) and moves the model to ModeRetrain.
func (m *BaseModel) Load(sess *graph.Session, ckptDir string) error {
	dir, err := m.resolveCheckpointDir(ckptDir, "Load")
	if err != nil {
		return err
	}
	if err := m.checkSession(sess, "Load"); err != nil {
		return err
	}

	latest, err := checkpoint.Latest(dir)
	if err != nil {
		return err
	}
	if latest == "" {
		m.logger.Info("no model checkpoint",
			log.OperationKey, "load",
			log.CheckpointDirKey, dir,
		)
		return nil
	}

	m.logger.Info("loading the latest model checkpoint",
		log.OperationKey, "load",
		log.CheckpointPathKey, latest,
	)
	step, err := m.saver.Restore(latest)
	if err != nil {
		return err
	}
	m.mode = ModeRetrain
	m.logger.Info("model loaded",
		log.OperationKey, "load",
		log.CheckpointStepKey, step,
		log.ModeKey, m.mode.String(),
	)
	return nil
}

// Save writes a checkpoint of all tracked variables to ckptDir, falling back
// to the configured checkpoint directory when ckptDir is empty, tagged with
// the current global step. It returns the path of the written file.
func (m *BaseModel) Save(sess *graph.Session, ckptDir string) (string, error) {
	dir, err := m.resolveCheckpointDir(ckptDir, "Save")
	if err != nil {
		return "", err
	}
	if err := m.checkSession(sess, "Save"); err != nil {
		return "", err
	}

	step := m.GlobalStep()
	m.logger.Info("saving model",
		log.OperationKey, "save",
		log.CheckpointDirKey, dir,
		log.CheckpointStepKey, step,
	)
	path, err := m.saver.Save(dir, step)
	if err != nil {
		return "", err
	}
	m.logger.Info("model saved",
		log.OperationKey, "save",
		log.CheckpointPathKey, path,
	)
	return path, nil
}

// resolveCheckpointDir applies the argument-then-config fallback. Having no
// directory from either source is a precondition violation, not a runtime
// condition.
func (m *BaseModel) resolveCheckpointDir(ckptDir, op string) (string, error) {
	if ckptDir == "" {
		ckptDir = m.cfg.Checkpoint.Dir
	}
	if ckptDir == "" {
		return "", errors.AssertionFailedf(
			"%s.%s: checkpoint directory is neither passed nor configured", m.name, op)
	}
	return ckptDir, nil
}

// checkSession verifies the caller-supplied session is usable for this model.
func (m *BaseModel) checkSession(sess *graph.Session, op string) error {
	if sess == nil {
		return errors.AssertionFailedf("%s.%s: session is nil", m.name, op)
	}
	if sess.Graph() != m.g {
		return errors.AssertionFailedf("%s.%s: session is bound to a different graph", m.name, op)
	}
	return nil
}
