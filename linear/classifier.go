// Package linear provides linear models built on the core model lifecycle.
//
// SoftmaxClassifier is multinomial logistic regression trained with mini-batch
// SGD on the softmax cross-entropy loss. It exercises the full lifecycle:
// graph construction through the builder hook, per-epoch checkpointing,
// restore-and-retrain, evaluation and prediction.
package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gomodelkit/modelkit/config"
	"github.com/gomodelkit/modelkit/core/model"
	"github.com/gomodelkit/modelkit/core/parallel"
	"github.com/gomodelkit/modelkit/dataset"
	"github.com/gomodelkit/modelkit/graph"
	"github.com/gomodelkit/modelkit/metrics"
	"github.com/gomodelkit/modelkit/pkg/errors"
	"github.com/gomodelkit/modelkit/pkg/log"
)

const (
	weightsVarName = "softmax/weights"
	biasVarName    = "softmax/bias"

	// Row count below which a batch is processed sequentially.
	minParallelRows = 256
)

// SoftmaxClassifier predicts one of k classes from dense feature rows.
// Weights are a features×classes matrix, bias a 1×classes row; prediction is
// the row-wise softmax of X·W + b.
type SoftmaxClassifier struct {
	*model.BaseModel

	features int
	classes  int
	seed     int64

	weights *graph.Variable
	bias    *graph.Variable
}

// NewSoftmaxClassifier constructs a classifier for the given input width. The
// class count, training schedule and checkpoint policy come from cfg. g may be
// nil to use the default graph.
func NewSoftmaxClassifier(features int, cfg *config.Config, g *graph.Graph) (*SoftmaxClassifier, error) {
	if features <= 0 {
		return nil, errors.NewValidationError("features", "must be positive", features)
	}
	if cfg == nil {
		return nil, errors.NewValidationError("cfg", "must not be nil", nil)
	}
	if cfg.Model.Classes < 2 {
		return nil, errors.NewValidationError("model.classes", "need at least two classes", cfg.Model.Classes)
	}

	c := &SoftmaxClassifier{
		features: features,
		classes:  cfg.Model.Classes,
		seed:     cfg.Training.Seed,
	}
	base, err := model.New("SoftmaxClassifier", cfg, g, c)
	if err != nil {
		return nil, err
	}
	c.BaseModel = base
	return c, nil
}

// BuildGraph declares the weight and bias variables. Called once during
// construction, after the global step exists and before the saver snapshots
// the variable set.
func (c *SoftmaxClassifier) BuildGraph(g *graph.Graph) error {
	w, err := g.NewVariable(weightsVarName, c.features, c.classes,
		graph.WithInitializer(graph.RandomNormal(0.01, c.seed)))
	if err != nil {
		return err
	}
	b, err := g.NewVariable(biasVarName, 1, c.classes)
	if err != nil {
		return err
	}
	c.weights = w
	c.bias = b
	return nil
}

// Train fits the classifier for the configured number of epochs. In ModeTrain
// it first runs the init op; in ModeRetrain it continues from the restored
// variables and global step. When a checkpoint directory is configured, a
// checkpoint is written at the end of every epoch. Callbacks run after each
// epoch and may stop training early.
func (c *SoftmaxClassifier) Train(sess *graph.Session, ds *dataset.Dataset, opts ...model.TrainOption) (err error) {
	defer errors.Recover(&err, "SoftmaxClassifier.Train")

	if err := c.checkSession(sess, "Train"); err != nil {
		return err
	}
	if err := c.checkDataset(ds, true, "Train"); err != nil {
		return err
	}

	options := model.ApplyTrainOptions(opts)
	callbacks := model.NewCallbackList(options.Callbacks...)
	cfg := c.Config()

	if c.Mode() == model.ModeTrain {
		if err := sess.Run(c.InitOp()); err != nil {
			return err
		}
	}

	c.Logger().Info("training started",
		log.ModeKey, c.Mode().String(),
		log.SamplesKey, ds.Len(),
		log.FeaturesKey, ds.NumFeatures(),
		"epochs", cfg.Training.Epochs,
		log.BatchSizeKey, cfg.Training.BatchSize,
	)

	firstLoss := math.NaN()
	lastLoss := math.NaN()
	for epoch := 0; epoch < cfg.Training.Epochs; epoch++ {
		shuffled := ds.Shuffled(cfg.Training.Seed + int64(epoch))
		it := shuffled.Batches(cfg.Training.BatchSize)

		var epochLoss float64
		var batches int
		for {
			batch, nextErr := it.Next()
			if nextErr != nil {
				if errors.Is(nextErr, errors.ErrOutOfRange) {
					break
				}
				return nextErr
			}
			loss, stepErr := c.trainStep(batch, cfg.Training.LearningRate)
			if stepErr != nil {
				return stepErr
			}
			step, incErr := c.NextStep()
			if incErr != nil {
				return incErr
			}
			c.Logger().Debug("train step",
				log.StepKey, step,
				log.LossKey, loss,
			)
			epochLoss += loss
			batches++
		}
		avgLoss := epochLoss / float64(batches)
		if math.IsNaN(firstLoss) {
			firstLoss = avgLoss
		}
		lastLoss = avgLoss

		if cfg.Checkpoint.Dir != "" {
			if _, saveErr := c.Save(sess, ""); saveErr != nil {
				return saveErr
			}
		}

		env := &model.CallbackEnv{
			Model: c.BaseModel,
			Epoch: epoch,
			Step:  c.GlobalStep(),
			EvalResults: map[string]float64{
				"loss": avgLoss,
			},
		}
		if cbErr := callbacks.Run(env); cbErr != nil {
			return cbErr
		}
		if env.StopTraining {
			c.Logger().Info("training stopped early",
				log.EpochKey, epoch,
				log.LossKey, avgLoss,
			)
			return nil
		}
	}

	if !math.IsNaN(firstLoss) && lastLoss >= firstLoss {
		errors.Warn(errors.NewConvergenceWarning(
			c.Name(), cfg.Training.Epochs, "loss did not improve over training"))
	}
	c.Logger().Info("training finished",
		log.StepKey, c.GlobalStep(),
		log.LossKey, lastLoss,
	)
	return nil
}

// trainStep applies one SGD update from a labeled batch and returns the mean
// cross-entropy loss over the batch.
func (c *SoftmaxClassifier) trainStep(batch *dataset.Batch, lr float64) (float64, error) {
	w, b, err := c.values()
	if err != nil {
		return 0, err
	}
	n, _ := batch.X.Dims()
	if err := c.checkLabels(batch.Y, n); err != nil {
		return 0, err
	}

	// Residuals: probs becomes P - Y(one-hot) after the parallel pass.
	var probs mat.Dense
	probs.Mul(batch.X, w)
	losses := make([]float64, n)
	parallel.ParallelizeWithThreshold(n, minParallelRows, func(start, end int) {
		for i := start; i < end; i++ {
			row := probs.RawRowView(i)
			addBiasSoftmax(row, b)
			label := int(batch.Y.At(i, 0))
			losses[i] = -math.Log(clipProba(row[label]))
			row[label] -= 1
		}
	})

	var gradW mat.Dense
	gradW.Mul(batch.X.T(), &probs)
	gradW.Scale(lr/float64(n), &gradW)
	w.Sub(w, &gradW)

	for j := 0; j < c.classes; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += probs.At(i, j)
		}
		b.Set(0, j, b.At(0, j)-lr*sum/float64(n))
	}

	var total float64
	for _, l := range losses {
		total += l
	}
	return total / float64(n), nil
}

// Evaluate scores the classifier on a labeled dataset and returns accuracy
// and log loss.
func (c *SoftmaxClassifier) Evaluate(sess *graph.Session, ds *dataset.Dataset) (map[string]float64, error) {
	if err := c.checkSession(sess, "Evaluate"); err != nil {
		return nil, err
	}
	if err := c.checkDataset(ds, true, "Evaluate"); err != nil {
		return nil, err
	}

	proba, yTrue, err := c.scoreAll(ds)
	if err != nil {
		return nil, err
	}
	accuracy, err := metrics.Accuracy(yTrue, proba)
	if err != nil {
		return nil, err
	}
	logLoss, err := metrics.LogLoss(yTrue, proba)
	if err != nil {
		return nil, err
	}

	results := map[string]float64{
		"accuracy": accuracy,
		"log_loss": logLoss,
	}
	c.Logger().Info("evaluation finished",
		log.OperationKey, "evaluate",
		log.SamplesKey, ds.Len(),
		"metric.accuracy", accuracy,
		"metric.log_loss", logLoss,
	)
	return results, nil
}

// Predict returns an n×1 matrix of predicted class indices.
func (c *SoftmaxClassifier) Predict(sess *graph.Session, ds *dataset.Dataset) (mat.Matrix, error) {
	proba, err := c.PredictProba(sess, ds)
	if err != nil {
		return nil, err
	}
	n, k := proba.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		bestVal := proba.At(i, 0)
		for j := 1; j < k; j++ {
			if v := proba.At(i, j); v > bestVal {
				best = j
				bestVal = v
			}
		}
		out.Set(i, 0, float64(best))
	}
	return out, nil
}

// PredictProba returns an n×classes matrix of class probabilities.
func (c *SoftmaxClassifier) PredictProba(sess *graph.Session, ds *dataset.Dataset) (mat.Matrix, error) {
	if err := c.checkSession(sess, "PredictProba"); err != nil {
		return nil, err
	}
	if err := c.checkDataset(ds, false, "PredictProba"); err != nil {
		return nil, err
	}
	proba, _, err := c.scoreAll(ds)
	if err != nil {
		return nil, err
	}
	return proba, nil
}

// scoreAll runs the forward pass over the whole dataset in batches and
// returns the probability matrix plus, when present, the stacked labels.
func (c *SoftmaxClassifier) scoreAll(ds *dataset.Dataset) (*mat.Dense, *mat.Dense, error) {
	w, b, err := c.values()
	if err != nil {
		return nil, nil, err
	}

	n := ds.Len()
	proba := mat.NewDense(n, c.classes, nil)
	var yTrue *mat.Dense
	if ds.HasLabels() {
		yTrue = mat.NewDense(n, 1, nil)
	}

	it := ds.Batches(c.Config().Training.BatchSize)
	offset := 0
	for {
		batch, nextErr := it.Next()
		if nextErr != nil {
			if errors.Is(nextErr, errors.ErrOutOfRange) {
				break
			}
			return nil, nil, nextErr
		}
		rows, _ := batch.X.Dims()

		var logits mat.Dense
		logits.Mul(batch.X, w)
		parallel.ParallelizeWithThreshold(rows, minParallelRows, func(start, end int) {
			for i := start; i < end; i++ {
				row := logits.RawRowView(i)
				addBiasSoftmax(row, b)
			}
		})
		for i := 0; i < rows; i++ {
			proba.SetRow(offset+i, logits.RawRowView(i))
			if yTrue != nil {
				yTrue.Set(offset+i, 0, batch.Y.At(i, 0))
			}
		}
		offset += rows
	}
	return proba, yTrue, nil
}

// values returns the weight and bias matrices, failing when the model has
// neither been initialized nor restored.
func (c *SoftmaxClassifier) values() (w, b *mat.Dense, err error) {
	if !c.weights.Initialized() {
		return nil, nil, errors.NewNotInitializedError(c.Name(), weightsVarName)
	}
	if !c.bias.Initialized() {
		return nil, nil, errors.NewNotInitializedError(c.Name(), biasVarName)
	}
	return c.weights.Value(), c.bias.Value(), nil
}

func (c *SoftmaxClassifier) checkSession(sess *graph.Session, op string) error {
	if sess == nil {
		return errors.AssertionFailedf("%s.%s: session is nil", c.Name(), op)
	}
	if sess.Graph() != c.Graph() {
		return errors.AssertionFailedf("%s.%s: session is bound to a different graph", c.Name(), op)
	}
	return nil
}

func (c *SoftmaxClassifier) checkDataset(ds *dataset.Dataset, needLabels bool, op string) error {
	if ds == nil {
		return errors.NewValidationError("ds", "must not be nil", nil)
	}
	if ds.NumFeatures() != c.features {
		return errors.NewDimensionError(c.Name()+"."+op, c.features, ds.NumFeatures(), 1)
	}
	if needLabels && !ds.HasLabels() {
		return errors.NewValueError(c.Name()+"."+op, "dataset has no labels")
	}
	return nil
}

// checkLabels validates that every label indexes a valid class before the
// parallel pass, which cannot report errors per row.
func (c *SoftmaxClassifier) checkLabels(y mat.Matrix, n int) error {
	if y == nil {
		return errors.NewValueError("SoftmaxClassifier", "batch has no labels")
	}
	for i := 0; i < n; i++ {
		label := int(y.At(i, 0))
		if label < 0 || label >= c.classes {
			return errors.NewValueError("SoftmaxClassifier", "label out of range for class count")
		}
	}
	return nil
}

// addBiasSoftmax adds the bias row to a logit row and replaces it with its
// softmax, shifting by the row max for numerical stability.
func addBiasSoftmax(row []float64, bias *mat.Dense) {
	maxVal := math.Inf(-1)
	for j := range row {
		row[j] += bias.At(0, j)
		if row[j] > maxVal {
			maxVal = row[j]
		}
	}
	var sum float64
	for j := range row {
		row[j] = math.Exp(row[j] - maxVal)
		sum += row[j]
	}
	for j := range row {
		row[j] /= sum
	}
}

func clipProba(p float64) float64 {
	const eps = 1e-15
	if p < eps {
		return eps
	}
	return p
}
