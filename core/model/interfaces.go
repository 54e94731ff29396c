// Package model defines the model lifecycle: construction sequencing, the
// mode state machine, checkpoint load/save, and the operation contracts
// concrete models implement.
package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/gomodelkit/modelkit/dataset"
	"github.com/gomodelkit/modelkit/graph"
)

// GraphBuilder is the construction hook a concrete model provides. It is
// called exactly once, during New, after the global step variable exists and
// before the saver is created. Every variable the model wants persisted must
// be declared here.
type GraphBuilder interface {
	// BuildGraph declares the model's variables and records whatever handles
	// the model needs to compute with them later.
	BuildGraph(g *graph.Graph) error
}

// Trainer is implemented by models that can be trained.
type Trainer interface {
	// Train fits the model on a labeled dataset within the given session.
	Train(sess *graph.Session, ds *dataset.Dataset, opts ...TrainOption) error
}

// Evaluator is implemented by models that can score themselves.
type Evaluator interface {
	// Evaluate consumes labeled batches and returns named metrics.
	Evaluate(sess *graph.Session, ds *dataset.Dataset) (map[string]float64, error)
}

// Predictor is implemented by models that can produce predictions.
type Predictor interface {
	// Predict consumes unlabeled batches and returns one prediction row per
	// input row.
	Predict(sess *graph.Session, ds *dataset.Dataset) (mat.Matrix, error)
}

// Model is the full lifecycle contract. BaseModel satisfies it with stubs
// that return NotImplementedError; concrete models embed BaseModel and
// override the operations they support.
type Model interface {
	Trainer
	Evaluator
	Predictor
}

// TrainOptions collects the per-call knobs of Train.
type TrainOptions struct {
	// Callbacks run at the end of every epoch.
	Callbacks []Callback
}

// TrainOption configures one Train call.
type TrainOption func(*TrainOptions)

// WithCallbacks registers epoch callbacks for this Train call.
func WithCallbacks(callbacks ...Callback) TrainOption {
	return func(o *TrainOptions) {
		o.Callbacks = append(o.Callbacks, callbacks...)
	}
}

// ApplyTrainOptions folds a list of options into a TrainOptions value.
// Exported so concrete models outside this package can use it.
func ApplyTrainOptions(opts []TrainOption) *TrainOptions {
	options := &TrainOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
