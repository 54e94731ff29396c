package model

import (
	"math"
	"time"

	"github.com/gomodelkit/modelkit/pkg/log"
)

// CallbackEnv is the environment passed to training callbacks at the end of
// each epoch.
type CallbackEnv struct {
	Model *BaseModel
	// Epoch is the zero-based index of the finished epoch.
	Epoch int
	// Step is the global step after the epoch.
	Step int64
	// EvalResults holds the metrics the training loop computed this epoch,
	// at minimum "loss".
	EvalResults map[string]float64
	// StopTraining asks the loop to stop after this epoch. Setting it is
	// expected control flow, not an error.
	StopTraining bool
}

// Callback runs at the end of a training epoch. Returning an error aborts
// training and surfaces from Train.
type Callback func(env *CallbackEnv) error

// CallbackList runs a sequence of callbacks in registration order.
type CallbackList struct {
	callbacks []Callback
}

// NewCallbackList creates a CallbackList from the given callbacks.
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{callbacks: callbacks}
}

// Add appends a callback.
func (cl *CallbackList) Add(cb Callback) {
	cl.callbacks = append(cl.callbacks, cb)
}

// Run invokes every callback with env, stopping at the first error.
func (cl *CallbackList) Run(env *CallbackEnv) error {
	for _, cb := range cl.callbacks {
		if err := cb(env); err != nil {
			return err
		}
	}
	return nil
}

// PrintEvaluation logs the epoch's metrics every period epochs.
func PrintEvaluation(period int) Callback {
	if period <= 0 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.Epoch%period != 0 {
			return nil
		}
		fields := []any{
			log.EpochKey, env.Epoch,
			log.StepKey, env.Step,
		}
		for name, value := range env.EvalResults {
			fields = append(fields, "metric."+name, value)
		}
		env.Model.Logger().Info("epoch metrics", fields...)
		return nil
	}
}

// RecordEvaluation appends each epoch's metrics to history, keyed by metric
// name.
func RecordEvaluation(history *map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		if *history == nil {
			*history = make(map[string][]float64)
		}
		for name, value := range env.EvalResults {
			(*history)[name] = append((*history)[name], value)
		}
		return nil
	}
}

// EarlyStopping stops training once metric has not improved for rounds
// consecutive epochs. minimize selects the improvement direction.
func EarlyStopping(rounds int, metric string, minimize bool) Callback {
	bestScore := math.Inf(1)
	if !minimize {
		bestScore = math.Inf(-1)
	}
	bestEpoch := 0
	roundsNoImprove := 0

	return func(env *CallbackEnv) error {
		value, exists := env.EvalResults[metric]
		if !exists {
			return nil
		}
		improved := value < bestScore
		if !minimize {
			improved = value > bestScore
		}
		if improved {
			bestScore = value
			bestEpoch = env.Epoch
			roundsNoImprove = 0
			return nil
		}
		roundsNoImprove++
		if roundsNoImprove >= rounds {
			env.Model.Logger().Info("early stopping",
				log.EpochKey, env.Epoch,
				"best_epoch", bestEpoch,
				"best_"+metric, bestScore,
			)
			env.StopTraining = true
		}
		return nil
	}
}

// TimeLimit stops training once the wall-clock budget is spent. The clock
// starts when the callback is created.
func TimeLimit(maxDuration time.Duration) Callback {
	startTime := time.Now()
	return func(env *CallbackEnv) error {
		if time.Since(startTime) > maxDuration {
			env.Model.Logger().Info("time limit reached",
				log.EpochKey, env.Epoch,
				log.DurationMsKey, time.Since(startTime).Milliseconds(),
			)
			env.StopTraining = true
		}
		return nil
	}
}
