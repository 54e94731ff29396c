// Package log defines standard attribute keys for model lifecycle logging.
//
// Using these keys keeps log output uniform across packages, which makes the
// stream filterable: every checkpoint save carries checkpoint.step, every
// training step carries train.step, and so on. Keys follow a hierarchical
// naming convention ("model.name", "train.epoch") for structured analysis.
package log

// Model and operation context.
const (
	// ModelNameKey identifies the model type.
	// Examples: "SoftmaxClassifier".
	ModelNameKey = "model.name"

	// ModelIDKey is the unique identifier of a model instance, assigned at
	// construction. Useful when several instances of the same type run in
	// one process.
	ModelIDKey = "model.id"

	// ModeKey is the model's current lifecycle mode.
	// Values: "train", "eval", "infer", "retrain".
	ModeKey = "ml.mode"

	// OperationKey is the lifecycle operation being performed.
	// Standard values: "build_graph", "train", "evaluate", "predict",
	// "load", "save".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package or component emitting the record.
	// Examples: "linear", "checkpoint", "dataset".
	ComponentKey = "ml.component"
)

// Training progress.
const (
	// EpochKey is the zero-based epoch index of the current training loop.
	EpochKey = "train.epoch"

	// StepKey is the value of the global step counter.
	StepKey = "train.step"

	// LossKey is the loss value of the most recent update.
	LossKey = "train.loss"
)

// Data shape.
const (
	// SamplesKey is the number of samples (rows) being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of features (columns) being processed.
	FeaturesKey = "data.features"

	// BatchSizeKey is the mini-batch size of the current loop.
	BatchSizeKey = "data.batch_size"
)

// Checkpointing.
const (
	// CheckpointDirKey is the directory checkpoints are read from or
	// written to.
	CheckpointDirKey = "checkpoint.dir"

	// CheckpointPathKey is the path of a specific checkpoint file.
	CheckpointPathKey = "checkpoint.path"

	// CheckpointStepKey is the global step a checkpoint was tagged with.
	CheckpointStepKey = "checkpoint.step"
)

// Performance.
const (
	// DurationMsKey records the execution time of an operation in
	// milliseconds.
	DurationMsKey = "perf.duration_ms"
)
