// Package config defines the runtime configuration models reference.
//
// A Config is owned by the caller; models keep a reference and never copy it.
// Loading goes through viper: defaults, then an optional YAML/TOML/JSON file,
// then MODELKIT_* environment overrides (e.g. MODELKIT_TRAINING_EPOCHS=20).
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/gomodelkit/modelkit/pkg/errors"
)

// Config is the complete modelkit configuration.
type Config struct {
	Model      ModelConfig      `mapstructure:"model"`
	Training   TrainingConfig   `mapstructure:"training"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ModelConfig describes the model architecture. Concrete models consume the
// fields they understand and ignore the rest.
type ModelConfig struct {
	// Units are the layer sizes, input to output.
	Units []int `mapstructure:"units"`
	// Classes is the number of output classes for classifiers.
	Classes int `mapstructure:"classes"`
}

// TrainingConfig controls the training loop.
type TrainingConfig struct {
	// Epochs is the number of passes over the training data.
	Epochs int `mapstructure:"epochs"`
	// BatchSize is the mini-batch size.
	BatchSize int `mapstructure:"batch_size"`
	// LearningRate is the SGD step size.
	LearningRate float64 `mapstructure:"learning_rate"`
	// Seed drives shuffling and weight initialization for reproducible runs.
	Seed int64 `mapstructure:"seed"`
	// EarlyStoppingRounds stops training after this many epochs without
	// improvement. 0 disables early stopping.
	EarlyStoppingRounds int `mapstructure:"early_stopping_rounds"`
}

// CheckpointConfig controls checkpoint placement and retention.
type CheckpointConfig struct {
	// Dir is the default checkpoint directory; Load/Save fall back to it
	// when called without an explicit directory.
	Dir string `mapstructure:"dir"`
	// Keep is how many checkpoint files to retain; older files are pruned
	// after each save. <= 0 keeps everything.
	Keep int `mapstructure:"keep"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Units:   []int{16},
			Classes: 2,
		},
		Training: TrainingConfig{
			Epochs:       10,
			BatchSize:    32,
			LearningRate: 0.1,
			Seed:         42,
		},
		Checkpoint: CheckpointConfig{
			Keep: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("model.units", defaults.Model.Units)
	v.SetDefault("model.classes", defaults.Model.Classes)

	v.SetDefault("training.epochs", defaults.Training.Epochs)
	v.SetDefault("training.batch_size", defaults.Training.BatchSize)
	v.SetDefault("training.learning_rate", defaults.Training.LearningRate)
	v.SetDefault("training.seed", defaults.Training.Seed)
	v.SetDefault("training.early_stopping_rounds", defaults.Training.EarlyStoppingRounds)

	v.SetDefault("checkpoint.dir", defaults.Checkpoint.Dir)
	v.SetDefault("checkpoint.keep", defaults.Checkpoint.Keep)

	v.SetDefault("logging.level", defaults.Logging.Level)
}

// LoadFile reads the configuration from path, applying defaults and
// MODELKIT_* environment overrides, and validates the result. An empty path
// skips the file and loads defaults plus environment only.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MODELKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %q", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges. It is called by LoadFile; callers who build a
// Config by hand should call it themselves.
func (c *Config) Validate() error {
	if c.Training.Epochs <= 0 {
		return errors.NewValidationError("training.epochs", "must be positive", c.Training.Epochs)
	}
	if c.Training.BatchSize <= 0 {
		return errors.NewValidationError("training.batch_size", "must be positive", c.Training.BatchSize)
	}
	if c.Training.LearningRate <= 0 {
		return errors.NewValidationError("training.learning_rate", "must be positive", c.Training.LearningRate)
	}
	if c.Training.EarlyStoppingRounds < 0 {
		return errors.NewValidationError("training.early_stopping_rounds", "must not be negative", c.Training.EarlyStoppingRounds)
	}
	if c.Model.Classes < 0 {
		return errors.NewValidationError("model.classes", "must not be negative", c.Model.Classes)
	}
	for i, units := range c.Model.Units {
		if units <= 0 {
			return errors.NewValidationError("model.units", "layer sizes must be positive", i)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewValidationError("logging.level", "must be one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
