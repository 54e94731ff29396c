// Package errors provides error handling and the warning system for modelkit.
// Error types are structured so that callers can branch on them with As/Is and
// so that log backends can emit them as structured fields.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("modelkit warning: %v\n", w)
	}
	// zerolog warning sink, set lazily by pkg/log to avoid an import cycle.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler sets the library-wide warning handler. It controls how
// warnings such as ConvergenceWarning are delivered.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // drop warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink. Installed by the
// log package rather than imported directly, to avoid a circular import.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. If a zerolog sink is installed it takes precedence
// over the plain handler.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// ConvergenceWarning is emitted when a training run ends without the loss
// improving for the configured number of rounds.
type ConvergenceWarning struct {
	Model   string
	Epochs  int
	Message string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s did not converge after %d epochs: %s", w.Model, w.Epochs, w.Message)
	}
	return fmt.Sprintf("%s did not converge after %d epochs. Consider increasing the epoch count or lowering the learning rate.", w.Model, w.Epochs)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("model", w.Model).
		Int("epochs", w.Epochs).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a new ConvergenceWarning.
func NewConvergenceWarning(model string, epochs int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Model: model, Epochs: epochs, Message: message}
}

// DataConversionWarning is emitted when input data is implicitly converted,
// for example a dense copy of a non-dense matrix before batching.
type DataConversionWarning struct {
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("data converted from %s to %s. Reason: %s", w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning creates a new DataConversionWarning.
func NewDataConversionWarning(from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{FromType: from, ToType: to, Reason: reason}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotImplementedError is returned when a lifecycle operation (BuildGraph,
// Train, Evaluate, Predict) is invoked on a model that does not override it.
type NotImplementedError struct {
	ModelName string
	Method    string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("modelkit: %s: %s() is not implemented. Concrete models must override it", e.ModelName, e.Method)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *NotImplementedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotImplementedError")
}

// NewNotImplementedError creates a NotImplementedError with a stack trace.
func NewNotImplementedError(modelName, method string) error {
	err := &NotImplementedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// NotInitializedError is returned when variable values are read before the
// init op ran and before any checkpoint was restored.
type NotInitializedError struct {
	ModelName string
	Variable  string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("modelkit: %s: variable %q has no value. Run the init op or restore a checkpoint first", e.ModelName, e.Variable)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *NotInitializedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("variable", e.Variable).
		Str("type", "NotInitializedError")
}

// NewNotInitializedError creates a NotInitializedError with a stack trace.
func NewNotInitializedError(modelName, variable string) error {
	err := &NotInitializedError{ModelName: modelName, Variable: variable}
	return errors.WithStack(err)
}

// DimensionError is returned when input data dimensions differ from what the
// model or operation expects.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("modelkit: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError is returned when a configuration or call parameter fails
// validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("modelkit: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError is returned when an argument value is unusable, for example a
// non-column label matrix.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("modelkit: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError is a general model-level error wrapping a cause.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("modelkit: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("modelkit: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace.
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// CheckpointError is returned when reading or writing a checkpoint fails for
// reasons other than simple absence (absence is not an error).
type CheckpointError struct {
	Op   string
	Dir  string
	Path string
	Err  error
}

func (e *CheckpointError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("modelkit: %s: checkpoint %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("modelkit: %s: checkpoint dir %s: %v", e.Op, e.Dir, e.Err)
}

func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *CheckpointError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("dir", e.Dir).
		Str("path", e.Path).
		Str("type", "CheckpointError")
}

// NewCheckpointError creates a CheckpointError with a stack trace.
func NewCheckpointError(op, dir, path string, err error) error {
	ckptErr := &CheckpointError{Op: op, Dir: dir, Path: path, Err: err}
	return errors.WithStack(ckptErr)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As reports whether err can be assigned to target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// AssertionFailedf reports a violated precondition, such as a checkpoint
// directory that is neither passed nor configured. Callers treat these as
// fatal programming errors rather than runtime conditions.
func AssertionFailedf(format string, args ...interface{}) error {
	return errors.AssertionFailedf(format, args...)
}

// IsAssertionFailure reports whether err is an assertion failure created by
// AssertionFailedf.
func IsAssertionFailure(err error) bool {
	return errors.HasAssertionFailure(err)
}

// ===========================================================================
//
//	Sentinel errors
//
// ===========================================================================

var (
	// ErrNotImplemented marks a feature with no implementation.
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData is returned when an empty dataset or matrix is passed in.
	ErrEmptyData = New("empty data")

	// ErrOutOfRange signals that a dataset iterator is exhausted. It ends the
	// current epoch loop and is never surfaced to callers as a failure.
	ErrOutOfRange = New("iterator out of range")
)
