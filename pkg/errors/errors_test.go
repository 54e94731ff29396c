package errors

import (
	"strings"
	"testing"
)

func TestWarningHandler(t *testing.T) {
	var captured []error
	SetWarningHandler(func(w error) { captured = append(captured, w) })
	defer SetWarningHandler(nil)

	warning := NewConvergenceWarning("TestModel", 10, "loss stalled")
	Warn(warning)

	if len(captured) != 1 {
		t.Fatalf("captured %d warnings, want 1", len(captured))
	}
	if captured[0] != warning {
		t.Error("handler should receive the original warning value")
	}
	if !strings.Contains(captured[0].Error(), "TestModel") {
		t.Errorf("warning message = %q", captured[0].Error())
	}
}

func TestZerologWarnFuncTakesPrecedence(t *testing.T) {
	var viaHandler, viaZerolog int
	SetWarningHandler(func(error) { viaHandler++ })
	SetZerologWarnFunc(func(error) { viaZerolog++ })
	defer func() {
		SetWarningHandler(nil)
		SetZerologWarnFunc(nil)
	}()

	Warn(NewDataConversionWarning("mat.Matrix", "*mat.Dense", "dense copy"))
	if viaZerolog != 1 || viaHandler != 0 {
		t.Errorf("zerolog sink = %d, handler = %d; want 1, 0", viaZerolog, viaHandler)
	}
}

func TestStructuredErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
		check    func(error) bool
	}{
		{
			name:     "NotImplementedError",
			err:      NewNotImplementedError("BaseModel", "Train"),
			contains: []string{"BaseModel", "Train()", "not implemented"},
			check: func(err error) bool {
				var e *NotImplementedError
				return As(err, &e) && e.Method == "Train"
			},
		},
		{
			name:     "NotInitializedError",
			err:      NewNotInitializedError("M", "weights"),
			contains: []string{"weights", "no value"},
			check: func(err error) bool {
				var e *NotInitializedError
				return As(err, &e) && e.Variable == "weights"
			},
		},
		{
			name:     "DimensionError rows",
			err:      NewDimensionError("Train", 10, 7, 0),
			contains: []string{"axis 0", "rows", "Expected 10, got 7"},
			check: func(err error) bool {
				var e *DimensionError
				return As(err, &e) && e.Axis == 0
			},
		},
		{
			name:     "DimensionError features",
			err:      NewDimensionError("Predict", 3, 5, 1),
			contains: []string{"features"},
			check: func(err error) bool {
				var e *DimensionError
				return As(err, &e) && e.Axis == 1
			},
		},
		{
			name:     "ValidationError",
			err:      NewValidationError("epochs", "must be positive", -1),
			contains: []string{"epochs", "must be positive", "-1"},
			check: func(err error) bool {
				var e *ValidationError
				return As(err, &e) && e.ParamName == "epochs"
			},
		},
		{
			name:     "ValueError",
			err:      NewValueError("Accuracy", "empty matrix"),
			contains: []string{"Accuracy", "empty matrix"},
			check: func(err error) bool {
				var e *ValueError
				return As(err, &e)
			},
		},
		{
			name:     "CheckpointError",
			err:      NewCheckpointError("Saver.Restore", "/tmp/ckpt", "/tmp/ckpt/model.ckpt-1.gob", New("corrupt")),
			contains: []string{"Saver.Restore", "model.ckpt-1.gob", "corrupt"},
			check: func(err error) bool {
				var e *CheckpointError
				return As(err, &e) && e.Dir == "/tmp/ckpt"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("message %q does not contain %q", msg, want)
				}
			}
			if !tt.check(tt.err) {
				t.Error("As() check failed through the WithStack wrapper")
			}
		})
	}
}

func TestModelErrorUnwrap(t *testing.T) {
	cause := New("root cause")
	err := NewModelError("Train", "gradient", cause)
	if !Is(err, cause) {
		t.Error("ModelError should unwrap to its cause")
	}
}

func TestAssertionFailure(t *testing.T) {
	err := AssertionFailedf("checkpoint dir not set for %s", "M")
	if !IsAssertionFailure(err) {
		t.Error("AssertionFailedf result should report as assertion failure")
	}
	if IsAssertionFailure(New("plain")) {
		t.Error("plain errors are not assertion failures")
	}
	if IsAssertionFailure(nil) {
		t.Error("nil is not an assertion failure")
	}
}

func TestSentinels(t *testing.T) {
	wrapped := Wrap(ErrOutOfRange, "epoch loop")
	if !Is(wrapped, ErrOutOfRange) {
		t.Error("wrapped sentinel should match with Is")
	}
	if Is(ErrOutOfRange, ErrEmptyData) {
		t.Error("distinct sentinels must not match")
	}
}

func TestRecover(t *testing.T) {
	t.Run("converts panic to error", func(t *testing.T) {
		fn := func() (err error) {
			defer Recover(&err, "test op")
			panic("kaboom")
		}
		err := fn()
		var panicErr *PanicError
		if !As(err, &panicErr) {
			t.Fatalf("error = %v, want PanicError", err)
		}
		if panicErr.Operation != "test op" {
			t.Errorf("Operation = %q", panicErr.Operation)
		}
		if panicErr.StackTrace == "" {
			t.Error("stack trace should be captured")
		}
	})

	t.Run("no panic leaves error untouched", func(t *testing.T) {
		fn := func() (err error) {
			defer Recover(&err, "test op")
			return nil
		}
		if err := fn(); err != nil {
			t.Errorf("error = %v, want nil", err)
		}
	})

	t.Run("panic wraps existing error", func(t *testing.T) {
		cause := New("original")
		fn := func() (err error) {
			defer Recover(&err, "test op")
			err = cause
			panic("late panic")
		}
		err := fn()
		if !Is(err, cause) {
			t.Errorf("error = %v, should wrap the original", err)
		}
	})
}

func TestSafeExecute(t *testing.T) {
	if err := SafeExecute("ok", func() error { return nil }); err != nil {
		t.Errorf("error = %v, want nil", err)
	}
	err := SafeExecute("panics", func() error { panic(42) })
	var panicErr *PanicError
	if !As(err, &panicErr) {
		t.Fatalf("error = %v, want PanicError", err)
	}
	if panicErr.PanicValue != 42 {
		t.Errorf("PanicValue = %v, want 42", panicErr.PanicValue)
	}
}
