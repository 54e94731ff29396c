package graph

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/gomodelkit/modelkit/pkg/errors"
)

func TestNewVariable(t *testing.T) {
	tests := []struct {
		name    string
		varName string
		rows    int
		cols    int
		wantErr bool
	}{
		{name: "valid", varName: "weights", rows: 3, cols: 2, wantErr: false},
		{name: "empty name", varName: "", rows: 3, cols: 2, wantErr: true},
		{name: "zero rows", varName: "w", rows: 0, cols: 2, wantErr: true},
		{name: "negative cols", varName: "w", rows: 3, cols: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			v, err := g.NewVariable(tt.varName, tt.rows, tt.cols)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVariable() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if v.Name() != tt.varName {
				t.Errorf("Name() = %q, want %q", v.Name(), tt.varName)
			}
			r, c := v.Dims()
			if r != tt.rows || c != tt.cols {
				t.Errorf("Dims() = (%d, %d), want (%d, %d)", r, c, tt.rows, tt.cols)
			}
			if v.Initialized() {
				t.Error("new variable should not be initialized")
			}
			if !v.Trainable() {
				t.Error("variables should be trainable by default")
			}
		})
	}
}

func TestNewVariableDuplicateName(t *testing.T) {
	g := New()
	if _, err := g.NewVariable("w", 2, 2); err != nil {
		t.Fatalf("first NewVariable() error = %v", err)
	}
	if _, err := g.NewVariable("w", 3, 3); err == nil {
		t.Fatal("duplicate name should fail")
	}
}

func TestInitializers(t *testing.T) {
	g := New()
	zero, _ := g.NewVariable("zero", 2, 2)
	one, _ := g.NewVariable("one", 2, 2, WithInitializer(Constant(1)))
	rnd, _ := g.NewVariable("rnd", 4, 4, WithInitializer(RandomNormal(0.1, 7)))

	if err := g.InitAllVariablesOp().Run(g); err != nil {
		t.Fatalf("init op error = %v", err)
	}

	if got := zero.Value().At(1, 1); got != 0 {
		t.Errorf("Zeros value = %v, want 0", got)
	}
	if got := one.Value().At(0, 1); got != 1 {
		t.Errorf("Constant value = %v, want 1", got)
	}

	// Same seed reproduces the same draw.
	again := RandomNormal(0.1, 7)(4, 4)
	if !mat.EqualApprox(rnd.Value(), again, 1e-15) {
		t.Error("RandomNormal with the same seed should be reproducible")
	}
}

func TestSetValueShapeMismatch(t *testing.T) {
	g := New()
	v, _ := g.NewVariable("w", 2, 3)
	err := v.SetValue(mat.NewDense(3, 2, nil))
	if err == nil {
		t.Fatal("shape mismatch should fail")
	}
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("error = %v, want DimensionError", err)
	}
}

func TestScalar(t *testing.T) {
	g := New()
	s, _ := g.NewVariable("s", 1, 1)
	if _, err := s.Scalar(); err == nil {
		t.Error("Scalar() before initialization should fail")
	}
	if err := s.SetScalar(2.5); err != nil {
		t.Fatalf("SetScalar() error = %v", err)
	}
	got, err := s.Scalar()
	if err != nil {
		t.Fatalf("Scalar() error = %v", err)
	}
	if got != 2.5 {
		t.Errorf("Scalar() = %v, want 2.5", got)
	}

	w, _ := g.NewVariable("w", 2, 2)
	if err := w.SetScalar(1); err == nil {
		t.Error("SetScalar() on non-scalar variable should fail")
	}
}

func TestTrainableVariables(t *testing.T) {
	g := New()
	g.NewVariable("w", 2, 2)
	g.NewVariable("step", 1, 1, WithTrainable(false))
	g.NewVariable("b", 1, 2)

	trainable := g.TrainableVariables()
	if len(trainable) != 2 {
		t.Fatalf("TrainableVariables() returned %d, want 2", len(trainable))
	}
	if trainable[0].Name() != "w" || trainable[1].Name() != "b" {
		t.Errorf("trainable order = %q, %q; want w, b", trainable[0].Name(), trainable[1].Name())
	}
	if g.NumVariables() != 3 {
		t.Errorf("NumVariables() = %d, want 3", g.NumVariables())
	}
}

func TestGlobalStep(t *testing.T) {
	g := New()
	if got := GlobalStep(g); got != 0 {
		t.Errorf("GlobalStep() on empty graph = %d, want 0", got)
	}

	v, err := NewGlobalStep(g)
	if err != nil {
		t.Fatalf("NewGlobalStep() error = %v", err)
	}
	if v.Trainable() {
		t.Error("global step must not be trainable")
	}
	if err := v.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	for want := int64(1); want <= 3; want++ {
		got, err := IncrementGlobalStep(g)
		if err != nil {
			t.Fatalf("IncrementGlobalStep() error = %v", err)
		}
		if got != want {
			t.Errorf("IncrementGlobalStep() = %d, want %d", got, want)
		}
	}
	if got := GlobalStep(g); got != 3 {
		t.Errorf("GlobalStep() = %d, want 3", got)
	}
}

func TestSession(t *testing.T) {
	g := New()
	v, _ := g.NewVariable("w", 1, 1, WithInitializer(Constant(math.Pi)))

	sess := NewSession(g)
	if sess.Graph() != g {
		t.Error("Session.Graph() should return the bound graph")
	}
	if err := sess.Run(g.InitAllVariablesOp()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := v.Value().At(0, 0); got != math.Pi {
		t.Errorf("value after init = %v, want pi", got)
	}

	failing := NewOp("boom", func(*Graph) error { return errors.New("boom") })
	if err := sess.Run(failing); err == nil {
		t.Error("Run() should surface op errors")
	}
}

func TestNewSessionDefaultsToDefaultGraph(t *testing.T) {
	g := ResetDefault()
	defer ResetDefault()

	sess := NewSession(nil)
	if sess.Graph() != g {
		t.Error("NewSession(nil) should bind the default graph")
	}
}
