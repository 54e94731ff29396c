package graph

import (
	"github.com/gomodelkit/modelkit/pkg/errors"
)

// GlobalStepName is the reserved name of the global step variable.
const GlobalStepName = "global_step"

// NewGlobalStep declares the global step counter in g: a non-trainable 1x1
// variable initialized to zero, saved and restored like any other variable so
// resumed training continues from the recorded step.
func NewGlobalStep(g *Graph) (*Variable, error) {
	return g.NewVariable(GlobalStepName, 1, 1,
		WithTrainable(false),
		WithInitializer(Zeros()),
	)
}

// GlobalStep returns the current value of g's global step counter, or 0 if
// the counter does not exist or has not been initialized.
func GlobalStep(g *Graph) int64 {
	v, ok := g.Variable(GlobalStepName)
	if !ok || !v.Initialized() {
		return 0
	}
	step, err := v.Scalar()
	if err != nil {
		return 0
	}
	return int64(step)
}

// IncrementGlobalStep adds one to g's global step counter and returns the new
// value. The counter must exist.
func IncrementGlobalStep(g *Graph) (int64, error) {
	v, ok := g.Variable(GlobalStepName)
	if !ok {
		return 0, errors.Newf("graph has no %q variable", GlobalStepName)
	}
	if !v.Initialized() {
		if err := v.Initialize(); err != nil {
			return 0, err
		}
	}
	step, err := v.Scalar()
	if err != nil {
		return 0, err
	}
	next := int64(step) + 1
	if err := v.SetScalar(float64(next)); err != nil {
		return 0, err
	}
	return next, nil
}
