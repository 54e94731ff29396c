// Package graph holds the mutable computation state of a model: named
// variables, their initializers, and the execution handle (Session) that
// lifecycle operations run against.
//
// A Graph is an ordered registry of variables. It is deliberately not a
// symbolic computation graph: concrete models compute with gonum directly and
// use the Graph only as the unit of initialization and checkpointing. A
// process-wide default graph exists for callers that do not manage their own;
// everything else takes the graph explicitly.
//
// Graphs assume exclusive sequential access. Concurrent mutation of the same
// graph from multiple goroutines is not supported.
package graph

import (
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/gomodelkit/modelkit/pkg/errors"
)

// Initializer produces the initial value for a variable of the given shape.
type Initializer func(rows, cols int) *mat.Dense

// Zeros returns an initializer that fills the variable with zeros.
func Zeros() Initializer {
	return func(rows, cols int) *mat.Dense {
		return mat.NewDense(rows, cols, nil)
	}
}

// Constant returns an initializer that fills the variable with v.
func Constant(v float64) Initializer {
	return func(rows, cols int) *mat.Dense {
		data := make([]float64, rows*cols)
		for i := range data {
			data[i] = v
		}
		return mat.NewDense(rows, cols, data)
	}
}

// RandomNormal returns an initializer drawing from N(0, stddev²) with a fixed
// seed, so runs are reproducible.
func RandomNormal(stddev float64, seed int64) Initializer {
	return func(rows, cols int) *mat.Dense {
		rnd := rand.New(rand.NewSource(seed))
		data := make([]float64, rows*cols)
		for i := range data {
			data[i] = rnd.NormFloat64() * stddev
		}
		return mat.NewDense(rows, cols, data)
	}
}

// Variable is a named, shaped value owned by a Graph. Its value is nil until
// the init op runs or a checkpoint restore assigns it.
type Variable struct {
	name      string
	rows      int
	cols      int
	trainable bool
	init      Initializer
	value     *mat.Dense
}

// Name returns the variable's unique name within its graph.
func (v *Variable) Name() string { return v.name }

// Dims returns the variable's shape.
func (v *Variable) Dims() (rows, cols int) { return v.rows, v.cols }

// Trainable reports whether the variable participates in training updates.
// The global step counter is the canonical non-trainable variable.
func (v *Variable) Trainable() bool { return v.trainable }

// Initialized reports whether the variable holds a value.
func (v *Variable) Initialized() bool { return v.value != nil }

// Value returns the variable's current value, or nil before initialization.
func (v *Variable) Value() *mat.Dense { return v.value }

// SetValue assigns a value. The shape must match the declared shape.
func (v *Variable) SetValue(m *mat.Dense) error {
	r, c := m.Dims()
	if r != v.rows {
		return errors.NewDimensionError("Variable.SetValue: "+v.name, v.rows, r, 0)
	}
	if c != v.cols {
		return errors.NewDimensionError("Variable.SetValue: "+v.name, v.cols, c, 1)
	}
	v.value = m
	return nil
}

// Initialize runs the variable's initializer, replacing any current value.
func (v *Variable) Initialize() error {
	value := v.init(v.rows, v.cols)
	return v.SetValue(value)
}

// Scalar returns the single element of a 1x1 variable.
func (v *Variable) Scalar() (float64, error) {
	if v.rows != 1 || v.cols != 1 {
		return 0, errors.NewValueError("Variable.Scalar", "variable "+v.name+" is not scalar")
	}
	if v.value == nil {
		return 0, errors.NewNotInitializedError("graph", v.name)
	}
	return v.value.At(0, 0), nil
}

// SetScalar assigns the single element of a 1x1 variable.
func (v *Variable) SetScalar(x float64) error {
	if v.rows != 1 || v.cols != 1 {
		return errors.NewValueError("Variable.SetScalar", "variable "+v.name+" is not scalar")
	}
	if v.value == nil {
		v.value = mat.NewDense(1, 1, nil)
	}
	v.value.Set(0, 0, x)
	return nil
}

// VarOption configures a variable at creation time.
type VarOption func(*Variable)

// WithTrainable marks the variable as trainable or not. Default is trainable.
func WithTrainable(trainable bool) VarOption {
	return func(v *Variable) { v.trainable = trainable }
}

// WithInitializer sets the variable's initializer. Default is Zeros.
func WithInitializer(init Initializer) VarOption {
	return func(v *Variable) { v.init = init }
}

// Graph is an ordered registry of variables.
type Graph struct {
	vars   []*Variable
	byName map[string]*Variable
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{byName: make(map[string]*Variable)}
}

var (
	defaultMu    sync.Mutex
	defaultGraph = New()
)

// Default returns the process-wide default graph, used when a model is
// constructed without an explicit graph.
func Default() *Graph {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultGraph
}

// ResetDefault replaces the process-wide default graph with a fresh one and
// returns it. Mainly useful in tests, where variable names would otherwise
// collide across cases.
func ResetDefault() *Graph {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultGraph = New()
	return defaultGraph
}

// NewVariable declares a variable in the graph. Names must be unique; the
// value stays nil until initialization or restore.
func (g *Graph) NewVariable(name string, rows, cols int, opts ...VarOption) (*Variable, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", "must not be empty", name)
	}
	if rows <= 0 || cols <= 0 {
		return nil, errors.NewValidationError("shape", "dimensions must be positive", []int{rows, cols})
	}
	if _, exists := g.byName[name]; exists {
		return nil, errors.NewValidationError("name", "variable already exists in graph", name)
	}
	v := &Variable{
		name:      name,
		rows:      rows,
		cols:      cols,
		trainable: true,
		init:      Zeros(),
	}
	for _, opt := range opts {
		opt(v)
	}
	g.vars = append(g.vars, v)
	g.byName[name] = v
	return v, nil
}

// Variable looks up a variable by name.
func (g *Graph) Variable(name string) (*Variable, bool) {
	v, ok := g.byName[name]
	return v, ok
}

// Variables returns all variables in creation order.
func (g *Graph) Variables() []*Variable {
	out := make([]*Variable, len(g.vars))
	copy(out, g.vars)
	return out
}

// TrainableVariables returns the trainable variables in creation order.
func (g *Graph) TrainableVariables() []*Variable {
	var out []*Variable
	for _, v := range g.vars {
		if v.trainable {
			out = append(out, v)
		}
	}
	return out
}

// NumVariables returns the number of declared variables.
func (g *Graph) NumVariables() int { return len(g.vars) }
