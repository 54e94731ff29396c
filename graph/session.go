package graph

import (
	"github.com/gomodelkit/modelkit/pkg/errors"
)

// Op is a named operation executed against a graph by a Session.
type Op interface {
	// Name identifies the operation in errors and logs.
	Name() string
	// Run executes the operation against g.
	Run(g *Graph) error
}

type opFunc struct {
	name string
	fn   func(g *Graph) error
}

func (o *opFunc) Name() string       { return o.name }
func (o *opFunc) Run(g *Graph) error { return o.fn(g) }

// NewOp wraps a function as an Op.
func NewOp(name string, fn func(g *Graph) error) Op {
	return &opFunc{name: name, fn: fn}
}

// InitAllVariablesOp returns the combined initializer: one op that runs every
// variable's initializer in creation order.
func (g *Graph) InitAllVariablesOp() Op {
	return NewOp("init_all_variables", func(g *Graph) error {
		for _, v := range g.vars {
			if err := v.Initialize(); err != nil {
				return errors.Wrapf(err, "initializing variable %q", v.Name())
			}
		}
		return nil
	})
}

// Session is the execution handle lifecycle operations run within. It binds a
// graph and executes ops sequentially, one at a time; it carries no state of
// its own. Models never create sessions; callers own them.
type Session struct {
	graph *Graph
}

// NewSession creates a session bound to g, or to the default graph when g is
// nil.
func NewSession(g *Graph) *Session {
	if g == nil {
		g = Default()
	}
	return &Session{graph: g}
}

// Graph returns the graph the session is bound to.
func (s *Session) Graph() *Graph { return s.graph }

// Run executes the given ops in order, stopping at the first failure.
func (s *Session) Run(ops ...Op) error {
	for _, op := range ops {
		if err := op.Run(s.graph); err != nil {
			return errors.Wrapf(err, "running op %q", op.Name())
		}
	}
	return nil
}
