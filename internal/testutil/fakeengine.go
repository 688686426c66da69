// Package testutil provides a scriptable in-memory plotting engine used by
// package tests across the module.
package testutil

import (
	"fmt"

	"github.com/jemviewer/plotrec/core/graph"
)

// FakeObject is a scriptable engine object. Behavior per operation is
// configured through Behaviors; unknown operations succeed and return nil.
type FakeObject struct {
	graph.Trackable
	ObjectKind graph.Kind
	OpNames    []string
	Relations  map[string][]*FakeObject
	Behaviors  map[string]func(args []any, kwargs []graph.Arg) (any, error)
	Invoked    []string
}

func (f *FakeObject) Kind() graph.Kind {
	return f.ObjectKind
}

func (f *FakeObject) Ops() []string {
	return f.OpNames
}

func (f *FakeObject) Invoke(op string, args []any, kwargs []graph.Arg) (any, error) {
	f.Invoked = append(f.Invoked, op)
	if behavior, ok := f.Behaviors[op]; ok {
		return behavior(args, kwargs)
	}
	return nil, nil
}

func (f *FakeObject) Children(relation string) ([]graph.Object, bool) {
	if f.Relations == nil {
		return nil, false
	}
	children, ok := f.Relations[relation]
	if !ok {
		return nil, false
	}
	out := make([]graph.Object, len(children))
	for i, child := range children {
		out[i] = child
	}
	return out, true
}

// AddChild appends to a relation, creating it if needed.
func (f *FakeObject) AddChild(relation string, child *FakeObject) *FakeObject {
	if f.Relations == nil {
		f.Relations = map[string][]*FakeObject{}
	}
	f.Relations[relation] = append(f.Relations[relation], child)
	return child
}

// Behave installs an operation behavior and makes sure the op is exposed.
func (f *FakeObject) Behave(op string, behavior func(args []any, kwargs []graph.Arg) (any, error)) {
	if f.Behaviors == nil {
		f.Behaviors = map[string]func(args []any, kwargs []graph.Arg) (any, error){}
	}
	f.Behaviors[op] = behavior
	for _, existing := range f.OpNames {
		if existing == op {
			return
		}
	}
	f.OpNames = append(f.OpNames, op)
}

// NewFakeAxes builds an axes object exposing the standard artifact
// relations, all empty, plus a few common mutating and excluded ops.
func NewFakeAxes() *FakeObject {
	return &FakeObject{
		ObjectKind: graph.KindAxes,
		OpNames:    []string{"plot", "annotate", "set_title", "set_xlim", "get_xlim", "clear", "draw"},
		Relations: map[string][]*FakeObject{
			"lines":       {},
			"patches":     {},
			"collections": {},
			"images":      {},
			"texts":       {},
		},
	}
}

// NewFakeLine builds a drawn-artifact object with no child relations.
func NewFakeLine() *FakeObject {
	return &FakeObject{
		ObjectKind: graph.KindLine,
		OpNames:    []string{"set_color", "set_linewidth", "get_color"},
	}
}

// NewFakeFigure builds a figure with the given number of axes.
func NewFakeFigure(axesCount int) *FakeObject {
	figure := &FakeObject{
		ObjectKind: graph.KindFigure,
		OpNames:    []string{"suptitle", "add_subplot", "clear", "clf"},
		Relations:  map[string][]*FakeObject{"axes": {}},
	}
	for i := 0; i < axesCount; i++ {
		figure.AddChild("axes", NewFakeAxes())
	}
	return figure
}

// FakeEngine hands out figures; each figure starts with one axes, matching
// the consumer's default surface.
type FakeEngine struct {
	Figures []*FakeObject
	FailNew bool
}

func (e *FakeEngine) NewFigure() (graph.Object, error) {
	if e.FailNew {
		return nil, fmt.Errorf("engine refused to create a figure")
	}
	figure := NewFakeFigure(1)
	e.Figures = append(e.Figures, figure)
	return figure, nil
}
