// Package track wraps engine objects so that every mutating operation is
// executed, observed, logged as a replayable command, and followed by a
// registry rescan that captures children created as side effects.
package track

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/jemviewer/plotrec/core/callsite"
	"github.com/jemviewer/plotrec/core/graph"
	"github.com/jemviewer/plotrec/core/registry"
	"github.com/jemviewer/plotrec/core/serialize"
	"github.com/jemviewer/plotrec/core/session"
)

// DefaultExcludePattern mirrors the consumer's policy: read-only accessors,
// lifecycle/internal names, and the explicit denylist of state-clearing
// operations (clear, clf, sca). Matching is anchored at the start of the
// operation name.
const DefaultExcludePattern = `^(get_.*|stale_callback|draw|apply_aspect|ArtistList|set_id|_.*|__.*|clear|clf|sca$)`

// CompileExclude builds the operation exclusion matcher, optionally
// extending the built-in policy with extra anchored patterns.
func CompileExclude(extra ...string) (*regexp.Regexp, error) {
	pattern := DefaultExcludePattern
	if len(extra) > 0 {
		pattern = fmt.Sprintf("%s|^(?:%s)", pattern, strings.Join(extra, "|"))
	}
	matcher, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile exclusion pattern: %w", err)
	}
	return matcher, nil
}

type Options struct {
	Policy  callsite.Policy
	Exclude *regexp.Regexp
	Logger  *zap.Logger
}

type Tracker struct {
	session    *session.Session
	registry   *registry.Registry
	serializer *serialize.Serializer
	policy     callsite.Policy
	exclude    *regexp.Regexp
	logger     *zap.Logger
	wrapped    map[graph.Handle]*Node
}

func NewTracker(sess *session.Session, reg *registry.Registry, serializer *serialize.Serializer, options Options) *Tracker {
	exclude := options.Exclude
	if exclude == nil {
		exclude = regexp.MustCompile(DefaultExcludePattern)
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		session:    sess,
		registry:   reg,
		serializer: serializer,
		policy:     options.Policy,
		exclude:    exclude,
		logger:     logger,
		wrapped:    map[graph.Handle]*Node{},
	}
}

// Node is the wrapped handle callers invoke operations through.
type Node struct {
	object  graph.Object
	tracker *Tracker
	allowed map[string]bool
}

// Wrap builds (or returns the existing) interception shim for a registered
// object. Idempotent: wrapping twice yields the same node, so no operation
// is ever logged twice for one external call.
func (t *Tracker) Wrap(object graph.Object) (*Node, error) {
	if object == nil {
		return nil, fmt.Errorf("cannot wrap nil object")
	}
	if _, registered := t.registry.Lookup(object); !registered {
		return nil, fmt.Errorf("object of kind %s is not registered", object.Kind())
	}
	if existing, ok := t.wrapped[object.TrackHandle()]; ok {
		return existing, nil
	}
	allowed := map[string]bool{}
	for _, op := range object.Ops() {
		if op == "" || t.exclude.MatchString(op) {
			continue
		}
		allowed[op] = true
	}
	node := &Node{object: object, tracker: t, allowed: allowed}
	t.wrapped[object.TrackHandle()] = node
	return node, nil
}

func (n *Node) Object() graph.Object {
	return n.object
}

// Path returns the registry path assigned at registration.
func (n *Node) Path() (string, bool) {
	return n.tracker.registry.Lookup(n.object)
}

// Child wraps the index-th member of a declared child relation.
func (n *Node) Child(relation string, index int) (*Node, error) {
	children, ok := n.object.Children(relation)
	if !ok {
		return nil, fmt.Errorf("%s does not expose relation %q", n.object.Kind(), relation)
	}
	if index < 0 || index >= len(children) {
		return nil, fmt.Errorf("relation %q has %d members, index %d out of range", relation, len(children), index)
	}
	child := children[index]
	if _, registered := n.tracker.registry.Lookup(child); !registered {
		// Children of a registered parent are registered by construction
		// or by rescan; reaching here means neither happened yet.
		n.tracker.registry.Rescan(n.object)
	}
	return n.tracker.Wrap(child)
}

// Call invokes an operation with positional arguments only.
func (n *Node) Call(op string, args ...any) (any, error) {
	return n.invoke(op, args, nil, callsite.CallerFile(1))
}

// CallNamed invokes an operation with positional and keyword arguments.
func (n *Node) CallNamed(op string, args []any, kwargs ...graph.Arg) (any, error) {
	return n.invoke(op, args, kwargs, callsite.CallerFile(1))
}

func (n *Node) invoke(op string, args []any, kwargs []graph.Arg, callerFile string) (any, error) {
	tracker := n.tracker
	args = unwrapNodes(args)
	kwargs = unwrapArgs(kwargs)

	result, err := n.object.Invoke(op, args, kwargs)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", op, err)
	}

	if n.allowed[op] && tracker.policy.ShouldLog(callerFile) {
		if path, ok := tracker.registry.Lookup(n.object); ok {
			command := tracker.serializer.Command(path, op, args, kwargs)
			tracker.session.AddLog(command)
		}
		// An unresolvable path means an untracked object slipped through;
		// the call ran, it is just not replayable, so it is not logged.
	}

	if n.allowed[op] {
		tracker.registry.Rescan(n.object)
		if resultObjects := flattenObjects(result); len(resultObjects) > 0 {
			tracker.registry.Rescan(n.object)
		}
	}
	return result, nil
}

// unwrapNodes lets callers pass wrapped nodes as arguments; the engine and
// the serializer both see the underlying object.
func unwrapNodes(args []any) []any {
	return lo.Map(args, func(arg any, _ int) any {
		if node, ok := arg.(*Node); ok {
			return node.object
		}
		return arg
	})
}

func unwrapArgs(kwargs []graph.Arg) []graph.Arg {
	return lo.Map(kwargs, func(kwarg graph.Arg, _ int) graph.Arg {
		if node, ok := kwarg.Value.(*Node); ok {
			kwarg.Value = node.object
		}
		return kwarg
	})
}

// flattenObjects walks a result value and collects every engine object in
// it, deduplicated, so containers of created artifacts trigger a rescan.
func flattenObjects(result any) []graph.Object {
	var objects []graph.Object
	var walk func(v any)
	walk = func(v any) {
		if v == nil {
			return
		}
		if object, ok := v.(graph.Object); ok {
			objects = append(objects, object)
			return
		}
		reflected := reflect.ValueOf(v)
		switch reflected.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < reflected.Len(); i++ {
				walk(reflected.Index(i).Interface())
			}
		case reflect.Map:
			for _, key := range reflected.MapKeys() {
				walk(reflected.MapIndex(key).Interface())
			}
		}
	}
	walk(result)
	return lo.Uniq(objects)
}
