// Package graph declares the capability surface an engine object must
// expose to be tracked: its kind, its finite operation set, its named
// ordered child collections, and an invoke entry point. The recorder never
// draws; it invokes operations on these objects and observes the result.
package graph

type Kind string

const (
	KindFigure     Kind = "figure"
	KindAxes       Kind = "axes"
	KindLine       Kind = "line"
	KindPatch      Kind = "patch"
	KindCollection Kind = "collection"
	KindImage      Kind = "image"
	KindText       Kind = "text"
)

// Handle is a stable integer identity token assigned at first registration.
// Zero means unregistered.
type Handle int

// RegistryID identifies the arena a handle belongs to. A handle is only
// meaningful inside its owning registry; other registries treat the object
// as unregistered.
type RegistryID uint64

// Arg is one named (keyword) argument of an invocation.
type Arg struct {
	Name  string
	Value any
}

// Object is an engine-side plotting object. Operation sets and child
// relations are enumerated explicitly; the recorder performs no member
// introspection.
type Object interface {
	Kind() Kind
	// Ops lists the operation names this object exposes. The interception
	// layer filters them against the exclusion policy before wrapping.
	Ops() []string
	// Invoke runs one named operation with positional and keyword
	// arguments and returns the engine's result.
	Invoke(op string, args []any, kwargs []Arg) (any, error)
	// Children returns the ordered members of a named child collection,
	// or ok=false when this object does not expose the relation. Absence
	// is expected, not exceptional.
	Children(relation string) ([]Object, bool)

	TrackHandle() Handle
	TrackOwner() RegistryID
	SetTrackHandle(owner RegistryID, handle Handle)
}

// Trackable supplies the handle slot; engine object implementations embed
// it.
type Trackable struct {
	owner  RegistryID
	handle Handle
}

func (t *Trackable) TrackHandle() Handle {
	return t.handle
}

func (t *Trackable) TrackOwner() RegistryID {
	return t.owner
}

func (t *Trackable) SetTrackHandle(owner RegistryID, handle Handle) {
	t.owner = owner
	t.handle = handle
}

// Engine creates root surfaces.
type Engine interface {
	NewFigure() (Object, error)
}

// relationTable mirrors the declared container relations of the consumer's
// surface graph: a figure holds axes, an axes holds the drawn-artifact
// collections.
var relationTable = map[Kind][]string{
	KindFigure: {"axes"},
	KindAxes:   {"lines", "patches", "collections", "images", "texts"},
}

// Relations returns the ordered child-relation names declared for a kind;
// artifact kinds have none.
func Relations(kind Kind) []string {
	return relationTable[kind]
}
