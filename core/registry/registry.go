// Package registry assigns stable, human-readable paths to tracked objects.
// Identity is an explicit handle arena: each object receives an integer
// handle at first registration and the path is never re-derived afterward,
// so paths survive the process boundary as literal replay text. Handles are
// scoped to the registry that issued them, keeping coexisting recording
// contexts isolated.
package registry

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jemviewer/plotrec/core/graph"
)

var nextRegistryID atomic.Uint64

type Outcome string

const (
	OutcomeRegistered Outcome = "registered"
	OutcomeAlready    Outcome = "already_registered"
)

// ScanResult aggregates the outcomes of a subtree walk so callers can log
// once instead of per child.
type ScanResult struct {
	Registered int
	Revisited  int
}

func (r ScanResult) add(other ScanResult) ScanResult {
	return ScanResult{
		Registered: r.Registered + other.Registered,
		Revisited:  r.Revisited + other.Revisited,
	}
}

type Registry struct {
	id     graph.RegistryID
	paths  []string
	logger *zap.Logger
}

func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		id:     graph.RegistryID(nextRegistryID.Add(1)),
		logger: logger,
	}
}

// owns reports whether the object's handle was issued by this registry.
// Handles from other registries index other arenas and mean nothing here.
func (r *Registry) owns(object graph.Object) bool {
	return object.TrackHandle() != 0 && object.TrackOwner() == r.id
}

// Register binds an object's identity to a path. Idempotent within one
// registry: an already registered object keeps its original path. An object
// last registered elsewhere is adopted, it belongs to one context at a time.
func (r *Registry) Register(object graph.Object, path string) Outcome {
	if r.owns(object) {
		return OutcomeAlready
	}
	r.paths = append(r.paths, path)
	object.SetTrackHandle(r.id, graph.Handle(len(r.paths)))
	return OutcomeRegistered
}

// Lookup returns the path bound at first registration in this registry.
func (r *Registry) Lookup(object graph.Object) (string, bool) {
	if !r.owns(object) {
		return "", false
	}
	handle := object.TrackHandle()
	if int(handle) > len(r.paths) {
		return "", false
	}
	return r.paths[handle-1], true
}

// RegisterSubtree registers the root under rootPath and recursively
// registers everything reachable through the declared child relations,
// deriving each child path as parent.relation[index]. Descent stops at
// objects that are already registered.
func (r *Registry) RegisterSubtree(root graph.Object, rootPath string) ScanResult {
	result := r.registerSubtree(root, rootPath)
	r.logger.Debug("registered subtree",
		zap.String("root", rootPath),
		zap.Int("registered", result.Registered),
		zap.Int("revisited", result.Revisited))
	return result
}

func (r *Registry) registerSubtree(object graph.Object, path string) ScanResult {
	if object == nil {
		return ScanResult{}
	}
	if r.Register(object, path) == OutcomeAlready {
		return ScanResult{Revisited: 1}
	}
	result := ScanResult{Registered: 1}
	for _, relation := range graph.Relations(object.Kind()) {
		children, ok := object.Children(relation)
		if !ok {
			// Optional relation not exposed at runtime: expected, skip.
			continue
		}
		for index, child := range children {
			childPath := fmt.Sprintf("%s.%s[%d]", path, relation, index)
			result = result.add(r.registerSubtree(child, childPath))
		}
	}
	return result
}

// Rescan re-walks only the object's declared child relations and registers
// any item whose identity is not yet known. This is how objects created as
// a side effect of an intercepted call acquire paths.
func (r *Registry) Rescan(object graph.Object) ScanResult {
	basePath, ok := r.Lookup(object)
	if !ok {
		return ScanResult{}
	}
	var result ScanResult
	for _, relation := range graph.Relations(object.Kind()) {
		children, exposed := object.Children(relation)
		if !exposed {
			continue
		}
		for index, child := range children {
			if child == nil || r.owns(child) {
				continue
			}
			childPath := fmt.Sprintf("%s.%s[%d]", basePath, relation, index)
			result = result.add(r.registerSubtree(child, childPath))
		}
	}
	if result.Registered > 0 {
		r.logger.Debug("rescan registered new children",
			zap.String("base", basePath),
			zap.Int("registered", result.Registered))
	}
	return result
}
