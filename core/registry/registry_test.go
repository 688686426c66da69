package registry

import (
	"testing"

	"github.com/jemviewer/plotrec/internal/testutil"
)

func TestRegisterIsIdempotent(test *testing.T) {
	reg := New(nil)
	figure := testutil.NewFakeFigure(0)
	if outcome := reg.Register(figure, "figs[0]"); outcome != OutcomeRegistered {
		test.Fatalf("first register: %s", outcome)
	}
	if outcome := reg.Register(figure, "figs[99]"); outcome != OutcomeAlready {
		test.Fatalf("second register: %s", outcome)
	}
	path, ok := reg.Lookup(figure)
	if !ok || path != "figs[0]" {
		test.Fatalf("lookup after re-register: %q %v", path, ok)
	}
}

func TestRegisterSubtreeDerivesPaths(test *testing.T) {
	reg := New(nil)
	figure := testutil.NewFakeFigure(2)
	line := testutil.NewFakeLine()
	figure.Relations["axes"][1].AddChild("lines", line)

	result := reg.RegisterSubtree(figure, "figs[0]")
	if result.Registered != 4 {
		test.Fatalf("expected 4 registrations, got %+v", result)
	}
	path, ok := reg.Lookup(figure.Relations["axes"][1])
	if !ok || path != "figs[0].axes[1]" {
		test.Fatalf("axes path: %q %v", path, ok)
	}
	path, ok = reg.Lookup(line)
	if !ok || path != "figs[0].axes[1].lines[0]" {
		test.Fatalf("line path: %q %v", path, ok)
	}
}

func TestPathUniquenessAndStability(test *testing.T) {
	reg := New(nil)
	figure := testutil.NewFakeFigure(3)
	reg.RegisterSubtree(figure, "figs[0]")

	seen := map[string]bool{}
	for _, axes := range figure.Relations["axes"] {
		path, ok := reg.Lookup(axes)
		if !ok {
			test.Fatalf("axes not registered")
		}
		if seen[path] {
			test.Fatalf("duplicate path %s", path)
		}
		seen[path] = true
		again, _ := reg.Lookup(axes)
		if again != path {
			test.Fatalf("lookup unstable: %s vs %s", again, path)
		}
	}
}

func TestRescanRegistersSideEffectChildren(test *testing.T) {
	reg := New(nil)
	axes := testutil.NewFakeAxes()
	reg.RegisterSubtree(axes, "figs[0].axes[0]")

	// A line appears as a side effect of an engine operation, invisible to
	// any constructor the registry could have seen.
	created := axes.AddChild("lines", testutil.NewFakeLine())
	result := reg.Rescan(axes)
	if result.Registered != 1 {
		test.Fatalf("expected 1 new registration, got %+v", result)
	}
	path, ok := reg.Lookup(created)
	if !ok || path != "figs[0].axes[0].lines[0]" {
		test.Fatalf("side-effect child path: %q %v", path, ok)
	}

	// Second rescan must be a no-op.
	if result := reg.Rescan(axes); result.Registered != 0 {
		test.Fatalf("rescan not idempotent: %+v", result)
	}
}

func TestRescanOnUnregisteredObjectIsNoop(test *testing.T) {
	reg := New(nil)
	axes := testutil.NewFakeAxes()
	axes.AddChild("lines", testutil.NewFakeLine())
	if result := reg.Rescan(axes); result.Registered != 0 {
		test.Fatalf("expected no registrations, got %+v", result)
	}
}

func TestLookupIsScopedToOwningRegistry(test *testing.T) {
	regA := New(nil)
	regB := New(nil)

	foreign := testutil.NewFakeLine()
	local := testutil.NewFakeLine()
	regA.Register(foreign, "figs[0].axes[0].lines[0]")
	regB.Register(local, "figs[0].axes[0].lines[99]")

	// foreign's handle indexes regA's arena; regB must not resolve it to
	// one of its own paths.
	if path, ok := regB.Lookup(foreign); ok {
		test.Fatalf("foreign object resolved in the wrong registry: %q", path)
	}
	if path, ok := regA.Lookup(foreign); !ok || path != "figs[0].axes[0].lines[0]" {
		test.Fatalf("owning registry lost the path: %q %v", path, ok)
	}
	if path, ok := regB.Lookup(local); !ok || path != "figs[0].axes[0].lines[99]" {
		test.Fatalf("local lookup broken: %q %v", path, ok)
	}
}

func TestRegisterAdoptsObjectFromAnotherRegistry(test *testing.T) {
	regA := New(nil)
	regB := New(nil)

	line := testutil.NewFakeLine()
	regA.Register(line, "figs[0].axes[0].lines[0]")

	if outcome := regB.Register(line, "figs[1].axes[0].lines[0]"); outcome != OutcomeRegistered {
		test.Fatalf("adoption into a new registry must register, got %s", outcome)
	}
	if path, ok := regB.Lookup(line); !ok || path != "figs[1].axes[0].lines[0]" {
		test.Fatalf("adopted path wrong: %q %v", path, ok)
	}
	if _, ok := regA.Lookup(line); ok {
		test.Fatalf("object must belong to one registry at a time")
	}
}

func TestMissingRelationIsSkippedSilently(test *testing.T) {
	reg := New(nil)
	// An axes advertising no relations at all: traversal must simply skip.
	axes := testutil.NewFakeAxes()
	axes.Relations = nil
	result := reg.RegisterSubtree(axes, "figs[0].axes[0]")
	if result.Registered != 1 {
		test.Fatalf("expected only the root registered, got %+v", result)
	}
}
