// Package resources computes Android resource aggregates over a target
// graph: each target's own resources, the resources reachable through its
// dependencies, the resource modules it depends on, and the deduplicated
// archive and resource-folder libraries they pull in.
package resources

import (
	"maps"
	"slices"

	"github.com/papapumpkin/resgraph/internal/targetgraph"
)

// Aggregate is the mutable accumulator for one target. It is owned by the
// engine pass that created it; Snapshot it before handing it out.
type Aggregate struct {
	Label     targetgraph.Label
	Namespace string
	// Module records whether the target qualifies as a resource module on
	// its own.
	Module bool

	OwnResources             map[targetgraph.ArtifactRef]struct{}
	TransitiveResources      map[targetgraph.ArtifactRef]struct{}
	TransitiveResourceLabels map[targetgraph.Label]struct{}
	LibraryKeys              map[LibraryKey]struct{}
}

func newAggregate(t *targetgraph.Target) *Aggregate {
	a := &Aggregate{
		Label:                    t.Label,
		OwnResources:             make(map[targetgraph.ArtifactRef]struct{}),
		TransitiveResources:      make(map[targetgraph.ArtifactRef]struct{}),
		TransitiveResourceLabels: make(map[targetgraph.Label]struct{}),
		LibraryKeys:              make(map[LibraryKey]struct{}),
	}
	if t.Android != nil {
		a.Namespace = t.Android.ResourceJavaPackage
	}
	return a
}

func (a *Aggregate) addResource(r targetgraph.ArtifactRef, own bool) {
	if own {
		a.OwnResources[r] = struct{}{}
	}
	a.TransitiveResources[r] = struct{}{}
}

// Module is the frozen form of an Aggregate handed to the project structure
// syncer. All slices are sorted.
type Module struct {
	Label                  targetgraph.Label         `json:"label"`
	Namespace              string                    `json:"namespace"`
	Resources              []targetgraph.ArtifactRef `json:"resources"`
	TransitiveResources    []targetgraph.ArtifactRef `json:"transitive_resources"`
	ResourceLibraryKeys    []LibraryKey              `json:"resource_library_keys"`
	TransitiveResourceDeps []targetgraph.Label       `json:"transitive_resource_deps"`
}

// Snapshot returns an immutable, sorted copy of a.
func (a *Aggregate) Snapshot() Module {
	return Module{
		Label:                  a.Label,
		Namespace:              a.Namespace,
		Resources:              sortedArtifacts(a.OwnResources),
		TransitiveResources:    sortedArtifacts(a.TransitiveResources),
		ResourceLibraryKeys:    slices.Sorted(maps.Keys(a.LibraryKeys)),
		TransitiveResourceDeps: slices.SortedFunc(maps.Keys(a.TransitiveResourceLabels), targetgraph.Label.Compare),
	}
}

// IsEmpty reports whether the module has neither own resources nor
// libraries, in which case it contributes nothing to the IDE.
func (m Module) IsEmpty() bool {
	return len(m.Resources) == 0 && len(m.ResourceLibraryKeys) == 0
}

func sortedArtifacts(s map[targetgraph.ArtifactRef]struct{}) []targetgraph.ArtifactRef {
	return slices.SortedFunc(maps.Keys(s), targetgraph.ArtifactRef.Compare)
}
