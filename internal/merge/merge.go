// Package merge collapses resource modules that would generate the same
// resource class namespace into one survivor per namespace.
package merge

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/papapumpkin/resgraph/internal/resources"
	"github.com/papapumpkin/resgraph/internal/targetgraph"
)

// Collision records a namespace claimed by more than one module.
type Collision struct {
	Namespace string              `json:"namespace"`
	Labels    []targetgraph.Label `json:"labels"` // sorted
	Winner    targetgraph.Label   `json:"winner"`
}

// Message renders the collision the way it is shown to users.
func (c Collision) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Multiple R classes generated with the same java package %s.R:", c.Namespace)
	for _, l := range c.Labels {
		b.WriteString("\n  ")
		b.WriteString(l.String())
	}
	return b.String()
}

// criterion compares two modules; a positive result means a is preferred.
type criterion func(a, b resources.Module) int

// preference is the tie-break chain, most significant first.
var preference = []criterion{
	// most own resources
	func(a, b resources.Module) int { return cmp.Compare(len(a.Resources), len(b.Resources)) },
	// most transitive resources
	func(a, b resources.Module) int { return cmp.Compare(len(a.TransitiveResources), len(b.TransitiveResources)) },
	// most libraries
	func(a, b resources.Module) int { return cmp.Compare(len(a.ResourceLibraryKeys), len(b.ResourceLibraryKeys)) },
	// shortest label
	func(a, b resources.Module) int { return cmp.Compare(len(b.Label.String()), len(a.Label.String())) },
	// lexicographically first label
	func(a, b resources.Module) int { return b.Label.Compare(a.Label) },
}

// Prefer reports how a ranks against b: positive if a wins, negative if b
// wins, zero only when a and b have the same label.
func Prefer(a, b resources.Module) int {
	for _, c := range preference {
		if r := c(a, b); r != 0 {
			return r
		}
	}
	return 0
}

// Best returns the preferred module of a non-empty group.
func Best(group []resources.Module) resources.Module {
	return slices.MaxFunc(group, Prefer)
}

// Resolve drops empty modules, groups the rest by namespace and keeps one
// module per namespace. The survivors are sorted by label; collisions are
// sorted by namespace.
func Resolve(modules []resources.Module) ([]resources.Module, []Collision) {
	groups := make(map[string][]resources.Module)
	for _, m := range modules {
		if m.IsEmpty() {
			continue
		}
		groups[m.Namespace] = append(groups[m.Namespace], m)
	}

	var (
		survivors  []resources.Module
		collisions []Collision
	)
	for ns, group := range groups {
		if len(group) == 1 {
			survivors = append(survivors, group[0])
			continue
		}
		winner := Best(group)
		labels := make([]targetgraph.Label, len(group))
		for i, m := range group {
			labels[i] = m.Label
		}
		slices.SortFunc(labels, targetgraph.Label.Compare)
		collisions = append(collisions, Collision{Namespace: ns, Labels: labels, Winner: winner.Label})
		survivors = append(survivors, winner)
	}

	slices.SortFunc(survivors, func(a, b resources.Module) int { return a.Label.Compare(b.Label) })
	slices.SortFunc(collisions, func(a, b Collision) int { return strings.Compare(a.Namespace, b.Namespace) })
	return survivors, collisions
}
