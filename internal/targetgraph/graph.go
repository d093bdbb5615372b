package targetgraph

import (
	"errors"
	"fmt"
	"slices"
)

// ErrDuplicateLabel is returned when two targets share a label.
var ErrDuplicateLabel = errors.New("duplicate label")

// Graph is an immutable mapping from label to target. Labels are interned to
// dense integer IDs in sorted label order, so ID order is label order.
type Graph struct {
	targets []*Target
	index   map[Label]int
}

// New builds a Graph from the given targets. Dependency labels that name no
// target are kept as-is; lookups for them simply miss.
func New(targets ...*Target) (*Graph, error) {
	g := &Graph{
		targets: make([]*Target, 0, len(targets)),
		index:   make(map[Label]int, len(targets)),
	}
	seen := make(map[Label]bool, len(targets))
	for _, t := range targets {
		if t == nil {
			continue
		}
		if t.Label.IsZero() {
			return nil, fmt.Errorf("%w: target with empty label", ErrInvalidLabel)
		}
		if seen[t.Label] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, t.Label)
		}
		seen[t.Label] = true
		g.targets = append(g.targets, t)
	}
	slices.SortFunc(g.targets, func(a, b *Target) int { return a.Label.Compare(b.Label) })
	for i, t := range g.targets {
		g.index[t.Label] = i
	}
	return g, nil
}

// Get returns the target for label. A miss is a normal outcome.
func (g *Graph) Get(l Label) (*Target, bool) {
	i, ok := g.index[l]
	if !ok {
		return nil, false
	}
	return g.targets[i], true
}

// Index returns the interned ID of label.
func (g *Graph) Index(l Label) (int, bool) {
	i, ok := g.index[l]
	return i, ok
}

// At returns the target with the given ID.
func (g *Graph) At(id int) *Target { return g.targets[id] }

// Len returns the number of targets.
func (g *Graph) Len() int { return len(g.targets) }

// Labels returns every label in sorted order.
func (g *Graph) Labels() []Label {
	out := make([]Label, len(g.targets))
	for i, t := range g.targets {
		out[i] = t.Label
	}
	return out
}

// Targets returns every target in label order. The slice is a copy; the
// targets themselves must not be modified.
func (g *Graph) Targets() []*Target {
	return slices.Clone(g.targets)
}
