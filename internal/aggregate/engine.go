// Package aggregate implements a memoized, cycle-safe transitive reducer over
// a target graph. Each target's value is its own seed folded with the
// finished values of its dependencies; every target is seeded at most once
// per engine, however many dependents share it.
package aggregate

import (
	"log/slog"

	"github.com/papapumpkin/resgraph/internal/targetgraph"
)

// SeedFunc returns the value a target contributes on its own.
type SeedFunc[T any] func(t *targetgraph.Target) T

// CombineFunc folds a dependency's finished value into the accumulator. It
// may mutate and return acc or return a new value; the engine always uses the
// returned value. It must not mutate dep.
type CombineFunc[T any] func(acc, dep T) T

type state uint8

const (
	notStarted state = iota
	inProgress
	done
)

// Stats counts the work done by an engine.
type Stats struct {
	Seeded      int `json:"seeded"`
	Combined    int `json:"combined"`
	CycleEdges  int `json:"cycle_edges"`
	MissingDeps int `json:"missing_deps"`
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger logs cycle-broken and dangling edges at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Engine computes and memoizes one value per target. It is not safe for
// concurrent use; run independent passes on independent engines.
type Engine[T any] struct {
	graph   *targetgraph.Graph
	seed    SeedFunc[T]
	combine CombineFunc[T]
	logger  *slog.Logger

	state []state
	memo  []T
	stats Stats
}

// New returns an engine over g. The graph must not change while the engine
// is in use.
func New[T any](g *targetgraph.Graph, seed SeedFunc[T], combine CombineFunc[T], opts ...Option) *Engine[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[T]{
		graph:   g,
		seed:    seed,
		combine: combine,
		logger:  o.logger,
		state:   make([]state, g.Len()),
		memo:    make([]T, g.Len()),
	}
}

// frame is one pending target on the explicit traversal stack.
type frame[T any] struct {
	id  int
	acc T
	dep int // index of the next dependency to visit
}

// Aggregate returns the value for label, computing it and every value it
// depends on if needed. It reports false when label is not in the graph.
//
// A dependency that is still in progress (a cycle back-edge) contributes
// nothing to the current computation. Which edge of a cycle gets dropped
// depends on traversal order and is not otherwise meaningful.
func (e *Engine[T]) Aggregate(label targetgraph.Label) (T, bool) {
	var zero T
	id, ok := e.graph.Index(label)
	if !ok {
		return zero, false
	}
	switch e.state[id] {
	case done:
		return e.memo[id], true
	case inProgress:
		// Only reachable if seed or combine re-enter the engine.
		return zero, false
	}

	stack := []frame[T]{e.start(id)}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		deps := e.graph.At(top.id).Deps
		if top.dep < len(deps) {
			depLabel := deps[top.dep]
			top.dep++
			did, ok := e.graph.Index(depLabel)
			if !ok {
				e.stats.MissingDeps++
				e.debug("skipping missing dependency", top.id, depLabel)
				continue
			}
			switch e.state[did] {
			case done:
				top.acc = e.fold(top.acc, e.memo[did])
			case inProgress:
				e.stats.CycleEdges++
				e.debug("breaking dependency cycle", top.id, depLabel)
			default:
				stack = append(stack, e.start(did))
			}
			continue
		}

		finished := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e.state[finished.id] = done
		e.memo[finished.id] = finished.acc
		if len(stack) > 0 {
			parent := &stack[len(stack)-1]
			parent.acc = e.fold(parent.acc, finished.acc)
		}
	}
	return e.memo[id], true
}

// AggregateAll computes every target's value and returns them keyed by label.
func (e *Engine[T]) AggregateAll() map[targetgraph.Label]T {
	out := make(map[targetgraph.Label]T, e.graph.Len())
	for _, l := range e.graph.Labels() {
		v, _ := e.Aggregate(l)
		out[l] = v
	}
	return out
}

// Stats returns counters accumulated since the engine was created.
func (e *Engine[T]) Stats() Stats { return e.stats }

func (e *Engine[T]) start(id int) frame[T] {
	e.state[id] = inProgress
	e.stats.Seeded++
	return frame[T]{id: id, acc: e.seed(e.graph.At(id))}
}

func (e *Engine[T]) fold(acc, dep T) T {
	e.stats.Combined++
	return e.combine(acc, dep)
}

func (e *Engine[T]) debug(msg string, from int, to targetgraph.Label) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(msg, "from", e.graph.At(from).Label.String(), "to", to.String())
}
