// Package importer drives one resource import: it selects the project's
// source targets, aggregates their resources over the target graph, resolves
// namespace collisions and packages the result for the project structure
// syncer.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/papapumpkin/resgraph/internal/aggregate"
	"github.com/papapumpkin/resgraph/internal/merge"
	"github.com/papapumpkin/resgraph/internal/projectview"
	"github.com/papapumpkin/resgraph/internal/resources"
	"github.com/papapumpkin/resgraph/internal/targetgraph"
)

// Pass names a language domain and the rule kinds whose targets are its
// source targets. An empty Kinds list accepts every kind.
type Pass struct {
	Name  string   `mapstructure:"name" json:"name"`
	Kinds []string `mapstructure:"kinds" json:"kinds"`
}

// AndroidPass returns the default pass over Android rules.
func AndroidPass() Pass {
	return Pass{
		Name: "android",
		Kinds: []string{
			"android_binary",
			"android_instrumentation_test",
			"android_library",
			"android_local_test",
			"android_test",
		},
	}
}

func (p Pass) accepts(kind string) bool {
	return len(p.Kinds) == 0 || slices.Contains(p.Kinds, kind)
}

// Stats summarizes one pass.
type Stats struct {
	Targets       int             `json:"targets"`
	SourceTargets int             `json:"source_targets"`
	Candidates    int             `json:"candidates"`
	Modules       int             `json:"modules"`
	Engine        aggregate.Stats `json:"engine"`
}

// Result is the immutable output of one pass.
type Result struct {
	Pass              string                                             `json:"pass"`
	ResourceModules   []resources.Module                                 `json:"resource_modules"`
	ArchiveLibraries  map[resources.LibraryKey]resources.ArchiveLibrary  `json:"archive_libraries"`
	ResourceLibraries map[resources.LibraryKey]resources.ResourceLibrary `json:"resource_libraries"`
	Collisions        []merge.Collision                                  `json:"collisions,omitempty"`
	Warnings          []Warning                                          `json:"warnings,omitempty"`
	Stats             Stats                                              `json:"stats"`
}

// Importer runs passes over one graph and project view. The graph and view
// are only read, so an Importer may run several passes concurrently.
type Importer struct {
	graph    *targetgraph.Graph
	view     *projectview.View
	reporter Reporter
	logger   *slog.Logger
	keyMode  resources.KeyMode
}

// Option configures an Importer.
type Option func(*Importer)

// WithReporter sends warnings to r as well as recording them in the Result.
func WithReporter(r Reporter) Option {
	return func(im *Importer) { im.reporter = r }
}

// WithLogger sets the logger for debug diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(im *Importer) { im.logger = l }
}

// WithKeyMode sets how archive library keys are derived.
func WithKeyMode(m resources.KeyMode) Option {
	return func(im *Importer) { im.keyMode = m }
}

// New returns an Importer over g scoped by view.
func New(g *targetgraph.Graph, view *projectview.View, opts ...Option) *Importer {
	im := &Importer{
		graph:   g,
		view:    view,
		logger:  slog.New(slog.DiscardHandler),
		keyMode: resources.KeyByArtifact,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// cancelCheckInterval is how many source targets are processed between
// context checks.
const cancelCheckInterval = 1024

// Import runs one pass from scratch. It fails only if ctx is done; graph
// anomalies become warnings.
func (im *Importer) Import(ctx context.Context, pass Pass) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("importer: %s: %w", pass.Name, err)
	}
	im.logDiagnostics(ctx, pass)

	builder := resources.NewBuilder(im.view, resources.WithKeyMode(im.keyMode))
	engine := aggregate.New(im.graph, builder.Seed, builder.Combine,
		aggregate.WithLogger(im.logger.With("pass", pass.Name)))

	stats := Stats{Targets: im.graph.Len()}
	var modules []resources.Module
	for i, t := range im.graph.Targets() {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("importer: %s: %w", pass.Name, err)
			}
		}
		if !pass.accepts(t.Kind) || !im.view.ContainsLabel(t.Label) {
			continue
		}
		stats.SourceTargets++
		if !builder.IsModule(t) {
			continue
		}
		stats.Candidates++
		agg, _ := engine.Aggregate(t.Label)
		modules = append(modules, agg.Snapshot())
	}

	survivors, collisions := merge.Resolve(modules)
	stats.Modules = len(survivors)
	stats.Engine = engine.Stats()

	res := &Result{
		Pass:              pass.Name,
		ResourceModules:   survivors,
		ArchiveLibraries:  builder.ArchiveLibraries(),
		ResourceLibraries: builder.ResourceLibraries(),
		Collisions:        collisions,
		Stats:             stats,
	}
	for _, a := range builder.DroppedGenerated() {
		im.warn(res, droppedWarning(pass.Name, a))
	}
	for _, c := range collisions {
		im.warn(res, collisionWarning(pass.Name, c))
	}
	for _, entry := range builder.UnusedAllowlist() {
		im.warn(res, unusedAllowlistWarning(pass.Name, entry))
	}

	im.logger.Debug("import pass complete",
		"pass", pass.Name,
		"source_targets", stats.SourceTargets,
		"modules", stats.Modules,
		"seeded", stats.Engine.Seeded,
		"cycle_edges", stats.Engine.CycleEdges)
	return res, nil
}

// ImportPasses runs independent passes in parallel. Each pass gets its own
// engine, memo table and library registries. Results are in pass order.
func (im *Importer) ImportPasses(ctx context.Context, passes []Pass) ([]*Result, error) {
	results := make([]*Result, len(passes))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range passes {
		g.Go(func() error {
			res, err := im.Import(gctx, p)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (im *Importer) warn(res *Result, w Warning) {
	res.Warnings = append(res.Warnings, w)
	if im.reporter != nil {
		im.reporter.Report(w)
	}
}

// logDiagnostics logs dangling edges and cycles when debug logging is on.
// Neither affects the import.
func (im *Importer) logDiagnostics(ctx context.Context, pass Pass) {
	if !im.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	d := targetgraph.Diagnose(im.graph)
	for _, c := range d.Cycles {
		names := make([]string, len(c))
		for i, l := range c {
			names[i] = l.String()
		}
		im.logger.Debug("dependency cycle", "pass", pass.Name, "targets", names)
	}
	if len(d.Dangling) > 0 {
		im.logger.Debug("dangling dependencies", "pass", pass.Name, "count", len(d.Dangling))
	}
}
