package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/papapumpkin/resgraph/internal/config"
	"github.com/papapumpkin/resgraph/internal/importer"
	"github.com/papapumpkin/resgraph/internal/projectview"
	"github.com/papapumpkin/resgraph/internal/resources"
	"github.com/papapumpkin/resgraph/internal/store"
	"github.com/papapumpkin/resgraph/internal/targetgraph"
	"github.com/papapumpkin/resgraph/internal/telemetry"
	"github.com/papapumpkin/resgraph/internal/ui"
)

// session holds what every import in one invocation shares.
type session struct {
	cfg     config.Config
	printer *ui.Printer
	logger  *slog.Logger
	view    *projectview.View
	passes  []importer.Pass
	keyMode resources.KeyMode
	emitter *telemetry.Emitter // nil when no events file is configured
	store   *store.Store       // nil when persistence is disabled
}

// newLogger returns the debug logger: text on stderr, debug level only when
// verbose.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// passesFrom converts configured passes, defaulting to the Android pass.
func passesFrom(cfg config.Config) []importer.Pass {
	if len(cfg.Passes) == 0 {
		return []importer.Pass{importer.AndroidPass()}
	}
	passes := make([]importer.Pass, len(cfg.Passes))
	for i, p := range cfg.Passes {
		passes[i] = importer.Pass{Name: p.Name, Kinds: p.Kinds}
	}
	return passes
}

// openSession loads config and opens the event file and store. Callers must
// call close.
func openSession(ctx context.Context, persist bool) (*session, error) {
	s := &session{printer: ui.New()}
	if err := s.loadConfig(); err != nil {
		return nil, err
	}

	var err error
	if s.cfg.EventsPath != "" {
		if s.emitter, err = telemetry.NewEmitter(s.cfg.EventsPath); err != nil {
			return nil, err
		}
	}
	if persist {
		if err := os.MkdirAll(filepath.Dir(s.cfg.StorePath), 0o755); err != nil {
			s.close()
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		if s.store, err = store.Open(ctx, s.cfg.StorePath); err != nil {
			s.close()
			return nil, err
		}
	}
	return s, nil
}

// loadConfig (re)derives the import settings from viper. The event file and
// store stay as opened.
func (s *session) loadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	keyMode, err := resources.ParseKeyMode(cfg.LibraryKeys)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.logger = newLogger(cfg.Verbose)
	s.view = projectview.New(cfg.Project.Directories, cfg.Project.Exclude, cfg.Project.GeneratedResources)
	s.passes = passesFrom(cfg)
	s.keyMode = keyMode
	return nil
}

func (s *session) close() {
	if s.emitter != nil {
		s.emitter.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

func (s *session) emit(evt telemetry.Event) {
	if err := s.emitter.Emit(evt); err != nil {
		s.logger.Warn("telemetry event dropped", "kind", evt.Kind, "error", err)
	}
}

// importOnce loads the graph and runs every configured pass from scratch.
// Warnings go to the printer and the event stream as they are found.
func (s *session) importOnce(ctx context.Context) (store.Run, []*importer.Result, error) {
	run := store.Run{ID: uuid.NewString(), GraphPath: s.cfg.GraphPath, StartedAt: time.Now()}

	g, err := targetgraph.Load(s.cfg.GraphPath)
	if err != nil {
		return store.Run{}, nil, err
	}
	s.printer.ImportStart(s.cfg.GraphPath, g.Len())
	s.emit(telemetry.Event{
		Kind:    telemetry.KindImportStart,
		RunID:   run.ID,
		Message: s.cfg.GraphPath,
		Data:    map[string]any{"targets": g.Len(), "passes": len(s.passes)},
	})

	reporter := importer.ReporterFunc(func(w importer.Warning) {
		s.printer.Report(w)
		s.emit(telemetry.Event{
			Kind:     w.Kind,
			RunID:    run.ID,
			Pass:     w.Pass,
			Message:  w.Message,
			Subjects: w.Subjects,
		})
	})
	im := importer.New(g, s.view,
		importer.WithReporter(reporter),
		importer.WithLogger(s.logger),
		importer.WithKeyMode(s.keyMode))

	results, err := im.ImportPasses(ctx, s.passes)
	if err != nil {
		return store.Run{}, nil, err
	}
	run.FinishedAt = time.Now()

	modules, warnings := 0, 0
	for _, res := range results {
		s.printer.PassSummary(res)
		modules += len(res.ResourceModules)
		warnings += len(res.Warnings)
	}
	run.Modules, run.Warnings = modules, warnings

	if s.store != nil {
		if run, err = s.store.SaveRun(ctx, run, results); err != nil {
			return store.Run{}, nil, err
		}
		s.printer.RunSaved(run)
	}
	s.emit(telemetry.Event{
		Kind:  telemetry.KindImportDone,
		RunID: run.ID,
		Data: map[string]any{
			"modules":     modules,
			"warnings":    warnings,
			"duration_ms": run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		},
	})
	return run, results, nil
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(parent context.Context, printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\nshutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
