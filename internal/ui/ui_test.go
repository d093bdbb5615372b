package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/papapumpkin/resgraph/internal/aggregate"
	"github.com/papapumpkin/resgraph/internal/importer"
	"github.com/papapumpkin/resgraph/internal/resources"
	"github.com/papapumpkin/resgraph/internal/store"
	"github.com/papapumpkin/resgraph/internal/targetgraph"
	"github.com/papapumpkin/resgraph/internal/telemetry"
)

func plainPrinter() (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewWithWriter(&buf, false), &buf
}

func assertContains(t *testing.T, output string, checks ...string) {
	t.Helper()
	for _, substr := range checks {
		if !strings.Contains(output, substr) {
			t.Errorf("expected output to contain %q, got:\n%s", substr, output)
		}
	}
}

func TestReport(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		w      importer.Warning
		checks []string
	}{
		{
			name: "collision lists labels on their own lines",
			w: importer.Warning{
				Pass:    "android",
				Kind:    telemetry.KindNamespaceCollision,
				Message: "Multiple R classes generated with the same java package com.x.R:\n  //x:m1\n  //x:m2",
			},
			checks: []string{"collision", "[android]", "com.x.R:", "\n    //x:m1\n", "\n    //x:m2\n"},
		},
		{
			name:   "dropped",
			w:      importer.Warning{Pass: "android", Kind: telemetry.KindGeneratedResourceDropped, Message: "Dropping generated resource directory 'bazel-out/bin/a/res'."},
			checks: []string{"dropped", "bazel-out/bin/a/res"},
		},
		{
			name:   "unused allowlist entry",
			w:      importer.Warning{Pass: "android", Kind: telemetry.KindUnusedAllowlistEntry, Message: "entry"},
			checks: []string{"unused", "entry"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, buf := plainPrinter()
			p.Report(tt.w)
			assertContains(t, buf.String(), tt.checks...)
		})
	}
}

func TestPassSummary(t *testing.T) {
	t.Parallel()
	p, buf := plainPrinter()
	res := &importer.Result{
		Pass:             "android",
		ResourceModules:  make([]resources.Module, 2),
		ArchiveLibraries: map[resources.LibraryKey]resources.ArchiveLibrary{"a": {}},
		Warnings:         make([]importer.Warning, 3),
		Stats: importer.Stats{
			SourceTargets: 5,
			Candidates:    3,
			Engine:        aggregate.Stats{Seeded: 7, CycleEdges: 1},
		},
	}
	p.PassSummary(res)
	assertContains(t, buf.String(),
		"android: 2 resource module(s), 1 archive library(ies), 0 resource library(ies)",
		"5 source target(s)", "3 candidate(s)", "7 aggregated", "1 cycle edge(s)", "3 warning(s)")
}

func TestRunSaved(t *testing.T) {
	t.Parallel()
	p, buf := plainPrinter()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.RunSaved(store.Run{ID: "abc", StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)})
	assertContains(t, buf.String(), "saved run abc", "1.5s")
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()
	a := targetgraph.MustParseLabel("//p:a")
	b := targetgraph.MustParseLabel("//p:b")

	t.Run("clean", func(t *testing.T) {
		t.Parallel()
		p, buf := plainPrinter()
		if ok := p.Diagnostics("g.toml", 2, targetgraph.Diagnostics{}); !ok {
			t.Error("Diagnostics() = false for a clean graph")
		}
		assertContains(t, buf.String(), "g.toml", "2 target(s)", "no dangling deps or cycles")
	})

	t.Run("problems", func(t *testing.T) {
		t.Parallel()
		p, buf := plainPrinter()
		d := targetgraph.Diagnostics{
			Dangling: []targetgraph.Edge{{From: a, To: targetgraph.MustParseLabel("//gone:x")}},
			Cycles:   [][]targetgraph.Label{{a, b}},
		}
		if ok := p.Diagnostics("g.toml", 2, d); ok {
			t.Error("Diagnostics() = true for a graph with problems")
		}
		assertContains(t, buf.String(), "1 dangling dep(s)", "1 cycle(s)", "//p:a -> //gone:x", "cycle: //p:a -> //p:b")
	})
}

func TestPlainOutputHasNoEscapes(t *testing.T) {
	t.Parallel()
	p, buf := plainPrinter()
	p.Error("boom")
	p.Info("hello")
	p.ImportStart("g.toml", 3)
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("plain printer emitted escape codes: %q", buf.String())
	}
	assertContains(t, buf.String(), "error: boom", "hello", "import g.toml", "(3 targets)")
}
