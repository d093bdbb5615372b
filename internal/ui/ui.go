// Package ui prints human-readable progress and results on stderr.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/papapumpkin/resgraph/internal/importer"
	"github.com/papapumpkin/resgraph/internal/store"
	"github.com/papapumpkin/resgraph/internal/targetgraph"
	"github.com/papapumpkin/resgraph/internal/telemetry"
)

// Semantic color palette.
var (
	colorPrimary = lipgloss.Color("#00BFFF")
	colorAccent  = lipgloss.Color("#FFD700")
	colorSuccess = lipgloss.Color("#00E676")
	colorDanger  = lipgloss.Color("#FF5252")
	colorMuted   = lipgloss.Color("#8C8C8C")
)

type styles struct {
	heading lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	danger  lipgloss.Style
	muted   lipgloss.Style
	bold    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, color bool) styles {
	if !color {
		plain := r.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		heading: r.NewStyle().Foreground(colorPrimary).Bold(true),
		success: r.NewStyle().Foreground(colorSuccess).Bold(true),
		warning: r.NewStyle().Foreground(colorAccent).Bold(true),
		danger:  r.NewStyle().Foreground(colorDanger).Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
		bold:    r.NewStyle().Bold(true),
	}
}

// Printer writes styled messages. It also serves as an importer.Reporter,
// printing warnings as they are found.
type Printer struct {
	mu sync.Mutex // serializes multi-line warnings
	w  io.Writer
	st styles
}

// New returns a Printer on stderr. Colors are used only when stderr is a
// terminal and NO_COLOR is unset.
func New() *Printer {
	fd := os.Stderr.Fd()
	color := (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("NO_COLOR") == ""
	return NewWithWriter(os.Stderr, color)
}

// NewWithWriter returns a Printer on w.
func NewWithWriter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, st: newStyles(lipgloss.NewRenderer(w), color)}
}

// Error prints msg as an error.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "%s %s\n", p.st.danger.Render("error:"), msg)
}

// Info prints a muted informational line.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, p.st.muted.Render(msg))
}

// Report prints one import warning. Safe for concurrent use.
func (p *Printer) Report(w importer.Warning) {
	label := "warning"
	switch w.Kind {
	case telemetry.KindGeneratedResourceDropped:
		label = "dropped"
	case telemetry.KindNamespaceCollision:
		label = "collision"
	case telemetry.KindUnusedAllowlistEntry:
		label = "unused"
	}
	head := p.st.warning.Render(fmt.Sprintf("⚠ %s", label))
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := strings.Split(w.Message, "\n")
	fmt.Fprintf(p.w, "%s %s %s\n", head, p.st.muted.Render("["+w.Pass+"]"), lines[0])
	for _, l := range lines[1:] {
		fmt.Fprintf(p.w, "    %s\n", strings.TrimSpace(l))
	}
}

// ImportStart announces an import of graphPath.
func (p *Printer) ImportStart(graphPath string, targets int) {
	fmt.Fprintf(p.w, "%s %s %s\n", p.st.heading.Render("◆ import"), graphPath,
		p.st.muted.Render(fmt.Sprintf("(%d targets)", targets)))
}

// PassSummary prints the counts of one finished pass.
func (p *Printer) PassSummary(res *importer.Result) {
	s := res.Stats
	fmt.Fprintf(p.w, "%s %s: %d resource module(s), %d archive library(ies), %d resource library(ies)\n",
		p.st.success.Render("✓"), p.st.bold.Render(res.Pass),
		len(res.ResourceModules), len(res.ArchiveLibraries), len(res.ResourceLibraries))
	fmt.Fprintf(p.w, "  %s\n", p.st.muted.Render(fmt.Sprintf(
		"%d source target(s), %d candidate(s), %d aggregated, %d cycle edge(s), %d missing dep(s), %d warning(s)",
		s.SourceTargets, s.Candidates, s.Engine.Seeded, s.Engine.CycleEdges, s.Engine.MissingDeps, len(res.Warnings))))
}

// RunSaved reports where a run was stored.
func (p *Printer) RunSaved(run store.Run) {
	elapsed := run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)
	fmt.Fprintf(p.w, "%s %s %s\n", p.st.success.Render("✓ saved run"), run.ID,
		p.st.muted.Render(fmt.Sprintf("(%s)", elapsed)))
}

// Diagnostics prints the result of a graph validation. It returns true when
// the graph is free of dangling edges and cycles.
func (p *Printer) Diagnostics(graphPath string, targets int, d targetgraph.Diagnostics) bool {
	if len(d.Dangling) == 0 && len(d.Cycles) == 0 {
		fmt.Fprintf(p.w, "%s %s: %d target(s), no dangling deps or cycles\n",
			p.st.success.Render("✓ graph"), graphPath, targets)
		return true
	}
	fmt.Fprintf(p.w, "%s %s: %d target(s), %d dangling dep(s), %d cycle(s)\n",
		p.st.warning.Render("⚠ graph"), graphPath, targets, len(d.Dangling), len(d.Cycles))
	for _, e := range d.Dangling {
		fmt.Fprintf(p.w, "  %s %s -> %s %s\n", p.st.danger.Render("•"), e.From, e.To, p.st.muted.Render("(missing)"))
	}
	for _, c := range d.Cycles {
		names := make([]string, len(c))
		for i, l := range c {
			names[i] = l.String()
		}
		fmt.Fprintf(p.w, "  %s cycle: %s\n", p.st.danger.Render("↻"), strings.Join(names, " -> "))
	}
	return false
}
