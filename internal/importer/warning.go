package importer

import (
	"fmt"
	"sync"

	"github.com/papapumpkin/resgraph/internal/merge"
	"github.com/papapumpkin/resgraph/internal/telemetry"
	"github.com/papapumpkin/resgraph/internal/targetgraph"
)

// Warning is a recoverable anomaly found during an import. Kind is one of
// the telemetry warning kinds.
type Warning struct {
	Pass     string   `json:"pass"`
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Subjects []string `json:"subjects,omitempty"`
}

// Reporter receives warnings as an import produces them. Reporters passed to
// ImportPasses must be safe for concurrent use.
type Reporter interface {
	Report(Warning)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Warning)

// Report calls f(w).
func (f ReporterFunc) Report(w Warning) { f(w) }

// Collector is a Reporter that keeps every warning. Safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
}

// Report records w.
func (c *Collector) Report(w Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

// Warnings returns the recorded warnings in arrival order.
func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

func droppedWarning(pass string, a targetgraph.ArtifactRef) Warning {
	return Warning{
		Pass: pass,
		Kind: telemetry.KindGeneratedResourceDropped,
		Message: fmt.Sprintf("Dropping generated resource directory '%s'. "+
			"Add its path to project.generated_resources to keep it.", a.ExecPath()),
		Subjects: []string{a.ExecPath()},
	}
}

func collisionWarning(pass string, c merge.Collision) Warning {
	subjects := make([]string, len(c.Labels))
	for i, l := range c.Labels {
		subjects[i] = l.String()
	}
	return Warning{
		Pass:     pass,
		Kind:     telemetry.KindNamespaceCollision,
		Message:  c.Message(),
		Subjects: subjects,
	}
}

func unusedAllowlistWarning(pass, entry string) Warning {
	return Warning{
		Pass:     pass,
		Kind:     telemetry.KindUnusedAllowlistEntry,
		Message:  fmt.Sprintf("Generated resource allowlist entry '%s' matched no resource directory.", entry),
		Subjects: []string{entry},
	}
}
