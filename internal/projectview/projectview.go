// Package projectview holds the user's project configuration as seen by the
// importer: which workspace directories are part of the project, and which
// generated resource directories are allowed into resource modules.
package projectview

import (
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/papapumpkin/resgraph/internal/targetgraph"
)

// View is the immutable project scope. It is safe for concurrent use.
type View struct {
	directories []string
	excluded    []string
	generated   []string
}

// New returns a View including directories (minus excluded) and allowing
// the listed generated resource paths. "." names the workspace root.
func New(directories, excluded, generatedResources []string) *View {
	return &View{
		directories: normalize(directories),
		excluded:    normalize(excluded),
		generated:   normalize(generatedResources),
	}
}

func normalize(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.Trim(path.Clean(strings.TrimSpace(d)), "/")
		if d == "." {
			d = ""
		}
		out = append(out, d)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Directories returns the included directories.
func (v *View) Directories() []string { return slices.Clone(v.directories) }

// GeneratedResources returns the allow-listed generated resource paths.
func (v *View) GeneratedResources() []string { return slices.Clone(v.generated) }

// ContainsPath reports whether a workspace-relative path is in the project.
func (v *View) ContainsPath(p string) bool {
	for _, ex := range v.excluded {
		if targetgraph.PathUnder(p, ex) {
			return false
		}
	}
	for _, dir := range v.directories {
		if targetgraph.PathUnder(p, dir) {
			return true
		}
	}
	return false
}

// ContainsLabel reports whether a target's package is in the project.
// Targets from external repositories never are.
func (v *View) ContainsLabel(l targetgraph.Label) bool {
	return l.Repo() == "" && v.ContainsPath(l.Package())
}

// ContainsArtifact reports whether a source artifact lies in the project.
// Generated artifacts are never considered part of the source tree.
func (v *View) ContainsArtifact(a targetgraph.ArtifactRef) bool {
	return a.IsSource && v.ContainsPath(a.RelativePath)
}

// Allowlist tests generated artifacts against the view's generated resource
// entries and remembers which entries matched and which generated artifacts
// were rejected. Each import pass owns its own Allowlist.
type Allowlist struct {
	entries map[string]bool

	mu       sync.Mutex
	matched  map[string]bool
	rejected map[targetgraph.ArtifactRef]bool
}

// NewAllowlist returns an Allowlist over v's generated resource entries.
func (v *View) NewAllowlist() *Allowlist {
	entries := make(map[string]bool, len(v.generated))
	for _, g := range v.generated {
		entries[g] = true
	}
	return &Allowlist{
		entries:  entries,
		matched:  make(map[string]bool),
		rejected: make(map[targetgraph.ArtifactRef]bool),
	}
}

// Allows reports whether a is a source artifact or an allow-listed generated
// artifact. Generated artifacts are matched on their exact relative path.
func (al *Allowlist) Allows(a targetgraph.ArtifactRef) bool {
	if a.IsSource {
		return true
	}
	rel := strings.Trim(a.RelativePath, "/")
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.entries[rel] {
		al.matched[rel] = true
		return true
	}
	al.rejected[a] = true
	return false
}

// Rejected returns the generated artifacts Allows turned down, sorted.
func (al *Allowlist) Rejected() []targetgraph.ArtifactRef {
	al.mu.Lock()
	defer al.mu.Unlock()
	out := make([]targetgraph.ArtifactRef, 0, len(al.rejected))
	for a := range al.rejected {
		out = append(out, a)
	}
	slices.SortFunc(out, targetgraph.ArtifactRef.Compare)
	return out
}

// Unused returns the allowlist entries that never matched, sorted.
func (al *Allowlist) Unused() []string {
	al.mu.Lock()
	defer al.mu.Unlock()
	var out []string
	for e := range al.entries {
		if !al.matched[e] {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return out
}
