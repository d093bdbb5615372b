package resources

import (
	"github.com/papapumpkin/resgraph/internal/projectview"
	"github.com/papapumpkin/resgraph/internal/targetgraph"
)

// Builder supplies the seed and combine functions for a resource pass and
// owns the pass's library registries. A Builder is not safe for concurrent
// use; create one per pass.
type Builder struct {
	view      *projectview.View
	allowlist *projectview.Allowlist
	libs      *libraries
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithKeyMode sets how archive library keys are derived.
func WithKeyMode(m KeyMode) BuilderOption {
	return func(b *Builder) { b.libs.mode = m }
}

// NewBuilder returns a Builder scoped to view.
func NewBuilder(view *projectview.View, opts ...BuilderOption) *Builder {
	b := &Builder{
		view:      view,
		allowlist: view.NewAllowlist(),
		libs:      newLibraries(KeyByArtifact),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IsModule reports whether t produces its own resource module: it generates
// a resource class, does not merely forward a legacy resources target, and
// has at least one usable resource folder.
func (b *Builder) IsModule(t *targetgraph.Target) bool {
	info := t.Android
	if info == nil || !info.GenerateResourceClass || info.LegacyResources != nil {
		return false
	}
	usable := false
	for _, f := range info.ResFolders {
		// No early exit: every generated root must be tested so rejected
		// ones are reported.
		if b.allowlist.Allows(f.Root) {
			usable = true
		}
	}
	return usable
}

// Seed returns the aggregate t contributes without its dependencies.
func (b *Builder) Seed(t *targetgraph.Target) *Aggregate {
	agg := newAggregate(t)
	agg.Module = b.IsModule(t)

	if t.Android == nil {
		if key, ok := b.libs.archive(t); ok && b.allowlist.Allows(t.Aar.Aar) {
			agg.LibraryKeys[key] = struct{}{}
		}
		return agg
	}

	for _, folder := range t.Android.ResFolders {
		root := folder.Root
		if !b.allowlist.Allows(root) {
			continue
		}
		if root.IsSource && !b.view.ContainsArtifact(root) {
			key := b.libs.resourceFolder(folder, t.Android.Manifest, t.BuildFile.RelativePath)
			agg.LibraryKeys[key] = struct{}{}
			continue
		}
		agg.addResource(root, agg.Module)
	}
	return agg
}

// Combine folds a finished dependency aggregate into acc.
func (b *Builder) Combine(acc, dep *Aggregate) *Aggregate {
	for r := range dep.TransitiveResources {
		acc.TransitiveResources[r] = struct{}{}
	}
	for k := range dep.LibraryKeys {
		acc.LibraryKeys[k] = struct{}{}
	}
	for l := range dep.TransitiveResourceLabels {
		if l != acc.Label {
			acc.TransitiveResourceLabels[l] = struct{}{}
		}
	}
	if dep.Module && dep.Label != acc.Label {
		acc.TransitiveResourceLabels[dep.Label] = struct{}{}
	}
	return acc
}

// ArchiveLibraries returns the archive libraries registered so far.
func (b *Builder) ArchiveLibraries() map[LibraryKey]ArchiveLibrary {
	return b.libs.archiveLibraries()
}

// ResourceLibraries returns the external resource libraries registered so far.
func (b *Builder) ResourceLibraries() map[LibraryKey]ResourceLibrary {
	return b.libs.resourceLibraries()
}

// DroppedGenerated returns generated resource artifacts that were left out
// because the allowlist does not cover them.
func (b *Builder) DroppedGenerated() []targetgraph.ArtifactRef {
	return b.allowlist.Rejected()
}

// UnusedAllowlist returns allowlist entries no artifact matched.
func (b *Builder) UnusedAllowlist() []string {
	return b.allowlist.Unused()
}
