package resources

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/papapumpkin/resgraph/internal/targetgraph"
)

// LibraryKey identifies a deduplicated library.
type LibraryKey string

// KeyMode selects how archive library keys are derived.
type KeyMode string

const (
	// KeyByArtifact derives keys from the archive's location.
	KeyByArtifact KeyMode = "artifact"
	// KeyByNamespace keys archives that declare a custom Java package by that
	// package and their location, falling back to the artifact location.
	KeyByNamespace KeyMode = "namespace"
)

// ParseKeyMode validates a configured key mode. The empty string selects
// KeyByArtifact.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(s) {
	case "", KeyByArtifact:
		return KeyByArtifact, nil
	case KeyByNamespace:
		return KeyByNamespace, nil
	}
	return "", fmt.Errorf("resources: unknown library key mode %q", s)
}

// ArtifactKey derives a key from an artifact's exec path: the file stem plus
// a 64-bit xxh3 hash of the full path, so artifacts that share a name in
// different directories (or differ only by extension) get distinct keys.
func ArtifactKey(a targetgraph.ArtifactRef) LibraryKey {
	exec := a.ExecPath()
	base := path.Base(exec)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return LibraryKey(fmt.Sprintf("%s_%016x", stem, xxh3.HashString(exec)))
}

// NamespaceKey derives a key from a declared namespace and the archive that
// declares it. The exec path hash keeps archives sharing a package distinct.
// Namespace keys end in "_ns" and artifact keys in 16 hex digits, so the two
// never collide.
func NamespaceKey(namespace string, a targetgraph.ArtifactRef) LibraryKey {
	return LibraryKey(fmt.Sprintf("%s_%016x_ns", namespace, xxh3.HashString(a.ExecPath())))
}

// ArchiveLibrary is an imported Android archive and the jar it provides.
type ArchiveLibrary struct {
	Key LibraryKey                  `json:"key"`
	Aar targetgraph.ArtifactRef     `json:"aar"`
	Jar targetgraph.LibraryArtifact `json:"jar"`
}

// ResourceLibrary is a resource directory outside the project, exposed to
// the IDE as a library rather than as module content.
type ResourceLibrary struct {
	Key       LibraryKey               `json:"key"`
	Root      targetgraph.ArtifactRef  `json:"root"`
	Manifest  *targetgraph.ArtifactRef `json:"manifest,omitempty"`
	Resources []string                 `json:"resources,omitempty"`
}

type resourceLibraryBuilder struct {
	root      targetgraph.ArtifactRef
	manifest  *targetgraph.ArtifactRef
	resources map[string]bool
}

// libraries holds the two deduplication registries of one import pass.
type libraries struct {
	mode      KeyMode
	archives  map[LibraryKey]ArchiveLibrary
	resources map[LibraryKey]*resourceLibraryBuilder
}

func newLibraries(mode KeyMode) *libraries {
	return &libraries{
		mode:      mode,
		archives:  make(map[LibraryKey]ArchiveLibrary),
		resources: make(map[LibraryKey]*resourceLibraryBuilder),
	}
}

// archive registers the archive imported by t, or finds the one already
// registered. It reports false when t imports no archive with a jar.
func (l *libraries) archive(t *targetgraph.Target) (LibraryKey, bool) {
	if t.Aar == nil || t.Java == nil || len(t.Java.Jars) == 0 {
		return "", false
	}
	key := ArtifactKey(t.Aar.Aar)
	if l.mode == KeyByNamespace && t.Aar.CustomJavaPackage != "" {
		key = NamespaceKey(t.Aar.CustomJavaPackage, t.Aar.Aar)
	}
	if _, ok := l.archives[key]; !ok {
		// aar_import merges the archive's jars into one, so the first jar is it.
		l.archives[key] = ArchiveLibrary{Key: key, Aar: t.Aar.Aar, Jar: t.Java.Jars[0]}
	}
	return key, true
}

// resourceFolder registers an external resource folder, merging with any
// library already registered for the same root. buildFile is the
// workspace-relative BUILD path of the declaring target, or "".
//
// When two targets disagree on the manifest, the newer manifest replaces the
// recorded one only if the declaring BUILD file's directory is an ancestor of
// the root and the recorded manifest path is not longer than the new one.
func (l *libraries) resourceFolder(folder targetgraph.ResFolder, manifest *targetgraph.ArtifactRef, buildFile string) LibraryKey {
	root := folder.Root
	key := ArtifactKey(root)
	lib := l.resources[key]

	var existing *targetgraph.ArtifactRef
	if lib != nil {
		existing = lib.manifest
	}
	if !sameArtifact(existing, manifest) {
		switch {
		case buildFile == "" || manifest == nil:
			manifest = existing
		case existing != nil:
			if !targetgraph.PathUnder(root.RelativePath, path.Dir(buildFile)) {
				manifest = existing
			} else if len(existing.RelativePath) > len(manifest.RelativePath) {
				manifest = existing
			}
		}
	}

	if lib == nil {
		lib = &resourceLibraryBuilder{root: root, resources: make(map[string]bool)}
		l.resources[key] = lib
	}
	for _, r := range folder.Resources {
		lib.resources[r] = true
	}
	lib.manifest = manifest
	return key
}

func (l *libraries) archiveLibraries() map[LibraryKey]ArchiveLibrary {
	return maps.Clone(l.archives)
}

func (l *libraries) resourceLibraries() map[LibraryKey]ResourceLibrary {
	out := make(map[LibraryKey]ResourceLibrary, len(l.resources))
	for key, b := range l.resources {
		lib := ResourceLibrary{Key: key, Root: b.root}
		if b.manifest != nil {
			m := *b.manifest
			lib.Manifest = &m
		}
		if len(b.resources) > 0 {
			lib.Resources = slices.Sorted(maps.Keys(b.resources))
		}
		out[key] = lib
	}
	return out
}

func sameArtifact(a, b *targetgraph.ArtifactRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
