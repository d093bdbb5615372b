package targetgraph

import (
	"path"
	"strings"
)

// ArtifactRef identifies a file or directory produced or consumed by the
// build. Source artifacts live in the workspace; generated artifacts live
// under RootExecPath (e.g. "bazel-out/k8-fastbuild/bin").
type ArtifactRef struct {
	RootExecPath string `json:"root,omitempty"`
	RelativePath string `json:"path"`
	IsSource     bool   `json:"source"`
}

// Source returns a source artifact at the given workspace-relative path.
func Source(relPath string) ArtifactRef {
	return ArtifactRef{RelativePath: relPath, IsSource: true}
}

// Generated returns a generated artifact under the default output root.
func Generated(relPath string) ArtifactRef {
	return ArtifactRef{RootExecPath: DefaultGenRoot, RelativePath: relPath}
}

// DefaultGenRoot is the output root used for generated artifacts that do not
// declare one.
const DefaultGenRoot = "bazel-out/bin"

// ExecPath returns the execution-root-relative path of the artifact.
func (a ArtifactRef) ExecPath() string {
	if a.RootExecPath == "" {
		return a.RelativePath
	}
	return path.Join(a.RootExecPath, a.RelativePath)
}

// IsUnder reports whether the artifact's relative path equals dir or lies
// beneath it. An empty dir matches everything.
func (a ArtifactRef) IsUnder(dir string) bool {
	return PathUnder(a.RelativePath, dir)
}

// String returns the exec path, prefixed with "gen:" for generated artifacts.
func (a ArtifactRef) String() string {
	if a.IsSource {
		return a.ExecPath()
	}
	return "gen:" + a.ExecPath()
}

// Compare orders artifacts by relative path, then root, with source first.
func (a ArtifactRef) Compare(o ArtifactRef) int {
	if c := strings.Compare(a.RelativePath, o.RelativePath); c != 0 {
		return c
	}
	if c := strings.Compare(a.RootExecPath, o.RootExecPath); c != 0 {
		return c
	}
	switch {
	case a.IsSource == o.IsSource:
		return 0
	case a.IsSource:
		return -1
	default:
		return 1
	}
}

// PathUnder reports whether p equals dir or is nested beneath it, comparing
// whole path components.
func PathUnder(p, dir string) bool {
	dir = strings.Trim(dir, "/")
	p = strings.Trim(p, "/")
	if dir == "" || dir == "." {
		return true
	}
	if p == dir {
		return true
	}
	return strings.HasPrefix(p, dir+"/")
}
