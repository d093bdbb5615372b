package targetgraph

// Target is one node of the graph: a label, its direct dependencies and the
// optional language-specific payloads. Targets are immutable once added to a
// Graph.
type Target struct {
	Label     Label
	Kind      string
	BuildFile ArtifactRef
	Deps      []Label // declaration order; iteration order for aggregation

	Android *AndroidInfo
	Aar     *AarInfo
	Java    *JavaInfo
}

// AndroidInfo carries resource information for Android rules.
type AndroidInfo struct {
	Manifest              *ArtifactRef
	ResFolders            []ResFolder
	ResourceJavaPackage   string
	GenerateResourceClass bool
	// LegacyResources is set when this target only forwards resources from a
	// separate legacy android_resources target.
	LegacyResources *Label
}

// ResFolder is a resource directory root and the files declared under it.
type ResFolder struct {
	Root      ArtifactRef
	Resources []string // relative to Root
}

// AarInfo describes an imported Android archive.
type AarInfo struct {
	Aar               ArtifactRef
	CustomJavaPackage string
}

// JavaInfo lists the jars a target produces.
type JavaInfo struct {
	Jars []LibraryArtifact
}

// LibraryArtifact groups the jars of one Java library output.
type LibraryArtifact struct {
	InterfaceJar *ArtifactRef  `json:"interface_jar,omitempty"`
	ClassJar     *ArtifactRef  `json:"class_jar,omitempty"`
	SourceJars   []ArtifactRef `json:"source_jars,omitempty"`
}

// BuildDir returns the workspace-relative directory of the target's BUILD
// file, falling back to the label's package when no build file is recorded.
func (t *Target) BuildDir() string {
	if t.BuildFile.RelativePath == "" {
		return t.Label.Package()
	}
	p := t.BuildFile.RelativePath
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return ""
}
