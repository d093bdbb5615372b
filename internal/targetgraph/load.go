package targetgraph

import (
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrNoGraphFile is returned when the graph file does not exist.
var ErrNoGraphFile = errors.New("graph file not found")

// graphFile is the on-disk TOML form of a target graph:
//
//	[[target]]
//	label = "//java/app:lib"
//	kind = "android_library"
//	build_file = { path = "java/app/BUILD" }
//	deps = ["//java/base:res"]
//
//	[target.android]
//	resource_java_package = "com.example.app"
//	generate_resource_class = true
//	manifest = { path = "java/app/AndroidManifest.xml" }
//	res_folders = [{ root = { path = "java/app/res" } }]
type graphFile struct {
	Targets []fileTarget `toml:"target"`
}

type fileArtifact struct {
	Path      string `toml:"path"`
	Root      string `toml:"root,omitempty"`
	Generated bool   `toml:"generated,omitempty"`
}

type fileTarget struct {
	Label     string        `toml:"label"`
	Kind      string        `toml:"kind"`
	BuildFile *fileArtifact `toml:"build_file,omitempty"`
	Deps      []string      `toml:"deps,omitempty"`
	Android   *fileAndroid  `toml:"android,omitempty"`
	Aar       *fileAar      `toml:"aar,omitempty"`
	Java      *fileJava     `toml:"java,omitempty"`
}

type fileAndroid struct {
	Manifest              *fileArtifact   `toml:"manifest,omitempty"`
	ResFolders            []fileResFolder `toml:"res_folders,omitempty"`
	ResourceJavaPackage   string          `toml:"resource_java_package,omitempty"`
	GenerateResourceClass bool            `toml:"generate_resource_class,omitempty"`
	LegacyResources       string          `toml:"legacy_resources,omitempty"`
}

type fileResFolder struct {
	Root      fileArtifact `toml:"root"`
	Resources []string     `toml:"resources,omitempty"`
}

type fileAar struct {
	Aar               fileArtifact `toml:"aar"`
	CustomJavaPackage string       `toml:"custom_java_package,omitempty"`
}

type fileJava struct {
	Jars []fileJar `toml:"jars"`
}

type fileJar struct {
	InterfaceJar *fileArtifact  `toml:"interface_jar,omitempty"`
	ClassJar     *fileArtifact  `toml:"class_jar,omitempty"`
	SourceJars   []fileArtifact `toml:"source_jars,omitempty"`
}

// Load reads a TOML graph file.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoGraphFile, path)
		}
		return nil, fmt.Errorf("targetgraph: reading %s: %w", path, err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("targetgraph: %s: %w", path, err)
	}
	return g, nil
}

// Parse decodes TOML graph data.
func Parse(data []byte) (*Graph, error) {
	var f graphFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing graph: %w", err)
	}
	targets := make([]*Target, 0, len(f.Targets))
	for i, ft := range f.Targets {
		t, err := ft.target()
		if err != nil {
			return nil, fmt.Errorf("target #%d: %w", i+1, err)
		}
		targets = append(targets, t)
	}
	return New(targets...)
}

func (fa fileArtifact) ref() ArtifactRef {
	a := ArtifactRef{RelativePath: fa.Path, RootExecPath: fa.Root, IsSource: !fa.Generated}
	if fa.Generated && a.RootExecPath == "" {
		a.RootExecPath = DefaultGenRoot
	}
	return a
}

func optRef(fa *fileArtifact) *ArtifactRef {
	if fa == nil {
		return nil
	}
	a := fa.ref()
	return &a
}

func (ft fileTarget) target() (*Target, error) {
	label, err := ParseLabel(ft.Label)
	if err != nil {
		return nil, err
	}
	t := &Target{Label: label, Kind: ft.Kind}
	if ft.BuildFile != nil {
		t.BuildFile = ft.BuildFile.ref()
	}
	for _, d := range ft.Deps {
		dep, err := ParseLabel(d)
		if err != nil {
			return nil, fmt.Errorf("%s: dep: %w", label, err)
		}
		t.Deps = append(t.Deps, dep)
	}

	if a := ft.Android; a != nil {
		info := &AndroidInfo{
			Manifest:              optRef(a.Manifest),
			ResourceJavaPackage:   a.ResourceJavaPackage,
			GenerateResourceClass: a.GenerateResourceClass,
		}
		for _, rf := range a.ResFolders {
			info.ResFolders = append(info.ResFolders, ResFolder{
				Root:      rf.Root.ref(),
				Resources: rf.Resources,
			})
		}
		if a.LegacyResources != "" {
			legacy, err := ParseLabel(a.LegacyResources)
			if err != nil {
				return nil, fmt.Errorf("%s: legacy_resources: %w", label, err)
			}
			info.LegacyResources = &legacy
		}
		t.Android = info
	}
	if a := ft.Aar; a != nil {
		t.Aar = &AarInfo{Aar: a.Aar.ref(), CustomJavaPackage: a.CustomJavaPackage}
	}
	if j := ft.Java; j != nil {
		info := &JavaInfo{}
		for _, fj := range j.Jars {
			jar := LibraryArtifact{
				InterfaceJar: optRef(fj.InterfaceJar),
				ClassJar:     optRef(fj.ClassJar),
			}
			for _, s := range fj.SourceJars {
				jar.SourceJars = append(jar.SourceJars, s.ref())
			}
			info.Jars = append(info.Jars, jar)
		}
		t.Java = info
	}
	return t, nil
}
