package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/resgraph/internal/projectview"
	"github.com/papapumpkin/resgraph/internal/targetgraph"
	"github.com/papapumpkin/resgraph/internal/telemetry"
)

var (
	src = targetgraph.Source
	gen = targetgraph.Generated
	lbl = targetgraph.MustParseLabel
)

func androidLib(label, namespace string, roots []targetgraph.ArtifactRef, deps ...string) *targetgraph.Target {
	l := lbl(label)
	t := &targetgraph.Target{
		Label:     l,
		Kind:      "android_library",
		BuildFile: src(l.Package() + "/BUILD"),
		Android:   &targetgraph.AndroidInfo{ResourceJavaPackage: namespace, GenerateResourceClass: true},
	}
	for _, r := range roots {
		t.Android.ResFolders = append(t.Android.ResFolders, targetgraph.ResFolder{Root: r})
	}
	for _, d := range deps {
		t.Deps = append(t.Deps, lbl(d))
	}
	return t
}

func resRoots(pkg string, n int) []targetgraph.ArtifactRef {
	out := make([]targetgraph.ArtifactRef, n)
	for i := range out {
		out[i] = src(fmt.Sprintf("%s/res%d", pkg, i))
	}
	return out
}

func mustGraph(t *testing.T, targets ...*targetgraph.Target) *targetgraph.Graph {
	t.Helper()
	g, err := targetgraph.New(targets...)
	if err != nil {
		t.Fatalf("targetgraph.New: %v", err)
	}
	return g
}

func moduleLabels(res *Result) []string {
	var out []string
	for _, m := range res.ResourceModules {
		out = append(out, m.Label.String())
	}
	return out
}

func TestNamespaceCollision(t *testing.T) {
	t.Parallel()
	g := mustGraph(t,
		androidLib("//x:m1", "com.example", resRoots("x/m1", 3)),
		androidLib("//x:m2", "com.example", resRoots("x/m2", 1)),
	)
	var c Collector
	im := New(g, projectview.New([]string{"x"}, nil, nil), WithReporter(&c))

	res, err := im.Import(context.Background(), AndroidPass())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if diff := cmp.Diff([]string{"//x:m1"}, moduleLabels(res)); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
	warnings := c.Warnings()
	if len(warnings) != 1 || warnings[0].Kind != telemetry.KindNamespaceCollision {
		t.Fatalf("warnings = %+v, want one namespace collision", warnings)
	}
	if diff := cmp.Diff([]string{"//x:m1", "//x:m2"}, warnings[0].Subjects); diff != "" {
		t.Errorf("collision subjects mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(warnings[0].Message, "Multiple R classes") {
		t.Errorf("collision message = %q", warnings[0].Message)
	}
	if diff := cmp.Diff(warnings, res.Warnings); diff != "" {
		t.Errorf("reported and recorded warnings differ (-reported +recorded):\n%s", diff)
	}
}

func TestGeneratedResourceWarning(t *testing.T) {
	t.Parallel()
	g := mustGraph(t,
		androidLib("//java/app:lib", "com.app", []targetgraph.ArtifactRef{src("java/app/res"), gen("java/app/res")}),
	)
	im := New(g, projectview.New([]string{"java/app"}, nil, nil))

	res, err := im.Import(context.Background(), AndroidPass())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.ResourceModules) != 1 {
		t.Fatalf("modules = %v, want one", moduleLabels(res))
	}
	m := res.ResourceModules[0]
	if diff := cmp.Diff([]targetgraph.ArtifactRef{src("java/app/res")}, m.Resources); diff != "" {
		t.Errorf("Resources mismatch (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %+v, want one", res.Warnings)
	}
	w := res.Warnings[0]
	if w.Kind != telemetry.KindGeneratedResourceDropped || !strings.Contains(w.Message, "bazel-out/bin/java/app/res") {
		t.Errorf("warning = %+v, want dropped generated resource naming bazel-out/bin/java/app/res", w)
	}
}

func TestUnusedAllowlistWarning(t *testing.T) {
	t.Parallel()
	g := mustGraph(t, androidLib("//java/app:lib", "com.app", []targetgraph.ArtifactRef{src("java/app/res")}))
	im := New(g, projectview.New([]string{"java/app"}, nil, []string{"java/gone/res"}))

	res, err := im.Import(context.Background(), AndroidPass())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != telemetry.KindUnusedAllowlistEntry {
		t.Errorf("warnings = %+v, want one unused allowlist entry", res.Warnings)
	}
}

func TestSourceTargetFilters(t *testing.T) {
	t.Parallel()
	outside := androidLib("//other:lib", "com.other", resRoots("other", 1))
	javaOnly := androidLib("//java/app:java", "com.java", resRoots("java/app/j", 1))
	javaOnly.Kind = "java_library"
	g := mustGraph(t,
		androidLib("//java/app:lib", "com.app", resRoots("java/app", 1), "//other:lib", "//java/app:java"),
		outside,
		javaOnly,
	)
	im := New(g, projectview.New([]string{"java"}, nil, nil))

	res, err := im.Import(context.Background(), AndroidPass())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if diff := cmp.Diff([]string{"//java/app:lib"}, moduleLabels(res)); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
	if res.Stats.SourceTargets != 1 {
		t.Errorf("SourceTargets = %d, want 1", res.Stats.SourceTargets)
	}
	// Both dependencies still feed the module, and //other:res0 is outside
	// the project so it becomes a resource library.
	m := res.ResourceModules[0]
	if len(m.TransitiveResources) != 2 || len(m.ResourceLibraryKeys) != 1 {
		t.Errorf("module = %+v, want 2 transitive resources and 1 library", m)
	}
	if len(res.ResourceLibraries) != 1 {
		t.Errorf("ResourceLibraries = %v, want one", res.ResourceLibraries)
	}
}

func TestDiamondSeedsOnce(t *testing.T) {
	t.Parallel()
	g := mustGraph(t,
		androidLib("//p:a", "com.a", resRoots("p/a", 1), "//p:b", "//p:c"),
		androidLib("//p:b", "com.b", nil, "//p:d"),
		androidLib("//p:c", "com.c", nil, "//p:d"),
		androidLib("//p:d", "com.d", resRoots("p/d", 1)),
	)
	im := New(g, projectview.New([]string{"p"}, nil, nil))
	res, err := im.Import(context.Background(), AndroidPass())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Stats.Engine.Seeded != 4 {
		t.Errorf("Seeded = %d, want 4", res.Stats.Engine.Seeded)
	}
	a := res.ResourceModules[0]
	if a.Label.String() != "//p:a" || len(a.TransitiveResources) != 2 {
		t.Errorf("first module = %+v, want //p:a with 2 transitive resources", a)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	t.Parallel()
	g := mustGraph(t,
		androidLib("//p:a", "com.p", resRoots("p/a", 2), "//p:b", "//ext:lib"),
		androidLib("//p:b", "com.p", resRoots("p/b", 2), "//p:a"),
		androidLib("//ext:lib", "com.ext", []targetgraph.ArtifactRef{src("third_party/res"), gen("ext/res")}),
	)
	view := projectview.New([]string{"p"}, nil, nil)

	first, err := New(g, view).Import(context.Background(), AndroidPass())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	second, err := New(g, view).Import(context.Background(), AndroidPass())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if diff := cmp.Diff(first, second, cmp.AllowUnexported(targetgraph.Label{})); diff != "" {
		t.Errorf("second import differs (-first +second):\n%s", diff)
	}
}

func TestImportPasses(t *testing.T) {
	t.Parallel()
	test := androidLib("//p:test", "com.test", resRoots("p/test", 1))
	test.Kind = "android_instrumentation_test"
	g := mustGraph(t, androidLib("//p:lib", "com.lib", resRoots("p/lib", 1)), test)
	im := New(g, projectview.New([]string{"p"}, nil, nil))

	passes := []Pass{
		{Name: "libs", Kinds: []string{"android_library"}},
		{Name: "tests", Kinds: []string{"android_instrumentation_test"}},
	}
	results, err := im.ImportPasses(context.Background(), passes)
	if err != nil {
		t.Fatalf("ImportPasses: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if diff := cmp.Diff([]string{"//p:lib"}, moduleLabels(results[0])); diff != "" {
		t.Errorf("libs pass mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"//p:test"}, moduleLabels(results[1])); diff != "" {
		t.Errorf("tests pass mismatch (-want +got):\n%s", diff)
	}
}

func TestImportCanceled(t *testing.T) {
	t.Parallel()
	g := mustGraph(t, androidLib("//p:lib", "com.lib", resRoots("p", 1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(g, projectview.New([]string{"p"}, nil, nil)).ImportPasses(ctx, []Pass{AndroidPass()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ImportPasses error = %v, want context.Canceled", err)
	}
}
