package arch_test

import (
	"strings"
	"testing"
)

// layers orders the checked packages. A package may import packages at its
// own layer or below. The graph model and leaf utilities sit at the bottom;
// the CLI sits on top and nothing imports it.
var layers = map[string]int{
	"config":      0,
	"targetgraph": 0,
	"telemetry":   0,
	"watch":       0,

	"aggregate":   1,
	"projectview": 1,

	"resources": 2,
	"merge":     3,
	"importer":  4,
	"store":     5,
	"ui":        6,

	"cmd": 7,
}

// thirdParty confines each third-party module to the packages that own its
// concern. Test files are not checked.
var thirdParty = map[string][]string{
	"github.com/pelletier/go-toml/v2":   {"targetgraph"},
	"github.com/zeebo/xxh3":             {"resources"},
	"golang.org/x/sync":                 {"importer"},
	"modernc.org/sqlite":                {"store"},
	"github.com/google/uuid":            {"store", "cmd"},
	"github.com/fsnotify/fsnotify":      {"watch", "cmd"},
	"github.com/charmbracelet/lipgloss": {"ui"},
	"github.com/mattn/go-isatty":        {"ui"},
	"github.com/spf13/viper":            {"config", "cmd"},
	"github.com/spf13/cobra":            {"cmd"},
}

func TestDependencyLayering(t *testing.T) {
	t.Parallel()

	for _, p := range packages(t) {
		from, ok := layers[p.Name]
		if !ok {
			t.Errorf("package %s has no layer assignment; add it to the layers map", p.Name)
			continue
		}
		for _, imp := range p.InternalImports() {
			to, ok := layers[imp]
			if !ok {
				continue
			}
			if to > from {
				t.Errorf("layer violation: %s (layer %d) imports %s (layer %d)", p.Name, from, imp, to)
			}
		}
	}
}

func TestThirdPartyConfinement(t *testing.T) {
	t.Parallel()

	for _, p := range packages(t) {
		for _, imp := range p.Imports() {
			if !strings.Contains(strings.SplitN(imp, "/", 2)[0], ".") || strings.HasPrefix(imp, modulePath) {
				continue
			}
			owners, known := ownersOf(imp)
			if !known {
				t.Errorf("%s imports %s, which has no entry in thirdParty", p.Name, imp)
				continue
			}
			if !contains(owners, p.Name) {
				t.Errorf("%s imports %s; only %v may", p.Name, imp, owners)
			}
		}
	}
}

// ownersOf finds the thirdParty entry whose module path prefixes imp.
func ownersOf(imp string) ([]string, bool) {
	for mod, owners := range thirdParty {
		if imp == mod || strings.HasPrefix(imp, mod+"/") {
			return owners, true
		}
	}
	return nil, false
}
