// Package targetgraph models the imported build graph: labels, artifacts,
// target descriptors and the immutable label-to-target mapping the
// aggregation engine walks.
package targetgraph

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidLabel is returned when a label string cannot be parsed.
var ErrInvalidLabel = errors.New("invalid label")

// Label identifies a build target. The zero Label is invalid.
type Label struct {
	repo string // external repository name without the leading '@'
	pkg  string // package path, no leading or trailing slashes
	name string // target name
}

// ParseLabel parses "//pkg:name", "@repo//pkg:name" or the "//pkg" shorthand,
// which names the target with the same name as the package's last element.
func ParseLabel(s string) (Label, error) {
	var l Label
	rest := s
	if strings.HasPrefix(rest, "@") {
		idx := strings.Index(rest, "//")
		if idx < 0 {
			return Label{}, fmt.Errorf("%w: %q: missing //", ErrInvalidLabel, s)
		}
		l.repo = strings.TrimPrefix(rest[:idx], "@")
		rest = rest[idx:]
	}
	if !strings.HasPrefix(rest, "//") {
		return Label{}, fmt.Errorf("%w: %q: must start with //", ErrInvalidLabel, s)
	}
	rest = strings.TrimPrefix(rest, "//")

	if colon := strings.LastIndex(rest, ":"); colon >= 0 {
		l.pkg, l.name = rest[:colon], rest[colon+1:]
	} else {
		l.pkg = rest
		l.name = path.Base(rest)
	}
	l.pkg = strings.Trim(l.pkg, "/")
	if l.name == "" || l.name == "." || l.name == "/" {
		return Label{}, fmt.Errorf("%w: %q: empty target name", ErrInvalidLabel, s)
	}
	return l, nil
}

// MustParseLabel is like ParseLabel but panics on error. Intended for tests
// and static tables.
func MustParseLabel(s string) Label {
	l, err := ParseLabel(s)
	if err != nil {
		panic(err)
	}
	return l
}

// Package returns the workspace-relative package path.
func (l Label) Package() string { return l.pkg }

// Name returns the target name.
func (l Label) Name() string { return l.name }

// Repo returns the external repository name, or "" for the main repository.
func (l Label) Repo() string { return l.repo }

// IsZero reports whether l is the zero Label.
func (l Label) IsZero() bool { return l == Label{} }

// String returns the canonical form.
func (l Label) String() string {
	if l.IsZero() {
		return ""
	}
	var b strings.Builder
	if l.repo != "" {
		b.WriteByte('@')
		b.WriteString(l.repo)
	}
	b.WriteString("//")
	b.WriteString(l.pkg)
	b.WriteByte(':')
	b.WriteString(l.name)
	return b.String()
}

// Compare orders labels by their canonical string form.
func (l Label) Compare(o Label) int {
	return strings.Compare(l.String(), o.String())
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(b []byte) error {
	parsed, err := ParseLabel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
