package arch_test

import (
	"go/ast"
	"go/token"
	"strings"
	"testing"
)

// TestExportedSymbolsHaveGoDoc checks internal packages: exported types,
// funcs and methods need a doc comment starting with their name; exported
// vars and consts need a doc comment on the spec or its group. cmd exports
// only Execute and is not checked.
func TestExportedSymbolsHaveGoDoc(t *testing.T) {
	t.Parallel()

	for _, p := range packages(t) {
		if p.Name == "cmd" {
			continue
		}
		for _, f := range p.Files {
			if f.Test {
				continue
			}
			for _, decl := range f.AST.Decls {
				for _, problem := range undocumented(decl) {
					t.Errorf("%s: %s", f.Path, problem)
				}
			}
		}
	}
}

func undocumented(decl ast.Decl) []string {
	var out []string
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if d.Name.IsExported() && !strings.HasPrefix(d.Doc.Text(), d.Name.Name) {
			out = append(out, "exported func "+d.Name.Name+" has no doc comment starting with its name")
		}
	case *ast.GenDecl:
		for _, spec := range d.Specs {
			switch s := spec.(type) {
			case *ast.TypeSpec:
				doc := s.Doc
				if doc == nil {
					doc = d.Doc
				}
				if s.Name.IsExported() && !strings.HasPrefix(doc.Text(), s.Name.Name) {
					out = append(out, "exported type "+s.Name.Name+" has no doc comment starting with its name")
				}
			case *ast.ValueSpec:
				if s.Doc != nil || d.Doc != nil {
					continue
				}
				kind := "var"
				if d.Tok == token.CONST {
					kind = "const"
				}
				for _, name := range s.Names {
					if name.IsExported() {
						out = append(out, "exported "+kind+" "+name.Name+" has no doc comment")
					}
				}
			}
		}
	}
	return out
}
