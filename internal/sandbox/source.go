package sandbox

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"
)

type importSpec struct {
	Name string
	Path string
}

// program is a snippet split into the pieces evaluated one after another.
type program struct {
	imports []importSpec
	decls   string
	body    string
}

// parseProgram accepts either bare statements (optionally preceded by import
// declarations) or a complete main package, whose main body becomes the
// statements and whose other declarations are kept.
func parseProgram(code string) (*program, *ExecError) {
	if strings.HasPrefix(firstCodeLine(code), "package ") {
		return parsePackage(code)
	}
	head, body := splitImports(code)
	p := &program{body: body}
	if strings.TrimSpace(head) != "" {
		specs, err := parseImports(head)
		if err != nil {
			return nil, &ExecError{Stage: StageCompile, Err: err}
		}
		p.imports = specs
	}
	return p, nil
}

func firstCodeLine(code string) string {
	for _, line := range strings.Split(code, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}
		return t
	}
	return ""
}

// splitImports separates the leading import declarations from the rest.
func splitImports(code string) (string, string) {
	lines := strings.Split(code, "\n")
	inBlock := false
	n := 0
	for ; n < len(lines); n++ {
		t := strings.TrimSpace(lines[n])
		if inBlock {
			if strings.HasPrefix(t, ")") {
				inBlock = false
			}
			continue
		}
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}
		if t == "import" || strings.HasPrefix(t, "import ") || strings.HasPrefix(t, "import(") || strings.HasPrefix(t, "import\"") {
			if strings.Contains(t, "(") && !strings.Contains(t, ")") {
				inBlock = true
			}
			continue
		}
		break
	}
	return strings.Join(lines[:n], "\n"), strings.Join(lines[n:], "\n")
}

func parseImports(head string) ([]importSpec, error) {
	f, err := parser.ParseFile(token.NewFileSet(), "imports.go", "package p\n"+head, parser.ImportsOnly)
	if err != nil {
		return nil, fmt.Errorf("malformed import: %w", err)
	}
	return importSpecs(f), nil
}

func importSpecs(f *ast.File) []importSpec {
	var out []importSpec
	for _, is := range f.Imports {
		path, _ := strconv.Unquote(is.Path.Value)
		spec := importSpec{Path: path}
		if is.Name != nil {
			spec.Name = is.Name.Name
		}
		out = append(out, spec)
	}
	return out
}

func parsePackage(code string) (*program, *ExecError) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "snippet.go", code, 0)
	if err != nil {
		return nil, &ExecError{Stage: StageCompile, Err: err}
	}
	p := &program{imports: importSpecs(f)}
	text := func(from, to token.Pos) string {
		return code[fset.Position(from).Offset:fset.Position(to).Offset]
	}
	var decls []string
	for _, d := range f.Decls {
		switch d := d.(type) {
		case *ast.GenDecl:
			if d.Tok == token.IMPORT {
				continue
			}
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.Name == "main" && d.Body != nil {
				p.body = text(d.Body.Lbrace+1, d.Body.Rbrace)
				continue
			}
		}
		decls = append(decls, text(d.Pos(), d.End()))
	}
	p.decls = strings.Join(decls, "\n\n")
	return p, nil
}

var errGoStmt = errors.New("go statements are not allowed")

// checkStatements rejects goroutines; an interpreted goroutine outlives the
// execution and its panics cannot be recovered. Syntax errors are left for
// the interpreter to report.
func checkStatements(p *program) *ExecError {
	sources := []string{"package p\nfunc _() {\n" + p.body + "\n}\n"}
	if p.decls != "" {
		sources = append(sources, "package p\n"+p.decls+"\n")
	}
	for _, src := range sources {
		f, err := parser.ParseFile(token.NewFileSet(), "snippet.go", src, 0)
		if err != nil {
			continue
		}
		found := false
		ast.Inspect(f, func(n ast.Node) bool {
			if _, ok := n.(*ast.GoStmt); ok {
				found = true
			}
			return !found
		})
		if found {
			return &ExecError{Stage: StageCompile, Err: errGoStmt}
		}
	}
	return nil
}

var slotDecl = regexp.MustCompile(`(?m)^(\s*)(result|fig|show_code)\s*:=`)

// normalizeSlots turns a top-of-line `result :=` (and fig, show_code) into an
// assignment so the predeclared slot is written instead of shadowed.
func normalizeSlots(body string) string {
	return slotDecl.ReplaceAllString(body, "${1}${2} =")
}
