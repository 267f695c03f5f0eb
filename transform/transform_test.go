package transform

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/tools/txtar"

	"github.com/nickng/loopconv/ast"
	"github.com/nickng/loopconv/config"
	"github.com/nickng/loopconv/loop"
	"github.com/nickng/loopconv/names"
)

// rewrite analyses mod and rewrites its top-level functions.
func rewrite(mod *ast.Module, cfg *config.Config) error {
	res, err := loop.NewAnalyser(cfg).Analyse(mod)
	if err != nil {
		return err
	}
	rw := New(FromResult(res), WithConfig(cfg), WithGenerator(names.NewPool()))
	for _, s := range mod.Body {
		if fn, ok := s.(*ast.FunctionDef); ok {
			if err := rw.RewriteFunc(fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no golden files")
	}
	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			if err != nil {
				t.Fatal(err)
			}
			parts := make(map[string][]byte)
			for _, f := range ar.Files {
				parts[f.Name] = f.Data
			}
			cfg := config.Default()
			if b, ok := parts["config.yaml"]; ok {
				if cfg, err = config.Parse(b); err != nil {
					t.Fatal(err)
				}
			}
			mod, err := ast.DecodeBytes(parts["input.yaml"])
			if err != nil {
				t.Fatalf("cannot decode input: %v", err)
			}
			if err := rewrite(mod, cfg); err != nil {
				t.Fatalf("rewrite failed: %v", err)
			}
			if want, got := string(parts["want.py"]), ast.Source(mod); want != got {
				t.Errorf("rewrite mismatch, want:\n%s\ngot:\n%s", want, got)
			}
		})
	}
}

// Generated names are sorted for any order of the classified sets.
func TestSortedLoopVars(t *testing.T) {
	w := &ast.While{Test: ast.NewName("c"), Body: []ast.Stmt{&ast.Pass{}}}
	facts := fakeFacts{w: {carried: []string{"zeta", "alpha", "__args", "mid"}, created: []string{"beta", "alpha"}}}
	repl, err := New(facts).RewriteWhile(w)
	if err != nil {
		t.Fatal(err)
	}
	call := repl[len(repl)-1].(*ast.ExprStmt).Value.(*ast.Call)
	want := "('alpha', 'beta', 'mid', 'zeta')"
	if got := ast.Source(call.Keywords[0].Value); got != want {
		t.Errorf("return_name_ids want %s, got %s", want, got)
	}
	cond := repl[0].(*ast.FunctionDef)
	if nl := cond.Body[0].(*ast.Nonlocal); strings.Join(nl.Names, " ") != "alpha beta mid zeta" {
		t.Errorf("nonlocal names mismatch, got %v", nl.Names)
	}
}

func TestAttributeNotNonlocal(t *testing.T) {
	w := &ast.While{Test: ast.NewName("c"), Body: []ast.Stmt{&ast.Pass{}}}
	facts := fakeFacts{w: {carried: []string{"foo.x"}}}
	repl, err := New(facts).RewriteWhile(w)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range repl[:2] {
		if _, ok := s.(*ast.FunctionDef).Body[0].(*ast.Nonlocal); ok {
			t.Errorf("attribute paths should never be declared nonlocal:\n%s", ast.Source(s))
		}
	}
}

func TestMalformedName(t *testing.T) {
	w := &ast.While{Test: ast.NewName("c"), Body: []ast.Stmt{&ast.Pass{}}}
	facts := fakeFacts{w: {carried: []string{"a[0]"}}}
	_, err := New(facts).RewriteWhile(w)
	uerr, ok := err.(*UnsupportedError)
	if !ok {
		t.Fatalf("expected *UnsupportedError, got %v", err)
	}
	if uerr.Node != w || !strings.Contains(uerr.Error(), "while c") {
		t.Errorf("error should identify the loop, got %q", uerr.Error())
	}
}

func TestPreconditionAborts(t *testing.T) {
	mod, err := ast.DecodeBytes([]byte(`
- def:
    name: f
    body:
      - while: {test: c, body: [pass]}
`))
	if err != nil {
		t.Fatal(err)
	}
	// Facts of another tree know nothing of this loop.
	res, err := loop.Analyse(&ast.Module{})
	if err != nil {
		t.Fatal(err)
	}
	fn := mod.Body[0].(*ast.FunctionDef)
	err = New(FromResult(res)).RewriteFunc(fn)
	if _, ok := errors.Cause(err).(*loop.PreconditionError); !ok {
		t.Fatalf("expected *loop.PreconditionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "function f") {
		t.Errorf("error should name the function, got %q", err)
	}
	if _, ok := fn.Body[0].(*ast.While); !ok {
		t.Errorf("function body should be unchanged on failure")
	}
}

func TestUnrecordedVariable(t *testing.T) {
	w := &ast.While{Test: ast.NewName("c"), Body: []ast.Stmt{&ast.Pass{}}}
	facts := fakeFacts{w: {carried: []string{"a", "b"}, unrecorded: "b"}}
	_, err := New(facts).RewriteWhile(w)
	perr, ok := err.(*loop.PreconditionError)
	if !ok {
		t.Fatalf("expected *loop.PreconditionError, got %v", err)
	}
	if perr.Var != "b" {
		t.Errorf("error should name variable b, got %q", perr.Error())
	}
}

func TestPlaceholdersBindNonlocals(t *testing.T) {
	mod, err := ast.DecodeBytes([]byte(`
- def:
    name: f
    args: [rows]
    body:
      - assign: [total, 0]
      - for:
          target: row
          iter: rows
          body:
            - for:
                target: v
                iter: row
                body:
                  - augassign: [total, "+", v]
      - return: total
- def:
    name: g
    args: [xs]
    body:
      - assign: [k, 0]
      - while:
          test: {compare: [k, "<", 1]}
          body:
            - for:
                target: x
                iter: xs
                body:
                  - augassign: [k, "+", x]
          orelse: [pass]
      - return: k
`))
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.UndefinedVar = "_jst.UndefinedVar"
	if err := rewrite(mod, cfg); err != nil {
		t.Fatal(err)
	}
	for _, s := range mod.Body {
		checkNonlocals(t, s.(*ast.FunctionDef), nil)
	}
	src := ast.Source(mod)
	for _, want := range []string{
		"row = _jst.UndefinedVar('row')",
		"v = _jst.UndefinedVar('v')",
		"x = _jst.UndefinedVar('x')",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("want %q in:\n%s", want, src)
		}
	}
	for _, bound := range []string{"total", "k", "rows", "xs"} {
		if strings.Contains(src, bound+" = _jst.UndefinedVar(") {
			t.Errorf("%s is bound by the function and needs no placeholder:\n%s", bound, src)
		}
	}
}

// checkNonlocals reports every nonlocal declaration in fn or its nested
// functions that no enclosing function binds.
func checkNonlocals(t *testing.T, fn *ast.FunctionDef, outer []map[string]bool) {
	t.Helper()
	avail := make(map[string]bool)
	declared := make(map[string]bool)
	for _, arg := range fn.Args {
		avail[arg] = true
	}
	var nested []*ast.FunctionDef
	for _, s := range fn.Body {
		ast.Inspect(s, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FunctionDef:
				avail[n.Name] = true
				nested = append(nested, n)
				return false
			case *ast.Nonlocal:
				for _, name := range n.Names {
					declared[name] = true
					avail[name] = true
				}
			case *ast.Name:
				if n.Ctx.IsWrite() {
					avail[n.ID] = true
				}
			}
			return true
		})
	}
	for name := range declared {
		found := false
		for _, sc := range outer {
			found = found || sc[name]
		}
		if !found {
			t.Errorf("no binding for nonlocal '%s' in %s", name, fn.Name)
		}
	}
	for _, f := range nested {
		checkNonlocals(t, f, append(outer, avail))
	}
}

type facts struct {
	carried, created, variadic []string
	unrecorded                 string // Ref fails for this name
}

func (f facts) ModifiedVars() []string { return f.carried }
func (f facts) CreatedVars() []string  { return f.created }
func (f facts) VariadicVars() []string { return f.variadic }

func (f facts) Ref(name string) (ast.Expr, error) {
	if name == f.unrecorded {
		return nil, &loop.PreconditionError{Var: name, Msg: "not recorded in the loop"}
	}
	for _, n := range append(append([]string(nil), f.carried...), f.created...) {
		if n == name {
			return ast.NewName(name), nil
		}
	}
	return nil, &loop.PreconditionError{Var: name, Msg: "not recorded in the loop"}
}

type fakeFacts map[ast.Loop]facts

func (ff fakeFacts) Facts(l ast.Loop) (LoopFacts, error) {
	f, ok := ff[l]
	if !ok {
		return nil, &loop.PreconditionError{Loop: l, Msg: "unknown loop"}
	}
	return f, nil
}
