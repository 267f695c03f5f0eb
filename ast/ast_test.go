package ast

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func mustDecode(t *testing.T, src string) *Module {
	t.Helper()
	mod, err := DecodeBytes([]byte(src))
	if err != nil {
		t.Fatalf("cannot decode tree: %v", err)
	}
	return mod
}

func TestDecodePrint(t *testing.T) {
	src := `
version: 1.0.0
body:
  - def:
      name: f
      args: [x, obj]
      body:
        - assign: [y, 0]
        - while:
            test: {compare: [x, "<", 10]}
            body:
              - assign: [x, {binop: [x, "+", 1]}]
              - augassign: [obj.count, "+", 1]
              - expr: {call: [print, "done", x]}
        - return: y
`
	want := `def f(x, obj):
    y = 0
    while x < 10:
        x = x + 1
        obj.count += 1
        print('done', x)
    return y
`
	if got := Source(mustDecode(t, src)); got != want {
		t.Errorf("Source mismatch, want:\n%s\ngot:\n%s", want, got)
	}
}

func TestDecodeContexts(t *testing.T) {
	mod := mustDecode(t, `
- for:
    target: {tuple: [i, x]}
    iter: {call: [enumerate, xs]}
    body:
      - augassign: [s, "+", x]
      - delete: [tmp]
`)
	f := mod.Body[0].(*For)
	for _, elt := range f.Target.(*Tuple).Elts {
		if ctx := elt.(*Name).Ctx; ctx != Store {
			t.Errorf("for target %s should be %s, got %s", Source(elt), Store, ctx)
		}
	}
	if ctx := f.Body[0].(*AugAssign).Target.(*Name).Ctx; ctx != AugStore {
		t.Errorf("augassign target should be %s, got %s", AugStore, ctx)
	}
	if ctx := f.Body[1].(*Delete).Targets[0].(*Name).Ctx; ctx != Del {
		t.Errorf("delete target should be %s, got %s", Del, ctx)
	}
	if !AugStore.IsRead() || !AugStore.IsWrite() {
		t.Errorf("augmented assignment should both read and write")
	}
}

func TestDecodeBadVersion(t *testing.T) {
	_, err := DecodeBytes([]byte("version: 2.1.0\nbody: []\n"))
	if errors.Cause(err) != ErrBadVersion {
		t.Errorf("expected %v, got %v", ErrBadVersion, err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name, src, msg string
	}{
		{"unknown statement", "- frobnicate: 1\n", `unknown statement "frobnicate"`},
		{"bad name", "- expr: 'a b'\n- expr: a-b\n", `"a-b" is neither a name`},
		{"bad target", "- assign: [{call: [f]}, 1]\n", "cannot assign to"},
		{"two kinds", "- {expr: x, pass: null}\n", "exactly one kind key"},
	}
	for _, tt := range tests {
		_, err := DecodeBytes([]byte(tt.src))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if _, ok := err.(*DecodeError); !ok {
			t.Errorf("%s: expected *DecodeError, got %T", tt.name, err)
		}
		if !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.msg)
		}
	}
	if _, err := DecodeBytes(nil); err != ErrEmptyDocument {
		t.Errorf("expected %v, got %v", ErrEmptyDocument, err)
	}
}

func TestPrintPrecedence(t *testing.T) {
	tests := []struct {
		expr Expr
		want string
	}{
		{&BinOp{Left: &BinOp{Left: NewName("a"), Op: "+", Right: NewName("b")}, Op: "*", Right: NewName("c")}, "(a + b) * c"},
		{&BinOp{Left: NewName("a"), Op: "-", Right: &BinOp{Left: NewName("b"), Op: "-", Right: NewName("c")}}, "a - (b - c)"},
		{&UnaryOp{Op: "not", Operand: NewCompare(NewName("x"), "<", NewConst(int64(1)))}, "not x < 1"},
		{&BoolOp{Op: "and", Values: []Expr{&BoolOp{Op: "or", Values: []Expr{NewName("a"), NewName("b")}}, NewName("c")}}, "(a or b) and c"},
		{&Tuple{Elts: []Expr{NewConst("x")}}, "('x',)"},
		{&Attribute{Value: &BinOp{Left: NewName("a"), Op: "+", Right: NewName("b")}, Attr: "real"}, "(a + b).real"},
		{NewConst(2.0), "2.0"},
		{NewConst("it's"), `'it\'s'`},
		{&ListComp{Elt: NewName("t"), Generators: []*Comprehension{{Target: NewStore("t"), Iter: NewCallName("range", NewName("i")), Ifs: []Expr{NewName("t")}}}}, "[t for t in range(i) if t]"},
	}
	for _, tt := range tests {
		if got := Source(tt.expr); got != tt.want {
			t.Errorf("want %s, got %s", tt.want, got)
		}
	}
}

func TestParentMap(t *testing.T) {
	mod := mustDecode(t, `
- for:
    target: i
    iter: xs
    body:
      - while:
          test: c
          body:
            - assign: [x, i]
`)
	outer := mod.Body[0].(*For)
	inner := outer.Body[0].(*While)
	x := inner.Body[0].(*Assign).Targets[0]
	pm := NewParentMap(mod)
	if pm.Parent(outer.Target) != outer {
		t.Errorf("parent of for target should be the for loop")
	}
	if !pm.IsAncestor(outer, x) || !pm.IsAncestor(inner, x) {
		t.Errorf("both loops should be ancestors of %s", Source(x))
	}
	if pm.IsAncestor(inner, outer) {
		t.Errorf("inner loop is not an ancestor of the outer loop")
	}
}

func TestCloneIndependent(t *testing.T) {
	orig := NewAttrPath([]string{"foo", "bar", "x"}, Load)
	c := CloneAs(orig, Store)
	if Source(c) != "foo.bar.x" {
		t.Errorf("clone should render foo.bar.x, got %s", Source(c))
	}
	if c == orig || c.(*Attribute).Value == orig.(*Attribute).Value {
		t.Errorf("clone shares nodes with the original")
	}
	if orig.(*Attribute).Ctx != Load || c.(*Attribute).Ctx != Store {
		t.Errorf("CloneAs should only change the clone's context")
	}
	if name, ok := FullName(c.(*Attribute)); !ok || name != "foo.bar.x" {
		t.Errorf("FullName want foo.bar.x, got %q (%t)", name, ok)
	}
}
