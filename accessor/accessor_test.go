package accessor

import (
	"strings"
	"testing"

	"github.com/nickng/loopconv/ast"
)

func TestUnionOrder(t *testing.T) {
	h := New([]string{"y", "foo.x", "a", "y"}, []string{"stack", "acc", "a"}, nil)
	want := "a foo.x y stack acc"
	if got := strings.Join(h.Union(), " "); got != want {
		t.Errorf("union mismatch, want: %s got: %s", want, got)
	}
}

func TestGetterSetter(t *testing.T) {
	h := New([]string{"foo.x", "b", "a"}, []string{"acc"}, nil)
	getter, err := h.Getter("get_args_0")
	if err != nil {
		t.Fatal(err)
	}
	setter, err := h.Setter("set_args_0")
	if err != nil {
		t.Fatal(err)
	}
	wantGet := `def get_args_0():
    nonlocal a, b, acc
    return (a, b, foo.x, acc)
`
	if got := ast.Source(getter); got != wantGet {
		t.Errorf("getter mismatch, want:\n%s\ngot:\n%s", wantGet, got)
	}
	wantSet := `def set_args_0(__args):
    nonlocal a, b, acc
    a = __args[0]
    b = __args[1]
    if not isinstance(getattr(type(foo), 'x', None), property):
        foo.x = __args[2]
    while len(acc) > len(__args[3]):
        acc.pop()
    while len(acc) < len(__args[3]):
        acc.append(__args[3][len(acc)])
`
	if got := ast.Source(setter); got != wantSet {
		t.Errorf("setter mismatch, want:\n%s\ngot:\n%s", wantSet, got)
	}
}

// Every slot the getter reads is the slot the setter writes back.
func TestSetterMirrorsGetter(t *testing.T) {
	h := New([]string{"n", "obj.inner.count", "i"}, nil, nil)
	getter, _ := h.Getter("g")
	setter, _ := h.Setter("s")
	ret := getter.Body[len(getter.Body)-1].(*ast.Return).Value.(*ast.Tuple)
	writes := setter.Body[1:] // after nonlocal
	if len(writes) != len(ret.Elts) {
		t.Fatalf("want %d writes, got %d", len(ret.Elts), len(writes))
	}
	for i, read := range ret.Elts {
		var assign *ast.Assign
		switch w := writes[i].(type) {
		case *ast.Assign:
			assign = w
		case *ast.If:
			assign = w.Body[0].(*ast.Assign)
		default:
			t.Fatalf("slot %d: unexpected write %T", i, w)
		}
		if ast.Source(assign.Targets[0]) != ast.Source(read) {
			t.Errorf("slot %d: getter reads %s, setter writes %s", i, ast.Source(read), ast.Source(assign.Targets[0]))
		}
		if idx := assign.Value.(*ast.Subscript).Index.(*ast.Constant).Value; idx != int64(i) {
			t.Errorf("slot %d: setter reads __args[%v]", i, idx)
		}
	}
}

func TestEmpty(t *testing.T) {
	h := New(nil, nil, nil)
	getter, _ := h.Getter("get_args_0")
	setter, _ := h.Setter("set_args_0")
	if want, got := "def get_args_0():\n    return\n", ast.Source(getter); got != want {
		t.Errorf("getter mismatch, want:\n%s\ngot:\n%s", want, got)
	}
	if want, got := "def set_args_0(__args):\n    pass\n", ast.Source(setter); got != want {
		t.Errorf("setter mismatch, want:\n%s\ngot:\n%s", want, got)
	}
}

func TestMalformedPath(t *testing.T) {
	for _, h := range []*Helper{
		New([]string{"a..b"}, nil, nil),
		New([]string{"x[0]"}, nil, nil),
		New(nil, []string{"obj.items"}, nil),
	} {
		if _, err := h.Getter("g"); err == nil {
			t.Errorf("%v: expected an error", h.Union())
		} else if _, ok := err.(*PathError); !ok {
			t.Errorf("%v: expected *PathError, got %T", h.Union(), err)
		}
		if _, err := h.Setter("s"); err == nil {
			t.Errorf("%v: expected an error", h.Union())
		}
	}
}

func TestArgsNameNotDeclared(t *testing.T) {
	h := New([]string{"__args", "x"}, nil, nil)
	setter, _ := h.Setter("s")
	if nl := setter.Body[0].(*ast.Nonlocal); strings.Join(nl.Names, ",") != "x" {
		t.Errorf("reserved argument name should not be nonlocal, got %v", nl.Names)
	}
}
