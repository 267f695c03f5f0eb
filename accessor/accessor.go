// Package accessor builds the getter and setter functions through which a
// structured loop reads and writes the state of a rewritten loop.
//
// The state is an ordered tuple with one slot per name of Union. Simple
// names are rebound by the setter, attribute paths are written back only
// if the attribute is not a read-only property of the owner's type, and
// push/pop accumulators are reconciled in place by popping and appending.
package accessor

import (
	"fmt"
	"sort"

	"github.com/nickng/loopconv/ast"
	"github.com/nickng/loopconv/config"
)

// PathError is returned for a state name that is neither an identifier
// nor a dotted attribute path.
type PathError struct {
	Name string
	Msg  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("malformed state variable %q: %s", e.Name, e.Msg)
}

// Helper builds the accessors over a fixed set of names.
type Helper struct {
	argsName string
	union    []string
	variadic map[string]bool
}

// New returns a Helper over carried and variadic names.
func New(carried, variadic []string, cfg *config.Config) *Helper {
	if cfg == nil {
		cfg = config.Default()
	}
	h := &Helper{argsName: cfg.ArgsName, variadic: make(map[string]bool)}

	seen := make(map[string]bool)
	sorted := append([]string(nil), carried...)
	sort.Strings(sorted)
	for _, name := range sorted {
		if !seen[name] {
			seen[name] = true
			h.union = append(h.union, name)
		}
	}
	for _, name := range variadic {
		h.variadic[name] = true
		if !seen[name] {
			seen[name] = true
			h.union = append(h.union, name)
		}
	}
	return h
}

// Union returns the slot order: carried names sorted, then the variadic
// names not already carried, in their given order.
func (h *Helper) Union() []string {
	return append([]string(nil), h.union...)
}

// Getter returns
//
//	def name():
//	    nonlocal a, acc
//	    return (a, foo.x, acc)
func (h *Helper) Getter(name string) (*ast.FunctionDef, error) {
	paths, err := h.paths()
	if err != nil {
		return nil, err
	}
	fn := ast.NewFunc(name, []string{})
	fn.Body = append(fn.Body, h.nonlocal(paths)...)
	if len(paths) == 0 {
		fn.Body = append(fn.Body, &ast.Return{})
		return fn, nil
	}
	tuple := &ast.Tuple{}
	for _, p := range paths {
		tuple.Elts = append(tuple.Elts, ast.NewAttrPath(p, ast.Load))
	}
	fn.Body = append(fn.Body, &ast.Return{Value: tuple})
	return fn, nil
}

// Setter returns
//
//	def name(__args):
//	    nonlocal a, acc
//	    a = __args[0]
//	    if not isinstance(getattr(type(foo), 'x', None), property):
//	        foo.x = __args[1]
//	    while len(acc) > len(__args[2]):
//	        acc.pop()
//	    while len(acc) < len(__args[2]):
//	        acc.append(__args[2][len(acc)])
func (h *Helper) Setter(name string) (*ast.FunctionDef, error) {
	paths, err := h.paths()
	if err != nil {
		return nil, err
	}
	fn := ast.NewFunc(name, []string{h.argsName})
	fn.Body = append(fn.Body, h.nonlocal(paths)...)
	for i, p := range paths {
		slot := &ast.Subscript{Value: ast.NewName(h.argsName), Index: ast.NewConst(int64(i))}
		switch {
		case h.variadic[p[0]] && len(p) == 1:
			fn.Body = append(fn.Body, reconcile(p[0], slot)...)
		case len(p) == 1:
			fn.Body = append(fn.Body, &ast.Assign{Targets: []ast.Expr{ast.NewStore(p[0])}, Value: slot})
		default:
			fn.Body = append(fn.Body, guardedWrite(p, slot))
		}
	}
	if len(fn.Body) == 0 {
		fn.Body = append(fn.Body, &ast.Pass{})
	}
	return fn, nil
}

func (h *Helper) paths() ([][]string, error) {
	paths := make([][]string, 0, len(h.union))
	for _, name := range h.union {
		p, ok := ast.SplitPath(name)
		if !ok {
			return nil, &PathError{Name: name, Msg: "not a name or attribute path"}
		}
		if h.variadic[name] && ast.IsDottedPath(name) {
			return nil, &PathError{Name: name, Msg: "push/pop variable must be a name"}
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// nonlocal declares the simple names, attribute writes are not bindings.
func (h *Helper) nonlocal(paths [][]string) []ast.Stmt {
	var names []string
	for _, p := range paths {
		if len(p) == 1 && p[0] != h.argsName {
			names = append(names, p[0])
		}
	}
	if len(names) == 0 {
		return nil
	}
	return []ast.Stmt{&ast.Nonlocal{Names: names}}
}

// guardedWrite assigns slot to the attribute path p unless the attribute is
// a property of the owner's type.
func guardedWrite(p []string, slot ast.Expr) ast.Stmt {
	owner := ast.NewAttrPath(p[:len(p)-1], ast.Load)
	attr := p[len(p)-1]
	lookup := ast.NewCallName("getattr", ast.NewCallName("type", owner), ast.NewConst(attr), ast.NewConst(nil))
	return &ast.If{
		Test: &ast.UnaryOp{Op: "not", Operand: ast.NewCallName("isinstance", lookup, ast.NewName("property"))},
		Body: []ast.Stmt{&ast.Assign{Targets: []ast.Expr{ast.NewAttrPath(p, ast.Store)}, Value: slot}},
	}
}

// reconcile resizes the container name in place to match slot.
func reconcile(name string, slot ast.Expr) []ast.Stmt {
	length := func(e ast.Expr) ast.Expr { return ast.NewCallName("len", e) }
	method := func(m string, args ...ast.Expr) ast.Stmt {
		call := ast.NewCall(&ast.Attribute{Value: ast.NewName(name), Attr: m}, args...)
		return &ast.ExprStmt{Value: call}
	}
	return []ast.Stmt{
		&ast.While{
			Test: ast.NewCompare(length(ast.NewName(name)), ">", length(ast.Clone(slot))),
			Body: []ast.Stmt{method("pop")},
		},
		&ast.While{
			Test: ast.NewCompare(length(ast.NewName(name)), "<", length(ast.Clone(slot))),
			Body: []ast.Stmt{method("append", &ast.Subscript{Value: ast.Clone(slot), Index: length(ast.NewName(name))})},
		},
	}
}
