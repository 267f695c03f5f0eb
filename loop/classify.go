package loop

import (
	"sort"

	"github.com/nickng/loopconv/ast"
	"github.com/nickng/loopconv/internal/logging"
)

// Result holds the tables recorded by one Analyse run.
type Result struct {
	infos     map[ast.Loop]*Info
	order     []ast.Loop
	parents   *ast.ParentMap
	typeNames map[string]bool

	Logger *logging.Logger
}

// Loops returns the analysed loops in source order.
func (r *Result) Loops() []ast.Loop {
	return append([]ast.Loop(nil), r.order...)
}

// TypeNames returns the sorted names registered as type-check arguments.
func (r *Result) TypeNames() []string {
	return sortedKeys(r.typeNames)
}

// Info returns the classified variables of l. The classification is
// computed on first use and cached.
func (r *Result) Info(l ast.Loop) (*Info, error) {
	info, ok := r.infos[l]
	if !ok {
		return nil, &PreconditionError{Loop: l, Msg: "loop was not visited by the analysis"}
	}
	if !info.done {
		if err := r.finalize(info); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func (r *Result) finalize(info *Info) error {
	if !info.captured {
		return &PreconditionError{Loop: info.Loop, Msg: "enclosing scope was never closed"}
	}
	refs := r.removeUnnecessary(info.refs, info)
	before := r.removeUnnecessary(info.before, info)

	skip := make(map[ast.Expr]bool, len(info.before)+len(info.refs))
	for _, ref := range info.before {
		skip[ref.expr] = true
	}
	for _, ref := range info.refs {
		skip[ref.expr] = true
	}
	var after []ref
	for _, ref := range info.scopeSeen {
		if !skip[ref.expr] {
			after = append(after, ref)
		}
	}
	after = r.removeUnnecessary(after, info)

	beforeNames := nameSet(before, nil)
	afterNames := nameSet(after, ast.Ctx.IsRead)
	condNames := nameSet(info.cond, nil)
	writeNames := nameSet(info.writes, nil)

	ctxs := make(map[string][]ast.Ctx)
	info.refByName = make(map[string]ast.Expr)
	for _, ref := range refs {
		ctxs[ref.name] = append(ctxs[ref.name], ref.ctx)
		if _, ok := info.refByName[ref.name]; !ok {
			info.refByName[ref.name] = ref.expr
		}
	}

	carried, created := make(map[string]bool), make(map[string]bool)
	for _, name := range sortedKeys(nameSet(refs, nil)) {
		switch {
		case beforeNames[name]:
			if condNames[name] || writeNames[name] {
				carried[name] = true
			}
		case afterNames[name]:
			carried[name] = true
			created[name] = true
		default:
			if readThenStored(ctxs[name]) {
				carried[name] = true
				created[name] = true
			}
		}
	}

	kept := nameSet(refs, nil)
	excluded := make(map[string]bool)
	for _, ref := range info.refs {
		if !kept[ref.name] {
			excluded[ref.name] = true
		}
	}

	info.carried = sortedKeys(carried)
	info.created = sortedKeys(created)
	info.excluded = sortedKeys(excluded)
	info.done = true
	r.Logger.Debugf("%s %s", r.Logger.Module(), info)
	return nil
}

// readThenStored reports whether the first occurrence reads and some
// occurrence stores.
func readThenStored(ctxs []ast.Ctx) bool {
	if len(ctxs) == 0 || !ctxs[0].IsRead() {
		return false
	}
	for _, ctx := range ctxs {
		if ctx == ast.Store || ctx == ast.AugStore {
			return true
		}
	}
	return false
}

// removeUnnecessary drops the references that are never loop variables of
// loop: comprehension-local names, targets of for loops other than loop and
// its ancestors, and type-check arguments.
func (r *Result) removeUnnecessary(refs []ref, info *Info) []ref {
	foreign := make(map[string]bool)
	for _, ref := range refs {
		n, ok := ref.expr.(*ast.Name)
		if !ok {
			continue
		}
		if f := r.forOfTarget(n); f != nil && ast.Loop(f) != info.Loop && !r.parents.IsAncestor(f, info.Loop) {
			foreign[n.ID] = true
		}
	}
	inCond := make(map[ast.Expr]bool, len(info.cond))
	for _, ref := range info.cond {
		inCond[ref.expr] = true
	}

	var kept []ref
	for _, ref := range refs {
		if r.typeNames[ast.Source(ref.expr)] {
			continue
		}
		if r.comprehensionLocal(ref.expr) {
			continue
		}
		if n, ok := ref.expr.(*ast.Name); ok && foreign[n.ID] && !inCond[ref.expr] {
			continue
		}
		kept = append(kept, ref)
	}
	return kept
}

// forOfTarget returns the for statement whose target binds n, or nil.
func (r *Result) forOfTarget(n *ast.Name) *ast.For {
	p := r.parents.Parent(n)
	var child ast.Node = n
	switch p.(type) {
	case *ast.Tuple, *ast.List:
		child, p = p, r.parents.Parent(p)
	}
	if f, ok := p.(*ast.For); ok && f.Target == child {
		return f
	}
	return nil
}

// comprehensionLocal reports whether e is bound by the generators of an
// enclosing comprehension. The iterator of the first generator is
// evaluated in the enclosing scope and binds nothing.
func (r *Result) comprehensionLocal(e ast.Expr) bool {
	var id string
	switch e := e.(type) {
	case *ast.Name:
		id = e.ID
	case *ast.Attribute:
		root := ast.RootName(e)
		if root == nil {
			return false
		}
		id = root.ID
	default:
		return false
	}

	var viaIter *ast.Comprehension
	var child ast.Node = e
	for p := r.parents.Parent(child); p != nil; child, p = p, r.parents.Parent(p) {
		if c, ok := p.(*ast.Comprehension); ok && c.Iter == child {
			viaIter = c
			continue
		}
		gens := generators(p)
		if len(gens) == 0 {
			continue
		}
		if viaIter == gens[0] {
			viaIter = nil
			continue
		}
		viaIter = nil
		for _, g := range gens {
			if bindsName(g.Target, id) {
				return true
			}
		}
	}
	return false
}

func generators(n ast.Node) []*ast.Comprehension {
	switch n := n.(type) {
	case *ast.ListComp:
		return n.Generators
	case *ast.SetComp:
		return n.Generators
	case *ast.GeneratorExp:
		return n.Generators
	case *ast.DictComp:
		return n.Generators
	}
	return nil
}

func bindsName(target ast.Expr, id string) bool {
	switch t := target.(type) {
	case *ast.Name:
		return t.ID == id
	case *ast.Tuple:
		for _, elt := range t.Elts {
			if bindsName(elt, id) {
				return true
			}
		}
	case *ast.List:
		for _, elt := range t.Elts {
			if bindsName(elt, id) {
				return true
			}
		}
	}
	return false
}

// nameSet returns the names of refs, optionally only those whose context
// satisfies keep.
func nameSet(refs []ref, keep func(ast.Ctx) bool) map[string]bool {
	names := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if keep == nil || keep(ref.ctx) {
			names[ref.name] = true
		}
	}
	return names
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
