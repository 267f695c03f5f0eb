package loop

import (
	"github.com/fatih/color"

	"github.com/nickng/loopconv/ast"
	"github.com/nickng/loopconv/config"
	"github.com/nickng/loopconv/internal/logging"
)

// Analyser traverses a tree once and records the variable tables of every
// loop in it.
type Analyser struct {
	cfg *config.Config

	seen        []ref // append-only within a scope, truncated on scope exit
	loops       *Stack
	scopes      scopes
	inCondition bool
	err         error // first stack inconsistency

	blacklist map[string]bool
	typeNames map[string]bool
	globals   map[string]bool
	pushPop   map[string]bool

	parents *ast.ParentMap
	infos   map[ast.Loop]*Info
	order   []ast.Loop

	Logger *logging.Logger
}

// NewAnalyser returns an Analyser using cfg, or the default configuration
// if cfg is nil.
func NewAnalyser(cfg *config.Config) *Analyser {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Analyser{cfg: cfg, Logger: logging.Nop()}
}

// SetLogger sets logger for Analyser.
func (a *Analyser) SetLogger(l *logging.Logger) {
	a.Logger = logging.OrNop(l).Named("loop", color.FgMagenta)
}

// Analyse runs the analysis over root with the default configuration.
func Analyse(root ast.Node) (*Result, error) {
	return NewAnalyser(nil).Analyse(root)
}

// Analyse traverses root and returns the tables of every loop under it.
// The tree is not modified.
func (a *Analyser) Analyse(root ast.Node) (*Result, error) {
	a.reset(root)
	a.scopes.push(&frame{})
	a.visit(root)
	if a.err != nil {
		return nil, a.err
	}
	top, err := a.scopes.pop()
	if err != nil {
		return nil, &PreconditionError{Msg: "unbalanced scope stack"}
	}
	a.closeScope(top)
	if !a.loops.IsEmpty() {
		return nil, &PreconditionError{Msg: "unbalanced loop stack"}
	}
	return &Result{
		infos:     a.infos,
		order:     a.order,
		parents:   a.parents,
		typeNames: a.typeNames,
		Logger:    a.Logger,
	}, nil
}

func (a *Analyser) reset(root ast.Node) {
	a.seen = nil
	a.loops = NewStack()
	a.scopes = nil
	a.inCondition = false
	a.err = nil
	a.blacklist = make(map[string]bool)
	for _, b := range a.cfg.Builtins {
		a.blacklist[b] = true
	}
	a.typeNames = make(map[string]bool)
	a.globals = make(map[string]bool)
	a.pushPop = make(map[string]bool)
	for _, m := range a.cfg.PushPopMethods {
		a.pushPop[m] = true
	}
	a.parents = ast.NewParentMap(root)
	a.infos = make(map[ast.Loop]*Info)
	a.order = nil
}

func (a *Analyser) visit(n ast.Node) {
	switch n := n.(type) {
	case *ast.FunctionDef:
		a.visitFunc(n)
	case *ast.While:
		a.visitLoop(n, n.Test)
	case *ast.For:
		a.visitLoop(n, n.Target, n.Iter)
	case *ast.Name:
		a.visitName(n)
	case *ast.Attribute:
		a.visitAttr(n)
	case *ast.Call:
		a.visitCall(n)
		a.visitChildren(n)
	case *ast.Global:
		for _, name := range n.Names {
			a.globals[name] = true
		}
	default:
		a.visitChildren(n)
	}
}

func (a *Analyser) visitChildren(n ast.Node) {
	for _, c := range ast.Children(n) {
		a.visit(c)
	}
}

// visitFunc enters a scope wall. Names first referenced inside fn are
// dropped on exit, so neither the enclosing scope nor a later sibling
// function sees them.
func (a *Analyser) visitFunc(fn *ast.FunctionDef) {
	a.blacklist[fn.Name] = true
	f := &frame{fn: fn, mark: len(a.seen)}
	a.scopes.push(f)
	for _, arg := range fn.Args {
		a.record(&ast.Name{ID: arg, Ctx: ast.Param})
	}
	for _, s := range fn.Body {
		a.visit(s)
	}
	if top, err := a.scopes.pop(); err != nil || top != f {
		a.fail(&PreconditionError{Msg: "unbalanced scope stack in function " + fn.Name})
		return
	}
	a.closeScope(f)
	a.seen = a.seen[:f.mark]
}

// fail keeps the first error of the traversal.
func (a *Analyser) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

// closeScope hands the whole-scope seen list to the loops of f.
func (a *Analyser) closeScope(f *frame) {
	for _, info := range f.loops {
		info.scopeSeen = append([]ref(nil), a.seen...)
		info.captured = true
	}
}

func (a *Analyser) visitLoop(l ast.Loop, cond ...ast.Expr) {
	info := newInfo(l)
	a.infos[l] = info
	a.order = append(a.order, l)
	if f := a.scopes.top(); f != nil {
		f.loops = append(f.loops, info)
	}

	a.loops.Push(info)
	a.inCondition = true
	for _, e := range cond {
		a.visit(e)
	}
	a.inCondition = false
	info.before = append([]ref(nil), a.seen...)

	for _, s := range l.LoopBody() {
		a.visit(s)
	}
	for _, s := range l.LoopElse() {
		a.visit(s)
	}
	if top, err := a.loops.Pop(); err != nil || top != info {
		a.fail(&PreconditionError{Loop: l, Msg: "unbalanced loop stack"})
	}
}

func (a *Analyser) visitName(n *ast.Name) {
	if a.isCallee(n) || a.blacklist[n.ID] {
		return
	}
	a.record(n)
}

func (a *Analyser) visitAttr(n *ast.Attribute) {
	if _, ok := ast.FullName(n); !ok {
		// Not a variable (e.g. f().x), but its operands may be.
		a.visitChildren(n)
		return
	}
	if a.isCallee(n) {
		return
	}
	if ast.RootName(n).ID == a.cfg.SelfName {
		return
	}
	a.record(n)
}

func (a *Analyser) visitCall(c *ast.Call) {
	if fn, ok := c.Func.(*ast.Name); ok && fn.ID == a.cfg.TypeCheck && len(c.Args) >= 2 {
		if t, ok := c.Args[1].(*ast.Tuple); ok {
			for _, elt := range t.Elts {
				a.typeNames[ast.Source(elt)] = true
			}
		} else {
			a.typeNames[ast.Source(c.Args[1])] = true
		}
	}
	if a.loops.IsEmpty() {
		return
	}
	attr, ok := c.Func.(*ast.Attribute)
	if !ok || !a.pushPop[attr.Attr] {
		return
	}
	recv, ok := attr.Value.(*ast.Name)
	if !ok || a.blacklist[recv.ID] {
		return
	}
	if a.globals[recv.ID] {
		a.Logger.Warnf("%s %s.%s: %s is global, not threaded as a push/pop variable",
			a.Logger.Module(), recv.ID, attr.Attr, recv.ID)
		return
	}
	for _, info := range a.loops.All() {
		info.variadic[recv.ID] = true
	}
}

func (a *Analyser) isCallee(e ast.Expr) bool {
	c, ok := a.parents.Parent(e).(*ast.Call)
	return ok && c.Func == e
}

// record adds a reference to the seen list and to every open loop. e is a
// Name or a Name-rooted Attribute.
func (a *Analyser) record(e ast.Expr) {
	name, ok := ast.VarName(e)
	if !ok {
		return
	}
	ctx := ast.RefCtx(e)
	r := ref{expr: e, name: name, ctx: ctx}
	a.seen = append(a.seen, r)
	for _, info := range a.loops.All() {
		info.refs = append(info.refs, r)
		if ctx.IsWrite() {
			info.writes = append(info.writes, r)
		}
	}
	if a.inCondition {
		if top := a.loops.Top(); top != nil {
			top.cond = append(top.cond, r)
		}
	}
}
