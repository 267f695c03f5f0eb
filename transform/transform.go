// Package transform rewrites while and for statements into calls of a
// structured-loop primitive.
//
// A loop
//
//	while x < 10:
//	    x = x + 1
//
// becomes a condition closure, a body closure, a getter and a setter over
// the loop-carried names, and one call
//
//	_jst.While(while_condition_0, while_body_0, get_args_0, set_args_0,
//	    return_name_ids=('x',), push_pop_names=None)
//
// Loops are rewritten bottom-up, so the body of an outer loop already
// holds the rewritten inner loops.
package transform

import (
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/nickng/loopconv/accessor"
	"github.com/nickng/loopconv/ast"
	"github.com/nickng/loopconv/config"
	"github.com/nickng/loopconv/forloop"
	"github.com/nickng/loopconv/internal/logging"
	"github.com/nickng/loopconv/loop"
	"github.com/nickng/loopconv/names"
)

// LoopFacts are the classified variables of one loop.
type LoopFacts interface {
	ModifiedVars() []string
	CreatedVars() []string
	VariadicVars() []string
	// Ref returns a reference to name inside the loop, or an error if the
	// name was never recorded there.
	Ref(name string) (ast.Expr, error)
}

// Facts looks up the classified variables of a loop.
type Facts interface {
	Facts(l ast.Loop) (LoopFacts, error)
}

type resultFacts struct {
	res *loop.Result
}

func (r resultFacts) Facts(l ast.Loop) (LoopFacts, error) {
	info, err := r.res.Info(l)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// FromResult returns the Facts of an analysis.
func FromResult(res *loop.Result) Facts {
	return resultFacts{res: res}
}

// UnsupportedError is returned for a construct the rewriter cannot express.
type UnsupportedError struct {
	Node   ast.Node
	Reason string
}

func (e *UnsupportedError) Error() string {
	return "unsupported construct `" + firstLine(e.Node) + "`: " + e.Reason
}

func firstLine(n ast.Node) string {
	if n == nil {
		return "<nil>"
	}
	src := ast.Source(n)
	if i := strings.IndexByte(src, '\n'); i >= 0 {
		src = src[:i]
	}
	return strings.TrimSuffix(src, ":")
}

// Rewriter rewrites the loops of function bodies.
type Rewriter struct {
	cfg   *config.Config
	facts Facts
	gen   names.Generator
	norm  forloop.Normaliser

	Logger *logging.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithConfig sets the configuration (default config.Default()).
func WithConfig(cfg *config.Config) Option {
	return func(r *Rewriter) { r.cfg = cfg }
}

// WithGenerator sets the unique-name generator (default a fresh names.Pool).
func WithGenerator(gen names.Generator) Option {
	return func(r *Rewriter) { r.gen = gen }
}

// WithNormaliser sets the for-loop normaliser (default a forloop.Parser
// sharing the generator).
func WithNormaliser(n forloop.Normaliser) Option {
	return func(r *Rewriter) { r.norm = n }
}

// New returns a Rewriter reading loop variables from facts.
func New(facts Facts, opts ...Option) *Rewriter {
	r := &Rewriter{facts: facts, Logger: logging.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg == nil {
		r.cfg = config.Default()
	}
	if r.gen == nil {
		r.gen = names.NewPool()
	}
	if r.norm == nil {
		r.norm = forloop.NewParser(r.cfg, r.gen)
	}
	return r
}

// SetLogger sets logger for Rewriter and its default normaliser.
func (r *Rewriter) SetLogger(l *logging.Logger) {
	r.Logger = logging.OrNop(l).Named("transform", color.FgGreen)
	if ls, ok := r.norm.(logging.LogSetter); ok {
		ls.SetLogger(l)
	}
}

// RewriteFunc rewrites every loop in the body of fn, including the loops
// of nested functions. fn is modified in place.
func (r *Rewriter) RewriteFunc(fn *ast.FunctionDef) error {
	sc := &scope{}
	body, err := r.rewriteStmts(fn.Body, sc)
	if err != nil {
		return errors.Wrapf(err, "function %s", fn.Name)
	}
	fn.Body = r.bindPlaceholders(body, fn.Args, sc.reqs)
	return nil
}

func (r *Rewriter) rewriteStmts(stmts []ast.Stmt, sc *scope) ([]ast.Stmt, error) {
	out := make([]ast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.FunctionDef:
			if err := r.RewriteFunc(s); err != nil {
				return nil, err
			}
		case *ast.If:
			if err := r.rewriteBlocks(sc, &s.Body, &s.Orelse); err != nil {
				return nil, err
			}
		case *ast.While, *ast.For:
			repl, err := r.rewriteLoop(s.(ast.Loop), sc)
			if err != nil {
				return nil, err
			}
			out = append(out, repl...)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Rewriter) rewriteBlocks(sc *scope, blocks ...*[]ast.Stmt) error {
	for _, b := range blocks {
		stmts, err := r.rewriteStmts(*b, sc)
		if err != nil {
			return err
		}
		*b = stmts
	}
	return nil
}

// rewriteLoop rewrites the loops nested in l, then l itself. The nested
// loops land in the body closure of l, or stay in sc if l is kept.
func (r *Rewriter) rewriteLoop(l ast.Loop, sc *scope) ([]ast.Stmt, error) {
	inner := &scope{}
	var (
		repl []ast.Stmt
		reqs []placeholder
		err  error
	)
	switch l := l.(type) {
	case *ast.While:
		if err := r.rewriteBlocks(inner, &l.Body); err != nil {
			return nil, err
		}
		if err := r.rewriteBlocks(sc, &l.Orelse); err != nil {
			return nil, err
		}
		repl, reqs, err = r.rewriteWhile(l, inner)
	case *ast.For:
		if err := r.rewriteBlocks(inner, &l.Body); err != nil {
			return nil, err
		}
		if err := r.rewriteBlocks(sc, &l.Orelse); err != nil {
			return nil, err
		}
		repl, reqs, err = r.rewriteFor(l, inner)
	}
	if err != nil {
		return nil, err
	}
	if len(repl) == 1 && repl[0] == ast.Stmt(l) {
		// Kept: its body is still part of sc.
		sc.reqs = append(sc.reqs, inner.reqs...)
		return repl, nil
	}
	sc.reqs = append(sc.reqs, reqs...)
	return repl, nil
}

// RewriteWhile returns the replacement of w. A loop with an else branch or
// a break/continue of its own is returned unchanged. Placeholders are only
// bound for created names; RewriteFunc also binds the loop variables the
// enclosing function never assigns.
func (r *Rewriter) RewriteWhile(w *ast.While) ([]ast.Stmt, error) {
	repl, reqs, err := r.rewriteWhile(w, &scope{})
	if err != nil {
		return nil, err
	}
	return r.bindPlaceholders(repl, nil, created(reqs)), nil
}

// RewriteFor returns the replacement of f, or f itself if the normaliser
// does not support its shape. Placeholders are bound as in RewriteWhile.
func (r *Rewriter) RewriteFor(f *ast.For) ([]ast.Stmt, error) {
	repl, reqs, err := r.rewriteFor(f, &scope{})
	if err != nil {
		return nil, err
	}
	return r.bindPlaceholders(repl, nil, created(reqs)), nil
}

func (r *Rewriter) rewriteWhile(w *ast.While, inner *scope) ([]ast.Stmt, []placeholder, error) {
	if w.Test == nil {
		return nil, nil, &UnsupportedError{Node: w, Reason: "while without condition"}
	}
	if len(w.Orelse) > 0 {
		r.Logger.Warnf("%s skip `%s`: while-else", r.Logger.Module(), firstLine(w))
		return []ast.Stmt{w}, nil, nil
	}
	if forloop.Jumps(w.Body) {
		r.Logger.Warnf("%s skip `%s`: break or continue in loop body", r.Logger.Module(), firstLine(w))
		return []ast.Stmt{w}, nil, nil
	}
	facts, err := r.facts.Facts(w)
	if err != nil {
		return nil, nil, err
	}
	return r.build(w, nil, w.Test, w.Body, facts, nil, inner, r.cfg.Prefixes.WhileCondition, r.cfg.Prefixes.WhileBody)
}

func (r *Rewriter) rewriteFor(f *ast.For, inner *scope) ([]ast.Stmt, []placeholder, error) {
	if f.Target == nil || f.Iter == nil {
		return nil, nil, &UnsupportedError{Node: f, Reason: "for without target or iterator"}
	}
	d, ok := r.norm.Normalise(f)
	if !ok {
		r.Logger.Warnf("%s skip `%s`: unsupported for loop", r.Logger.Module(), firstLine(f))
		return []ast.Stmt{f}, nil, nil
	}
	facts, err := r.facts.Facts(f)
	if err != nil {
		return nil, nil, err
	}
	var extra []string
	for _, name := range []string{d.IterIndex, d.EnumIndex} {
		if name != "" {
			extra = append(extra, name)
		}
	}
	return r.build(f, d.Init, d.Cond, d.Body, facts, extra, inner, r.cfg.Prefixes.ForCondition, r.cfg.Prefixes.ForBody)
}

// build returns the replacement of l and the placeholders its closures
// need in the enclosing scope. inner holds the placeholders requested by
// the loops already rewritten into body.
func (r *Rewriter) build(l ast.Loop, init []ast.Stmt, cond ast.Expr, body []ast.Stmt, facts LoopFacts, extra []string, inner *scope, condPrefix, bodyPrefix string) ([]ast.Stmt, []placeholder, error) {
	for _, name := range append(append([]string(nil), facts.ModifiedVars()...), facts.CreatedVars()...) {
		if _, err := facts.Ref(name); err != nil {
			return nil, nil, err
		}
	}
	loopVars := r.loopVarNames(facts, extra)
	variadic := facts.VariadicVars()
	helper := accessor.New(loopVars, variadic, r.cfg)
	if _, err := helper.Getter(""); err != nil {
		return nil, nil, &UnsupportedError{Node: l, Reason: err.Error()}
	}
	prim, ok := ast.SplitPath(r.cfg.LoopPrimitive)
	if !ok {
		return nil, nil, errors.Errorf("bad loop primitive %q", r.cfg.LoopPrimitive)
	}

	var out []ast.Stmt
	out = append(out, init...)

	condFn := ast.NewFunc(r.gen.Generate(condPrefix), []string{})
	condFn.Body = append(nonlocal(loopVars, r.cfg.ArgsName), &ast.Return{Value: cond})
	bodyFn := ast.NewFunc(r.gen.Generate(bodyPrefix), []string{})
	bodyFn.Body = append(nonlocal(loopVars, r.cfg.ArgsName), body...)
	bodyFn.Body = r.bindPlaceholders(bodyFn.Body, nil, inner.reqs)

	getter, err := helper.Getter(r.gen.Generate(r.cfg.Prefixes.GetArgs))
	if err != nil {
		return nil, nil, &UnsupportedError{Node: l, Reason: err.Error()}
	}
	setter, err := helper.Setter(r.gen.Generate(r.cfg.Prefixes.SetArgs))
	if err != nil {
		return nil, nil, &UnsupportedError{Node: l, Reason: err.Error()}
	}

	call := ast.NewCall(ast.NewAttrPath(prim, ast.Load),
		ast.NewName(condFn.Name), ast.NewName(bodyFn.Name), ast.NewName(getter.Name), ast.NewName(setter.Name))
	call.Keywords = []*ast.Keyword{
		{Arg: "return_name_ids", Value: nameTuple(loopVars)},
		{Arg: "push_pop_names", Value: nameTuple(variadic)},
	}
	out = append(out, condFn, bodyFn, getter, setter, &ast.ExprStmt{Value: call})

	var reqs []placeholder
	createdSet := make(map[string]bool)
	for _, name := range facts.CreatedVars() {
		createdSet[name] = true
	}
	for _, name := range loopVars {
		if ast.IsIdent(name) && name != r.cfg.ArgsName {
			reqs = append(reqs, placeholder{name: name, before: out[0], force: createdSet[name]})
		}
	}

	r.Logger.Debugf("%s rewrite `%s`: loop vars %v, push/pop %v", r.Logger.Module(), firstLine(l), loopVars, variadic)
	return out, reqs, nil
}

// loopVarNames returns sorted(carried ∪ created ∪ extra) without the
// reserved argument name.
func (r *Rewriter) loopVarNames(facts LoopFacts, extra []string) []string {
	set := make(map[string]bool)
	for _, group := range [][]string{facts.ModifiedVars(), facts.CreatedVars(), extra} {
		for _, name := range group {
			set[name] = true
		}
	}
	delete(set, r.cfg.ArgsName)
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// placeholder asks for name to be bound to the undefined value before the
// statement before, the first statement of a loop replacement.
type placeholder struct {
	name   string
	before ast.Stmt
	force  bool // created by the loop, bound even if assigned elsewhere
}

// scope collects the placeholders requested by the loops rewritten into
// one function body.
type scope struct {
	reqs []placeholder
}

func created(reqs []placeholder) []placeholder {
	var out []placeholder
	for _, p := range reqs {
		if p.force {
			out = append(out, p)
		}
	}
	return out
}

// bindPlaceholders inserts `name = <undefined_var>('name')` into body, a
// function body with parameters params, for every request that is created
// or never bound in that body. The closures of a loop declare its simple
// names nonlocal, which needs a binding in the enclosing function.
func (r *Rewriter) bindPlaceholders(body []ast.Stmt, params []string, reqs []placeholder) []ast.Stmt {
	if r.cfg.UndefinedVar == "" || len(reqs) == 0 {
		return body
	}
	ctor, ok := ast.SplitPath(r.cfg.UndefinedVar)
	if !ok {
		return body
	}
	bound := boundNames(body)
	for _, p := range params {
		bound[p] = true
	}
	insert := make(map[ast.Stmt][]ast.Stmt)
	for _, p := range reqs {
		if bound[p.name] && !p.force {
			continue
		}
		bound[p.name] = true
		insert[p.before] = append(insert[p.before], &ast.Assign{
			Targets: []ast.Expr{ast.NewStore(p.name)},
			Value:   ast.NewCall(ast.NewAttrPath(ctor, ast.Load), ast.NewConst(p.name)),
		})
	}
	return splice(body, insert)
}

// splice returns stmts with insert[s] placed before each s, searching the
// blocks of the same function scope.
func splice(stmts []ast.Stmt, insert map[ast.Stmt][]ast.Stmt) []ast.Stmt {
	if len(insert) == 0 {
		return stmts
	}
	out := make([]ast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, insert[s]...)
		switch s := s.(type) {
		case *ast.If:
			s.Body, s.Orelse = splice(s.Body, insert), splice(s.Orelse, insert)
		case *ast.While:
			s.Body, s.Orelse = splice(s.Body, insert), splice(s.Orelse, insert)
		case *ast.For:
			s.Body, s.Orelse = splice(s.Body, insert), splice(s.Orelse, insert)
		}
		out = append(out, s)
	}
	return out
}

// boundNames returns the names bound in the function scope of stmts:
// assignment, loop and delete targets, nested function names and
// nonlocal/global declarations. Nested functions and comprehensions have
// scopes of their own.
func boundNames(stmts []ast.Stmt) map[string]bool {
	bound := make(map[string]bool)
	for _, s := range stmts {
		ast.Inspect(s, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FunctionDef:
				bound[n.Name] = true
				return false
			case *ast.ListComp, *ast.SetComp, *ast.GeneratorExp, *ast.DictComp:
				return false
			case *ast.Nonlocal:
				for _, name := range n.Names {
					bound[name] = true
				}
			case *ast.Global:
				for _, name := range n.Names {
					bound[name] = true
				}
			case *ast.Name:
				if n.Ctx.IsWrite() {
					bound[n.ID] = true
				}
			}
			return true
		})
	}
	return bound
}

// nonlocal declares the simple names of loopVars. Attribute paths are
// written through their owner and are never declared.
func nonlocal(loopVars []string, argsName string) []ast.Stmt {
	var simple []string
	for _, name := range loopVars {
		if ast.IsIdent(name) && name != argsName {
			simple = append(simple, name)
		}
	}
	if len(simple) == 0 {
		return nil
	}
	return []ast.Stmt{&ast.Nonlocal{Names: simple}}
}

// nameTuple renders names as a tuple of string constants, None if empty.
func nameTuple(names []string) ast.Expr {
	if len(names) == 0 {
		return ast.NewConst(nil)
	}
	t := &ast.Tuple{}
	for _, name := range names {
		t.Elts = append(t.Elts, ast.NewConst(name))
	}
	return t
}
