// Package forloop turns for statements into an index loop: initialisation
// statements, a condition and a body that advances the index itself.
package forloop

import (
	"github.com/fatih/color"

	"github.com/nickng/loopconv/ast"
	"github.com/nickng/loopconv/config"
	"github.com/nickng/loopconv/internal/logging"
	"github.com/nickng/loopconv/names"
)

// Normaliser decomposes a for statement. ok is false if the shape of the
// loop is not supported, in which case the loop must be left untouched.
type Normaliser interface {
	Normalise(f *ast.For) (d *Decomposition, ok bool)
}

// Decomposition is a for statement rewritten as
//
//	Init...
//	while Cond:
//	    Body...
type Decomposition struct {
	Init []ast.Stmt
	Cond ast.Expr
	Body []ast.Stmt

	IterIndex string // variable advanced by Body every iteration
	EnumIndex string // counter of enumerate, empty otherwise
}

// Parser is the default Normaliser. It supports iteration over range(...),
// enumerate(...) and any indexable sequence.
type Parser struct {
	cfg *config.Config
	gen names.Generator

	Logger *logging.Logger
}

// NewParser returns a Parser drawing temporaries from gen.
func NewParser(cfg *config.Config, gen names.Generator) *Parser {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Parser{cfg: cfg, gen: gen, Logger: logging.Nop()}
}

// SetLogger sets logger for Parser.
func (p *Parser) SetLogger(l *logging.Logger) {
	p.Logger = logging.OrNop(l).Named("forloop", color.FgCyan)
}

// Normalise decomposes f, see Normaliser.
func (p *Parser) Normalise(f *ast.For) (*Decomposition, bool) {
	if reason := unsupported(f); reason != "" {
		p.Logger.Debugf("%s skip `for %s in %s`: %s", p.Logger.Module(),
			ast.Source(f.Target), ast.Source(f.Iter), reason)
		return nil, false
	}
	if call, ok := f.Iter.(*ast.Call); ok && len(call.Keywords) == 0 {
		if fn, ok := call.Func.(*ast.Name); ok {
			switch fn.ID {
			case "range":
				return p.rangeLoop(f, call.Args)
			case "enumerate":
				return p.enumerateLoop(f, call.Args)
			}
		}
	}
	target, ok := f.Target.(*ast.Name)
	if !ok {
		p.Logger.Debugf("%s skip `for %s in %s`: target is not a name", p.Logger.Module(),
			ast.Source(f.Target), ast.Source(f.Iter))
		return nil, false
	}
	return p.seqLoop(target, f.Iter, f.Body, nil), true
}

// rangeLoop:
//
//	x = start
//	while x < stop:
//	    body
//	    x += step
func (p *Parser) rangeLoop(f *ast.For, args []ast.Expr) (*Decomposition, bool) {
	target, ok := f.Target.(*ast.Name)
	if !ok || len(args) == 0 || len(args) > 3 {
		return nil, false
	}
	var start, stop, step ast.Expr = ast.NewConst(int64(0)), args[0], ast.NewConst(int64(1))
	if len(args) > 1 {
		start, stop = args[0], args[1]
	}
	if len(args) == 3 {
		step = args[2]
	}

	d := &Decomposition{IterIndex: target.ID}
	stop = p.hoist(&d.Init, stop, p.cfg.Prefixes.LoopLen)
	step = p.hoist(&d.Init, step, p.cfg.Prefixes.LoopLen)
	d.Init = append(d.Init, assign(target.ID, start))

	switch sign(step) {
	case 1:
		d.Cond = ast.NewCompare(ast.NewName(target.ID), "<", stop)
	case -1:
		d.Cond = ast.NewCompare(ast.NewName(target.ID), ">", stop)
	default:
		// Sign only known at run time.
		d.Cond = &ast.BoolOp{Op: "or", Values: []ast.Expr{
			&ast.BoolOp{Op: "and", Values: []ast.Expr{
				ast.NewCompare(ast.Clone(step), ">", ast.NewConst(int64(0))),
				ast.NewCompare(ast.NewName(target.ID), "<", stop),
			}},
			&ast.BoolOp{Op: "and", Values: []ast.Expr{
				ast.NewCompare(ast.Clone(step), "<", ast.NewConst(int64(0))),
				ast.NewCompare(ast.NewName(target.ID), ">", ast.Clone(stop)),
			}},
		}}
	}
	d.Body = append(append(d.Body, f.Body...), incr(target.ID, ast.Clone(step)))
	return d, true
}

// enumerateLoop:
//
//	i = start
//	(sequence loop over seq)
//	    body
//	    i += 1
func (p *Parser) enumerateLoop(f *ast.For, args []ast.Expr) (*Decomposition, bool) {
	tuple, ok := f.Target.(*ast.Tuple)
	if !ok || len(tuple.Elts) != 2 || len(args) == 0 || len(args) > 2 {
		return nil, false
	}
	counter, ok1 := tuple.Elts[0].(*ast.Name)
	item, ok2 := tuple.Elts[1].(*ast.Name)
	if !ok1 || !ok2 {
		return nil, false
	}
	var start ast.Expr = ast.NewConst(int64(0))
	if len(args) == 2 {
		start = args[1]
	}
	init := []ast.Stmt{assign(counter.ID, start)}
	body := append(append([]ast.Stmt(nil), f.Body...), incr(counter.ID, ast.NewConst(int64(1))))
	d := p.seqLoop(item, args[0], body, init)
	d.EnumIndex = counter.ID
	return d, true
}

// seqLoop:
//
//	idx = 0
//	n = len(seq)
//	while idx < n:
//	    x = seq[idx]
//	    body
//	    idx += 1
func (p *Parser) seqLoop(target *ast.Name, seq ast.Expr, body []ast.Stmt, init []ast.Stmt) *Decomposition {
	d := &Decomposition{Init: init}
	if _, ok := seq.(*ast.Name); !ok {
		seq = p.bind(&d.Init, seq, p.cfg.Prefixes.LoopIter)
	}
	idx := p.gen.Generate(p.cfg.Prefixes.LoopIndex)
	n := p.gen.Generate(p.cfg.Prefixes.LoopLen)
	d.IterIndex = idx
	d.Init = append(d.Init,
		assign(idx, ast.NewConst(int64(0))),
		assign(n, ast.NewCallName("len", ast.Clone(seq))),
	)
	d.Cond = ast.NewCompare(ast.NewName(idx), "<", ast.NewName(n))
	d.Body = append(d.Body, &ast.Assign{
		Targets: []ast.Expr{ast.NewStore(target.ID)},
		Value:   &ast.Subscript{Value: ast.Clone(seq), Index: ast.NewName(idx)},
	})
	d.Body = append(d.Body, body...)
	d.Body = append(d.Body, incr(idx, ast.NewConst(int64(1))))
	return d
}

// hoist binds e to a fresh name unless it is a name or a constant, so it is
// evaluated once.
func (p *Parser) hoist(init *[]ast.Stmt, e ast.Expr, prefix string) ast.Expr {
	switch e := e.(type) {
	case *ast.Name, *ast.Constant:
		return e
	case *ast.UnaryOp:
		if _, ok := e.Operand.(*ast.Constant); ok {
			return e
		}
	}
	return p.bind(init, e, prefix)
}

func (p *Parser) bind(init *[]ast.Stmt, e ast.Expr, prefix string) ast.Expr {
	name := p.gen.Generate(prefix)
	*init = append(*init, assign(name, e))
	return ast.NewName(name)
}

// unsupported returns why f cannot be decomposed, or "".
func unsupported(f *ast.For) string {
	if len(f.Orelse) > 0 {
		return "for-else"
	}
	if Jumps(f.Body) {
		return "break or continue in loop body"
	}
	return ""
}

// Jumps reports whether stmts contain a break or continue belonging to the
// loop whose body they are.
func Jumps(stmts []ast.Stmt) bool {
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.Break, *ast.Continue:
			return true
		case *ast.If:
			if Jumps(s.Body) || Jumps(s.Orelse) {
				return true
			}
		case *ast.While:
			// break/continue in the body belong to the inner loop.
			if Jumps(s.Orelse) {
				return true
			}
		case *ast.For:
			if Jumps(s.Orelse) {
				return true
			}
		}
	}
	return false
}

// sign returns the sign of a constant step, 0 if unknown.
func sign(e ast.Expr) int {
	neg := false
	if u, ok := e.(*ast.UnaryOp); ok && u.Op == "-" {
		neg, e = true, u.Operand
	}
	c, ok := e.(*ast.Constant)
	if !ok {
		return 0
	}
	var s int
	switch v := c.Value.(type) {
	case int:
		s = cmp(float64(v))
	case int64:
		s = cmp(float64(v))
	case float64:
		s = cmp(v)
	}
	if neg {
		s = -s
	}
	return s
}

func cmp(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func assign(name string, value ast.Expr) ast.Stmt {
	return &ast.Assign{Targets: []ast.Expr{ast.NewStore(name)}, Value: value}
}

func incr(name string, step ast.Expr) ast.Stmt {
	return &ast.AugAssign{Target: &ast.Name{ID: name, Ctx: ast.AugStore}, Op: "+", Value: step}
}
