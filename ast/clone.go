package ast

import "fmt"

// Clone returns a deep copy of the expression e.
func Clone(e Expr) Expr {
	if e == nil {
		return nil
	}
	switch e := e.(type) {
	case *Name:
		c := *e
		return &c
	case *Attribute:
		return &Attribute{Value: Clone(e.Value), Attr: e.Attr, Ctx: e.Ctx}
	case *Constant:
		c := *e
		return &c
	case *BinOp:
		return &BinOp{Left: Clone(e.Left), Op: e.Op, Right: Clone(e.Right)}
	case *UnaryOp:
		return &UnaryOp{Op: e.Op, Operand: Clone(e.Operand)}
	case *BoolOp:
		return &BoolOp{Op: e.Op, Values: cloneExprs(e.Values)}
	case *Compare:
		return &Compare{Left: Clone(e.Left), Ops: append([]string(nil), e.Ops...), Comparators: cloneExprs(e.Comparators)}
	case *Call:
		c := &Call{Func: Clone(e.Func), Args: cloneExprs(e.Args)}
		for _, kw := range e.Keywords {
			c.Keywords = append(c.Keywords, &Keyword{Arg: kw.Arg, Value: Clone(kw.Value)})
		}
		return c
	case *Tuple:
		return &Tuple{Elts: cloneExprs(e.Elts), Ctx: e.Ctx}
	case *List:
		return &List{Elts: cloneExprs(e.Elts), Ctx: e.Ctx}
	case *Subscript:
		return &Subscript{Value: Clone(e.Value), Index: Clone(e.Index), Ctx: e.Ctx}
	case *ListComp:
		return &ListComp{Elt: Clone(e.Elt), Generators: cloneComps(e.Generators)}
	case *SetComp:
		return &SetComp{Elt: Clone(e.Elt), Generators: cloneComps(e.Generators)}
	case *GeneratorExp:
		return &GeneratorExp{Elt: Clone(e.Elt), Generators: cloneComps(e.Generators)}
	case *DictComp:
		return &DictComp{Key: Clone(e.Key), Value: Clone(e.Value), Generators: cloneComps(e.Generators)}
	}
	panic(fmt.Sprintf("ast.Clone: unexpected expression type %T", e))
}

// CloneAs returns a deep copy of the reference e with its own context set
// to ctx.
func CloneAs(e Expr, ctx Ctx) Expr {
	c := Clone(e)
	SetCtx(c, ctx)
	return c
}

func cloneExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	c := make([]Expr, len(exprs))
	for i, e := range exprs {
		c[i] = Clone(e)
	}
	return c
}

func cloneComps(comps []*Comprehension) []*Comprehension {
	c := make([]*Comprehension, len(comps))
	for i, comp := range comps {
		c[i] = &Comprehension{Target: Clone(comp.Target), Iter: Clone(comp.Iter), Ifs: cloneExprs(comp.Ifs)}
	}
	return c
}
