package ast

import "fmt"

// Children returns the direct children of n in source order.
// Nil optional children (e.g. a bare return) are omitted.
func Children(n Node) []Node {
	var c []Node
	add := func(ns ...Node) {
		for _, n := range ns {
			if n != nil && !isNilNode(n) {
				c = append(c, n)
			}
		}
	}
	switch n := n.(type) {
	case *Module:
		addStmts(&c, n.Body)
	case *FunctionDef:
		addStmts(&c, n.Body)
	case *Return:
		add(exprNode(n.Value))
	case *Assign:
		addExprs(&c, n.Targets)
		add(exprNode(n.Value))
	case *AugAssign:
		add(exprNode(n.Target), exprNode(n.Value))
	case *ExprStmt:
		add(exprNode(n.Value))
	case *If:
		add(exprNode(n.Test))
		addStmts(&c, n.Body)
		addStmts(&c, n.Orelse)
	case *While:
		add(exprNode(n.Test))
		addStmts(&c, n.Body)
		addStmts(&c, n.Orelse)
	case *For:
		add(exprNode(n.Target), exprNode(n.Iter))
		addStmts(&c, n.Body)
		addStmts(&c, n.Orelse)
	case *Delete:
		addExprs(&c, n.Targets)
	case *Nonlocal, *Global, *Pass, *Break, *Continue:
	case *Name, *Constant:
	case *Attribute:
		add(exprNode(n.Value))
	case *BinOp:
		add(exprNode(n.Left), exprNode(n.Right))
	case *UnaryOp:
		add(exprNode(n.Operand))
	case *BoolOp:
		addExprs(&c, n.Values)
	case *Compare:
		add(exprNode(n.Left))
		addExprs(&c, n.Comparators)
	case *Call:
		add(exprNode(n.Func))
		addExprs(&c, n.Args)
		for _, kw := range n.Keywords {
			add(kw)
		}
	case *Keyword:
		add(exprNode(n.Value))
	case *Tuple:
		addExprs(&c, n.Elts)
	case *List:
		addExprs(&c, n.Elts)
	case *Subscript:
		add(exprNode(n.Value), exprNode(n.Index))
	case *ListComp:
		add(exprNode(n.Elt))
		addComps(&c, n.Generators)
	case *SetComp:
		add(exprNode(n.Elt))
		addComps(&c, n.Generators)
	case *GeneratorExp:
		add(exprNode(n.Elt))
		addComps(&c, n.Generators)
	case *DictComp:
		add(exprNode(n.Key), exprNode(n.Value))
		addComps(&c, n.Generators)
	case *Comprehension:
		add(exprNode(n.Target), exprNode(n.Iter))
		addExprs(&c, n.Ifs)
	default:
		panic(fmt.Sprintf("ast.Children: unexpected node type %T", n))
	}
	return c
}

func addStmts(c *[]Node, stmts []Stmt) {
	for _, s := range stmts {
		if s != nil {
			*c = append(*c, s)
		}
	}
}

func addExprs(c *[]Node, exprs []Expr) {
	for _, e := range exprs {
		if e != nil {
			*c = append(*c, e)
		}
	}
}

func addComps(c *[]Node, comps []*Comprehension) {
	for _, comp := range comps {
		if comp != nil {
			*c = append(*c, comp)
		}
	}
}

// exprNode avoids wrapping a nil Expr in a non-nil Node interface.
func exprNode(e Expr) Node {
	if e == nil {
		return nil
	}
	return e
}

func isNilNode(n Node) bool {
	switch n := n.(type) {
	case *Keyword:
		return n == nil
	case *Comprehension:
		return n == nil
	}
	return false
}

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children of
// node with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(n Node) (w Visitor)
}

// Walk traverses the tree rooted at n in depth-first order.
func Walk(v Visitor, n Node) {
	if v = v.Visit(n); v == nil {
		return
	}
	for _, c := range Children(n) {
		Walk(v, c)
	}
	v.Visit(nil)
}

type inspector func(Node) bool

func (f inspector) Visit(n Node) Visitor {
	if f(n) {
		return f
	}
	return nil
}

// Inspect traverses the tree rooted at n, calling f for each node; when f
// returns false the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}

// ParentMap maps every node of a tree to its parent. It is built once and
// only answers ancestor queries; the tree is never modified through it.
type ParentMap struct {
	parent map[Node]Node
}

// NewParentMap records the parent of every node under root.
func NewParentMap(root Node) *ParentMap {
	pm := &ParentMap{parent: make(map[Node]Node)}
	var visit func(n Node)
	visit = func(n Node) {
		for _, c := range Children(n) {
			pm.parent[c] = n
			visit(c)
		}
	}
	visit(root)
	return pm
}

// Parent returns the parent of n, or nil if n is the root or unknown.
func (pm *ParentMap) Parent(n Node) Node {
	return pm.parent[n]
}

// IsAncestor returns true if ancestor is a proper ancestor of n.
func (pm *ParentMap) IsAncestor(ancestor, n Node) bool {
	for p := pm.Parent(n); p != nil; p = pm.Parent(p) {
		if p == ancestor {
			return true
		}
	}
	return false
}
