// Package ast defines the syntax tree rewritten by the loop conversion pass.
//
// The tree is a closed set of node kinds: every kind implements Node through
// an unexported marker method, so the exhaustive switches in Children, Clone
// and the printer are the only places a new kind has to be registered.
// Node identity is pointer identity; two references denote the same variable
// when their rendered names are equal.
package ast

import "fmt"

// Node is any node of the tree.
type Node interface {
	node()
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
}

// Loop is a while or for statement.
type Loop interface {
	Stmt
	LoopBody() []Stmt
	LoopElse() []Stmt
}

// Ctx is the access mode of a variable reference.
type Ctx uint8

const (
	Load     Ctx = iota // expression use
	Store               // assignment target
	Del                 // delete target
	AugStore            // augmented assignment target, both read and written
	Param               // function parameter binding
)

var ctxNames = [...]string{
	Load:     "load",
	Store:    "store",
	Del:      "del",
	AugStore: "augstore",
	Param:    "param",
}

func (c Ctx) String() string {
	if int(c) < len(ctxNames) {
		return ctxNames[c]
	}
	return fmt.Sprintf("ctx(%d)", c)
}

// IsRead returns true if a reference in this context reads the variable.
func (c Ctx) IsRead() bool { return c == Load || c == AugStore }

// IsWrite returns true if a reference in this context writes (or deletes)
// the variable.
func (c Ctx) IsWrite() bool { return c == Store || c == AugStore || c == Del }

// ---------------------------------------------------------------------------
// Statements

// Module is the root of a decoded tree.
type Module struct {
	Body []Stmt
}

// FunctionDef is a function definition. Args are plain parameter names.
type FunctionDef struct {
	Name string
	Args []string
	Body []Stmt
}

// Return is a return statement, Value is nil for a bare return.
type Return struct {
	Value Expr
}

// Assign is `t1 = t2 = ... = value`.
type Assign struct {
	Targets []Expr
	Value   Expr
}

// AugAssign is `target op= value`.
type AugAssign struct {
	Target Expr
	Op     string
	Value  Expr
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Value Expr
}

type If struct {
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

type While struct {
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

type For struct {
	Target Expr
	Iter   Expr
	Body   []Stmt
	Orelse []Stmt
}

// Nonlocal declares names as bound in the enclosing function.
type Nonlocal struct {
	Names []string
}

// Global declares names as module globals.
type Global struct {
	Names []string
}

type Delete struct {
	Targets []Expr
}

type Pass struct{}

type Break struct{}

type Continue struct{}

// ---------------------------------------------------------------------------
// Expressions

// Name is a bare identifier.
type Name struct {
	ID  string
	Ctx Ctx
}

// Attribute is `value.attr`.
type Attribute struct {
	Value Expr
	Attr  string
	Ctx   Ctx
}

// Constant is a literal. Value is one of nil (None), bool, int, int64,
// float64 or string.
type Constant struct {
	Value interface{}
}

type BinOp struct {
	Left  Expr
	Op    string
	Right Expr
}

type UnaryOp struct {
	Op      string // "-", "+", "~" or "not"
	Operand Expr
}

// BoolOp is a chain of "and" or "or".
type BoolOp struct {
	Op     string
	Values []Expr
}

// Compare is `left op1 c1 op2 c2 ...`.
type Compare struct {
	Left        Expr
	Ops         []string
	Comparators []Expr
}

type Call struct {
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

// Keyword is a keyword argument of a call.
type Keyword struct {
	Arg   string
	Value Expr
}

type Tuple struct {
	Elts []Expr
	Ctx  Ctx
}

type List struct {
	Elts []Expr
	Ctx  Ctx
}

// Subscript is `value[index]`.
type Subscript struct {
	Value Expr
	Index Expr
	Ctx   Ctx
}

type ListComp struct {
	Elt        Expr
	Generators []*Comprehension
}

type SetComp struct {
	Elt        Expr
	Generators []*Comprehension
}

type GeneratorExp struct {
	Elt        Expr
	Generators []*Comprehension
}

type DictComp struct {
	Key        Expr
	Value      Expr
	Generators []*Comprehension
}

// Comprehension is one `for target in iter if ...` clause.
type Comprehension struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

func (*Module) node()        {}
func (*FunctionDef) node()   {}
func (*Return) node()        {}
func (*Assign) node()        {}
func (*AugAssign) node()     {}
func (*ExprStmt) node()      {}
func (*If) node()            {}
func (*While) node()         {}
func (*For) node()           {}
func (*Nonlocal) node()      {}
func (*Global) node()        {}
func (*Delete) node()        {}
func (*Pass) node()          {}
func (*Break) node()         {}
func (*Continue) node()      {}
func (*Name) node()          {}
func (*Attribute) node()     {}
func (*Constant) node()      {}
func (*BinOp) node()         {}
func (*UnaryOp) node()       {}
func (*BoolOp) node()        {}
func (*Compare) node()       {}
func (*Call) node()          {}
func (*Keyword) node()       {}
func (*Tuple) node()         {}
func (*List) node()          {}
func (*Subscript) node()     {}
func (*ListComp) node()      {}
func (*SetComp) node()       {}
func (*GeneratorExp) node()  {}
func (*DictComp) node()      {}
func (*Comprehension) node() {}

func (*FunctionDef) stmt() {}
func (*Return) stmt()      {}
func (*Assign) stmt()      {}
func (*AugAssign) stmt()   {}
func (*ExprStmt) stmt()    {}
func (*If) stmt()          {}
func (*While) stmt()       {}
func (*For) stmt()         {}
func (*Nonlocal) stmt()    {}
func (*Global) stmt()      {}
func (*Delete) stmt()      {}
func (*Pass) stmt()        {}
func (*Break) stmt()       {}
func (*Continue) stmt()    {}

func (*Name) expr()         {}
func (*Attribute) expr()    {}
func (*Constant) expr()     {}
func (*BinOp) expr()        {}
func (*UnaryOp) expr()      {}
func (*BoolOp) expr()       {}
func (*Compare) expr()      {}
func (*Call) expr()         {}
func (*Tuple) expr()        {}
func (*List) expr()         {}
func (*Subscript) expr()    {}
func (*ListComp) expr()     {}
func (*SetComp) expr()      {}
func (*GeneratorExp) expr() {}
func (*DictComp) expr()     {}

func (w *While) LoopBody() []Stmt { return w.Body }
func (w *While) LoopElse() []Stmt { return w.Orelse }
func (f *For) LoopBody() []Stmt   { return f.Body }
func (f *For) LoopElse() []Stmt   { return f.Orelse }

// ---------------------------------------------------------------------------
// Constructors used by the code generators.

// NewName returns a Name in Load context.
func NewName(id string) *Name { return &Name{ID: id, Ctx: Load} }

// NewStore returns a Name in Store context.
func NewStore(id string) *Name { return &Name{ID: id, Ctx: Store} }

// NewConst returns a Constant.
func NewConst(v interface{}) *Constant { return &Constant{Value: v} }

// NewCall returns a call of fn with positional args.
func NewCall(fn Expr, args ...Expr) *Call { return &Call{Func: fn, Args: args} }

// NewCallName returns a call of the function named fn.
func NewCallName(fn string, args ...Expr) *Call { return NewCall(NewName(fn), args...) }

// NewAttrPath builds the attribute chain for a dotted path such as "a.b.c".
// Every segment must be an identifier, see SplitPath.
func NewAttrPath(path []string, ctx Ctx) Expr {
	if len(path) == 1 {
		return &Name{ID: path[0], Ctx: ctx}
	}
	return &Attribute{Value: NewAttrPath(path[:len(path)-1], Load), Attr: path[len(path)-1], Ctx: ctx}
}

// NewCompare returns the single comparison `left op right`.
func NewCompare(left Expr, op string, right Expr) *Compare {
	return &Compare{Left: left, Ops: []string{op}, Comparators: []Expr{right}}
}

// NewFunc returns a function definition.
func NewFunc(name string, args []string, body ...Stmt) *FunctionDef {
	return &FunctionDef{Name: name, Args: args, Body: body}
}
