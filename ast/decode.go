package ast

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FormatVersion is the version of the YAML tree encoding written by this
// package. Documents declaring a version must satisfy FormatConstraint.
const (
	FormatVersion    = "1.0.0"
	FormatConstraint = "^1"
)

var (
	ErrEmptyDocument = errors.New("tree document is empty")
	ErrBadVersion    = errors.New("unsupported tree format version")
)

// DecodeError is returned for a malformed tree document.
type DecodeError struct {
	Line, Column int
	Msg          string
}

func (e *DecodeError) Error() string {
	return "line " + strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Column) + ": " + e.Msg
}

func decodeErr(n *yaml.Node, format string, args ...interface{}) error {
	return &DecodeError{Line: n.Line, Column: n.Column, Msg: fmt.Sprintf(format, args...)}
}

// DecodeBytes decodes a YAML tree document.
func DecodeBytes(b []byte) (*Module, error) {
	return Decode(bytes.NewReader(b))
}

// Decode reads a YAML tree document from r.
//
// A document is either a sequence of statements or a mapping with an
// optional "version" and a "body" sequence. Each statement and each
// non-scalar expression is a single-key mapping naming its kind:
//
//	version: 1.0.0
//	body:
//	  - def:
//	      name: f
//	      args: [x]
//	      body:
//	        - while:
//	            test: {compare: [x, "<", 10]}
//	            body:
//	              - augassign: [x, "+", 1]
//
// Plain (unquoted) string scalars are names or dotted attribute paths,
// quoted strings and other scalars are constants.
func Decode(r io.Reader) (*Module, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyDocument
		}
		return nil, errors.Wrap(err, "cannot read tree document")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrEmptyDocument
	}
	root := doc.Content[0]
	var body *yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		body = root
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, val := root.Content[i], root.Content[i+1]
			switch key.Value {
			case "version":
				if err := checkVersion(val.Value); err != nil {
					return nil, err
				}
			case "body":
				body = val
			default:
				return nil, decodeErr(key, "unknown document key %q", key.Value)
			}
		}
		if body == nil {
			return nil, decodeErr(root, "document has no body")
		}
	default:
		return nil, decodeErr(root, "document must be a sequence or a mapping")
	}
	stmts, err := decodeStmts(body)
	if err != nil {
		return nil, err
	}
	return &Module{Body: stmts}, nil
}

func checkVersion(s string) error {
	v, err := semver.NewVersion(s)
	if err != nil {
		return errors.Wrapf(ErrBadVersion, "%q", s)
	}
	c, err := semver.NewConstraint(FormatConstraint)
	if err != nil {
		return errors.Wrap(err, "bad format constraint")
	}
	if !c.Check(v) {
		return errors.Wrapf(ErrBadVersion, "%s does not satisfy %s", v, FormatConstraint)
	}
	return nil
}

// single returns the kind and value of a single-key mapping, or the value
// of a plain scalar with a nil body.
func single(n *yaml.Node) (string, *yaml.Node, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil, nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return "", nil, decodeErr(n, "node must have exactly one kind key, got %d", len(n.Content)/2)
		}
		return n.Content[0].Value, n.Content[1], nil
	}
	return "", nil, decodeErr(n, "expected a node, got %s", kindString(n.Kind))
}

// fields returns the entries of a mapping.
func fields(n *yaml.Node) (map[string]*yaml.Node, error) {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, decodeErr(orNode(n), "expected a mapping")
	}
	m := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		m[n.Content[i].Value] = n.Content[i+1]
	}
	return m, nil
}

func seq(n *yaml.Node) ([]*yaml.Node, error) {
	if n == nil || isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, decodeErr(n, "expected a sequence")
	}
	return n.Content, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func orNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return &yaml.Node{}
	}
	return n
}

func kindString(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}

func decodeStmts(n *yaml.Node) ([]Stmt, error) {
	items, err := seq(n)
	if err != nil {
		return nil, err
	}
	stmts := make([]Stmt, 0, len(items))
	for _, item := range items {
		s, err := decodeStmt(item)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func decodeStmt(n *yaml.Node) (Stmt, error) {
	kind, v, err := single(n)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "pass":
		return &Pass{}, nil
	case "break":
		return &Break{}, nil
	case "continue":
		return &Continue{}, nil
	}
	if v == nil && kind != "return" {
		return nil, decodeErr(n, "unknown statement %q", kind)
	}
	switch kind {
	case "def":
		f, err := fields(v)
		if err != nil {
			return nil, err
		}
		name, ok := f["name"]
		if !ok || !IsIdent(name.Value) {
			return nil, decodeErr(v, "def needs an identifier name")
		}
		args, err := identList(f["args"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(f["body"])
		if err != nil {
			return nil, err
		}
		return &FunctionDef{Name: name.Value, Args: args, Body: body}, nil

	case "return":
		if v == nil || isNull(v) {
			return &Return{}, nil
		}
		e, err := decodeExpr(v)
		if err != nil {
			return nil, err
		}
		return &Return{Value: e}, nil

	case "assign":
		var targetNodes []*yaml.Node
		var valueNode *yaml.Node
		if v.Kind == yaml.SequenceNode {
			if len(v.Content) < 2 {
				return nil, decodeErr(v, "assign needs at least one target and a value")
			}
			targetNodes, valueNode = v.Content[:len(v.Content)-1], v.Content[len(v.Content)-1]
		} else {
			f, err := fields(v)
			if err != nil {
				return nil, err
			}
			if t, ok := f["target"]; ok {
				targetNodes = []*yaml.Node{t}
			} else if targetNodes, err = seq(f["targets"]); err != nil {
				return nil, err
			}
			valueNode = f["value"]
			if len(targetNodes) == 0 || valueNode == nil {
				return nil, decodeErr(v, "assign needs target(s) and value")
			}
		}
		targets, err := decodeTargets(targetNodes, Store)
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(valueNode)
		if err != nil {
			return nil, err
		}
		return &Assign{Targets: targets, Value: value}, nil

	case "augassign":
		items, err := seq(v)
		if err != nil {
			return nil, err
		}
		if len(items) != 3 {
			return nil, decodeErr(v, "augassign is [target, op, value]")
		}
		targets, err := decodeTargets(items[:1], AugStore)
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(items[2])
		if err != nil {
			return nil, err
		}
		return &AugAssign{Target: targets[0], Op: items[1].Value, Value: value}, nil

	case "expr":
		e, err := decodeExpr(v)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Value: e}, nil

	case "if", "while":
		f, err := fields(v)
		if err != nil {
			return nil, err
		}
		test, err := decodeExpr(f["test"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(f["body"])
		if err != nil {
			return nil, err
		}
		orelse, err := decodeStmts(f["orelse"])
		if err != nil {
			return nil, err
		}
		if kind == "if" {
			return &If{Test: test, Body: body, Orelse: orelse}, nil
		}
		return &While{Test: test, Body: body, Orelse: orelse}, nil

	case "for":
		f, err := fields(v)
		if err != nil {
			return nil, err
		}
		targets, err := decodeTargets([]*yaml.Node{orNode(f["target"])}, Store)
		if err != nil {
			return nil, err
		}
		iter, err := decodeExpr(f["iter"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(f["body"])
		if err != nil {
			return nil, err
		}
		orelse, err := decodeStmts(f["orelse"])
		if err != nil {
			return nil, err
		}
		return &For{Target: targets[0], Iter: iter, Body: body, Orelse: orelse}, nil

	case "nonlocal", "global":
		names, err := identList(v)
		if err != nil {
			return nil, err
		}
		if kind == "nonlocal" {
			return &Nonlocal{Names: names}, nil
		}
		return &Global{Names: names}, nil

	case "delete":
		items, err := seq(v)
		if err != nil {
			return nil, err
		}
		targets, err := decodeTargets(items, Del)
		if err != nil {
			return nil, err
		}
		return &Delete{Targets: targets}, nil
	}
	return nil, decodeErr(n, "unknown statement %q", kind)
}

func identList(n *yaml.Node) ([]string, error) {
	items, err := seq(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if !IsIdent(item.Value) {
			return nil, decodeErr(item, "%q is not an identifier", item.Value)
		}
		names = append(names, item.Value)
	}
	return names, nil
}

func decodeTargets(nodes []*yaml.Node, ctx Ctx) ([]Expr, error) {
	targets := make([]Expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := decodeExpr(n)
		if err != nil {
			return nil, err
		}
		switch e.(type) {
		case *Name, *Attribute, *Subscript, *Tuple, *List:
		default:
			return nil, decodeErr(n, "cannot assign to %T", e)
		}
		SetCtx(e, ctx)
		targets = append(targets, e)
	}
	return targets, nil
}

func decodeExprs(n *yaml.Node) ([]Expr, error) {
	items, err := seq(n)
	if err != nil {
		return nil, err
	}
	exprs := make([]Expr, 0, len(items))
	for _, item := range items {
		e, err := decodeExpr(item)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func decodeScalar(n *yaml.Node) (Expr, error) {
	switch n.ShortTag() {
	case "!!null":
		return NewConst(nil), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, decodeErr(n, "bad bool %q", n.Value)
		}
		return NewConst(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, decodeErr(n, "bad int %q", n.Value)
		}
		return NewConst(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, decodeErr(n, "bad float %q", n.Value)
		}
		return NewConst(f), nil
	}
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return NewConst(n.Value), nil
	}
	path, ok := SplitPath(n.Value)
	if !ok {
		return nil, decodeErr(n, "%q is neither a name nor a dotted path (quote string constants)", n.Value)
	}
	return NewAttrPath(path, Load), nil
}

func decodeExpr(n *yaml.Node) (Expr, error) {
	if n == nil {
		return nil, decodeErr(orNode(n), "missing expression")
	}
	if n.Kind == yaml.ScalarNode {
		return decodeScalar(n)
	}
	kind, v, err := single(n)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "name":
		if !IsIdent(v.Value) {
			return nil, decodeErr(v, "%q is not an identifier", v.Value)
		}
		return NewName(v.Value), nil

	case "const":
		if v.Kind != yaml.ScalarNode {
			return nil, decodeErr(v, "const must be a scalar")
		}
		if v.ShortTag() == "!!str" {
			return NewConst(v.Value), nil
		}
		return decodeScalar(v)

	case "attr":
		items, err := seq(v)
		if err != nil {
			return nil, err
		}
		if len(items) != 2 || !IsIdent(items[1].Value) {
			return nil, decodeErr(v, "attr is [value, identifier]")
		}
		value, err := decodeExpr(items[0])
		if err != nil {
			return nil, err
		}
		return &Attribute{Value: value, Attr: items[1].Value}, nil

	case "binop":
		items, err := seq(v)
		if err != nil {
			return nil, err
		}
		if len(items) != 3 {
			return nil, decodeErr(v, "binop is [left, op, right]")
		}
		l, err := decodeExpr(items[0])
		if err != nil {
			return nil, err
		}
		r, err := decodeExpr(items[2])
		if err != nil {
			return nil, err
		}
		return &BinOp{Left: l, Op: items[1].Value, Right: r}, nil

	case "unaryop":
		items, err := seq(v)
		if err != nil {
			return nil, err
		}
		if len(items) != 2 {
			return nil, decodeErr(v, "unaryop is [op, operand]")
		}
		operand, err := decodeExpr(items[1])
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: items[0].Value, Operand: operand}, nil

	case "boolop":
		items, err := seq(v)
		if err != nil {
			return nil, err
		}
		if len(items) < 3 {
			return nil, decodeErr(v, "boolop is [op, value, value...]")
		}
		values, err := decodeExprs(&yaml.Node{Kind: yaml.SequenceNode, Content: items[1:]})
		if err != nil {
			return nil, err
		}
		return &BoolOp{Op: items[0].Value, Values: values}, nil

	case "compare":
		items, err := seq(v)
		if err != nil {
			return nil, err
		}
		if len(items) < 3 || len(items)%2 == 0 {
			return nil, decodeErr(v, "compare is [left, op, right, op, right...]")
		}
		left, err := decodeExpr(items[0])
		if err != nil {
			return nil, err
		}
		c := &Compare{Left: left}
		for i := 1; i+1 < len(items); i += 2 {
			right, err := decodeExpr(items[i+1])
			if err != nil {
				return nil, err
			}
			c.Ops = append(c.Ops, items[i].Value)
			c.Comparators = append(c.Comparators, right)
		}
		return c, nil

	case "call":
		return decodeCall(v)

	case "tuple", "list":
		elts, err := decodeExprs(v)
		if err != nil {
			return nil, err
		}
		if kind == "tuple" {
			return &Tuple{Elts: elts}, nil
		}
		return &List{Elts: elts}, nil

	case "subscript":
		items, err := seq(v)
		if err != nil {
			return nil, err
		}
		if len(items) != 2 {
			return nil, decodeErr(v, "subscript is [value, index]")
		}
		value, err := decodeExpr(items[0])
		if err != nil {
			return nil, err
		}
		index, err := decodeExpr(items[1])
		if err != nil {
			return nil, err
		}
		return &Subscript{Value: value, Index: index}, nil

	case "listcomp", "setcomp", "genexp", "dictcomp":
		return decodeComp(kind, v)
	}
	return nil, decodeErr(n, "unknown expression %q", kind)
}

func decodeCall(v *yaml.Node) (Expr, error) {
	if v.Kind == yaml.SequenceNode {
		if len(v.Content) == 0 {
			return nil, decodeErr(v, "call needs a function")
		}
		fn, err := decodeExpr(v.Content[0])
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(&yaml.Node{Kind: yaml.SequenceNode, Content: v.Content[1:]})
		if err != nil {
			return nil, err
		}
		return &Call{Func: fn, Args: args}, nil
	}
	f, err := fields(v)
	if err != nil {
		return nil, err
	}
	fn, err := decodeExpr(f["func"])
	if err != nil {
		return nil, err
	}
	args, err := decodeExprs(f["args"])
	if err != nil {
		return nil, err
	}
	c := &Call{Func: fn, Args: args}
	if kws := f["keywords"]; kws != nil {
		if kws.Kind != yaml.MappingNode {
			return nil, decodeErr(kws, "keywords must be a mapping")
		}
		for i := 0; i+1 < len(kws.Content); i += 2 {
			value, err := decodeExpr(kws.Content[i+1])
			if err != nil {
				return nil, err
			}
			c.Keywords = append(c.Keywords, &Keyword{Arg: kws.Content[i].Value, Value: value})
		}
	}
	return c, nil
}

func decodeComp(kind string, v *yaml.Node) (Expr, error) {
	f, err := fields(v)
	if err != nil {
		return nil, err
	}
	gens, err := seq(f["generators"])
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		return nil, decodeErr(v, "%s needs generators", kind)
	}
	var comps []*Comprehension
	for _, g := range gens {
		gf, err := fields(g)
		if err != nil {
			return nil, err
		}
		targets, err := decodeTargets([]*yaml.Node{orNode(gf["target"])}, Store)
		if err != nil {
			return nil, err
		}
		iter, err := decodeExpr(gf["iter"])
		if err != nil {
			return nil, err
		}
		ifs, err := decodeExprs(gf["ifs"])
		if err != nil {
			return nil, err
		}
		comps = append(comps, &Comprehension{Target: targets[0], Iter: iter, Ifs: ifs})
	}
	if kind == "dictcomp" {
		key, err := decodeExpr(f["key"])
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(f["value"])
		if err != nil {
			return nil, err
		}
		return &DictComp{Key: key, Value: value, Generators: comps}, nil
	}
	elt, err := decodeExpr(f["elt"])
	if err != nil {
		return nil, err
	}
	switch kind {
	case "setcomp":
		return &SetComp{Elt: elt, Generators: comps}, nil
	case "genexp":
		return &GeneratorExp{Elt: elt, Generators: comps}, nil
	}
	return &ListComp{Elt: elt, Generators: comps}, nil
}
