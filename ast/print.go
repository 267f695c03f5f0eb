package ast

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const indentUnit = "    "

// Operator precedence, lowest first.
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precArith
	precTerm
	precUnary
	precPower
	precAtom
)

var binPrec = map[string]int{
	"|":  precBitOr,
	"^":  precBitXor,
	"&":  precBitAnd,
	"<<": precShift,
	">>": precShift,
	"+":  precArith,
	"-":  precArith,
	"*":  precTerm,
	"/":  precTerm,
	"//": precTerm,
	"%":  precTerm,
	"@":  precTerm,
	"**": precPower,
}

// Source renders n as source text. Statements end with a newline,
// expressions do not.
func Source(n Node) string {
	var buf bytes.Buffer
	p := printer{w: &buf}
	p.node(n)
	return buf.String()
}

// Fprint writes the source of n to w.
func Fprint(w io.Writer, n Node) error {
	_, err := io.WriteString(w, Source(n))
	return err
}

type printer struct {
	w     *bytes.Buffer
	depth int
}

func (p *printer) node(n Node) {
	switch n := n.(type) {
	case *Module:
		p.stmts(n.Body)
	case Stmt:
		p.stmt(n)
	case Expr:
		p.expr(n, precLowest)
	case *Keyword:
		p.keyword(n)
	case *Comprehension:
		p.comprehension(n)
	default:
		panic(fmt.Sprintf("ast.Source: unexpected node type %T", n))
	}
}

func (p *printer) line(format string, args ...interface{}) {
	p.w.WriteString(strings.Repeat(indentUnit, p.depth))
	fmt.Fprintf(p.w, format, args...)
	p.w.WriteByte('\n')
}

func (p *printer) block(header string, body []Stmt) {
	p.line("%s:", header)
	p.depth++
	if len(body) == 0 {
		p.line("pass")
	} else {
		p.stmts(body)
	}
	p.depth--
}

func (p *printer) stmts(stmts []Stmt) {
	for _, s := range stmts {
		p.stmt(s)
	}
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *FunctionDef:
		p.block(fmt.Sprintf("def %s(%s)", s.Name, strings.Join(s.Args, ", ")), s.Body)
	case *Return:
		if s.Value == nil {
			p.line("return")
		} else {
			p.line("return %s", exprString(s.Value, precLowest))
		}
	case *Assign:
		parts := make([]string, 0, len(s.Targets)+1)
		for _, t := range s.Targets {
			parts = append(parts, exprString(t, precLowest))
		}
		parts = append(parts, exprString(s.Value, precLowest))
		p.line("%s", strings.Join(parts, " = "))
	case *AugAssign:
		p.line("%s %s= %s", exprString(s.Target, precLowest), s.Op, exprString(s.Value, precLowest))
	case *ExprStmt:
		p.line("%s", exprString(s.Value, precLowest))
	case *If:
		p.block("if "+exprString(s.Test, precLowest), s.Body)
		if len(s.Orelse) > 0 {
			p.block("else", s.Orelse)
		}
	case *While:
		p.block("while "+exprString(s.Test, precLowest), s.Body)
		if len(s.Orelse) > 0 {
			p.block("else", s.Orelse)
		}
	case *For:
		p.block(fmt.Sprintf("for %s in %s", targetString(s.Target), exprString(s.Iter, precLowest)), s.Body)
		if len(s.Orelse) > 0 {
			p.block("else", s.Orelse)
		}
	case *Nonlocal:
		p.line("nonlocal %s", strings.Join(s.Names, ", "))
	case *Global:
		p.line("global %s", strings.Join(s.Names, ", "))
	case *Delete:
		parts := make([]string, len(s.Targets))
		for i, t := range s.Targets {
			parts[i] = exprString(t, precLowest)
		}
		p.line("del %s", strings.Join(parts, ", "))
	case *Pass:
		p.line("pass")
	case *Break:
		p.line("break")
	case *Continue:
		p.line("continue")
	default:
		panic(fmt.Sprintf("ast.Source: unexpected statement type %T", s))
	}
}

// targetString prints a for-loop or comprehension target without the
// parentheses of a tuple.
func targetString(e Expr) string {
	if t, ok := e.(*Tuple); ok && len(t.Elts) > 1 {
		return joinExprs(t.Elts)
	}
	return exprString(e, precLowest)
}

func exprString(e Expr, prec int) string {
	var buf bytes.Buffer
	p := printer{w: &buf}
	p.expr(e, prec)
	return buf.String()
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = exprString(e, precLowest)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) expr(e Expr, prec int) {
	own := exprPrec(e)
	if own < prec {
		p.w.WriteByte('(')
		defer p.w.WriteByte(')')
	}
	switch e := e.(type) {
	case *Name:
		p.w.WriteString(e.ID)
	case *Attribute:
		p.expr(e.Value, precAtom)
		p.w.WriteByte('.')
		p.w.WriteString(e.Attr)
	case *Constant:
		p.w.WriteString(constString(e.Value))
	case *BinOp:
		op := own
		if e.Op == "**" { // right associative
			p.expr(e.Left, op+1)
			fmt.Fprintf(p.w, " %s ", e.Op)
			p.expr(e.Right, op)
			return
		}
		p.expr(e.Left, op)
		fmt.Fprintf(p.w, " %s ", e.Op)
		p.expr(e.Right, op+1)
	case *UnaryOp:
		if e.Op == "not" {
			p.w.WriteString("not ")
			p.expr(e.Operand, precNot)
			return
		}
		p.w.WriteString(e.Op)
		p.expr(e.Operand, precUnary)
	case *BoolOp:
		for i, v := range e.Values {
			if i > 0 {
				fmt.Fprintf(p.w, " %s ", e.Op)
			}
			p.expr(v, own+1)
		}
	case *Compare:
		p.expr(e.Left, precCompare+1)
		for i, op := range e.Ops {
			fmt.Fprintf(p.w, " %s ", op)
			p.expr(e.Comparators[i], precCompare+1)
		}
	case *Call:
		p.expr(e.Func, precAtom)
		p.w.WriteByte('(')
		for i, a := range e.Args {
			if i > 0 {
				p.w.WriteString(", ")
			}
			p.expr(a, precLowest)
		}
		for i, kw := range e.Keywords {
			if i > 0 || len(e.Args) > 0 {
				p.w.WriteString(", ")
			}
			p.keyword(kw)
		}
		p.w.WriteByte(')')
	case *Tuple:
		p.w.WriteByte('(')
		p.w.WriteString(joinExprs(e.Elts))
		if len(e.Elts) == 1 {
			p.w.WriteByte(',')
		}
		p.w.WriteByte(')')
	case *List:
		p.w.WriteByte('[')
		p.w.WriteString(joinExprs(e.Elts))
		p.w.WriteByte(']')
	case *Subscript:
		p.expr(e.Value, precAtom)
		p.w.WriteByte('[')
		p.expr(e.Index, precLowest)
		p.w.WriteByte(']')
	case *ListComp:
		p.w.WriteByte('[')
		p.expr(e.Elt, precLowest)
		p.comprehensions(e.Generators)
		p.w.WriteByte(']')
	case *SetComp:
		p.w.WriteByte('{')
		p.expr(e.Elt, precLowest)
		p.comprehensions(e.Generators)
		p.w.WriteByte('}')
	case *GeneratorExp:
		p.w.WriteByte('(')
		p.expr(e.Elt, precLowest)
		p.comprehensions(e.Generators)
		p.w.WriteByte(')')
	case *DictComp:
		p.w.WriteByte('{')
		p.expr(e.Key, precLowest)
		p.w.WriteString(": ")
		p.expr(e.Value, precLowest)
		p.comprehensions(e.Generators)
		p.w.WriteByte('}')
	default:
		panic(fmt.Sprintf("ast.Source: unexpected expression type %T", e))
	}
}

func (p *printer) keyword(kw *Keyword) {
	p.w.WriteString(kw.Arg)
	p.w.WriteByte('=')
	p.expr(kw.Value, precLowest)
}

func (p *printer) comprehensions(comps []*Comprehension) {
	for _, c := range comps {
		p.w.WriteByte(' ')
		p.comprehension(c)
	}
}

func (p *printer) comprehension(c *Comprehension) {
	fmt.Fprintf(p.w, "for %s in ", targetString(c.Target))
	p.expr(c.Iter, precOr)
	for _, cond := range c.Ifs {
		p.w.WriteString(" if ")
		p.expr(cond, precOr)
	}
}

func exprPrec(e Expr) int {
	switch e := e.(type) {
	case *BinOp:
		if prec, ok := binPrec[e.Op]; ok {
			return prec
		}
		return precArith
	case *UnaryOp:
		if e.Op == "not" {
			return precNot
		}
		return precUnary
	case *BoolOp:
		if e.Op == "and" {
			return precAnd
		}
		return precOr
	case *Compare:
		return precCompare
	}
	return precAtom
}

func constString(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Sprintf("float('%v')", v)
		}
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case string:
		return quote(v)
	}
	return fmt.Sprintf("%v", v)
}

// quote renders s as a single-quoted string literal.
func quote(s string) string {
	var buf strings.Builder
	buf.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			buf.WriteString(`\\`)
		case '\'':
			buf.WriteString(`\'`)
		case '\n':
			buf.WriteString(`\n`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('\'')
	return buf.String()
}
