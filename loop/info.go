package loop

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/nickng/loopconv/ast"
)

// ref is one occurrence of a variable: a Name or a Name-rooted Attribute.
type ref struct {
	expr ast.Expr
	name string
	ctx  ast.Ctx
}

// Info is a data structure to hold loop information,
// for tracking the variables read and written by a loop.
type Info struct {
	Loop ast.Loop

	before []ref // seen when the body is entered
	refs   []ref // condition and body, in source order
	cond   []ref // condition (or target and iterator) only
	writes []ref

	scopeSeen []ref // seen when the enclosing scope closed
	captured  bool

	variadic map[string]bool

	done      bool
	carried   []string
	created   []string
	excluded  []string
	refByName map[string]ast.Expr
}

func newInfo(l ast.Loop) *Info {
	return &Info{Loop: l, variadic: make(map[string]bool)}
}

// ModifiedVars returns the sorted loop-carried names.
func (i *Info) ModifiedVars() []string { return i.carried }

// CreatedVars returns the sorted carried names that have no value before
// the loop.
func (i *Info) CreatedVars() []string { return i.created }

// ExcludedVars returns the sorted names referenced in the loop but removed
// from classification.
func (i *Info) ExcludedVars() []string { return i.excluded }

// VariadicVars returns the sorted names used as push/pop accumulators.
func (i *Info) VariadicVars() []string {
	names := make([]string, 0, len(i.variadic))
	for name := range i.variadic {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ref returns the first reference to the variable name inside the loop.
// Asking for a name the analysis did not record there is a
// *PreconditionError naming the variable.
func (i *Info) Ref(name string) (ast.Expr, error) {
	if e, ok := i.refByName[name]; ok {
		return e, nil
	}
	return nil, &PreconditionError{Loop: i.Loop, Var: name, Msg: "not recorded in the loop"}
}

// IsCreated returns true if name is carried and created by the loop.
func (i *Info) IsCreated(name string) bool {
	return contains(i.created, name)
}

func (i *Info) String() string {
	var buf bytes.Buffer
	buf.WriteString(loopHeader(i.Loop))
	buf.WriteString(": carried [")
	buf.WriteString(strings.Join(i.carried, " "))
	buf.WriteString("] created [")
	buf.WriteString(strings.Join(i.created, " "))
	buf.WriteString("]")
	if len(i.variadic) > 0 {
		buf.WriteString(fmt.Sprintf(" variadic %v", i.VariadicVars()))
	}
	return buf.String()
}

func contains(sorted []string, s string) bool {
	k := sort.SearchStrings(sorted, s)
	return k < len(sorted) && sorted[k] == s
}
