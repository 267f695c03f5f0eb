package loop

import (
	"fmt"
	"strings"

	"github.com/nickng/loopconv/ast"
)

// PreconditionError is returned when the analysis tables of a loop are
// missing or inconsistent, i.e. the analyser was not run over the scope
// containing the loop. It is a misuse of the pass, not bad input.
type PreconditionError struct {
	Loop ast.Loop
	Var  string // offending variable, may be empty
	Msg  string
}

func (e *PreconditionError) Error() string {
	var b strings.Builder
	b.WriteString("precondition failed: ")
	if e.Loop != nil {
		fmt.Fprintf(&b, "loop `%s`: ", loopHeader(e.Loop))
	}
	if e.Var != "" {
		fmt.Fprintf(&b, "variable %s: ", e.Var)
	}
	b.WriteString(e.Msg)
	return b.String()
}

// loopHeader renders the first line of a loop, without the colon.
func loopHeader(l ast.Loop) string {
	src := ast.Source(l)
	if i := strings.IndexByte(src, '\n'); i >= 0 {
		src = src[:i]
	}
	return strings.TrimSuffix(src, ":")
}
