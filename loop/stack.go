package loop

import (
	"errors"
	"sync"

	"github.com/nickng/loopconv/ast"
)

var ErrEmptyStack = errors.New("error: empty stack")

// Stack is a stack of open loops.
type Stack struct {
	sync.Mutex
	s []*Info
}

// NewStack creates a new Stack.
func NewStack() *Stack {
	return &Stack{s: []*Info{}}
}

// Push adds a new Info to the top of stack.
func (s *Stack) Push(i *Info) {
	s.Lock()
	defer s.Unlock()
	s.s = append(s.s, i)
}

// Pop removes an Info from top of stack.
func (s *Stack) Pop() (*Info, error) {
	s.Lock()
	defer s.Unlock()

	size := len(s.s)
	if size == 0 {
		return nil, ErrEmptyStack
	}
	l := s.s[size-1]
	s.s = s.s[:size-1]
	return l, nil
}

// Top returns the innermost open loop, or nil.
func (s *Stack) Top() *Info {
	s.Lock()
	defer s.Unlock()
	if len(s.s) == 0 {
		return nil
	}
	return s.s[len(s.s)-1]
}

// All returns the open loops, outermost first.
func (s *Stack) All() []*Info {
	s.Lock()
	defer s.Unlock()
	return append([]*Info(nil), s.s...)
}

// IsEmpty returns true if stack is empty.
func (s *Stack) IsEmpty() bool {
	return len(s.s) == 0
}

// frame is a function scope entered during the traversal. mark is the
// length of the seen list on entry, so truncating to it restores the
// snapshot taken on entry.
type frame struct {
	fn    *ast.FunctionDef // nil for the module level
	mark  int
	loops []*Info // loops whose innermost function is fn
}

// scopes is the stack of entered function scopes.
type scopes []*frame

func (s *scopes) push(f *frame) { *s = append(*s, f) }

func (s *scopes) pop() (*frame, error) {
	if len(*s) == 0 {
		return nil, ErrEmptyStack
	}
	f := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return f, nil
}

func (s scopes) top() *frame {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}
