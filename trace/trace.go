// Package trace holds a simple stack of strings, adapted from the
// teacher's RPN-evaluation stack. Here it is repurposed as the
// compiler's debug call-trace: the compiler pushes a frame for each
// top-level definition ("function foo", "main expression") while
// lowering it and pops it back off afterwards; when --debug is set, an
// error returned from lowering is annotated with the current Path.
package trace

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Stack holds the trace frames, protected by a mutex since a single
// Compiler may in principle be driven from more than one goroutine
// (e.g. compiling several functions' bodies concurrently in a future
// revision); today's lowering is single-threaded but the guard is
// cheap and matches the teacher's original Stack.
type Stack struct {
	lock sync.Mutex
	s    []string
}

// New returns an empty trace stack.
func New() *Stack {
	return &Stack{}
}

// Push records entry into a new form.
func (s *Stack) Push(frame string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.s = append(s.s, frame)
}

// Pop records exit from the innermost form.
func (s *Stack) Pop() (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	l := len(s.s)
	if l == 0 {
		return "", errors.New("trace stack is empty")
	}

	res := s.s[l-1]
	s.s = s.s[:l-1]
	return res, nil
}

// Empty reports whether the stack currently holds no frames.
func (s *Stack) Empty() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.s) == 0
}

// Path renders the current frames, outermost first, as a breadcrumb
// trail suitable for appending to an internal-compiler-error message.
func (s *Stack) Path() string {
	s.lock.Lock()
	defer s.lock.Unlock()

	return strings.Join(s.s, " > ")
}
