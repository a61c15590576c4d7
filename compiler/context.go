package compiler

// loc is a compile-time variable location: a byte offset from rsp.
// Let-bound locals live at negative offsets (below the current stack
// index); function parameters live at positive offsets (above the
// return address, in the caller's argument layout).
type loc int32

// env is an immutable lexical environment: extending it for a new
// binding never mutates the map a sibling scope still holds a
// reference to. This mirrors the persistent-map discipline
// utils.rs/compiler.rs rely on (im::HashMap) well enough for our
// purposes: Go maps aren't persistent, so "extend" copies.
type env map[string]loc

// extend returns a new environment equal to e plus name -> l, without
// modifying e.
func (e env) extend(name string, l loc) env {
	out := make(env, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	out[name] = l
	return out
}

// context is threaded through every expression during lowering.
type context struct {
	si        int32          // next free stack slot, in 8-byte words below rsp
	env       env            // variable name -> location
	loopLabel int            // current enclosing loop's label number, 0 if none
	funcMap   map[string]int // function name -> arity
	inFunc    bool           // whether lowering is inside a function body
}

func (c context) withSI(si int32) context {
	c.si = si
	return c
}

func (c context) withEnv(e env) context {
	c.env = e
	return c
}

func (c context) withLoop(n int) context {
	c.loopLabel = n
	return c
}
