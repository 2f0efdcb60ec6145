package verify

import (
	"sort"

	"github.com/sarchlab/pbj/core"
)

type frameKind int

const (
	loopFrame frameKind = iota
	callFrame
)

// frame is one entry of the simulated hardware stack.
type frame struct {
	kind   frameKind
	start  uint16 // loop body start or subroutine entry
	origin uint16 // the start_loop or call_sub that pushed the frame
	depth  int    // call depth after the push, for call frames
	height int    // stack height before the push
}

// entry identifies one activation of a subroutine. A subroutine entered
// again at the same stack height walks exactly as it did before.
type entry struct {
	start  uint16
	height int
}

// walkState is the state carried through subroutine discovery.
type walkState struct {
	prog        *core.Program
	pc          uint16
	stack       []frame
	callDepth   int
	maxDepth    int
	subroutines []Subroutine
	seen        map[uint16]bool
	returned    map[entry]bool

	// err is the first structural error met on the way. The walk goes on
	// after it so that every subroutine is still discovered.
	err *Error
}

// discoverSubroutines simulates execution from address 0, following only
// call_sub and ret_sub. Loops run once and conditional jumps are not taken.
//
// Within one activation pc only moves forward, calls deeper than the stack
// are not followed, and each (entry, height) pair is walked at most once, so
// the walk always reaches the end of the program.
func discoverSubroutines(prog *core.Program) *walkState {
	w := &walkState{
		prog:     prog,
		seen:     make(map[uint16]bool),
		returned: make(map[entry]bool),
	}

	for w.pc <= prog.HighestAddress {
		inst, err := lookup(prog, w.pc)
		if err != nil {
			w.fail(err)
			break
		}

		if !w.step(inst) {
			break
		}
	}

	sort.Slice(w.subroutines, func(i, j int) bool {
		return w.subroutines[i].Start < w.subroutines[j].Start
	})

	return w
}

func (w *walkState) fail(err *Error) {
	if w.err == nil {
		w.err = err
	}
}

// step executes one instruction. It returns false when the walk cannot go on.
func (w *walkState) step(inst core.Instruction) bool {
	switch op := inst.Op.(type) {
	case core.CallSub:
		return w.call(op.Target)
	case core.RetSub:
		w.ret()
		return true
	case core.StartLoop:
		w.push(frame{kind: loopFrame, start: w.pc + 1, origin: w.pc})
	case core.EndLoop:
		w.endLoop()
	}

	w.pc++

	return true
}

func (w *walkState) call(target uint16) bool {
	if _, err := lookup(w.prog, target); err != nil {
		w.fail(err)
		return false
	}

	height := len(w.stack)

	if w.returned[entry{start: target, height: height}] {
		w.pc++
		return true
	}

	if !w.push(frame{
		kind:   callFrame,
		start:  target,
		origin: w.pc,
		depth:  w.callDepth + 1,
		height: height,
	}) {
		w.pc++
		return true
	}

	w.callDepth++
	w.pc = target

	return true
}

// push opens a frame. A frame that does not fit the hardware stack is
// reported and not opened.
func (w *walkState) push(f frame) bool {
	if len(w.stack) >= MaxStackDepth {
		w.fail(errorf(w.pc, ErrNestingTooDeep,
			"%d loops and calls are open, the device stack holds %d",
			len(w.stack)+1, MaxStackDepth))

		return false
	}

	w.stack = append(w.stack, f)

	if len(w.stack) > w.maxDepth {
		w.maxDepth = len(w.stack)
	}

	return true
}

func (w *walkState) top() (frame, bool) {
	if len(w.stack) == 0 {
		return frame{}, false
	}

	return w.stack[len(w.stack)-1], true
}

func (w *walkState) pop() {
	w.stack = w.stack[:len(w.stack)-1]
}

// endLoop closes the innermost loop. Stray end_loops on an empty stack are
// left to the linear lint.
func (w *walkState) endLoop() {
	f, ok := w.top()
	if !ok {
		return
	}

	if f.kind == callFrame {
		w.fail(errorf(w.pc, ErrUnbalancedLoop,
			"end_loop inside the subroutine at %d closes a loop opened by its caller",
			f.start))

		return
	}

	w.pop()
}

// ret closes the innermost call. A ret_sub with no open call is ignored.
func (w *walkState) ret() {
	callAt := -1

	for i := len(w.stack) - 1; i >= 0; i-- {
		if w.stack[i].kind == callFrame {
			callAt = i
			break
		}
	}

	if callAt < 0 {
		w.pc++
		return
	}

	if f, _ := w.top(); f.kind == loopFrame {
		w.fail(errorf(w.pc, ErrUnbalancedLoop,
			"ret_sub leaves the loop opened at %d", f.origin))
	}

	c := w.stack[callAt]
	w.stack = w.stack[:callAt]
	w.callDepth--
	w.returned[entry{start: c.start, height: c.height}] = true

	if !w.seen[c.start] {
		w.seen[c.start] = true
		w.subroutines = append(w.subroutines, Subroutine{
			Start:  c.start,
			End:    w.pc,
			Return: c.origin,
			Depth:  c.depth,
		})
	}

	w.pc = c.origin + 1
}
