package sequencer

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/pbj/core"
)

func (s *Sequencer) execute(inst core.Instruction) {
	s.state.outputs = inst.Pattern
	s.events = append(s.events, Event{
		Cycle:   s.state.cycle,
		Address: inst.Address,
		Pattern: inst.Pattern,
		Op:      inst.Op.String(),
	})

	core.Trace("Exec",
		"Sequencer", s.Name(),
		"Cycle", s.state.cycle,
		"Inst", inst.String(),
	)

	next := inst.Address + 1

	switch op := inst.Op.(type) {
	case core.StartLoop:
		if !s.push(stackFrame{loop: true, start: next, remaining: op.Count}) {
			return
		}
	case core.EndLoop:
		top, ok := s.top()
		if !ok || !top.loop {
			s.fault(errors.Wrapf(ErrStackUnderflow,
				"end_loop at %d without a loop", inst.Address))
			return
		}

		top.remaining--
		if top.remaining > 0 {
			next = top.start
		} else {
			s.pop()
		}
	case core.CallSub:
		if !s.push(stackFrame{ret: inst.Address}) {
			return
		}

		next = op.Target
	case core.RetSub:
		top, ok := s.top()
		if !ok || top.loop {
			s.fault(errors.Wrapf(ErrStackUnderflow,
				"ret_sub at %d without a call", inst.Address))
			return
		}

		next = top.ret + 1
		s.pop()
	case core.JumpIf:
		if s.holds(op.Cond) {
			next = op.Target
		}
	case core.WaitFor:
		if !s.holds(op.Cond) {
			s.state.status = StatusStalled
			return
		}
	}

	s.loadWait(inst)
	s.state.pc = next
}

// loadWait sets the cycles to wait before the next instruction. A zero-delay
// instruction moves on at once and hands its delay to the next instruction.
func (s *Sequencer) loadWait(inst core.Instruction) {
	wait := inst.Delay
	if s.state.hasDefer {
		wait = s.state.deferred
		s.state.hasDefer = false
	}

	if inst.ZeroDelay {
		s.state.deferred = wait
		s.state.hasDefer = true
		wait = 0
	}

	if wait > 0 {
		// The executing cycle counts as the first cycle of the delay.
		wait--
	}

	s.state.wait = wait
}

// holds evaluates a condition against the sampled inputs.
func (s *Sequencer) holds(cond core.Condition) bool {
	switch cond {
	case core.CondNow:
		return true
	case core.CondNever:
		return false
	}

	in, high, ok := cond.Input()
	if !ok {
		return false
	}

	return s.inputs[in] == high
}

func (s *Sequencer) push(f stackFrame) bool {
	if len(s.state.stack) >= StackDepth {
		s.fault(errors.Wrapf(ErrStackOverflow, "at address %d", s.state.pc))
		return false
	}

	s.state.stack = append(s.state.stack, f)

	return true
}

func (s *Sequencer) top() (*stackFrame, bool) {
	if len(s.state.stack) == 0 {
		return nil, false
	}

	return &s.state.stack[len(s.state.stack)-1], true
}

func (s *Sequencer) pop() {
	s.state.stack = s.state.stack[:len(s.state.stack)-1]
}
