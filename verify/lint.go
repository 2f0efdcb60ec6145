package verify

import (
	"fmt"

	"github.com/sarchlab/pbj/core"
)

// lintState is the state of the linear structural walk.
type lintState struct {
	pc         uint16
	loopDepth  int
	loopStarts []uint16
	open       []Subroutine
	advisories []Issue

	jumpErr *Error // first jump out of a loop
	err     *Error // first other structural error
}

// subDepth is the call depth of the innermost open subroutine.
func (st *lintState) subDepth() int {
	depth := 0

	for _, s := range st.open {
		if s.Depth > depth {
			depth = s.Depth
		}
	}

	return depth
}

func (st *lintState) fail(err *Error) {
	if st.err == nil {
		st.err = err
	}
}

// lint walks every address from 0 to the highest one in order, without
// following jumps. It rejects jumps out of loops and nesting deeper than the
// hardware stack, and flags jumps out of subroutines. The walk always runs to
// the end.
func lint(prog *core.Program, subs []Subroutine) *lintState {
	startsAt := make(map[uint16][]Subroutine)
	for _, s := range subs {
		startsAt[s.Start] = append(startsAt[s.Start], s)
	}

	st := &lintState{}

	for pc := 0; pc <= int(prog.HighestAddress); pc++ {
		st.pc = uint16(pc)

		st.open = append(st.open, startsAt[st.pc]...)

		inst, err := lookup(prog, st.pc)
		if err != nil {
			st.fail(err)
		} else {
			st.check(inst)
		}

		if st.loopDepth+st.subDepth() > MaxStackDepth {
			st.fail(errorf(st.pc, ErrNestingTooDeep,
				"%d loops inside %d subroutines exceed the %d entry stack",
				st.loopDepth, st.subDepth(), MaxStackDepth))
		}

		st.closeSubroutines()
	}

	if st.loopDepth != 0 {
		open := st.loopStarts[len(st.loopStarts)-1]
		st.fail(errorf(open, ErrUnbalancedLoop,
			"start_loop has no matching end_loop"))
	}

	return st
}

func (st *lintState) closeSubroutines() {
	kept := st.open[:0]

	for _, s := range st.open {
		if s.End != st.pc {
			kept = append(kept, s)
		}
	}

	st.open = kept
}

func (st *lintState) check(inst core.Instruction) {
	switch op := inst.Op.(type) {
	case core.StartLoop:
		st.loopDepth++
		st.loopStarts = append(st.loopStarts, st.pc)
	case core.EndLoop:
		if st.loopDepth == 0 {
			st.fail(errorf(st.pc, ErrUnbalancedLoop, "end_loop without start_loop"))
			return
		}

		st.loopDepth--
		st.loopStarts = st.loopStarts[:len(st.loopStarts)-1]
	case core.JumpIf:
		if st.loopDepth > 0 {
			if st.jumpErr == nil {
				st.jumpErr = errorf(st.pc, ErrJumpOutOfLoop,
					"jump_if to %d inside the loop opened at %d",
					op.Target, st.loopStarts[len(st.loopStarts)-1])
			}

			return
		}

		if len(st.open) > 0 {
			st.advisories = append(st.advisories, Issue{
				Type:    IssueAdvisory,
				Address: int(st.pc),
				Message: fmt.Sprintf(
					"jump_if to %d leaves a subroutine; prefer ret_sub", op.Target),
			})
		}
	}
}
