// Package verify checks the control flow of an assembled PBJ program before
// any code is generated for it.
//
// Verification runs two passes over a simulated program counter that starts
// at address 0:
//
//  1. Subroutine discovery (discover.go): follows call_sub and ret_sub the way
//     the device does, records every subroutine range with its call depth,
//     and tracks the hardware stack shared by loops and calls.
//
//  2. Structural lint (lint.go): walks the addresses linearly, counts loop
//     and subroutine nesting, and rejects jumps out of loops.
//
// The device keeps loop and call frames on one 16 entry hardware stack, so
// the combined nesting depth of loops and subroutines may never exceed 16.
//
// Errors are fatal and stop code generation. Jumping out of a subroutine is
// legal on the device but is reported as an advisory.
//
// # Usage Example
//
//	prog, err := core.LoadProgramFile("blink.pbj")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	v, err := verify.Verify(prog)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, issue := range v.Report().Advisories {
//	    log.Printf("[%s] address %d: %s", issue.Type, issue.Address, issue.Message)
//	}
package verify

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sarchlab/pbj/core"
)

// MaxStackDepth is the number of hardware stack entries shared by loops and
// subroutine calls.
const MaxStackDepth = 16

// Kinds of verification errors. An *Error unwraps to one of them.
var (
	ErrJumpOutOfLoop   = errors.New("jump out of loop")
	ErrNestingTooDeep  = errors.New("nesting too deep")
	ErrUnmappedAddress = errors.New("unmapped address")
	ErrUnbalancedLoop  = errors.New("unbalanced loop")
)

// Error is a fatal control-flow error found at an address.
type Error struct {
	Address int
	Kind    error
	Msg     string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("address %d: %s", e.Address, e.Kind)
	}

	return fmt.Sprintf("address %d: %s: %s", e.Address, e.Kind, e.Msg)
}

// Unwrap returns the error kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

func errorf(addr uint16, kind error, format string, args ...any) *Error {
	return &Error{
		Address: int(addr),
		Kind:    kind,
		Msg:     fmt.Sprintf(format, args...),
	}
}

// IssueType categorizes non-fatal findings
type IssueType string

const (
	IssueAdvisory IssueType = "ADVISORY"
)

// Issue is a non-fatal finding reported alongside a successful verification.
type Issue struct {
	Type    IssueType
	Address int
	Message string
}

// Subroutine is the address range of one discovered subroutine.
type Subroutine struct {
	Start  uint16 // first instruction, the call_sub target
	End    uint16 // the ret_sub that closes it
	Return uint16 // the call_sub that first entered it
	Depth  int    // call depth at which it was first entered
}

// Report summarizes a successful verification.
type Report struct {
	Subroutines   []Subroutine
	MaxStackDepth int
	Advisories    []Issue
}

// Verified is a program that passed verification. Only Verify creates
// Verified values, so code generators can require one.
type Verified struct {
	prog   *core.Program
	report Report
}

// Program returns the verified program.
func (v *Verified) Program() *core.Program {
	return v.prog
}

// Report returns the findings of the verification.
func (v *Verified) Report() Report {
	return v.report
}

// Verify runs subroutine discovery and the structural lint on the program.
// Both passes run to the end. A jump out of a loop is reported before any
// other error; otherwise the error at the lowest address wins. The returned
// error, if not nil, is an *Error.
func Verify(prog *core.Program) (*Verified, error) {
	if prog.IsEmpty() {
		return &Verified{prog: prog}, nil
	}

	walk := discoverSubroutines(prog)
	st := lint(prog, walk.subroutines)

	if st.jumpErr != nil {
		return nil, st.jumpErr
	}

	if err := earliest(walk.err, st.err); err != nil {
		return nil, err
	}

	core.Trace("Verify",
		"Instructions", prog.Len(),
		"Subroutines", len(walk.subroutines),
		"MaxStackDepth", walk.maxDepth,
		"Advisories", len(st.advisories),
	)

	return &Verified{
		prog: prog,
		report: Report{
			Subroutines:   walk.subroutines,
			MaxStackDepth: walk.maxDepth,
			Advisories:    st.advisories,
		},
	}, nil
}

// earliest returns the error at the lowest address, preferring the first
// one on a tie. It returns a nil interface when every error is nil.
func earliest(errs ...*Error) error {
	var first *Error

	for _, err := range errs {
		if err != nil && (first == nil || err.Address < first.Address) {
			first = err
		}
	}

	if first == nil {
		return nil
	}

	return first
}

func lookup(prog *core.Program, pc uint16) (core.Instruction, *Error) {
	inst, ok := prog.Lookup(pc)
	if !ok {
		return inst, errorf(pc, ErrUnmappedAddress,
			"no instruction at address %d", pc)
	}

	return inst, nil
}
