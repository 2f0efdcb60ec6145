// Package sequencer models a PBJ board cycle by cycle on the akita
// simulation engine.
//
// The model holds the 1024 word instruction memory of the board, the 16
// entry hardware stack shared by loops and subroutine calls, and the six
// sampled input lines. Each tick either counts down the wait of the current
// instruction or executes the next one, latching its pattern onto the 24
// outputs.
package sequencer

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/pbj/core"
)

// StackDepth is the number of hardware stack entries.
const StackDepth = 16

// Faults that stop the sequencer.
var (
	ErrStackOverflow  = errors.New("hardware stack overflow")
	ErrStackUnderflow = errors.New("hardware stack underflow")
	ErrNotProgrammed  = errors.New("address not programmed")
)

// Status is the run state of the sequencer.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusDone       // ran past the last programmed address
	StatusStalled    // waiting for a condition that cannot change
	StatusCycleLimit // stopped after the configured number of cycles
	StatusFault      // stack error or unprogrammed address
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusStalled:
		return "stalled"
	case StatusCycleLimit:
		return "cycle limit"
	case StatusFault:
		return "fault"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Event records the outputs latched by one executed instruction.
type Event struct {
	Cycle   uint64
	Address uint16
	Pattern uint32
	Op      string
}

type stackFrame struct {
	loop      bool
	start     uint16 // first instruction of the loop body
	remaining uint16 // iterations left, including the current one
	ret       uint16 // the call_sub to return after
}

type word struct {
	inst  core.Instruction
	valid bool
}

type runState struct {
	pc       uint16
	stack    []stackFrame
	wait     uint32
	deferred uint32
	hasDefer bool
	outputs  uint32
	cycle    uint64
	status   Status
	err      error
}

// Sequencer is a cycle-level model of the board.
type Sequencer struct {
	*sim.TickingComponent

	mem       [core.MaxAddress + 1]word
	highest   int
	inputs    [core.NumInputs]bool
	maxCycles uint64

	state  runState
	events []Event
}

// Load writes one instruction into the instruction memory.
func (s *Sequencer) Load(inst core.Instruction) error {
	if inst.Address > core.MaxAddress {
		return errors.Errorf("address %d out of range", inst.Address)
	}

	if inst.Op == nil {
		return errors.Errorf("address %d: no opcode", inst.Address)
	}

	s.mem[inst.Address] = word{inst: inst, valid: true}
	if int(inst.Address) > s.highest {
		s.highest = int(inst.Address)
	}

	core.Trace("Load",
		"Sequencer", s.Name(),
		"Address", inst.Address,
		"Inst", inst.String(),
	)

	return nil
}

// LoadProgram writes every instruction of a program.
func (s *Sequencer) LoadProgram(prog *core.Program) error {
	for _, inst := range prog.Instructions {
		if err := s.Load(inst); err != nil {
			return err
		}
	}

	return nil
}

// Clear erases the instruction memory.
func (s *Sequencer) Clear() {
	s.mem = [core.MaxAddress + 1]word{}
	s.highest = -1
}

// Programmed returns the number of programmed addresses.
func (s *Sequencer) Programmed() int {
	n := 0

	for _, w := range s.mem {
		if w.valid {
			n++
		}
	}

	return n
}

// SetInput drives an input line.
func (s *Sequencer) SetInput(in core.Input, high bool) {
	s.inputs[in] = high
}

// Input returns the level of an input line.
func (s *Sequencer) Input(in core.Input) bool {
	return s.inputs[in]
}

// Start resets the run state and schedules the first tick at address 0.
func (s *Sequencer) Start() {
	s.state = runState{status: StatusRunning}
	s.events = nil

	s.TickNow()
}

// Resume continues a stalled sequencer, typically after an input changed.
func (s *Sequencer) Resume() {
	if s.state.status != StatusStalled {
		return
	}

	s.state.status = StatusRunning

	// The last tick already ran at the current time.
	s.TickLater()
}

// Status returns the run state.
func (s *Sequencer) Status() Status {
	return s.state.status
}

// Err returns the fault that stopped the sequencer, if any.
func (s *Sequencer) Err() error {
	return s.state.err
}

// Outputs returns the currently latched 24-bit pattern.
func (s *Sequencer) Outputs() uint32 {
	return s.state.outputs
}

// PC returns the address of the next instruction to execute.
func (s *Sequencer) PC() uint16 {
	return s.state.pc
}

// Cycles returns the number of cycles run since Start.
func (s *Sequencer) Cycles() uint64 {
	return s.state.cycle
}

// Events returns the outputs latched since Start, in execution order.
func (s *Sequencer) Events() []Event {
	return s.events
}

// Patterns returns the pattern of every event, in execution order.
func (s *Sequencer) Patterns() []uint32 {
	patterns := make([]uint32, len(s.events))
	for i, e := range s.events {
		patterns[i] = e.Pattern
	}

	return patterns
}

// Tick runs the sequencer for one cycle.
func (s *Sequencer) Tick() (madeProgress bool) {
	if s.state.status != StatusRunning {
		return false
	}

	if s.maxCycles > 0 && s.state.cycle >= s.maxCycles {
		s.state.status = StatusCycleLimit
		return false
	}

	s.state.cycle++

	if s.state.wait > 0 {
		s.state.wait--
		return true
	}

	if int(s.state.pc) > s.highest {
		s.state.status = StatusDone
		return false
	}

	w := s.mem[s.state.pc]
	if !w.valid {
		s.fault(errors.Wrapf(ErrNotProgrammed, "address %d", s.state.pc))
		return false
	}

	s.execute(w.inst)

	return s.state.status == StatusRunning
}

func (s *Sequencer) fault(err error) {
	s.state.status = StatusFault
	s.state.err = err

	core.Trace("Fault",
		"Sequencer", s.Name(),
		"Cycle", s.state.cycle,
		"PC", s.state.pc,
		"Err", err.Error(),
	)
}
