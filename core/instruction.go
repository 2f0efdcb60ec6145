package core

import "fmt"

const (
	// MaxAddress is the highest instruction memory slot on the device.
	MaxAddress = 1023

	// MaxPattern is the widest output pattern, one bit per output line.
	MaxPattern = 1<<24 - 1

	// MaxLoopCount is the largest loop count the command word can carry.
	MaxLoopCount = 1<<13 - 1

	// MaxDelay is the largest delay; bit 31 of the delay word is the
	// zero-delay flag.
	MaxDelay = 1<<31 - 1

	// MinDelay is the smallest delay the device can honour.
	MinDelay = 2

	// NumOutputs is the number of physical output lines.
	NumOutputs = 24
)

// Opcode represents the operation code for an instruction
type Opcode string

const (
	OpContinue  Opcode = "continue"
	OpStartLoop Opcode = "start_loop"
	OpEndLoop   Opcode = "end_loop"
	OpCallSub   Opcode = "call_sub"
	OpRetSub    Opcode = "ret_sub"
	OpJumpIf    Opcode = "jump_if"
	OpWaitFor   Opcode = "wait_for"
)

// Opcodes lists every opcode in the order of their numeric codes.
var Opcodes = []Opcode{
	OpContinue, OpStartLoop, OpEndLoop, OpCallSub, OpRetSub, OpJumpIf, OpWaitFor,
}

// Condition is an input condition tested by jump_if and wait_for.
type Condition int

const (
	CondNow Condition = iota
	CondNever
	CondIn1Low
	CondIn1High
	CondIn2Low
	CondIn2High
	CondIn3Low
	CondIn3High
	CondIn4Low
	CondIn4High
	CondWELow
	CondWEHigh
	CondMOSILow
	CondMOSIHigh
	numConditions
)

var conditionNames = [...]string{
	"now", "never",
	"in1_low", "in1_high",
	"in2_low", "in2_high",
	"in3_low", "in3_high",
	"in4_low", "in4_high",
	"we_low", "we_high",
	"mosi_low", "mosi_high",
}

// Valid tells if the condition is one of the known conditions.
func (c Condition) Valid() bool {
	return c >= 0 && c < numConditions
}

// Name returns the source spelling of the condition.
func (c Condition) Name() string {
	if !c.Valid() {
		panic(fmt.Sprintf("invalid condition %d", int(c)))
	}

	return conditionNames[c]
}

func (c Condition) String() string {
	return c.Name()
}

// Input returns the input line the condition samples and the level that
// satisfies it. Now and Never have no input line.
func (c Condition) Input() (line Input, high bool, ok bool) {
	if c < CondIn1Low || c >= numConditions {
		return 0, false, false
	}

	idx := int(c - CondIn1Low)

	return Input(idx / 2), idx%2 == 1, true
}

// LookupCondition finds a condition by its source spelling.
func LookupCondition(name string) (Condition, bool) {
	for i, n := range conditionNames {
		if n == name {
			return Condition(i), true
		}
	}

	return 0, false
}

// Input is one of the device's sampled input lines.
type Input int

const (
	In1 Input = iota
	In2
	In3
	In4
	WE
	MOSI
	NumInputs
)

// Name returns the name of the input line.
func (i Input) Name() string {
	switch i {
	case In1:
		return "in1"
	case In2:
		return "in2"
	case In3:
		return "in3"
	case In4:
		return "in4"
	case WE:
		return "we"
	case MOSI:
		return "mosi"
	default:
		panic("invalid input")
	}
}

// LookupInput finds an input line by name.
func LookupInput(name string) (Input, bool) {
	for i := In1; i < NumInputs; i++ {
		if i.Name() == name {
			return i, true
		}
	}

	return 0, false
}

// Op is the opcode of an instruction together with its typed operands.
type Op interface {
	Opcode() Opcode
	String() string
}

// Continue moves on to the next address.
type Continue struct{}

// StartLoop opens a loop body that runs Count times.
type StartLoop struct {
	Count uint16
}

// EndLoop closes the innermost loop body.
type EndLoop struct{}

// CallSub calls the subroutine at Target.
type CallSub struct {
	Target uint16
}

// RetSub returns from the current subroutine.
type RetSub struct{}

// JumpIf jumps to Target when Cond holds.
type JumpIf struct {
	Cond   Condition
	Target uint16
}

// WaitFor stalls until Cond holds.
type WaitFor struct {
	Cond Condition
}

func (Continue) Opcode() Opcode  { return OpContinue }
func (StartLoop) Opcode() Opcode { return OpStartLoop }
func (EndLoop) Opcode() Opcode   { return OpEndLoop }
func (CallSub) Opcode() Opcode   { return OpCallSub }
func (RetSub) Opcode() Opcode    { return OpRetSub }
func (JumpIf) Opcode() Opcode    { return OpJumpIf }
func (WaitFor) Opcode() Opcode   { return OpWaitFor }

func (Continue) String() string { return string(OpContinue) }
func (EndLoop) String() string  { return string(OpEndLoop) }
func (RetSub) String() string   { return string(OpRetSub) }

func (o StartLoop) String() string {
	return fmt.Sprintf("%s,%d", OpStartLoop, o.Count)
}

func (o CallSub) String() string {
	return fmt.Sprintf("%s,%d", OpCallSub, o.Target)
}

func (o JumpIf) String() string {
	return fmt.Sprintf("%s,%s,%d", OpJumpIf, o.Cond.Name(), o.Target)
}

func (o WaitFor) String() string {
	return fmt.Sprintf("%s,%s", OpWaitFor, o.Cond.Name())
}

// Instruction is one validated program line.
type Instruction struct {
	Address     uint16
	Pattern     uint32
	PatternText string
	Op          Op
	Delay       uint32

	// ZeroDelay latches this instruction with no wait states; Delay is then
	// the wait of the following instruction.
	ZeroDelay bool
}

// String renders the instruction back in .pbj source form.
func (i Instruction) String() string {
	delay := fmt.Sprintf("%d", i.Delay)
	if i.ZeroDelay {
		delay = "0," + delay
	}

	return fmt.Sprintf("%d %s %s %s", i.Address, i.patternText(), i.Op, delay)
}

func (i Instruction) patternText() string {
	if i.PatternText != "" {
		return i.PatternText
	}

	return fmt.Sprintf("0x%x", i.Pattern)
}
