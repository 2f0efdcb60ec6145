package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/pbj/core"
	"github.com/sarchlab/pbj/verify"
)

// Fields of the 32-bit command word.
const (
	opcodeMask = 0xF

	condShift = 4
	condMask  = 0xF << condShift

	targetShift = 13
	targetMask  = core.MaxAddress << targetShift

	countShift = 19
	countMask  = core.MaxLoopCount << countShift

	// ZeroDelayBit marks a zero-delay instruction in the delay field.
	ZeroDelayBit = 0x80000000

	framePrefix = "PBJ"
	frameSuffix = ";"
)

var opcodeCodes = map[core.Opcode]uint32{
	core.OpContinue:  0,
	core.OpStartLoop: 2,
	core.OpEndLoop:   3,
	core.OpCallSub:   4,
	core.OpRetSub:    5,
	core.OpJumpIf:    6,
	core.OpWaitFor:   8,
}

// ConditionCode returns the command word bits selecting the condition.
func ConditionCode(c core.Condition) uint32 {
	return uint32(c) << condShift
}

// Command encodes the opcode and operands of an instruction.
func Command(op core.Op) uint32 {
	cmd := opcodeCodes[op.Opcode()]

	switch op := op.(type) {
	case core.StartLoop:
		cmd |= uint32(op.Count) << countShift
	case core.CallSub:
		cmd |= uint32(op.Target) << targetShift
	case core.JumpIf:
		cmd |= ConditionCode(op.Cond)
		cmd |= uint32(op.Target) << targetShift
	case core.WaitFor:
		cmd |= ConditionCode(op.Cond)
	}

	return cmd
}

// Frame is one wire-protocol frame.
type Frame struct {
	Address uint16
	Pattern uint32
	Command uint32
	Delay   uint32
}

// EncodeFrame builds the frame of an instruction.
func EncodeFrame(inst core.Instruction) Frame {
	delay := inst.Delay
	if inst.ZeroDelay {
		delay |= ZeroDelayBit
	}

	return Frame{
		Address: inst.Address,
		Pattern: inst.Pattern,
		Command: Command(inst.Op),
		Delay:   delay,
	}
}

func (f Frame) String() string {
	return fmt.Sprintf("%s%d,%d,%d,%d%s",
		framePrefix, f.Address, f.Pattern, f.Command, f.Delay, frameSuffix)
}

// ToCommands renders one frame per instruction, in program order.
func ToCommands(v *verify.Verified) []string {
	prog := v.Program()
	frames := make([]string, 0, prog.Len())

	for _, inst := range prog.Instructions {
		frames = append(frames, EncodeFrame(inst).String())
	}

	return frames
}

// ErrBadFrame is returned for text that is not a wire-protocol frame.
var ErrBadFrame = errors.New("malformed frame")

// ParseFrame reads a frame in the form PBJ<addr>,<pattern>,<command>,<delay>;
func ParseFrame(s string) (Frame, error) {
	var f Frame

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, framePrefix) || !strings.HasSuffix(s, frameSuffix) {
		return f, errors.Wrapf(ErrBadFrame, "%q", s)
	}

	body := strings.TrimSuffix(strings.TrimPrefix(s, framePrefix), frameSuffix)

	fields := strings.Split(body, ",")
	if len(fields) != 4 {
		return f, errors.Wrapf(ErrBadFrame, "%q has %d fields", s, len(fields))
	}

	var vals [4]uint32

	for i, field := range fields {
		v, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return f, errors.Wrapf(ErrBadFrame, "%q: field %d: %v", s, i, err)
		}

		vals[i] = uint32(v)
	}

	if vals[0] > core.MaxAddress {
		return f, errors.Wrapf(ErrBadFrame, "%q: address %d out of range", s, vals[0])
	}

	if vals[1] > core.MaxPattern {
		return f, errors.Wrapf(ErrBadFrame, "%q: pattern %d wider than 24 bits", s, vals[1])
	}

	f.Address = uint16(vals[0])
	f.Pattern = vals[1]
	f.Command = vals[2]
	f.Delay = vals[3]

	return f, nil
}

// Decode recovers the instruction carried by the frame.
func (f Frame) Decode() (core.Instruction, error) {
	op, err := DecodeCommand(f.Command)
	if err != nil {
		return core.Instruction{}, err
	}

	return core.Instruction{
		Address:   f.Address,
		Pattern:   f.Pattern,
		Op:        op,
		Delay:     f.Delay &^ ZeroDelayBit,
		ZeroDelay: f.Delay&ZeroDelayBit != 0,
	}, nil
}

// DecodeCommand recovers the opcode and operands of a command word.
func DecodeCommand(cmd uint32) (core.Op, error) {
	target := uint16((cmd & targetMask) >> targetShift)
	cond := core.Condition((cmd & condMask) >> condShift)

	switch cmd & opcodeMask {
	case opcodeCodes[core.OpContinue]:
		return core.Continue{}, nil
	case opcodeCodes[core.OpStartLoop]:
		return core.StartLoop{Count: uint16((cmd & countMask) >> countShift)}, nil
	case opcodeCodes[core.OpEndLoop]:
		return core.EndLoop{}, nil
	case opcodeCodes[core.OpCallSub]:
		return core.CallSub{Target: target}, nil
	case opcodeCodes[core.OpRetSub]:
		return core.RetSub{}, nil
	case opcodeCodes[core.OpJumpIf]:
		if !cond.Valid() {
			break
		}

		return core.JumpIf{Cond: cond, Target: target}, nil
	case opcodeCodes[core.OpWaitFor]:
		if !cond.Valid() {
			break
		}

		return core.WaitFor{Cond: cond}, nil
	}

	return nil, errors.Errorf("invalid command word 0x%08X", cmd)
}
