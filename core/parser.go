package core

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseLine converts one line of .pbj source into an Instruction.
//
// A line has four whitespace separated fields: a decimal address, a hex
// pattern, the opcode with its comma separated operands, and the delay
// field. The returned error, if any, is a *ParseError.
func ParseLine(text string) (Instruction, error) {
	var inst Instruction

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return inst, &ParseError{Address: -1, Kind: ErrEmptyLine}
	}

	if len(fields) != 4 {
		return inst, parseErrorf(ErrMalformedLine,
			"expected 4 fields, got %d", len(fields))
	}

	addr, err := parseAddress(fields[0])
	if err != nil {
		return inst, err
	}

	inst.Address = addr

	err = inst.parseFields(fields[1], fields[2], fields[3])
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Address = int(addr)
		}

		return inst, err
	}

	return inst, nil
}

func (inst *Instruction) parseFields(pattern, op, delay string) error {
	var err error

	inst.Pattern, err = parsePattern(pattern)
	if err != nil {
		return err
	}

	inst.PatternText = pattern

	inst.Op, err = parseOp(op)
	if err != nil {
		return err
	}

	inst.Delay, inst.ZeroDelay, err = parseDelay(delay, inst.Op.Opcode())

	return err
}

func parseAddress(field string) (uint16, error) {
	v, err := parseDecimal(field, "address")
	if err != nil {
		return 0, err
	}

	if v > MaxAddress {
		return 0, parseErrorf(ErrRange,
			"address %d is not between 0 and %d", v, MaxAddress)
	}

	return uint16(v), nil
}

func parseDecimal(field, what string) (uint64, error) {
	v, err := strconv.ParseUint(field, 10, 64)
	if err != nil {
		if strings.HasPrefix(field, "-") {
			if _, serr := strconv.ParseInt(field, 10, 64); serr == nil {
				return 0, parseErrorf(ErrRange, "%s %s is negative", what, field)
			}
		}

		return 0, parseErrorf(ErrInvalidNumber, "%s %q is not a decimal number", what, field)
	}

	return v, nil
}

func parsePattern(field string) (uint32, error) {
	digits := field
	negative := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits = digits[2:]
	}

	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return 0, parseErrorf(ErrRange, "pattern %s is wider than 24 bits", field)
		}

		return 0, parseErrorf(ErrInvalidPattern, "%q is not a hex literal", field)
	}

	if negative && v != 0 {
		return 0, parseErrorf(ErrRange, "pattern %s is negative", field)
	}

	if v > MaxPattern {
		return 0, parseErrorf(ErrRange, "pattern %s is wider than 24 bits", field)
	}

	return uint32(v), nil
}

func parseOp(field string) (Op, error) {
	parts := strings.Split(field, ",")
	name, args := Opcode(parts[0]), parts[1:]

	if name == "" {
		return nil, parseErrorf(ErrInvalidOpcode, "missing opcode in %q", field)
	}

	want, ok := operandCounts[name]
	if !ok {
		return nil, parseErrorf(ErrInvalidOpcode, "unknown opcode %q", name)
	}

	if len(args) != want {
		return nil, parseErrorf(ErrInvalidOpcode,
			"%s takes %d operand(s), got %d", name, want, len(args))
	}

	switch name {
	case OpContinue:
		return Continue{}, nil
	case OpEndLoop:
		return EndLoop{}, nil
	case OpRetSub:
		return RetSub{}, nil
	case OpStartLoop:
		count, err := parseLoopCount(args[0])
		if err != nil {
			return nil, err
		}

		return StartLoop{Count: count}, nil
	case OpCallSub:
		target, err := parseTarget(args[0])
		if err != nil {
			return nil, err
		}

		return CallSub{Target: target}, nil
	case OpJumpIf:
		cond, err := parseCondition(args[0])
		if err != nil {
			return nil, err
		}

		target, err := parseTarget(args[1])
		if err != nil {
			return nil, err
		}

		return JumpIf{Cond: cond, Target: target}, nil
	case OpWaitFor:
		cond, err := parseCondition(args[0])
		if err != nil {
			return nil, err
		}

		return WaitFor{Cond: cond}, nil
	}

	panic("unreachable opcode " + string(name))
}

var operandCounts = map[Opcode]int{
	OpContinue:  0,
	OpStartLoop: 1,
	OpEndLoop:   0,
	OpCallSub:   1,
	OpRetSub:    0,
	OpJumpIf:    2,
	OpWaitFor:   1,
}

func parseLoopCount(field string) (uint16, error) {
	v, err := parseDecimal(field, "loop count")
	if err != nil {
		return 0, err
	}

	if v < 1 || v > MaxLoopCount {
		return 0, parseErrorf(ErrRange,
			"loop count %d is not between 1 and %d", v, MaxLoopCount)
	}

	return uint16(v), nil
}

func parseTarget(field string) (uint16, error) {
	v, err := parseDecimal(field, "target")
	if err != nil {
		return 0, err
	}

	if v > MaxAddress {
		return 0, parseErrorf(ErrRange,
			"target %d is not between 0 and %d", v, MaxAddress)
	}

	return uint16(v), nil
}

func parseCondition(field string) (Condition, error) {
	cond, ok := LookupCondition(field)
	if !ok {
		return 0, parseErrorf(ErrInvalidOpcode, "unknown condition %q", field)
	}

	return cond, nil
}

func parseDelay(field string, op Opcode) (delay uint32, zero bool, err error) {
	parts := strings.Split(field, ",")

	switch len(parts) {
	case 1:
		delay, err = parseDelayValue(parts[0])
		return delay, false, err
	case 2:
		if op != OpContinue {
			return 0, false, parseErrorf(ErrZeroDelayNotAllowed,
				"delay field %q used with %s", field, op)
		}

		marker, err := parseDecimal(parts[0], "zero-delay marker")
		if err != nil {
			return 0, false, err
		}

		if marker != 0 {
			return 0, false, parseErrorf(ErrIllegalZeroDelay,
				"zero-delay marker must be 0, got %d", marker)
		}

		delay, err = parseDelayValue(parts[1])

		return delay, true, err
	default:
		return 0, false, parseErrorf(ErrMalformedLine,
			"delay field %q has %d parts", field, len(parts))
	}
}

func parseDelayValue(field string) (uint32, error) {
	v, err := parseDecimal(field, "delay")
	if err != nil {
		return 0, err
	}

	if v < MinDelay {
		return 0, parseErrorf(ErrIllegalZeroDelay,
			"delay %d is shorter than %d cycles", v, MinDelay)
	}

	if v > MaxDelay {
		return 0, parseErrorf(ErrRange, "delay %d does not fit in 31 bits", v)
	}

	return uint32(v), nil
}

// ParseFile assembles every line read from r into a new Program. The name
// is only used in error messages. The first error stops parsing; no partial
// program is returned.
func ParseFile(name string, r io.Reader) (*Program, error) {
	prog := NewProgram()
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		inst, err := ParseLine(scanner.Text())
		if err == nil {
			err = prog.Append(inst)
		}

		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Source = name
				pe.Line = lineNo
			}

			return nil, err
		}

		Trace("Parse", "Source", name, "Line", lineNo, "Inst", inst.String())
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			pe := parseErrorf(ErrMalformedLine,
				"line longer than %d bytes", bufio.MaxScanTokenSize)
			pe.Source = name
			pe.Line = lineNo + 1

			return nil, pe
		}

		return nil, errors.Wrapf(err, "reading %s", name)
	}

	return prog, nil
}

// LoadProgramFile reads and parses a .pbj file from disk.
func LoadProgramFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open program file")
	}
	defer f.Close()

	return ParseFile(path, f)
}
