// Package codegen turns verified PBJ programs into output for the device.
//
// Two backends are provided. ToSource renders lines that can be pasted into
// the setup() function of a microcontroller sketch driving the PBJ library.
// ToCommands renders the wire-protocol frames the board accepts over its
// serial port.
package codegen

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sarchlab/pbj/core"
	"github.com/sarchlab/pbj/verify"
)

// ErrEmptyFilename is returned when output is requested without a file name.
var ErrEmptyFilename = errors.New("empty output file name")

// ToSource renders one library call per instruction, in program order.
func ToSource(v *verify.Verified) []string {
	prog := v.Program()
	lines := make([]string, 0, prog.Len())

	for _, inst := range prog.Instructions {
		lines = append(lines, SourceLine(inst))
	}

	return lines
}

// SourceLine renders a single instruction as a library call.
func SourceLine(inst core.Instruction) string {
	return fmt.Sprintf("pbj.write(%d, %s, %s, %s);",
		inst.Address, outputList(inst.Pattern), sourceOp(inst.Op), sourceDelay(inst))
}

func outputList(pattern uint32) string {
	var outs []string

	for i := 0; i < core.NumOutputs; i++ {
		if pattern&(1<<i) != 0 {
			outs = append(outs, fmt.Sprintf("OUT%d", i+1))
		}
	}

	if len(outs) == 0 {
		return "0"
	}

	return strings.Join(outs, " | ")
}

func sourceOp(op core.Op) string {
	switch op := op.(type) {
	case core.JumpIf:
		return fmt.Sprintf("JUMPIF | %s | (%d<<4)",
			strings.ToUpper(op.Cond.Name()), op.Target)
	case core.WaitFor:
		return "WAITFOR | " + strings.ToUpper(strings.ReplaceAll(op.Cond.Name(), "_", ""))
	case core.StartLoop:
		return fmt.Sprintf("STARTLOOP | (%d<<4)", op.Count)
	case core.CallSub:
		return fmt.Sprintf("CALLSUB | (%d<<4)", op.Target)
	default:
		return mnemonic(op.Opcode())
	}
}

func mnemonic(op core.Opcode) string {
	return strings.ToUpper(strings.ReplaceAll(string(op), "_", ""))
}

func sourceDelay(inst core.Instruction) string {
	if inst.ZeroDelay {
		return fmt.Sprintf("ZERODELAY | %d", inst.Delay)
	}

	return fmt.Sprintf("%d", inst.Delay)
}

// DefaultFilename names an output file after the given time.
func DefaultFilename(now time.Time) string {
	return now.Format("pbj_20060102_150405") + ".txt"
}

// SaveSource writes the source lines to a file, one per line.
func SaveSource(path string, lines []string) error {
	if strings.TrimSpace(path) == "" {
		return ErrEmptyFilename
	}

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	err := os.WriteFile(path, []byte(sb.String()), 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	return nil
}
