package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	LevelTrace slog.Level = slog.LevelDebug - 4
)

func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// PrintProgram writes a listing of the program as a table.
func PrintProgram(w io.Writer, prog *Program) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Program (%d instructions, highest address %d)",
		prog.Len(), prog.HighestAddress))
	t.AppendHeader(table.Row{"Addr", "Pattern", "Outputs", "Op", "Delay", "Zero"})

	for _, inst := range prog.Instructions {
		zero := ""
		if inst.ZeroDelay {
			zero = "yes"
		}

		t.AppendRow(table.Row{
			inst.Address,
			fmt.Sprintf("0x%06X", inst.Pattern),
			OutputBits(inst.Pattern),
			inst.Op.String(),
			inst.Delay,
			zero,
		})
	}

	t.Render()
}

// OutputBits renders a pattern as 24 characters, output 24 first.
func OutputBits(pattern uint32) string {
	buf := make([]byte, NumOutputs)

	for i := 0; i < NumOutputs; i++ {
		if pattern&(1<<(NumOutputs-1-i)) != 0 {
			buf[i] = '1'
		} else {
			buf[i] = '.'
		}
	}

	return string(buf)
}
