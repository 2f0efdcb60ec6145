package sequencer

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/pbj/core"
)

// Run starts the sequencer and runs the engine until the sequencer stops.
func Run(engine sim.Engine, s *Sequencer) error {
	s.Start()

	if err := engine.Run(); err != nil {
		return errors.Wrap(err, "engine failed")
	}

	if s.Status() == StatusFault {
		return s.Err()
	}

	return nil
}

// PrintTrace renders the output events as a table.
func PrintTrace(w io.Writer, events []Event) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Cycle", "Addr", "Pattern", "Outputs", "Op"})

	for _, e := range events {
		t.AppendRow(table.Row{
			e.Cycle,
			e.Address,
			fmt.Sprintf("0x%06X", e.Pattern),
			core.OutputBits(e.Pattern),
			e.Op,
		})
	}

	t.Render()
}
