package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pbj/asm"
	"github.com/sarchlab/pbj/config"
	"github.com/sarchlab/pbj/core"
	"github.com/sarchlab/pbj/sequencer"
)

//go:embed handshake.pbj
var program string

// The board waits for WE before it starts, runs a burst subroutine, then
// branches on IN1.
func main() {
	a, err := asm.Assemble("handshake.pbj", strings.NewReader(program))
	if err != nil {
		panic(err)
	}

	a.Report().WriteReport(os.Stdout)

	monitor := monitoring.NewMonitor()

	engine := sim.NewSerialEngine()
	monitor.RegisterEngine(engine)

	cfg := config.Default()
	cfg.Sequencer.Inputs = map[string]string{"in1": "high"}

	seq, err := config.DeviceBuilder{}.
		WithEngine(engine).
		WithConfig(cfg).
		Build("Board")
	if err != nil {
		panic(err)
	}
	monitor.RegisterComponent(seq)

	monitor.StartServer()

	if err := seq.LoadProgram(a.Program()); err != nil {
		panic(err)
	}

	if err := sequencer.Run(engine, seq); err != nil {
		panic(err)
	}
	fmt.Printf("Board is %s at address %d\n", seq.Status(), seq.PC())

	seq.SetInput(core.WE, true)
	seq.Resume()

	if err := engine.Run(); err != nil {
		panic(err)
	}

	sequencer.PrintTrace(os.Stdout, seq.Events())
	fmt.Printf("Board is %s after %d cycles\n", seq.Status(), seq.Cycles())

	atexit.Exit(0)
}
