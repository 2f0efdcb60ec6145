package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pbj/api"
	"github.com/sarchlab/pbj/asm"
	"github.com/sarchlab/pbj/core"
	"github.com/sarchlab/pbj/sequencer"
)

//go:embed blink.pbj
var program string

func main() {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	slog.SetDefault(slog.New(handler))

	a, err := asm.Assemble("blink.pbj", strings.NewReader(program))
	if err != nil {
		panic(err)
	}

	engine := sim.NewSerialEngine()

	seq := sequencer.NewBuilder().
		WithEngine(engine).
		WithFreq(16 * sim.MHz).
		Build("Board")

	driver := api.DriverBuilder{}.
		WithTransport(sequencer.NewLoopback(seq)).
		Build("Driver")

	if err := driver.Program(context.Background(), a.Commands()); err != nil {
		panic(err)
	}

	if err := sequencer.Run(engine, seq); err != nil {
		panic(err)
	}

	fmt.Println("Source:")
	for _, line := range a.Source() {
		fmt.Println(line)
	}

	fmt.Println()
	sequencer.PrintTrace(os.Stdout, seq.Events())
	fmt.Printf("Finished in %d cycles, outputs %s\n",
		seq.Cycles(), core.OutputBits(seq.Outputs()))

	atexit.Exit(0)
}
