package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"

	"github.com/sarchlab/pbj/api"
	"github.com/sarchlab/pbj/config"
	"github.com/sarchlab/pbj/core"
	"github.com/sarchlab/pbj/sequencer"
)

var (
	inputLevels []string
	maxCycles   uint64
	useMonitor  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a program on a simulated board",
	Long: `Simulate assembles the program, loads it into a simulated board through
the wire protocol, runs it and prints every pattern latched on the outputs.`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringSliceVar(&inputLevels, "set", nil, "input level, e.g. in1=high (repeatable)")
	simulateCmd.Flags().Uint64Var(&maxCycles, "max-cycles", 0, "stop after this many cycles")
	simulateCmd.Flags().BoolVar(&useMonitor, "monitor", false, "serve the akita monitor while running")

	rootCmd.AddCommand(simulateCmd)
}

func applyInputLevels(cfg *config.Config, settings []string) error {
	inputs := make(map[string]string, len(cfg.Sequencer.Inputs)+len(settings))
	for k, v := range cfg.Sequencer.Inputs {
		inputs[k] = v
	}

	for _, s := range settings {
		name, level, ok := strings.Cut(s, "=")
		if !ok {
			return errors.Errorf("--set %q: expected input=level", s)
		}

		if _, ok := core.LookupInput(name); !ok {
			return errors.Errorf("--set %q: unknown input %q", s, name)
		}

		if _, err := config.ParseLevel(level); err != nil {
			return errors.Wrapf(err, "--set %q", s)
		}

		inputs[name] = level
	}

	cfg.Sequencer.Inputs = inputs

	return nil
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := applyInputLevels(&cfg, inputLevels); err != nil {
		return err
	}

	if cmd.Flags().Changed("max-cycles") {
		cfg.Sequencer.MaxCycles = maxCycles
	}

	a, err := assembleInput()
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	engine := sim.NewSerialEngine()

	seq, err := config.DeviceBuilder{}.
		WithEngine(engine).
		WithConfig(cfg).
		Build("Board")
	if err != nil {
		return err
	}

	if useMonitor {
		monitor := monitoring.NewMonitor()
		monitor.RegisterEngine(engine)
		monitor.RegisterComponent(seq)
		monitor.StartServer()
	}

	driver := api.DriverBuilder{}.
		WithTransport(sequencer.NewLoopback(seq)).
		Build("Driver")
	defer driver.Close()

	if err := driver.Program(cmd.Context(), a.Commands()); err != nil {
		return err
	}

	runErr := sequencer.Run(engine, seq)

	out := cmd.OutOrStdout()
	sequencer.PrintTrace(out, seq.Events())
	fmt.Fprintf(out, "%s after %d cycles, outputs %s\n",
		seq.Status(), seq.Cycles(), core.OutputBits(seq.Outputs()))

	return runErr
}
