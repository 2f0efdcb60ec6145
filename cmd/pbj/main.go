// Command pbj assembles PBJ pattern-sequencer programs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pbj/api"
	"github.com/sarchlab/pbj/asm"
	"github.com/sarchlab/pbj/codegen"
	"github.com/sarchlab/pbj/config"
	"github.com/sarchlab/pbj/core"
	"github.com/sarchlab/pbj/serialport"
)

// autoOutput is the value of a bare -o flag. It asks for a timestamped name.
const autoOutput = "auto"

var (
	inputPath  string
	outputPath string
	portName   string
	configPath string
	verbosity  int
)

var rootCmd = &cobra.Command{
	Use:   "pbj -i program.pbj [-o [file]] [-p port]",
	Short: "Assembler for the PBJ pattern sequencer",
	Long: `Pbj parses and verifies a .pbj program, then generates code for it.

With -o the program is written as embedded source lines, to the given file
or, for a bare -o, to a timestamped file in the configured output directory.
With -p the program is sent to a board over its serial port. Without either,
the source lines are printed.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		setupLogging()
		return nil
	},
	RunE: runAssemble,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&inputPath, "input", "i", "", "program to assemble (.pbj)")
	flags.StringVarP(&configPath, "config", "c", "", "configuration file (YAML)")
	flags.CountVarP(&verbosity, "verbose", "v", "log more (-vv for instruction traces)")

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write embedded source to a file")
	rootCmd.Flags().Lookup("output").NoOptDefVal = autoOutput
	rootCmd.Flags().StringVarP(&portName, "port", "p", "", "send the program to a board on this serial port")
}

func setupLogging() {
	level := slog.LevelWarn

	switch {
	case verbosity >= 2:
		level = core.LevelTrace
	case verbosity == 1:
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}

	return config.Load(configPath)
}

func assembleInput() (*asm.Assembly, error) {
	if inputPath == "" {
		return nil, errors.New(`required flag "input" not set`)
	}

	a, err := asm.AssembleFile(inputPath)
	if err != nil {
		return nil, err
	}

	for _, adv := range a.Advisories() {
		slog.Warn("Advisory",
			"File", a.Name(),
			"Address", adv.Address,
			"Message", adv.Message,
		)
	}

	return a, nil
}

func runAssemble(cmd *cobra.Command, args []string) error {
	// A bare -o swallows no value, so "-o out.txt" arrives as an argument.
	if len(args) == 1 {
		if outputPath != autoOutput {
			return errors.Errorf("unexpected argument %q", args[0])
		}

		outputPath = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := assembleInput()
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	if outputPath != "" {
		if err := writeSource(cmd, cfg, a); err != nil {
			return err
		}
	}

	if portName != "" {
		cfg.Serial.Port = portName
		if err := sendToBoard(cmd.Context(), cfg, a); err != nil {
			return err
		}
	}

	if outputPath == "" && portName == "" {
		for _, line := range a.Source() {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	}

	return nil
}

func writeSource(cmd *cobra.Command, cfg config.Config, a *asm.Assembly) error {
	path := outputPath
	if path == autoOutput {
		path = filepath.Join(cfg.Output.Dir, codegen.DefaultFilename(time.Now()))
	}

	if err := codegen.SaveSource(path, a.Source()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d lines to %s\n", a.Program().Len(), path)

	return nil
}

func sendToBoard(ctx context.Context, cfg config.Config, a *asm.Assembly) error {
	port, err := serialport.Open(cfg.Serial)
	if err != nil {
		return err
	}

	return program(ctx, port, cfg.Serial.FrameGap, a.Commands())
}

// program sends the frames and closes the transport. A close error is
// reported when sending succeeded.
func program(ctx context.Context, t api.Transport, gap time.Duration, frames []string) (err error) {
	driver := api.DriverBuilder{}.
		WithTransport(t).
		WithFrameGap(gap).
		Build("Driver")

	defer func() {
		if closeErr := driver.Close(); err == nil {
			err = closeErr
		}
	}()

	return driver.Program(ctx, frames)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	atexit.Register(stop)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
