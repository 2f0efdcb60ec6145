package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pbj/core"
	"github.com/sarchlab/pbj/serialport"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the program listing and its verification report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := assembleInput()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		core.PrintProgram(out, a.Program())
		fmt.Fprintln(out)
		a.Report().WriteReport(out)

		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List the serial ports a board may be attached to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ports, err := serialport.List()
		if err != nil {
			return err
		}

		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(portsCmd)
}
