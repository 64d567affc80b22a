package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	routeFlag  string
	debugAddr  string

	rootCmd = &cobra.Command{
		Use:   "tealens",
		Short: "A todo list kept in sync with its storage, route and view",
		Long: `tealens runs a terminal todo list whose screen, persisted snapshot and
route fragment all follow one state value. Editing the config file while it
runs swaps in a rebuilt app without losing state.`,
		SilenceUsage: true,
		RunE:         runApp,
	}
	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "Inspect or clear the persisted snapshot",
	}
	stateShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the persisted snapshot",
		Args:  cobra.NoArgs,
		RunE:  runStateShow,
	}
	stateResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Delete the persisted snapshot so the next run starts fresh",
		Args:  cobra.NoArgs,
		RunE:  runStateReset,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $HOME/.config/tealens/config.toml)")
	rootCmd.Flags().StringVar(&routeFlag, "route", "", "initial route fragment, e.g. #/complete")
	rootCmd.Flags().StringVar(&debugAddr, "debug-addr", "", "serve /debug and /metrics on this address")

	stateCmd.AddCommand(stateShowCmd, stateResetCmd)
	rootCmd.AddCommand(stateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
