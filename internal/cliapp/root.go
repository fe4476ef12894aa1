// Package cliapp implements the taplinkctl command-line tool: a thin
// Cobra front end over the taplink package for operators exercising a
// Tapro connection by hand (SPEC_FULL §2 A4). Its command/flag layout
// follows the teacher's own internal/cli root/subcommand structure.
package cliapp

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sunbay-developer/taplink-sdk-go/taplink"
)

// Exit codes, mirroring the teacher's small stable exit-code contract.
const (
	ExitSuccess      = 0
	ExitGenericError = 1
	ExitConfigInvalid = 2
	ExitNotConnected = 3
)

// GlobalFlags holds flags shared across all subcommands.
type GlobalFlags struct {
	AppID     string
	SecretKey string
	StateDir  string
	LogLevel  string
	JSON      bool
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:   "taplinkctl",
	Short: "Exercise a TapLink Connect client from the command line",
	Long:  "taplinkctl drives a TapLink Connect SDK client against a Tapro terminal for manual testing and scripting.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.AppID, "app-id", "", "merchant app identifier (overrides TAPLINK_APP_ID)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.SecretKey, "secret-key", "", "merchant app secret (overrides TAPLINK_SECRET_KEY)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.StateDir, "state-dir", "", "state directory for persisted connection config (default: OS config dir)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "emit JSON results instead of plain text")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(saleCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(abortCmd)
	rootCmd.AddCommand(statusCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newClient() (*taplink.Client, error) {
	return taplink.Init(taplink.InitOptions{
		AppID:     globalFlags.AppID,
		SecretKey: globalFlags.SecretKey,
		StateDir:  globalFlags.StateDir,
		LogLevel:  globalFlags.LogLevel,
	})
}

func exitWith(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}
