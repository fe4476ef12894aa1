// Package monitorapp implements the taplink-monitor terminal UI: a live
// view of connection state and lifecycle events for a running TapLink
// Connect client (SPEC_FULL §2 A5), built the way the teacher's
// internal/dirstral/app screens are: a ticking bubbletea Model driven by
// an event channel, grounded on that package's server_logs.go viewer.
package monitorapp

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sunbay-developer/taplink-sdk-go/taplink"
)

var (
	flagAppID     string
	flagSecretKey string
	flagStateDir  string
)

// NewRootCommand builds the taplink-monitor Cobra command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taplink-monitor",
		Short: "Live terminal view of a TapLink Connect client's connection state",
		RunE:  runMonitor,
	}
	cmd.Flags().StringVar(&flagAppID, "app-id", "", "merchant app identifier (overrides TAPLINK_APP_ID)")
	cmd.Flags().StringVar(&flagSecretKey, "secret-key", "", "merchant app secret (overrides TAPLINK_SECRET_KEY)")
	cmd.Flags().StringVar(&flagStateDir, "state-dir", "", "state directory for persisted connection config")
	return cmd
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	client, err := taplink.Init(taplink.InitOptions{
		AppID:     flagAppID,
		SecretKey: flagSecretKey,
		StateDir:  flagStateDir,
	})
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}
	defer client.Close()

	return Run(cmd.Context(), client)
}
