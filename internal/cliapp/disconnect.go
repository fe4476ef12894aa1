package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"
)

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect from the current Tapro terminal",
	RunE:  runDisconnect,
}

func runDisconnect(_ *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		exitWith(ExitConfigInvalid, err)
		return nil
	}
	defer client.Close()

	if err := client.Disconnect(); err != nil {
		exitWith(ExitGenericError, err)
		return nil
	}
	fmt.Println("disconnected")
	return nil
}
