package cliapp

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the client currently holds a connection",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		exitWith(ExitConfigInvalid, err)
		return nil
	}
	defer client.Close()

	connected := client.IsConnected()
	deviceID := client.DeviceID()

	if globalFlags.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"connected": connected,
			"deviceId":  deviceID,
		})
	}
	if connected {
		fmt.Printf("connected, deviceId=%s\n", deviceID)
	} else {
		fmt.Println("disconnected")
	}
	return nil
}
