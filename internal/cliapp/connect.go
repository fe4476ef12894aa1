package cliapp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
	"github.com/sunbay-developer/taplink-sdk-go/taplink"
)

var (
	connectMode          string
	connectHost          string
	connectPort          int
	connectSecure        bool
	connectCableProtocol string
	connectTimeout       time.Duration
	connectAuto          bool
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a Tapro terminal",
	RunE:  runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&connectMode, "mode", "lan", "transport: lan|cable|app")
	connectCmd.Flags().StringVar(&connectHost, "host", "", "LAN host/IP (required for --mode=lan unless --auto)")
	connectCmd.Flags().IntVar(&connectPort, "port", transport.DefaultPort, "LAN port")
	connectCmd.Flags().BoolVar(&connectSecure, "secure", true, "use wss:// for the LAN transport")
	connectCmd.Flags().StringVar(&connectCableProtocol, "cable-protocol", string(transport.CableProtocolAuto), "cable negotiation: AUTO|USB_AOA|USB_VSP|RS232")
	connectCmd.Flags().DurationVar(&connectTimeout, "timeout", 15*time.Second, "time to wait for the connect result")
	connectCmd.Flags().BoolVar(&connectAuto, "auto", false, "reconnect using the last persisted connection config instead of explicit flags")
}

func runConnect(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		exitWith(ExitConfigInvalid, err)
		return nil
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
	defer cancel()

	result := make(chan listenerResult, 1)
	listener := &taplink.Listener{
		OnConnected: func(deviceID, taproVersion string) {
			result <- listenerResult{deviceID: deviceID, taproVersion: taproVersion}
		},
		OnError: func(code, message string) {
			result <- listenerResult{code: code, message: message}
		},
	}

	if connectAuto {
		if !client.StartupAutoConnect(ctx, listener) {
			exitWith(ExitGenericError, fmt.Errorf("no persisted connection config available for --auto"))
			return nil
		}
	} else {
		cfg := taplink.Config{
			Mode:          transport.Mode(modeFromFlag(connectMode)),
			Host:          connectHost,
			Port:          connectPort,
			Secure:        connectSecure,
			CableProtocol: transport.CableProtocol(connectCableProtocol),
		}
		client.Connect(ctx, cfg, listener)
	}

	select {
	case r := <-result:
		return printConnectResult(r)
	case <-ctx.Done():
		exitWith(ExitGenericError, fmt.Errorf("timed out waiting to connect"))
		return nil
	}
}

type listenerResult struct {
	deviceID     string
	taproVersion string
	code         string
	message      string
}

func modeFromFlag(mode string) string {
	switch mode {
	case "cable":
		return string(transport.ModeCable)
	case "app":
		return string(transport.ModeAppToApp)
	default:
		return string(transport.ModeLAN)
	}
}

func printConnectResult(r listenerResult) error {
	if r.code != "" {
		exitWith(ExitGenericError, fmt.Errorf("connect failed: %s %s", r.code, r.message))
		return nil
	}
	if globalFlags.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"deviceId":    r.deviceID,
			"taproVersion": r.taproVersion,
		})
	}
	fmt.Printf("connected to %s (tapro %s)\n", r.deviceID, r.taproVersion)
	return nil
}
