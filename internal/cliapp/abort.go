package cliapp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/sunbay-developer/taplink-sdk-go/taplink"
)

var (
	abortTransactionRequestID string
	abortTimeout              time.Duration
)

var abortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Abort an in-flight transaction by its original request id",
	RunE:  runAbort,
}

func init() {
	abortCmd.Flags().StringVar(&abortTransactionRequestID, "original-transaction-request-id", "", "the requestId returned when the transaction was started (required)")
	abortCmd.Flags().DurationVar(&abortTimeout, "timeout", 30*time.Second, "time to wait for the abort result")
	abortCmd.MarkFlagRequired("original-transaction-request-id")
}

func runAbort(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		exitWith(ExitConfigInvalid, err)
		return nil
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), abortTimeout)
	defer cancel()

	done := make(chan completionResult, 1)
	_, err = client.Abort(ctx, abortTransactionRequestID, taplink.Callback{
		OnSuccess: func(result json.RawMessage) { done <- completionResult{result: result} },
		OnFailure: func(code, message string) { done <- completionResult{code: code, message: message} },
	})
	if err != nil {
		exitWith(ExitGenericError, err)
		return nil
	}

	select {
	case r := <-done:
		return printCompletion(r)
	case <-ctx.Done():
		exitWith(ExitGenericError, fmt.Errorf("timed out waiting for abort to complete"))
		return nil
	}
}
