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
	queryByTransactionID        string
	queryByTransactionRequestID string
	queryTimeout                time.Duration
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Look up a transaction by id",
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryByTransactionID, "by-transaction-id", "", "Tapro transaction id")
	queryCmd.Flags().StringVar(&queryByTransactionRequestID, "by-transaction-request-id", "", "original request trace id")
	queryCmd.Flags().DurationVar(&queryTimeout, "timeout", 30*time.Second, "time to wait for the query result")
}

func runQuery(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		exitWith(ExitConfigInvalid, err)
		return nil
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
	defer cancel()

	req := taplink.QueryRequest{
		ByTransactionID:        queryByTransactionID,
		ByTransactionRequestID: queryByTransactionRequestID,
	}

	done := make(chan completionResult, 1)
	_, err = client.Query(ctx, req, taplink.Callback{
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
		exitWith(ExitGenericError, fmt.Errorf("timed out waiting for query to complete"))
		return nil
	}
}
