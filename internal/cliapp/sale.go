package cliapp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/sunbay-developer/taplink-sdk-go/taplink"
)

var (
	saleReferenceOrderID string
	saleOrderAmount      string
	saleTip              string
	saleCurrency         string
	saleTimeout          time.Duration
)

var saleCmd = &cobra.Command{
	Use:   "sale",
	Short: "Start a sale transaction and wait for its result",
	RunE:  runSale,
}

func init() {
	saleCmd.Flags().StringVar(&saleReferenceOrderID, "reference-order-id", "", "merchant order reference (required)")
	saleCmd.Flags().StringVar(&saleOrderAmount, "amount", "", "order amount, e.g. 10.00 (required)")
	saleCmd.Flags().StringVar(&saleTip, "tip", "", "tip amount, e.g. 1.00")
	saleCmd.Flags().StringVar(&saleCurrency, "currency", "USD", "ISO 4217 currency code")
	saleCmd.Flags().DurationVar(&saleTimeout, "timeout", 2*time.Minute, "time to wait for the sale to complete")
	saleCmd.MarkFlagRequired("reference-order-id")
	saleCmd.MarkFlagRequired("amount")
}

func runSale(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		exitWith(ExitConfigInvalid, err)
		return nil
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), saleTimeout)
	defer cancel()

	req := taplink.SaleRequest{
		ReferenceOrderID: saleReferenceOrderID,
		Amount: taplink.Amount{
			Order:    saleOrderAmount,
			Tip:      saleTip,
			Currency: saleCurrency,
		},
	}

	done := make(chan completionResult, 1)
	_, err = client.Sale(ctx, req, taplink.Callback{
		OnSuccess: func(result json.RawMessage) {
			done <- completionResult{result: result}
		},
		OnFailure: func(code, message string) {
			done <- completionResult{code: code, message: message}
		},
		OnProgress: func(status, message string) {
			fmt.Fprintf(os.Stderr, "progress: %s %s\n", status, message)
		},
	})
	if err != nil {
		exitWith(ExitGenericError, err)
		return nil
	}

	select {
	case r := <-done:
		return printCompletion(r)
	case <-ctx.Done():
		exitWith(ExitGenericError, fmt.Errorf("timed out waiting for sale to complete"))
		return nil
	}
}

type completionResult struct {
	result  json.RawMessage
	code    string
	message string
}

func printCompletion(r completionResult) error {
	if r.code != "" {
		exitWith(ExitGenericError, fmt.Errorf("transaction failed: %s %s", r.code, r.message))
		return nil
	}
	if globalFlags.JSON {
		_, err := os.Stdout.Write(append(r.result, '\n'))
		return err
	}
	fmt.Println(string(r.result))
	return nil
}
