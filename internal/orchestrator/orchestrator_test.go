package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbay-developer/taplink-sdk-go/internal/connectionfsm"
	"github.com/sunbay-developer/taplink-sdk-go/internal/errs"
	"github.com/sunbay-developer/taplink-sdk-go/internal/protocol"
	"github.com/sunbay-developer/taplink-sdk-go/internal/registry"
)

func newTestOrchestrator() *Orchestrator {
	reg := registry.New(nil)
	tracer := protocol.NewTraceGenerator()
	machine := connectionfsm.New(reg, tracer, "app", "1.0", nil)
	return New(machine)
}

func TestSaleFailsSynchronouslyWhenDisconnected(t *testing.T) {
	o := newTestOrchestrator()
	var code string
	_, err := o.Sale(context.Background(), SaleRequest{
		ReferenceOrderID: "ORDER-001",
		Amount:           Amount{Order: "8.99", Currency: "USD"},
	}, Callback{OnFailure: func(c, _ string) { code = c }})

	require.Error(t, err, "expected error when disconnected")
	assert.Equal(t, errs.CodeNotConnected, code)
}

func TestSaleFailsValidationBeforeTransportIO(t *testing.T) {
	o := newTestOrchestrator()
	var called bool
	_, err := o.Sale(context.Background(), SaleRequest{
		ReferenceOrderID: "ORDER-001",
		Amount:           Amount{Order: "0", Currency: "US"},
	}, Callback{OnFailure: func(string, string) { called = true }})

	require.Error(t, err, "expected synchronous validation failure")
	assert.True(t, called)
}

func TestAbortCarriesNoAmount(t *testing.T) {
	o := newTestOrchestrator()
	_, err := o.Abort(context.Background(), "REQ-123", Callback{})
	require.Error(t, err, "expected error when disconnected, confirming Abort reached the send path")

	biz, err := marshalBizData(AbortRequest{OriginalTransactionRequestID: "REQ-123"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"originalTransactionRequestId":"REQ-123"}`, string(biz), "abort bizData must carry only the original request id, no amount")
}
