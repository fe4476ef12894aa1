package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaleValidation(t *testing.T) {
	cases := []struct {
		name string
		req  SaleRequest
		ok   bool
	}{
		{
			name: "zero amount rejected",
			req: SaleRequest{
				ReferenceOrderID: "ORDER-001",
				Amount:           Amount{Order: "0", Currency: "USD"},
			},
			ok: false,
		},
		{
			name: "two-letter currency rejected",
			req: SaleRequest{
				ReferenceOrderID: "ORDER-001",
				Amount:           Amount{Order: "1.00", Currency: "US"},
			},
			ok: false,
		},
		{
			name: "valid minimal sale accepted",
			req: SaleRequest{
				ReferenceOrderID: "ORDER-001",
				Amount:           Amount{Order: "0.01", Currency: "USD"},
			},
			ok: true,
		},
		{
			name: "reference order id too short",
			req: SaleRequest{
				ReferenceOrderID: "AB",
				Amount:           Amount{Order: "1.00", Currency: "USD"},
			},
			ok: false,
		},
		{
			name: "description over 128 chars rejected",
			req: SaleRequest{
				ReferenceOrderID: "ORDER-001",
				Amount:           Amount{Order: "1.00", Currency: "USD"},
				Description:      string(make([]byte, 129)),
			},
			ok: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, ValidateSale(tc.req).OK())
		})
	}
}

func TestRefundValidationXOR(t *testing.T) {
	amount := Amount{Order: "1.00", Currency: "USD"}

	neither := RefundRequest{Amount: amount}
	assert.False(t, ValidateRefund(neither).OK(), "refund with neither originalRef nor referenceOrderId should be rejected")

	both := RefundRequest{
		OriginalRef:      &OriginalRef{OriginalTransactionID: "T-1"},
		ReferenceOrderID: "ORDER-001",
		Amount:           amount,
	}
	assert.False(t, ValidateRefund(both).OK(), "refund with both originalRef and referenceOrderId should be rejected")

	referenced := RefundRequest{
		OriginalRef: &OriginalRef{OriginalTransactionID: "T-1"},
		Amount:      amount,
	}
	assert.True(t, ValidateRefund(referenced).OK(), "referenced refund should be accepted")

	nonReferenced := RefundRequest{ReferenceOrderID: "ORDER-001", Amount: amount}
	assert.True(t, ValidateRefund(nonReferenced).OK(), "non-referenced refund should be accepted")
}

func TestTipAdjustAllowsZeroTip(t *testing.T) {
	req := TipAdjustRequest{
		OriginalRef: OriginalRef{OriginalTransactionID: "T-1"},
		Tip:         "0",
	}
	assert.True(t, ValidateTipAdjust(req).OK(), "zero tip must be accepted")
}

func TestQueryRequiresExactlyOneID(t *testing.T) {
	assert.False(t, ValidateQuery(QueryRequest{}).OK(), "query with neither id should be rejected")
	assert.False(t, ValidateQuery(QueryRequest{ByTransactionID: "T-1", ByTransactionRequestID: "R-1"}).OK(), "query with both ids should be rejected")
	assert.True(t, ValidateQuery(QueryRequest{ByTransactionID: "T-1"}).OK(), "query with exactly one id should be accepted")
}
