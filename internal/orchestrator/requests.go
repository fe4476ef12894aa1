// Package orchestrator implements the payment orchestrator (SPEC §4.6, C6):
// per-action request validation, trace-id minting and completion
// registration, and delegation to the active transport via
// connectionfsm.Machine. The orchestrator itself never auto-retries — it
// only classifies failures through internal/errs's retry predicates.
package orchestrator

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Amount mirrors the arbitrary-precision monetary figure of SPEC §3.
// Decimal values travel as strings on the wire (never a lossy float64) and
// are parsed with shopspring/decimal at validation time.
type Amount struct {
	Order      string `json:"order" validate:"required"`
	Tip        string `json:"tip,omitempty"`
	Tax        string `json:"tax,omitempty"`
	Surcharge  string `json:"surcharge,omitempty"`
	Cashback   string `json:"cashback,omitempty"`
	ServiceFee string `json:"serviceFee,omitempty"`
	Currency   string `json:"currency" validate:"required,len=3,alpha"`
}

// OrderDecimal parses Order as an arbitrary-precision decimal.
func (a Amount) OrderDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(a.Order)
}

// TipDecimal parses Tip, defaulting to zero when unset.
func (a Amount) TipDecimal() (decimal.Decimal, error) {
	if a.Tip == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(a.Tip)
}

// SaleRequest is the Sale variant of SPEC §3's transaction-request union.
type SaleRequest struct {
	ReferenceOrderID string `json:"referenceOrderId" validate:"required,min=6,max=32"`
	Amount           Amount `json:"amount" validate:"required"`
	PaymentMethod    string `json:"paymentMethod,omitempty"`
	Staff            string `json:"staff,omitempty"`
	Description      string `json:"description,omitempty" validate:"omitempty,max=128"`
	Attach           string `json:"attach,omitempty"`
	NotifyURL        string `json:"notifyUrl,omitempty" validate:"omitempty,url"`
	RequestTimeoutMs int    `json:"requestTimeout,omitempty"`
}

// AuthRequest covers both Auth and ForcedAuth (identical shape per SPEC §3).
type AuthRequest struct {
	ReferenceOrderID string `json:"referenceOrderId" validate:"required,min=6,max=32"`
	AuthAmount       Amount `json:"authAmount" validate:"required"`
}

// IncrementalAuthRequest adds to an existing authorization.
type IncrementalAuthRequest struct {
	OriginalRef OriginalRef `json:"originalRef" validate:"required"`
	AddAmount   Amount      `json:"addAmount" validate:"required"`
}

// PostAuthRequest captures a previously authorized amount.
type PostAuthRequest struct {
	OriginalRef   OriginalRef `json:"originalRef" validate:"required"`
	CaptureAmount Amount      `json:"captureAmount" validate:"required"`
}

// RefundRequest is either referenced (OriginalRef) or non-referenced
// (ReferenceOrderID) per SPEC §3/§6 — exactly one, never both.
type RefundRequest struct {
	OriginalRef      *OriginalRef `json:"originalRef,omitempty"`
	ReferenceOrderID string       `json:"referenceOrderId,omitempty" validate:"omitempty,min=6,max=32"`
	Amount           Amount       `json:"amount" validate:"required"`
}

// VoidRequest cancels a previously completed transaction.
type VoidRequest struct {
	OriginalRef OriginalRef `json:"originalRef" validate:"required"`
}

// TipAdjustRequest adjusts the tip of a completed sale; tip may be zero.
type TipAdjustRequest struct {
	OriginalRef OriginalRef `json:"originalRef" validate:"required"`
	Tip         string      `json:"tip" validate:"required"`
}

// AbortRequest references the original request's trace id, never an amount
// (SPEC §4.6).
type AbortRequest struct {
	OriginalTransactionRequestID string `json:"originalTransactionRequestId" validate:"required"`
}

// QueryRequest looks a transaction up by exactly one of the two ids.
type QueryRequest struct {
	ByTransactionID        string `json:"byTransactionId,omitempty"`
	ByTransactionRequestID string `json:"byTransactionRequestId,omitempty"`
}

// BatchCloseRequest carries no fields.
type BatchCloseRequest struct{}

// OriginalRef is one of originalTransactionId or originalTransactionRequestId
// (SPEC §3); exactly one must be present when required.
type OriginalRef struct {
	OriginalTransactionID        string `json:"originalTransactionId,omitempty"`
	OriginalTransactionRequestID string `json:"originalTransactionRequestId,omitempty"`
}

func (r OriginalRef) isSet() bool {
	return r.OriginalTransactionID != "" || r.OriginalTransactionRequestID != ""
}

func (r OriginalRef) bothSet() bool {
	return r.OriginalTransactionID != "" && r.OriginalTransactionRequestID != ""
}

// marshalBizData encodes any request payload to the opaque bizData subtree
// the codec passes through untouched (SPEC §4.1, DESIGN NOTES).
func marshalBizData(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}
