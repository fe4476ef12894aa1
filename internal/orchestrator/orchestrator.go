package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/sunbay-developer/taplink-sdk-go/internal/connectionfsm"
	"github.com/sunbay-developer/taplink-sdk-go/internal/errs"
	"github.com/sunbay-developer/taplink-sdk-go/internal/protocol"
	"github.com/sunbay-developer/taplink-sdk-go/internal/registry"
)

// Callback is the programmatic-surface shape of SPEC §6:
// callback{onSuccess(result), onFailure(code, message), onProgress(status,
// message)}. Any field may be nil.
type Callback struct {
	OnSuccess  func(result json.RawMessage)
	OnFailure  func(code, message string)
	OnProgress func(status, message string)
}

func (c Callback) toCompletion() registry.Completion {
	return registry.Completion{
		OnSuccess: func(result any) {
			if c.OnSuccess == nil {
				return
			}
			raw, _ := result.(json.RawMessage)
			c.OnSuccess(raw)
		},
		OnFailure: func(err *errs.Error) {
			if c.OnFailure == nil {
				return
			}
			c.OnFailure(err.Code, err.Message)
		},
		OnProgress: func(status, message string) {
			if c.OnProgress != nil {
				c.OnProgress(status, message)
			}
		},
	}
}

// Orchestrator is the payment orchestrator (SPEC §4.6, C6). It validates
// requests before any transport I/O, then delegates send/registration to
// the connection state machine.
type Orchestrator struct {
	machine *connectionfsm.Machine
}

func New(machine *connectionfsm.Machine) *Orchestrator {
	return &Orchestrator{machine: machine}
}

func (o *Orchestrator) send(ctx context.Context, action protocol.Action, body any, cb Callback) (string, error) {
	biz, err := marshalBizData(body)
	if err != nil {
		err := errs.New(errs.CodeFormatError, err.Error())
		cb.toCompletion().Fail(err)
		return "", err
	}
	return o.machine.SendRequest(ctx, action, biz, protocol.KindFor(action), cb.toCompletion())
}

func failValidation(cb Callback, r ValidationResult) {
	cb.toCompletion().Fail(errs.New(errs.CodeMissingParam, r.Error()))
}

func (o *Orchestrator) Sale(ctx context.Context, req SaleRequest, cb Callback) (string, error) {
	if r := ValidateSale(req); !r.OK() {
		failValidation(cb, r)
		return "", r
	}
	return o.send(ctx, protocol.ActionSale, req, cb)
}

func (o *Orchestrator) Auth(ctx context.Context, req AuthRequest, cb Callback) (string, error) {
	if r := ValidateAuth(req); !r.OK() {
		failValidation(cb, r)
		return "", r
	}
	return o.send(ctx, protocol.ActionAuth, req, cb)
}

func (o *Orchestrator) ForcedAuth(ctx context.Context, req AuthRequest, cb Callback) (string, error) {
	if r := ValidateAuth(req); !r.OK() {
		failValidation(cb, r)
		return "", r
	}
	return o.send(ctx, protocol.ActionForcedAuth, req, cb)
}

func (o *Orchestrator) IncrementalAuth(ctx context.Context, req IncrementalAuthRequest, cb Callback) (string, error) {
	if r := ValidateIncrementalAuth(req); !r.OK() {
		failValidation(cb, r)
		return "", r
	}
	return o.send(ctx, protocol.ActionIncrementAuth, req, cb)
}

func (o *Orchestrator) PostAuth(ctx context.Context, req PostAuthRequest, cb Callback) (string, error) {
	if r := ValidatePostAuth(req); !r.OK() {
		failValidation(cb, r)
		return "", r
	}
	return o.send(ctx, protocol.ActionPostAuth, req, cb)
}

func (o *Orchestrator) Refund(ctx context.Context, req RefundRequest, cb Callback) (string, error) {
	if r := ValidateRefund(req); !r.OK() {
		failValidation(cb, r)
		return "", r
	}
	return o.send(ctx, protocol.ActionRefund, req, cb)
}

func (o *Orchestrator) Void(ctx context.Context, req VoidRequest, cb Callback) (string, error) {
	if r := ValidateVoid(req); !r.OK() {
		failValidation(cb, r)
		return "", r
	}
	return o.send(ctx, protocol.ActionVoid, req, cb)
}

func (o *Orchestrator) TipAdjust(ctx context.Context, req TipAdjustRequest, cb Callback) (string, error) {
	if r := ValidateTipAdjust(req); !r.OK() {
		failValidation(cb, r)
		return "", r
	}
	return o.send(ctx, protocol.ActionTipAdjust, req, cb)
}

func (o *Orchestrator) BatchClose(ctx context.Context, cb Callback) (string, error) {
	return o.send(ctx, protocol.ActionBatchClose, BatchCloseRequest{}, cb)
}

// Query looks a transaction up by id (SPEC §3/§6).
func (o *Orchestrator) Query(ctx context.Context, req QueryRequest, cb Callback) (string, error) {
	if r := ValidateQuery(req); !r.OK() {
		failValidation(cb, r)
		return "", r
	}
	return o.send(ctx, protocol.ActionQuery, req, cb)
}

// Abort references the original request's trace id as
// originalTransactionRequestId; it carries no amount (SPEC §4.6).
func (o *Orchestrator) Abort(ctx context.Context, originalTransactionRequestID string, cb Callback) (string, error) {
	req := AbortRequest{OriginalTransactionRequestID: originalTransactionRequestID}
	if r := ValidateAbort(req); !r.OK() {
		failValidation(cb, r)
		return "", r
	}
	return o.send(ctx, protocol.ActionAbort, req, cb)
}
