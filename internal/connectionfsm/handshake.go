package connectionfsm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sunbay-developer/taplink-sdk-go/internal/errs"
	"github.com/sunbay-developer/taplink-sdk-go/internal/protocol"
	"github.com/sunbay-developer/taplink-sdk-go/internal/registry"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
	"go.uber.org/zap"
)

type initResult struct {
	Code                  string `json:"code"`
	Message               string `json:"message"`
	DeviceID              string `json:"deviceId"`
	TaproVersion          string `json:"taproVersion"`
	TransactionResultCode string `json:"transactionResultCode"`
}

// runInitHandshake implements SPEC §4.5's INIT gate: CONNECTED is reached
// only after this completes with a success code.
func (m *Machine) runInitHandshake(ctx context.Context, tr transport.Transport) {
	traceID := m.traceGen.Next()
	done := make(chan struct{})
	var result initResult
	var handshakeErr *errs.Error

	ok := m.reg.Register(traceID, registry.Completion{
		OnSuccess: func(raw any) {
			if data, ok := raw.(json.RawMessage); ok {
				_ = json.Unmarshal(data, &result)
			}
			close(done)
		},
		OnFailure: func(e *errs.Error) {
			handshakeErr = e
			close(done)
		},
	}, protocol.OperationInit)
	if !ok {
		m.failAttempt(errs.New(errs.CodeServiceException, "duplicate trace id minting INIT request"))
		return
	}

	env := m.buildEnvelope(protocol.ActionInit, traceID, json.RawMessage(`{}`))
	data, err := protocol.Encode(env)
	if err != nil {
		m.reg.Cancel(traceID)
		m.failAttempt(errs.New(errs.CodeFormatError, err.Error()))
		return
	}

	if err := tr.Send(ctx, traceID, data, nil); err != nil {
		m.reg.Cancel(traceID)
		m.failInit(tr, err)
		return
	}

	<-done
	if handshakeErr != nil {
		m.failInit(tr, handshakeErr)
		return
	}
	if !errs.IsSuccess(result.Code) {
		m.failInit(tr, errs.New(result.Code, result.Message))
		return
	}

	m.mu.Lock()
	m.status = transport.StatusConnected
	m.deviceID = result.DeviceID
	m.lastKnownDeviceID = result.DeviceID
	m.taproVersion = result.TaproVersion
	cfg := m.cfg
	persist := m.persist
	targets := m.drainPendingLocked()
	m.mu.Unlock()

	if persist != nil {
		persist.OnConnected(ctx, cfg, result.DeviceID)
	}

	for _, l := range targets {
		l.notifyConnected(result.DeviceID, result.TaproVersion)
	}
}

// failInit implements the INIT-failure invariant (SPEC §4.5): the
// transport is force-disconnected so a socket can never be open while the
// business layer reports anything but CONNECTED, and cached device info
// is cleared since it has not been reconfirmed.
func (m *Machine) failInit(tr transport.Transport, err error) {
	_ = tr.Disconnect()
	m.mu.Lock()
	m.status = transport.StatusError
	m.deviceID = ""
	m.taproVersion = ""
	targets := m.drainPendingLocked()
	m.mu.Unlock()

	code, message := errorParts(err)
	for _, l := range targets {
		l.notifyError(code, message)
	}
}

// makeReceiver decodes inbound frames and routes them to the registry by
// trace id (SPEC §4.1/§4.2). Corrupt frames are logged and dropped; the
// affected outstanding call, if any, surfaces through its own timeout.
func (m *Machine) makeReceiver() transport.ReceiverFunc {
	return func(frame []byte) {
		env, err := protocol.Decode(frame)
		if err != nil {
			m.log.Warn("dropping unparseable frame", zap.Error(err))
			return
		}
		event := protocol.ClassifyEvent(env)

		if event.Kind == protocol.EventCompleted {
			m.reg.Deliver(env.TraceID, true, func(c registry.Completion) {
				deliverSuccess(c, env)
			})
			return
		}
		if event.Kind == protocol.EventCancel {
			m.reg.Deliver(env.TraceID, true, func(c registry.Completion) {
				message := env.EventMsg
				if message == "" {
					message = "transaction cancelled"
				}
				c.Fail(errs.New(errs.CodeRejected, message).WithTraceID(env.TraceID))
			})
			return
		}
		m.reg.DeliverProgress(env.TraceID, string(event.Kind), event.Message)
	}
}

func deliverSuccess(c registry.Completion, env protocol.Envelope) {
	c.Succeed(env.BizData)
}

func (m *Machine) buildEnvelope(action protocol.Action, traceID string, bizData json.RawMessage) protocol.Envelope {
	return protocol.Envelope{
		AppSign:   m.appSign,
		Version:   m.appVersion,
		TimeStamp: fmt.Sprintf("%d", time.Now().UnixMilli()),
		Action:    action,
		TraceID:   traceID,
		BizData:   bizData,
	}
}

// SendRequest mints a trace id, registers completion, and delegates to the
// active transport (SPEC §4.6, the transport-facing half of C6). It fails
// synchronously with E212 if there is no active, connected transport.
func (m *Machine) SendRequest(ctx context.Context, action protocol.Action, bizData json.RawMessage, kind protocol.OperationKind, completion registry.Completion) (string, error) {
	m.mu.Lock()
	tr := m.active
	connected := m.status == transport.StatusConnected
	mode := m.activeMode
	m.mu.Unlock()

	if !connected || tr == nil {
		err := errs.New(errs.CodeNotConnected, "device not connected")
		completion.Fail(err)
		return "", err
	}

	traceID := m.traceGen.Next()
	registered := false
	if mode == transport.ModeAppToApp {
		// App-to-app completion is host-driven, not time-boxed by a
		// transport round trip (SPEC §4.2/§9): the host delivers the
		// reply through Deliver whenever it arrives.
		registered = m.reg.Register(traceID, completion, kind, registry.NoExpiry)
	} else {
		registered = m.reg.Register(traceID, completion, kind)
	}
	if !registered {
		err := errs.New(errs.CodeServiceException, "duplicate trace id")
		completion.Fail(err)
		return "", err
	}

	env := m.buildEnvelope(action, traceID, bizData)
	data, err := protocol.Encode(env)
	if err != nil {
		m.reg.Cancel(traceID)
		sendErr := errs.New(errs.CodeFormatError, err.Error()).WithTraceID(traceID)
		completion.Fail(sendErr)
		return "", sendErr
	}

	if err := tr.Send(ctx, traceID, data, nil); err != nil {
		m.reg.TakeByTraceID(traceID)
		completion.Fail(errs.New(errs.CodeSendFailed, err.Error()).WithTraceID(traceID))
		return "", err
	}
	return traceID, nil
}
