// Package apptoapp implements the in-process transport variant: the SDK and
// the Tapro terminal app run on the same device and exchange frames through
// a host-supplied dispatch function rather than a socket or serial port
// (SPEC §3/§4.4, "APP_TO_APP").
//
// The shape is grounded in the teacher's mcp.Client stdio mode: a
// startStdio/callStdio pair that hands frames to an externally owned
// process over pipes, guarded by a couple of narrow mutexes instead of one
// lock held across I/O. Here the "process" is the host app itself, and the
// pipes become a single injected Dispatcher func plus a Deliver method the
// host calls back into.
package apptoapp

import (
	"context"
	"fmt"
	"sync"

	"github.com/sunbay-developer/taplink-sdk-go/internal/errs"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
)

// Dispatcher hands a frame to the host app's bridge to the Tapro app. The
// host is expected to deliver Tapro's reply asynchronously through Deliver.
type Dispatcher func(ctx context.Context, frame []byte) error

// Transport implements transport.Transport over a host-injected bridge.
type Transport struct {
	mu       sync.Mutex
	status   transport.Status
	listener transport.StatusListener
	receiver transport.ReceiverFunc
	dispatch Dispatcher
}

func New(dispatch Dispatcher) *Transport {
	return &Transport{status: transport.StatusDisconnected, dispatch: dispatch}
}

// Connect has no handshake of its own: app-to-app connectivity is the host
// process being alive, so it transitions straight to CONNECTED and leaves
// the INIT handshake (SPEC §4.5) to the connection state machine above it.
func (t *Transport) Connect(ctx context.Context, _ transport.Config, callback func(err error)) error {
	t.mu.Lock()
	if t.dispatch == nil {
		t.mu.Unlock()
		err := errs.New(errs.CodeHostAppMissing, "no host app bridge registered")
		if callback != nil {
			go callback(err)
		}
		return err
	}
	t.setStatusLocked(transport.StatusConnected)
	t.mu.Unlock()
	if callback != nil {
		go callback(nil)
	}
	return nil
}

func (t *Transport) Disconnect() error {
	t.mu.Lock()
	t.setStatusLocked(transport.StatusDisconnected)
	t.mu.Unlock()
	return nil
}

func (t *Transport) Send(ctx context.Context, traceID string, payload []byte, completion transport.SendCompletion) error {
	t.mu.Lock()
	dispatch := t.dispatch
	status := t.status
	t.mu.Unlock()

	if status != transport.StatusConnected {
		err := errs.New(errs.CodeNotConnected, "app-to-app bridge not connected").WithTraceID(traceID)
		if completion != nil {
			go completion(err)
		}
		return err
	}

	err := dispatch(ctx, payload)
	if err != nil {
		err = errs.New(errs.CodeHostAppUnreach, fmt.Sprintf("host bridge dispatch failed: %v", err)).WithTraceID(traceID)
	}
	if completion != nil {
		go completion(err)
	}
	return err
}

// Deliver is called by the host app whenever a frame arrives from the Tapro
// app. It is the app-to-app analogue of callStdio's response read.
func (t *Transport) Deliver(frame []byte) {
	t.mu.Lock()
	receiver := t.receiver
	t.mu.Unlock()
	if receiver != nil {
		receiver(frame)
	}
}

func (t *Transport) RegisterReceiver(fn transport.ReceiverFunc) {
	t.mu.Lock()
	t.receiver = fn
	t.mu.Unlock()
}

func (t *Transport) Status() transport.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Transport) SetStatusListener(fn transport.StatusListener) {
	t.mu.Lock()
	t.listener = fn
	t.mu.Unlock()
}

func (t *Transport) setStatusLocked(s transport.Status) {
	t.status = s
	listener := t.listener
	if listener != nil {
		go listener(s)
	}
}
