package apptoapp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
)

func TestConnectWithoutDispatcherFails(t *testing.T) {
	tr := New(nil)
	err := tr.Connect(context.Background(), transport.Config{Mode: transport.ModeAppToApp}, nil)
	if err == nil {
		t.Fatal("expected connect to fail with no dispatcher registered")
	}
	if tr.Status() != transport.StatusDisconnected {
		t.Fatalf("status should remain DISCONNECTED, got %s", tr.Status())
	}
}

func TestConnectThenSendRoundTrip(t *testing.T) {
	var sent []byte
	tr := New(func(ctx context.Context, frame []byte) error {
		sent = frame
		return nil
	})

	var statuses []transport.Status
	var mu sync.Mutex
	tr.SetStatusListener(func(s transport.Status) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	})

	done := make(chan error, 1)
	if err := tr.Connect(context.Background(), transport.Config{Mode: transport.ModeAppToApp}, func(err error) { done <- err }); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("connect callback reported error: %v", err)
	}
	if tr.Status() != transport.StatusConnected {
		t.Fatalf("expected CONNECTED, got %s", tr.Status())
	}

	if err := tr.Send(context.Background(), "t-1", []byte("hello"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(sent) != "hello" {
		t.Fatalf("dispatcher did not receive frame, got %q", sent)
	}

	var received []byte
	recvDone := make(chan struct{})
	tr.RegisterReceiver(func(frame []byte) {
		received = frame
		close(recvDone)
	})
	tr.Deliver([]byte("reply"))

	select {
	case <-recvDone:
	case <-time.After(time.Second):
		t.Fatal("receiver was not invoked")
	}
	if string(received) != "reply" {
		t.Fatalf("got %q, want reply", received)
	}
}

func TestSendWhileDisconnectedFails(t *testing.T) {
	tr := New(func(context.Context, []byte) error { return nil })
	if err := tr.Send(context.Background(), "t-1", []byte("x"), nil); err == nil {
		t.Fatal("expected send to fail before connect")
	}
}
