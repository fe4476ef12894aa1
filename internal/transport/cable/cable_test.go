package cable

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
)

// pipeDevice adapts an io.Pipe pair into a Device for tests.
type pipeDevice struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (d *pipeDevice) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d *pipeDevice) Write(p []byte) (int, error) { return d.w.Write(p) }
func (d *pipeDevice) Close() error {
	_ = d.r.Close()
	return d.w.Close()
}

type fakeProber struct {
	dev Device
	err error
}

func (p *fakeProber) Open(ctx context.Context, _ transport.CableProtocol) (Device, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.dev, nil
}

func TestConnectSendReceiveRoundTrip(t *testing.T) {
	hostR, sdkW := io.Pipe()
	sdkR, hostW := io.Pipe()
	dev := &pipeDevice{r: sdkR, w: sdkW}

	tr := New(&fakeProber{dev: dev})
	connected := make(chan error, 1)
	if err := tr.Connect(context.Background(), transport.Config{Mode: transport.ModeCable, CableProtocol: transport.CableProtocolUSBAOA}, func(err error) {
		connected <- err
	}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := <-connected; err != nil {
		t.Fatalf("connect callback error: %v", err)
	}
	if tr.Status() != transport.StatusConnected {
		t.Fatalf("expected CONNECTED, got %s", tr.Status())
	}

	go func() {
		buf := make([]byte, 256)
		n, _ := hostR.Read(buf)
		_ = n
		_, _ = writeFramedMessageWriter(hostW, []byte("reply"))
	}()

	received := make(chan []byte, 1)
	tr.RegisterReceiver(func(frame []byte) { received <- frame })

	if err := tr.Send(context.Background(), "t-1", []byte("hello"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case frame := <-received:
		if string(frame) != "reply" {
			t.Fatalf("got %q, want reply", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for received frame")
	}

	if err := tr.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if tr.Status() != transport.StatusDisconnected {
		t.Fatalf("expected DISCONNECTED after Disconnect, got %s", tr.Status())
	}
}

func TestConnectProbeFailureSetsError(t *testing.T) {
	tr := New(&fakeProber{err: io.ErrClosedPipe})
	done := make(chan error, 1)
	_ = tr.Connect(context.Background(), transport.Config{Mode: transport.ModeCable}, func(err error) { done <- err })
	if err := <-done; err == nil {
		t.Fatal("expected connect callback to report probe failure")
	}
	if tr.Status() != transport.StatusError {
		t.Fatalf("expected ERROR status, got %s", tr.Status())
	}
}

func TestSendBeforeConnectFails(t *testing.T) {
	tr := New(&fakeProber{})
	if err := tr.Send(context.Background(), "t-1", []byte("x"), nil); err == nil {
		t.Fatal("expected send before connect to fail")
	}
}

func writeFramedMessageWriter(w io.Writer, payload []byte) (int, error) {
	if err := writeFramedMessage(w, payload); err != nil {
		return 0, err
	}
	return len(payload), nil
}
