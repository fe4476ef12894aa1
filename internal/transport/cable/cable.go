// Package cable implements the wired transport variant: USB (AOA or VSP
// mode) or RS232, framed as length-prefixed JSON envelopes over a byte
// stream (SPEC §3/§4.4, "CABLE").
//
// The framing is grounded in the teacher's mcp stdio transport
// (writeStdioMessage/readStdioMessage in dirstral/mcp/client.go), which
// already solves "deliver one JSON message at a time over a byte pipe"
// with a Content-Length preamble; the read loop here is the same shape
// generalized from a child process's stdout to a Device.
package cable

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/sunbay-developer/taplink-sdk-go/internal/errs"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
)

// Device is the minimal byte-stream contract a cable link must satisfy.
// usbdevice.go supplies the USB-backed implementation; tests use an
// in-memory pipe.
type Device interface {
	io.Reader
	io.Writer
	io.Closer
}

// Prober opens a Device for the requested protocol, probing for an
// attached Tapro terminal when protocol is AUTO (SPEC §3).
type Prober interface {
	Open(ctx context.Context, protocol transport.CableProtocol) (Device, error)
}

// Transport implements transport.Transport over a framed byte stream.
type Transport struct {
	mu       sync.Mutex
	status   transport.Status
	listener transport.StatusListener
	receiver transport.ReceiverFunc
	prober   Prober
	dev      Device
	writeMu  sync.Mutex
	cancel   context.CancelFunc
}

func New(prober Prober) *Transport {
	return &Transport{status: transport.StatusDisconnected, prober: prober}
}

func (t *Transport) Connect(ctx context.Context, cfg transport.Config, callback func(err error)) error {
	t.mu.Lock()
	if t.status == transport.StatusConnected || t.status == transport.StatusConnecting {
		t.mu.Unlock()
		err := errs.New(errs.CodeAlreadyConnected, "cable transport already connecting or connected")
		if callback != nil {
			go callback(err)
		}
		return err
	}
	t.setStatusLocked(transport.StatusConnecting)
	t.mu.Unlock()

	connCtx, cancel := context.WithCancel(ctx)
	go func() {
		dev, err := t.prober.Open(connCtx, cfg.CableProtocol)
		if err != nil {
			cancel()
			t.mu.Lock()
			t.setStatusLocked(transport.StatusError)
			t.mu.Unlock()
			if callback != nil {
				callback(errs.New(errs.CodeCableNotAttached, fmt.Sprintf("cable open failed: %v", err)))
			}
			return
		}
		t.mu.Lock()
		t.dev = dev
		t.cancel = cancel
		t.setStatusLocked(transport.StatusConnected)
		t.mu.Unlock()

		go t.readLoop(dev)
		if callback != nil {
			callback(nil)
		}
	}()
	return nil
}

func (t *Transport) Disconnect() error {
	t.mu.Lock()
	dev := t.dev
	cancel := t.cancel
	t.dev = nil
	t.cancel = nil
	t.setStatusLocked(transport.StatusDisconnected)
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if dev != nil {
		return dev.Close()
	}
	return nil
}

func (t *Transport) Send(ctx context.Context, traceID string, payload []byte, completion transport.SendCompletion) error {
	t.mu.Lock()
	dev := t.dev
	status := t.status
	t.mu.Unlock()

	if status != transport.StatusConnected || dev == nil {
		err := errs.New(errs.CodeNotConnected, "cable not connected").WithTraceID(traceID)
		if completion != nil {
			go completion(err)
		}
		return err
	}

	t.writeMu.Lock()
	err := writeFramedMessage(dev, payload)
	t.writeMu.Unlock()

	if err != nil {
		err2 := errs.New(errs.CodeSendFailed, fmt.Sprintf("cable write failed: %v", err)).WithTraceID(traceID)
		if completion != nil {
			go completion(err2)
		}
		return err2
	}
	if completion != nil {
		go completion(nil)
	}
	return nil
}

func (t *Transport) readLoop(dev Device) {
	r := bufio.NewReader(dev)
	for {
		frame, err := readFramedMessage(r)
		if err != nil {
			t.mu.Lock()
			stillOurs := t.dev == dev
			if stillOurs {
				t.dev = nil
				t.setStatusLocked(transport.StatusError)
			}
			t.mu.Unlock()
			return
		}
		t.mu.Lock()
		receiver := t.receiver
		t.mu.Unlock()
		if receiver != nil {
			receiver(frame)
		}
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

func writeFramedMessage(w io.Writer, payload []byte) error {
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFramedMessage(r *bufio.Reader) ([]byte, error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		parts := strings.SplitN(trimmed, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err == nil {
				contentLength = n
			}
		}
	}
	if contentLength < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
