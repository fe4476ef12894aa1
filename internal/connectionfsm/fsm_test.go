package connectionfsm

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sunbay-developer/taplink-sdk-go/internal/errs"
	"github.com/sunbay-developer/taplink-sdk-go/internal/protocol"
	"github.com/sunbay-developer/taplink-sdk-go/internal/registry"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
)

// fakeTransport is a deterministic Transport double: Connect succeeds
// immediately and the test drives the INIT response by pushing a frame
// through the registered receiver.
type fakeTransport struct {
	mu       sync.Mutex
	status   transport.Status
	listener transport.StatusListener
	receiver transport.ReceiverFunc
	dialErr  error
	sent     [][]byte
}

func (f *fakeTransport) Connect(ctx context.Context, cfg transport.Config, callback func(err error)) error {
	if f.dialErr != nil {
		if callback != nil {
			go callback(f.dialErr)
		}
		return f.dialErr
	}
	f.mu.Lock()
	f.status = transport.StatusConnected
	f.mu.Unlock()
	if callback != nil {
		go callback(nil)
	}
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	f.status = transport.StatusDisconnected
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Send(ctx context.Context, traceID string, payload []byte, completion transport.SendCompletion) error {
	f.mu.Lock()
	f.sent = append(f.sent, payload)
	f.mu.Unlock()
	if completion != nil {
		go completion(nil)
	}
	return nil
}

func (f *fakeTransport) RegisterReceiver(fn transport.ReceiverFunc) {
	f.mu.Lock()
	f.receiver = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Status() transport.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeTransport) SetStatusListener(fn transport.StatusListener) {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
}

// respondInit extracts the trace id of the last sent envelope and injects
// a successful INIT response through the registered receiver.
func (f *fakeTransport) respondInit(deviceID, version string) {
	f.mu.Lock()
	last := f.sent[len(f.sent)-1]
	receiver := f.receiver
	f.mu.Unlock()

	var env protocol.Envelope
	_ = json.Unmarshal(last, &env)
	biz, _ := json.Marshal(map[string]string{"code": "100", "deviceId": deviceID, "taproVersion": version})
	resp := protocol.Envelope{
		AppSign: "a", Version: "1", TimeStamp: "1", Action: protocol.ActionInit,
		TraceID: env.TraceID, BizData: biz, EventCode: "4003",
	}
	data, _ := protocol.Encode(resp)
	receiver(data)
}

func newTestMachine() (*Machine, *fakeTransport) {
	reg := registry.New(nil)
	tracer := protocol.NewTraceGenerator()
	m := New(reg, tracer, "app", "1.0", nil)
	tr := &fakeTransport{}
	m.RegisterTransport(transport.ModeLAN, tr)
	return m, tr
}

func TestHappyConnect(t *testing.T) {
	m, tr := newTestMachine()
	connected := make(chan [2]string, 1)
	waiting := make(chan struct{}, 1)
	listener := &Listener{
		OnConnected:      func(deviceID, version string) { connected <- [2]string{deviceID, version} },
		OnWaitingConnect: func() { waiting <- struct{}{} },
	}

	m.Connect(context.Background(), transport.Config{Mode: transport.ModeLAN, Host: "192.168.1.10"}, listener)

	select {
	case <-waiting:
	case <-time.After(time.Second):
		t.Fatal("onWaitingConnect was not called")
	}

	time.Sleep(20 * time.Millisecond)
	tr.respondInit("D-7", "2.4.1")

	select {
	case got := <-connected:
		if got[0] != "D-7" || got[1] != "2.4.1" {
			t.Fatalf("got %+v, want D-7/2.4.1", got)
		}
	case <-time.After(time.Second):
		t.Fatal("onConnected was not called")
	}
	if !m.IsConnected() {
		t.Fatal("expected IsConnected() == true after successful INIT")
	}
}

func TestDuplicateConnectQueuesSecondListener(t *testing.T) {
	m, tr := newTestMachine()
	var calls int
	var mu sync.Mutex
	record := func() func(string, string) {
		return func(string, string) {
			mu.Lock()
			calls++
			mu.Unlock()
		}
	}
	l1 := &Listener{OnConnected: record()}
	l2 := &Listener{OnConnected: record()}

	cfg := transport.Config{Mode: transport.ModeLAN, Host: "192.168.1.10"}
	m.Connect(context.Background(), cfg, l1)
	time.Sleep(5 * time.Millisecond)
	m.Connect(context.Background(), cfg, l2)

	time.Sleep(20 * time.Millisecond)
	tr.respondInit("D-7", "2.4.1")

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n == 2 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("expected both listeners notified exactly once, got %d calls", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestInitFailureForcesDisconnectAndReportsError(t *testing.T) {
	m, tr := newTestMachine()
	errCh := make(chan string, 1)
	listener := &Listener{OnError: func(code, message string) { errCh <- code }}

	m.Connect(context.Background(), transport.Config{Mode: transport.ModeLAN, Host: "10.0.0.5"}, listener)
	time.Sleep(20 * time.Millisecond)

	tr.mu.Lock()
	last := tr.sent[len(tr.sent)-1]
	tr.mu.Unlock()
	var env protocol.Envelope
	_ = json.Unmarshal(last, &env)
	biz, _ := json.Marshal(map[string]string{"code": errs.CodeRejected, "message": "bad terminal state"})
	resp := protocol.Envelope{
		AppSign: "a", Version: "1", TimeStamp: "1", Action: protocol.ActionInit,
		TraceID: env.TraceID, BizData: biz, EventCode: "4003",
	}
	data, _ := protocol.Encode(resp)
	tr.receiver(data)

	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("onError was not called after INIT failure")
	}
	if m.IsConnected() {
		t.Fatal("expected IsConnected() == false after INIT failure")
	}
	if tr.Status() != transport.StatusDisconnected {
		t.Fatalf("expected transport force-disconnected after INIT failure, got %s", tr.Status())
	}
}

func TestSendRequestFailsWhenDisconnected(t *testing.T) {
	m, _ := newTestMachine()
	var gotErr *errs.Error
	_, err := m.SendRequest(context.Background(), protocol.ActionSale, json.RawMessage(`{}`), protocol.OperationTransaction, registry.Completion{
		OnFailure: func(e *errs.Error) { gotErr = e },
	})
	if err == nil {
		t.Fatal("expected error when sending while disconnected")
	}
	if gotErr == nil || gotErr.Code != errs.CodeNotConnected {
		t.Fatalf("expected CodeNotConnected completion failure, got %+v", gotErr)
	}
}
