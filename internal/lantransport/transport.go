package lantransport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sunbay-developer/taplink-sdk-go/internal/errs"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
	"go.uber.org/zap"
)

// discoveryBackoff is the fixed exponential schedule from SPEC §4.4.1: one
// direct dial plus at most 3 discovery-fallback retries (hard bound 4).
var discoveryBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Transport implements transport.Transport over a WebSocket connection to
// a Tapro terminal discovered or dialed directly on the LAN (SPEC §4.4,
// C4). operationMutex serializes connect attempts (tryLock, reject don't
// queue); statusMutex guards the status field alone (SPEC §5).
type Transport struct {
	log   *zap.Logger
	hooks Hooks

	busy               atomic.Bool
	currentOperationID atomic.Uint64

	statusMu sync.Mutex
	status   transport.Status
	listener transport.StatusListener

	connMu sync.Mutex
	conn   *websocket.Conn
	writeMu sync.Mutex

	receiverMu sync.Mutex
	receiver   transport.ReceiverFunc

	manualDisconnect atomic.Bool

	monitor *Monitor
	hb      *heartbeatSupervisor

	dialer *websocket.Dialer
}

func New(hooks Hooks, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Transport{
		log:    log,
		hooks:  hooks,
		status: transport.StatusDisconnected,
		dialer: websocket.DefaultDialer,
	}
	t.monitor = NewMonitor(discoveryQueryTimeout*2, hooks)
	return t
}

func (t *Transport) Connect(ctx context.Context, cfg transport.Config, callback func(err error)) error {
	if !t.busy.CompareAndSwap(false, true) {
		err := errs.New(errs.CodeLANNoServer, "cannot connect to server: another operation in progress")
		if callback != nil {
			go callback(err)
		}
		return err
	}

	opID := t.currentOperationID.Add(1)
	t.manualDisconnect.Store(false)
	t.setStatus(transport.StatusWaitConnecting)
	t.setStatus(transport.StatusConnecting)

	go func() {
		defer t.busy.Store(false)
		t.performConnect(ctx, cfg, opID, callback)
	}()
	return nil
}

func (t *Transport) superseded(opID uint64) bool {
	return t.currentOperationID.Load() != opID
}

func (t *Transport) performConnect(ctx context.Context, cfg transport.Config, opID uint64, callback func(err error)) {
	uri := fmt.Sprintf("%s://%s:%d", cfg.Scheme(), cfg.Host, cfg.EffectivePort())

	if _, err := url.ParseRequestURI(uri); err != nil || cfg.Host == "" {
		t.fail(callback, errs.New(errs.CodeFormatError, "malformed LAN host/URI: "+uri))
		return
	}

	conn, _, err := t.dialer.DialContext(ctx, uri, nil)
	if err == nil {
		t.onDialSuccess(conn, cfg, callback)
		return
	}
	t.log.Warn("direct dial failed, falling back to discovery", zap.String("uri", uri), zap.Error(err))

	for attempt := 0; attempt < len(discoveryBackoff); attempt++ {
		if t.superseded(opID) {
			return
		}
		select {
		case <-time.After(discoveryBackoff[attempt]):
		case <-ctx.Done():
			t.fail(callback, errs.New(errs.CodeLANNoServer, "connect cancelled"))
			return
		}
		if t.superseded(opID) {
			return
		}

		services, discErr := discoverOnce(ctx)
		if discErr != nil {
			t.log.Warn("discovery query failed", zap.Error(discErr))
			continue
		}
		if len(services) == 0 {
			continue
		}

		for _, svc := range services {
			if t.superseded(opID) {
				return
			}
			accept := true
			if t.hooks.OnAddressChange != nil {
				accept = t.hooks.OnAddressChange(svc.Name, svc.Host, svc.Port, cfg.Host, cfg.EffectivePort())
			}
			if !accept {
				continue
			}
			candidateURI := fmt.Sprintf("%s://%s:%d", cfg.Scheme(), svc.Host, svc.Port)
			conn, _, dialErr := t.dialer.DialContext(ctx, candidateURI, nil)
			if dialErr != nil {
				continue
			}
			cfg.Host = svc.Host
			cfg.Port = svc.Port
			t.onDialSuccess(conn, cfg, callback)
			return
		}
	}

	t.setStatus(transport.StatusError)
	t.fail(callback, errs.New(errs.CodeLANDiscoveryFail, "no Tapro service discovered"))
}

func (t *Transport) fail(callback func(err error), err error) {
	if callback != nil {
		callback(err)
	}
}

func (t *Transport) onDialSuccess(conn *websocket.Conn, cfg transport.Config, callback func(err error)) {
	t.connMu.Lock()
	t.conn = conn
	t.connMu.Unlock()

	t.setStatus(transport.StatusConnected)

	t.hb = newHeartbeatSupervisor(heartbeatConfig{Interval: DefaultHeartbeatInterval, Timeout: DefaultHeartbeatTimeout}, t.hooks, t.sendHeartbeat, t.onConnectionDead)
	t.hb.Start()
	t.monitor.Start(context.Background())

	go t.readLoop(conn)

	if callback != nil {
		callback(nil)
	}
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.handleReadError(conn)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if string(data) == heartbeatAck {
			if t.hb != nil {
				t.hb.HandleAck()
			}
			continue
		}
		t.receiverMu.Lock()
		receiver := t.receiver
		t.receiverMu.Unlock()
		if receiver != nil {
			receiver(data)
		}
	}
}

func (t *Transport) handleReadError(conn *websocket.Conn) {
	t.connMu.Lock()
	stillCurrent := t.conn == conn
	if stillCurrent {
		t.conn = nil
	}
	t.connMu.Unlock()
	if !stillCurrent {
		return
	}
	if t.hb != nil {
		t.hb.Stop()
	}
	t.setStatus(transport.StatusError)
}

func (t *Transport) sendHeartbeat() error {
	t.connMu.Lock()
	conn := t.conn
	t.connMu.Unlock()
	if conn == nil {
		return errs.New(errs.CodeNotConnected, "no active LAN connection")
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, []byte(heartbeatFrame))
}

// onConnectionDead implements SPEC §4.4.3's two-consecutive-failure rule:
// the heartbeat stops, the socket is force-closed, but continuous service
// monitoring keeps running so the device can be rediscovered later.
func (t *Transport) onConnectionDead() {
	t.connMu.Lock()
	conn := t.conn
	t.conn = nil
	t.connMu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	t.setStatus(transport.StatusError)
	t.log.Warn("LAN connection declared dead after repeated heartbeat failures")
}

func (t *Transport) Disconnect() error {
	t.manualDisconnect.Store(true)
	t.currentOperationID.Add(1) // supersede any in-flight attempt

	if t.hb != nil {
		t.hb.Stop()
	}
	t.monitor.Stop()

	t.connMu.Lock()
	conn := t.conn
	t.conn = nil
	t.connMu.Unlock()

	t.setStatus(transport.StatusDisconnected)
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsManualDisconnect reports whether the most recent disconnect was
// caller-initiated, used by connectionfsm to choose between manual,
// passive, and heartbeat-induced disconnect handling (SPEC §4.5).
func (t *Transport) IsManualDisconnect() bool {
	return t.manualDisconnect.Load()
}

func (t *Transport) Send(ctx context.Context, traceID string, payload []byte, completion transport.SendCompletion) error {
	t.connMu.Lock()
	conn := t.conn
	t.connMu.Unlock()
	if conn == nil {
		err := errs.New(errs.CodeNotConnected, "LAN transport not connected").WithTraceID(traceID)
		if completion != nil {
			go completion(err)
		}
		return err
	}

	t.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, payload)
	t.writeMu.Unlock()

	if err != nil {
		sendErr := errs.New(errs.CodeSendFailed, fmt.Sprintf("LAN send failed: %v", err)).WithTraceID(traceID)
		if completion != nil {
			go completion(sendErr)
		}
		return sendErr
	}
	if completion != nil {
		go completion(nil)
	}
	return nil
}

func (t *Transport) RegisterReceiver(fn transport.ReceiverFunc) {
	t.receiverMu.Lock()
	t.receiver = fn
	t.receiverMu.Unlock()
}

func (t *Transport) Status() transport.Status {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	return t.status
}

func (t *Transport) SetStatusListener(fn transport.StatusListener) {
	t.statusMu.Lock()
	t.listener = fn
	t.statusMu.Unlock()
}

func (t *Transport) setStatus(s transport.Status) {
	t.statusMu.Lock()
	t.status = s
	listener := t.listener
	t.statusMu.Unlock()
	if listener != nil {
		go listener(s)
	}
}
