package connectionfsm

import (
	"context"
	"sync"
	"time"

	"github.com/sunbay-developer/taplink-sdk-go/internal/errs"
	"github.com/sunbay-developer/taplink-sdk-go/internal/protocol"
	"github.com/sunbay-developer/taplink-sdk-go/internal/registry"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
	"go.uber.org/zap"
)

// Machine is the single source of truth for connection status (SPEC
// §4.5). It owns transport selection, the pending-listener queue for
// connect() calls that arrive while an attempt is already in flight, and
// the INIT handshake that alone promotes a dialed socket to CONNECTED.
type Machine struct {
	mu sync.Mutex

	status             transport.Status
	cfg                transport.Config
	hasCfg             bool
	deviceID           string
	taproVersion       string
	lastKnownDeviceID  string
	lastAcceptedChange time.Time
	manualDisconnect   bool

	globalListener *Listener
	pending        []*Listener

	transports map[transport.Mode]transport.Transport
	active     transport.Transport
	activeMode transport.Mode

	reg        *registry.Registry
	traceGen   *protocol.TraceGenerator
	appSign    string
	appVersion string
	log        *zap.Logger
	persist    PersistHooks
}

// PersistHooks is the narrow seam connectionfsm calls into for reconnect
// persistence (SPEC §4.8/C8) without importing internal/reconnectpolicy —
// that package already imports connectionfsm for startup auto-connect, so
// the dependency can only run one way. *reconnectpolicy.Policy satisfies
// this interface structurally; the façade wires it with SetPersistHooks.
type PersistHooks interface {
	OnConnected(ctx context.Context, cfg transport.Config, deviceID string)
	OnManualDisconnect(ctx context.Context)
	OnServiceAdvertisement(ctx context.Context, deviceID, serviceName, host string, port int)
}

// SetPersistHooks wires the reconnect-policy persistence seam. Nil is a
// valid argument that disables persistence entirely.
func (m *Machine) SetPersistHooks(h PersistHooks) {
	m.mu.Lock()
	m.persist = h
	m.mu.Unlock()
}

func New(reg *registry.Registry, traceGen *protocol.TraceGenerator, appSign, appVersion string, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		status:     transport.StatusDisconnected,
		transports: make(map[transport.Mode]transport.Transport),
		reg:        reg,
		traceGen:   traceGen,
		appSign:    appSign,
		appVersion: appVersion,
		log:        log,
	}
}

func (m *Machine) RegisterTransport(mode transport.Mode, tr transport.Transport) {
	m.mu.Lock()
	m.transports[mode] = tr
	m.mu.Unlock()
}

func (m *Machine) Status() transport.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Machine) IsConnected() bool {
	return m.Status() == transport.StatusConnected
}

// DeviceID returns the terminal id established by the current or last
// completed INIT handshake, empty if none.
func (m *Machine) DeviceID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceID
}

// Connect dispatches a connect request in four branches: already connected
// with an equivalent config (notify immediately), connected with another
// config (disconnect, then connect), an attempt in flight (queue the
// listener, whatever its config), or otherwise a fresh connect. There is no
// separate reconnect-loop case.
func (m *Machine) Connect(ctx context.Context, cfg transport.Config, listener *Listener) {
	m.mu.Lock()
	switch {
	case m.status == transport.StatusConnected && m.hasCfg && m.cfg.Equivalent(cfg):
		deviceID, version := m.deviceID, m.taproVersion
		m.mu.Unlock()
		listener.notifyConnected(deviceID, version)
		return

	case m.status == transport.StatusConnected:
		active := m.active
		m.mu.Unlock()
		if active != nil {
			_ = active.Disconnect()
		}
		m.startConnect(ctx, cfg, listener)
		return

	case m.status == transport.StatusConnecting || m.status == transport.StatusWaitConnecting:
		m.pending = append(m.pending, listener)
		m.mu.Unlock()
		return

	default:
		m.mu.Unlock()
		m.startConnect(ctx, cfg, listener)
	}
}

// startConnect begins a fresh connect attempt. A nil listener means the
// caller is reconnecting on the machine's own initiative (mDNS
// rediscovery, auto-connect) rather than responding to a fresh Connect
// call, so the existing global listener — the one SPEC §4.5 promises
// persists "for the life of the connection" — carries over instead of
// being cleared.
func (m *Machine) startConnect(ctx context.Context, cfg transport.Config, listener *Listener) {
	m.mu.Lock()
	tr, ok := m.transports[cfg.Mode]
	if !ok {
		m.mu.Unlock()
		listener.notifyError(errs.CodeUnsupportedAction, "no transport registered for requested mode")
		return
	}
	if listener == nil {
		listener = m.globalListener
	}
	m.cfg = cfg
	m.hasCfg = true
	m.active = tr
	m.activeMode = cfg.Mode
	m.globalListener = listener
	m.pending = nil
	m.manualDisconnect = false
	m.status = transport.StatusWaitConnecting
	m.mu.Unlock()

	listener.notifyWaiting()

	tr.SetStatusListener(m.makeTransportStatusHandler(tr))
	tr.RegisterReceiver(m.makeReceiver())

	err := tr.Connect(ctx, cfg, func(dialErr error) {
		if dialErr != nil {
			m.failAttempt(dialErr)
			return
		}
		m.runInitHandshake(ctx, tr)
	})
	if err != nil {
		m.failAttempt(err)
	}
}

func (m *Machine) failAttempt(err error) {
	m.mu.Lock()
	m.status = transport.StatusError
	targets := m.drainPendingLocked()
	m.mu.Unlock()

	code, message := errorParts(err)
	for _, l := range targets {
		l.notifyError(code, message)
	}
}

// drainPendingLocked returns the deduplicated set of listeners waiting on
// the current attempt (the global listener plus every queued pending
// listener) and clears the pending queue. The global listener is never
// cleared: it keeps receiving notifications for the life of the
// connection (SPEC §4.5's "at most one connection listener").
func (m *Machine) drainPendingLocked() []*Listener {
	seen := make(map[*Listener]bool)
	var out []*Listener
	add := func(l *Listener) {
		if l == nil || seen[l] {
			return
		}
		seen[l] = true
		out = append(out, l)
	}
	add(m.globalListener)
	for _, l := range m.pending {
		add(l)
	}
	m.pending = nil
	return out
}

func errorParts(err error) (code, message string) {
	if e, ok := err.(*errs.Error); ok {
		return e.Code, e.Message
	}
	return errs.CodeUnableToConnect, err.Error()
}

// Disconnect is the caller-initiated, idempotent path (SPEC §5). It marks
// the disconnect manual so the status handler below doesn't propose a
// reconnect for it.
func (m *Machine) Disconnect() error {
	m.mu.Lock()
	active := m.active
	persist := m.persist
	m.manualDisconnect = true
	m.status = transport.StatusDisconnected
	m.mu.Unlock()

	if persist != nil {
		persist.OnManualDisconnect(context.Background())
	}

	if active == nil {
		return nil
	}
	return active.Disconnect()
}

// makeTransportStatusHandler discriminates manual, passive, and
// heartbeat-induced disconnects (SPEC §4.5) from the transport's own
// status transitions. It only acts on transitions away from CONNECTED;
// transitions belonging to an in-flight connect attempt are driven
// directly by startConnect/runInitHandshake instead.
func (m *Machine) makeTransportStatusHandler(tr transport.Transport) func(transport.Status) {
	return func(s transport.Status) {
		if s != transport.StatusError && s != transport.StatusDisconnected {
			return
		}
		m.mu.Lock()
		if m.active != tr || m.status != transport.StatusConnected {
			m.mu.Unlock()
			return
		}
		manual := m.manualDisconnect || isManualDisconnect(tr)
		m.status = s
		listener := m.globalListener
		m.mu.Unlock()

		m.reg.FailAll(errs.CodeConnectionLost, "connection lost")

		if manual {
			listener.notifyDisconnected("manual")
			return
		}
		listener.notifyDisconnected("passive")
	}
}

type manualDisconnectReporter interface {
	IsManualDisconnect() bool
}

func isManualDisconnect(tr transport.Transport) bool {
	if r, ok := tr.(manualDisconnectReporter); ok {
		return r.IsManualDisconnect()
	}
	return false
}
