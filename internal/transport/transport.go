// Package transport defines the uniform capability set every TapLink
// transport variant (app-to-app, cable, LAN) implements (SPEC §4.3/C3), so
// the connection state machine and payment orchestrator never branch on
// which physical channel they are talking over.
package transport

import "context"

// Status mirrors the connection-status state set (SPEC §3/§4.5).
type Status string

const (
	StatusDisconnected   Status = "DISCONNECTED"
	StatusWaitConnecting Status = "WAIT_CONNECTING"
	StatusConnecting     Status = "CONNECTING"
	StatusConnected      Status = "CONNECTED"
	StatusError          Status = "ERROR"
)

// StatusListener is notified of status transitions. Implementations must
// never be invoked re-entrantly under a transport's internal locks
// (SPEC §4.3/§5): transports post the notification instead of calling it
// inline while holding their status mutex.
type StatusListener func(newStatus Status)

// ReceiverFunc is invoked for every inbound frame, including frames that
// may later be identified as heartbeat replies — except on the LAN
// transport, which owns and consumes its own heartbeat frames before they
// reach the receiver (SPEC §4.3/§4.4.3).
type ReceiverFunc func(frame []byte)

// SendCompletion is an optional per-send callback some transports use to
// signal that bytes reached the wire (distinct from the application-level
// response, which arrives later through the receiver).
type SendCompletion func(err error)

// Transport is the capability set every variant implements (SPEC §4.3).
type Transport interface {
	Connect(ctx context.Context, config Config, callback func(err error)) error
	Disconnect() error
	Send(ctx context.Context, traceID string, payload []byte, completion SendCompletion) error
	RegisterReceiver(fn ReceiverFunc)
	Status() Status
	SetStatusListener(fn StatusListener)
}

// Mode selects which transport variant a Config targets (SPEC §3).
type Mode string

const (
	ModeAppToApp Mode = "APP_TO_APP"
	ModeCable    Mode = "CABLE"
	ModeLAN      Mode = "LAN"
)

// CableProtocol enumerates the cable transport's negotiation modes.
type CableProtocol string

const (
	CableProtocolAuto    CableProtocol = "AUTO"
	CableProtocolUSBAOA  CableProtocol = "USB_AOA"
	CableProtocolUSBVSP  CableProtocol = "USB_VSP"
	CableProtocolRS232   CableProtocol = "RS232"
)

// Config is the connection configuration (SPEC §3). Two configs are
// equivalent iff their mode plus mode-specific fields match (Equivalent).
type Config struct {
	Mode           Mode
	Host           string
	Port           int
	Secure         bool
	CableProtocol  CableProtocol
}

const DefaultPort = 8443

// Equivalent reports whether c and other target the same endpoint under
// the same mode (SPEC §3).
func (c Config) Equivalent(other Config) bool {
	if c.Mode != other.Mode {
		return false
	}
	switch c.Mode {
	case ModeLAN:
		return c.Host == other.Host && c.EffectivePort() == other.EffectivePort() && c.Secure == other.Secure
	case ModeCable:
		return c.CableProtocol == other.CableProtocol
	default:
		return true
	}
}

// EffectivePort returns Port, or DefaultPort when Port is unset (SPEC §3).
func (c Config) EffectivePort() int {
	if c.Port <= 0 {
		return DefaultPort
	}
	return c.Port
}

// Scheme returns "ws" or "wss" for the LAN transport's dial URI (SPEC
// §4.4.1).
func (c Config) Scheme() string {
	if c.Secure {
		return "wss"
	}
	return "ws"
}
