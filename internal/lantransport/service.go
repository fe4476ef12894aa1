// Package lantransport implements the WebSocket-over-LAN transport variant:
// direct dial with mDNS discovery fallback, continuous service monitoring,
// and a heartbeat supervisor (SPEC §4.4, C4 — the largest single
// component). The connection state machine (internal/connectionfsm) owns
// the policy decisions (the address-change confidence scoring, the INIT
// handshake); this package owns the mechanism (sockets, timers, mDNS
// queries) and exposes policy decision points as Hooks.
package lantransport

// ServiceType is the mDNS service type Tapro terminals advertise under
// (SPEC §3/§6).
const ServiceType = "_taplink._tcp"

// ServiceInfo mirrors the mDNS-advertised endpoint (SPEC §3).
type ServiceInfo struct {
	Name       string
	Type       string
	Host       string
	Port       int
	Attributes map[string]string
}

// IsValid reports whether s carries a usable endpoint (SPEC §3).
func (s ServiceInfo) IsValid() bool {
	return s.Host != "" && s.Port > 0
}

func (s ServiceInfo) key() string {
	return s.Name
}

func (s ServiceInfo) sameEndpoint(other ServiceInfo) bool {
	return s.Host == other.Host && s.Port == other.Port
}
