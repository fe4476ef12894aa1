package connectionfsm

import (
	"strings"
	"time"

	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
)

const (
	confidenceExactMatch  = 1.0
	confidenceSuffixMatch = 0.8
	confidenceLooseMatch  = 0.6
	confidenceThreshold   = 0.7
	addressChangeDebounce = 2 * time.Second
)

// deviceIdentityConfidence scores how likely serviceName names
// knownDeviceID (SPEC §4.4.2, check 1). unknown is true when there is no
// known device id to compare against.
func deviceIdentityConfidence(serviceName, knownDeviceID string) (confidence float64, unknown bool) {
	if knownDeviceID == "" {
		return 0, true
	}
	exact := "TaproService_" + knownDeviceID
	switch {
	case serviceName == exact:
		return confidenceExactMatch, false
	case strings.HasSuffix(serviceName, knownDeviceID):
		return confidenceSuffixMatch, false
	case strings.Contains(serviceName, knownDeviceID) && strings.Contains(serviceName, "Tapro"):
		return confidenceLooseMatch, false
	default:
		return 0, false
	}
}

// evaluateAddressChange runs the four ordered checks from SPEC §4.4.2 and
// reports whether a reconnect to the advertised endpoint should be
// proposed. It is wired into lantransport as an AddressChangeFunc.
func (m *Machine) evaluateAddressChange(serviceName, newHost string, newPort int, oldHost string, oldPort int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	knownID := m.mostReliableKnownDeviceIDLocked()
	confidence, unknown := deviceIdentityConfidence(serviceName, knownID)
	if unknown {
		idleOrErrored := m.status == transport.StatusDisconnected || m.status == transport.StatusError
		if !(idleOrErrored && strings.Contains(serviceName, "Tapro")) {
			return false
		}
	} else if confidence < confidenceThreshold {
		return false
	}

	sameAddress := newHost == oldHost && newPort == oldPort
	if sameAddress && (m.status == transport.StatusConnected || m.status == transport.StatusConnecting) {
		return false
	}

	if m.status == transport.StatusConnected && m.cfg.Host == newHost && m.cfg.EffectivePort() == newPort {
		return false
	}

	if !m.lastAcceptedChange.IsZero() && time.Since(m.lastAcceptedChange) < addressChangeDebounce {
		return false
	}

	m.lastAcceptedChange = time.Now()
	return true
}

func (m *Machine) mostReliableKnownDeviceIDLocked() string {
	if m.deviceID != "" {
		return m.deviceID
	}
	return m.lastKnownDeviceID
}
