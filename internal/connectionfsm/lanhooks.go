package connectionfsm

import (
	"context"

	"github.com/sunbay-developer/taplink-sdk-go/internal/lantransport"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
	"go.uber.org/zap"
)

// LANHooks builds the lantransport.Hooks that wire this machine's policy
// decisions into the LAN transport's discovery and heartbeat mechanism
// (SPEC §4.4.2/§4.4.3).
func (m *Machine) LANHooks() lantransport.Hooks {
	return lantransport.Hooks{
		OnAddressChange:    m.evaluateAddressChange,
		OnServiceFound:     m.onServiceFound,
		OnServiceLost:      m.onServiceLost,
		OnServiceUpdated:   m.onServiceUpdated,
		OnHeartbeatDelayed: m.onHeartbeatDelayed,
		OnHeartbeatTimeout: m.onHeartbeatTimeout,
		OnHeartbeatFailed:  m.onHeartbeatFailed,
	}
}

// onServiceFound is how a device rediscovered after a heartbeat death
// (SPEC §4.4.3's "leave monitoring running") gets proposed back for
// reconnect: the same four-check decision gates it.
func (m *Machine) onServiceFound(svc lantransport.ServiceInfo) {
	m.mu.Lock()
	idle := m.status == transport.StatusDisconnected || m.status == transport.StatusError
	cfg := m.cfg
	known := m.mostReliableKnownDeviceIDLocked()
	persist := m.persist
	m.mu.Unlock()

	if persist != nil && known != "" {
		if confidence, unknown := deviceIdentityConfidence(svc.Name, known); !unknown && confidence >= confidenceThreshold {
			persist.OnServiceAdvertisement(context.Background(), known, svc.Name, svc.Host, svc.Port)
		}
	}

	if !idle {
		return
	}
	if !m.evaluateAddressChange(svc.Name, svc.Host, svc.Port, cfg.Host, cfg.EffectivePort()) {
		return
	}
	newCfg := cfg
	newCfg.Mode = transport.ModeLAN
	newCfg.Host = svc.Host
	newCfg.Port = svc.Port
	m.Connect(context.Background(), newCfg, nil)
}

func (m *Machine) onServiceLost(svc lantransport.ServiceInfo) {
	m.log.Debug("mDNS service lost", zap.String("name", svc.Name))
}

func (m *Machine) onServiceUpdated(old, cur lantransport.ServiceInfo) {
	m.log.Debug("mDNS service updated", zap.String("name", cur.Name), zap.String("host", cur.Host))
}

func (m *Machine) onHeartbeatDelayed() {
	m.log.Warn("heartbeat response delayed")
}

func (m *Machine) onHeartbeatTimeout() {
	m.log.Warn("heartbeat response timed out")
}

func (m *Machine) onHeartbeatFailed(err error) {
	m.log.Warn("heartbeat send failed", zap.Error(err))
}
