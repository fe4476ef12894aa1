// Package reconnectpolicy implements the reconnect policy (SPEC §4.8, C8):
// it persists the last successful ConnectionConfig and deviceId across
// process restarts, proposes an auto-connect on startup, and keeps the
// per-device-id service map, updated when mDNS advertises a fresh endpoint
// for a known device and read back through LookupDeviceService. The
// reconnect itself targets the advertised endpoint directly, not this map.
package reconnectpolicy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sunbay-developer/taplink-sdk-go/internal/connectionfsm"
	"github.com/sunbay-developer/taplink-sdk-go/internal/store"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
	"go.uber.org/zap"
)

// cableProtocolValidity is how long a detected cable protocol is trusted
// before rediscovery is required (SPEC §6).
const cableProtocolValidity = 5 * time.Minute

type Policy struct {
	store *store.Store
	log   *zap.Logger
}

func New(st *store.Store, log *zap.Logger) *Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return &Policy{store: st, log: log}
}

// OnConnected updates the persisted snapshot after a successful INIT
// handshake (SPEC §4.8: "on CONNECTED, update the persisted snapshot").
func (p *Policy) OnConnected(ctx context.Context, cfg transport.Config, deviceID string) {
	data, err := json.Marshal(cfg)
	if err != nil {
		p.log.Warn("failed to marshal connection config for persistence", zap.Error(err))
		return
	}
	if err := p.store.SetKV(ctx, store.KeyLastConnectionConfig, string(data)); err != nil {
		p.log.Warn("failed to persist last connection config", zap.Error(err))
	}
	if err := p.store.SetKV(ctx, store.KeyConnectedDeviceID, deviceID); err != nil {
		p.log.Warn("failed to persist connected device id", zap.Error(err))
	}
	if err := p.store.SetKV(ctx, store.KeyAutoConnectEnabled, "true"); err != nil {
		p.log.Warn("failed to persist auto-connect intent", zap.Error(err))
	}
}

// OnManualDisconnect clears auto-connect intent (SPEC §4.8: "on manual
// disconnect, clear auto-connect intent").
func (p *Policy) OnManualDisconnect(ctx context.Context) {
	if err := p.store.SetKV(ctx, store.KeyAutoConnectEnabled, "false"); err != nil {
		p.log.Warn("failed to clear auto-connect intent", zap.Error(err))
	}
}

// ProposeAutoConnect returns the stored config to reconnect with on
// startup, ok=false if auto-connect is disabled or nothing was persisted.
func (p *Policy) ProposeAutoConnect(ctx context.Context) (cfg transport.Config, deviceID string, ok bool) {
	enabled, present, err := p.store.GetKV(ctx, store.KeyAutoConnectEnabled)
	if err != nil || !present || enabled != "true" {
		return transport.Config{}, "", false
	}
	raw, present, err := p.store.GetKV(ctx, store.KeyLastConnectionConfig)
	if err != nil || !present {
		return transport.Config{}, "", false
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		p.log.Warn("stored connection config is corrupt, ignoring", zap.Error(err))
		return transport.Config{}, "", false
	}
	deviceID, _, _ = p.store.GetKV(ctx, store.KeyConnectedDeviceID)
	return cfg, deviceID, true
}

// StartupConnect proposes a connect against the given machine if
// auto-connect is enabled, wiring itself back in via machine.Connect.
func (p *Policy) StartupConnect(ctx context.Context, machine *connectionfsm.Machine, listener *connectionfsm.Listener) bool {
	cfg, _, ok := p.ProposeAutoConnect(ctx)
	if !ok {
		return false
	}
	machine.Connect(ctx, cfg, listener)
	return true
}

// OnServiceAdvertisement records a fresh mDNS-advertised endpoint for a
// known device id (SPEC §4.8: "maintains a per-device-id map ... updated
// whenever mDNS advertises a fresh endpoint for a known device").
func (p *Policy) OnServiceAdvertisement(ctx context.Context, deviceID, serviceName, host string, port int) {
	if deviceID == "" {
		return
	}
	rec := store.DeviceServiceRecord{
		DeviceID:    deviceID,
		ServiceName: serviceName,
		Host:        host,
		Port:        port,
		LastSeen:    time.Now(),
	}
	if err := p.store.UpsertDeviceService(ctx, rec); err != nil {
		p.log.Warn("failed to persist device service record", zap.Error(err))
	}
}

// LookupDeviceService returns the last known endpoint for a device id.
func (p *Policy) LookupDeviceService(ctx context.Context, deviceID string) (store.DeviceServiceRecord, bool) {
	rec, ok, err := p.store.LookupDeviceService(ctx, deviceID)
	if err != nil {
		p.log.Warn("failed to look up device service record", zap.Error(err))
		return store.DeviceServiceRecord{}, false
	}
	return rec, ok
}

// SetDetectedCableProtocol records the most recently detected cable
// protocol, valid for cableProtocolValidity (SPEC §6).
func (p *Policy) SetDetectedCableProtocol(ctx context.Context, proto transport.CableProtocol, at time.Time) {
	if err := p.store.SetKV(ctx, store.KeyDetectedCableProtocol, string(proto)); err != nil {
		p.log.Warn("failed to persist detected cable protocol", zap.Error(err))
	}
	if err := p.store.SetKV(ctx, store.KeyDetectedCableProtoTime, at.Format(time.RFC3339)); err != nil {
		p.log.Warn("failed to persist detected cable protocol timestamp", zap.Error(err))
	}
}

// DetectedCableProtocol returns the persisted cable protocol if it was
// recorded within the last cableProtocolValidity window.
func (p *Policy) DetectedCableProtocol(ctx context.Context) (transport.CableProtocol, bool) {
	proto, present, err := p.store.GetKV(ctx, store.KeyDetectedCableProtocol)
	if err != nil || !present {
		return "", false
	}
	tsRaw, present, err := p.store.GetKV(ctx, store.KeyDetectedCableProtoTime)
	if err != nil || !present {
		return "", false
	}
	ts, err := time.Parse(time.RFC3339, tsRaw)
	if err != nil || time.Since(ts) > cableProtocolValidity {
		return "", false
	}
	return transport.CableProtocol(proto), true
}
