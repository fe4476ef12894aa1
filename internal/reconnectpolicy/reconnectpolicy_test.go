package reconnectpolicy

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbay-developer/taplink-sdk-go/internal/store"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
)

func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "taplink.db")
	st := store.New(dbPath)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, nil)
}

func TestProposeAutoConnectRoundTrips(t *testing.T) {
	ctx := context.Background()
	p := newTestPolicy(t)

	_, _, ok := p.ProposeAutoConnect(ctx)
	require.False(t, ok, "expected no proposal before any successful connection")

	cfg := transport.Config{Mode: transport.ModeLAN, Host: "192.168.1.10", Port: 8443}
	p.OnConnected(ctx, cfg, "D-7")

	got, deviceID, ok := p.ProposeAutoConnect(ctx)
	require.True(t, ok, "expected a proposal after a successful connection")
	assert.True(t, got.Equivalent(cfg))
	assert.Equal(t, "D-7", deviceID)
}

func TestManualDisconnectClearsAutoConnect(t *testing.T) {
	ctx := context.Background()
	p := newTestPolicy(t)

	cfg := transport.Config{Mode: transport.ModeLAN, Host: "192.168.1.10", Port: 8443}
	p.OnConnected(ctx, cfg, "D-7")
	p.OnManualDisconnect(ctx)

	_, _, ok := p.ProposeAutoConnect(ctx)
	assert.False(t, ok, "expected no proposal after manual disconnect")
}

func TestDeviceServiceLookupRoundTrips(t *testing.T) {
	ctx := context.Background()
	p := newTestPolicy(t)

	p.OnServiceAdvertisement(ctx, "D-7", "TaproService_D-7", "10.0.0.42", 8443)
	rec, ok := p.LookupDeviceService(ctx, "D-7")
	require.True(t, ok, "expected a stored device service record")
	assert.Equal(t, "10.0.0.42", rec.Host)
	assert.Equal(t, 8443, rec.Port)
}

func TestDetectedCableProtocolExpires(t *testing.T) {
	ctx := context.Background()
	p := newTestPolicy(t)

	p.SetDetectedCableProtocol(ctx, transport.CableProtocolUSBAOA, time.Now())
	proto, ok := p.DetectedCableProtocol(ctx)
	require.True(t, ok, "expected fresh detection to be valid")
	assert.Equal(t, transport.CableProtocolUSBAOA, proto)

	p.SetDetectedCableProtocol(ctx, transport.CableProtocolUSBAOA, time.Now().Add(-10*time.Minute))
	_, ok = p.DetectedCableProtocol(ctx)
	assert.False(t, ok, "expected stale detection (>5min) to be invalid")
}
