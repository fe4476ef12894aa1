// Package taplink is the public surface of TapLink Connect (SPEC §6): a
// client-side SDK brokering payment transactions with a Tapro terminal
// over three interchangeable transports. It wires C1–C8 together behind
// Init/Connect/Disconnect, one helper per transaction action (Sale, Auth,
// Refund, ...), Query and Abort. There is no single generic Execute call.
package taplink

import (
	"context"

	"github.com/sunbay-developer/taplink-sdk-go/internal/appconfig"
	"github.com/sunbay-developer/taplink-sdk-go/internal/applog"
	"github.com/sunbay-developer/taplink-sdk-go/internal/connectionfsm"
	"github.com/sunbay-developer/taplink-sdk-go/internal/lantransport"
	"github.com/sunbay-developer/taplink-sdk-go/internal/orchestrator"
	"github.com/sunbay-developer/taplink-sdk-go/internal/protocol"
	"github.com/sunbay-developer/taplink-sdk-go/internal/reconnectpolicy"
	"github.com/sunbay-developer/taplink-sdk-go/internal/registry"
	"github.com/sunbay-developer/taplink-sdk-go/internal/store"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport/apptoapp"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport/cable"
	"go.uber.org/zap"
)

// Config is the caller-facing alias of transport.Config (SPEC §3/§6).
type Config = transport.Config

const (
	ModeAppToApp = transport.ModeAppToApp
	ModeCable    = transport.ModeCable
	ModeLAN      = transport.ModeLAN
)

// Listener receives connection lifecycle notifications (SPEC §6).
type Listener = connectionfsm.Listener

// Callback is the per-request completion shape (SPEC §6).
type Callback = orchestrator.Callback

// Request type aliases, re-exported so callers never import internal/orchestrator.
type (
	Amount                 = orchestrator.Amount
	OriginalRef            = orchestrator.OriginalRef
	SaleRequest            = orchestrator.SaleRequest
	AuthRequest            = orchestrator.AuthRequest
	IncrementalAuthRequest = orchestrator.IncrementalAuthRequest
	PostAuthRequest        = orchestrator.PostAuthRequest
	RefundRequest          = orchestrator.RefundRequest
	VoidRequest            = orchestrator.VoidRequest
	TipAdjustRequest       = orchestrator.TipAdjustRequest
	QueryRequest           = orchestrator.QueryRequest
)

// InitOptions is re-exported so callers configure Init without importing
// internal/appconfig directly.
type InitOptions = appconfig.InitOptions

// Client is a single SDK instance (SPEC §9: explicit context object
// constructed at startup, passed down — no ambient singleton).
type Client struct {
	log *zap.Logger

	machine *connectionfsm.Machine
	orch    *orchestrator.Orchestrator
	policy  *reconnectpolicy.Policy
	store   *store.Store

	appToApp *apptoapp.Transport
}

type clientBuild struct {
	dispatchApp apptoapp.Dispatcher
	usbProber   cable.Prober
}

// ClientOption customizes Init beyond InitOptions' config-file/env surface.
type ClientOption func(*clientBuild)

// WithAppToAppDispatcher wires the in-process dispatcher the host
// application uses to deliver frames to the Tapro app (SPEC §4.3
// AppToApp variant).
func WithAppToAppDispatcher(d apptoapp.Dispatcher) ClientOption {
	return func(b *clientBuild) { b.dispatchApp = d }
}

// WithUSBProber overrides the default VID/PID USB prober used by the
// cable transport.
func WithUSBProber(p cable.Prober) ClientOption {
	return func(b *clientBuild) { b.usbProber = p }
}

// Init constructs a Client from merged InitOptions (SPEC §6 `init`).
func Init(override InitOptions, opts ...ClientOption) (*Client, error) {
	resolved, err := appconfig.Load(override)
	if err != nil {
		return nil, err
	}

	build := &clientBuild{}
	for _, opt := range opts {
		opt(build)
	}
	if build.usbProber == nil {
		build.usbProber = cable.NewUSBProber(0, 0)
	}

	log, err := applog.New(applog.Level(resolved.LogLevel))
	if err != nil {
		return nil, err
	}

	st := store.New(resolved.StateDir + "/taplink.db")
	reg := registry.New(applog.Named(log, "registry"))
	tracer := protocol.NewTraceGenerator()
	machine := connectionfsm.New(reg, tracer, resolved.AppID, resolved.Version, applog.Named(log, "connectionfsm"))
	policy := reconnectpolicy.New(st, applog.Named(log, "reconnectpolicy"))
	machine.SetPersistHooks(policy)

	appToApp := apptoapp.New(build.dispatchApp)
	machine.RegisterTransport(transport.ModeAppToApp, appToApp)
	machine.RegisterTransport(transport.ModeCable, cable.New(build.usbProber))
	machine.RegisterTransport(transport.ModeLAN, lantransport.New(machine.LANHooks(), applog.Named(log, "lantransport")))

	return &Client{
		log:      log,
		machine:  machine,
		orch:     orchestrator.New(machine),
		policy:   policy,
		store:    st,
		appToApp: appToApp,
	}, nil
}

// Connect implements SPEC §6's `connect`.
func (c *Client) Connect(ctx context.Context, cfg Config, listener *Listener) {
	c.machine.Connect(ctx, cfg, listener)
}

// StartupAutoConnect proposes a connect with the last persisted config if
// auto-connect is enabled (SPEC §4.8).
func (c *Client) StartupAutoConnect(ctx context.Context, listener *Listener) bool {
	return c.policy.StartupConnect(ctx, c.machine, listener)
}

// Disconnect implements SPEC §6's `disconnect`.
func (c *Client) Disconnect() error {
	return c.machine.Disconnect()
}

// IsConnected implements SPEC §6's `isConnected`.
func (c *Client) IsConnected() bool {
	return c.machine.IsConnected()
}

// DeviceID returns the connected terminal's id, empty if none.
func (c *Client) DeviceID() string {
	return c.machine.DeviceID()
}

// Close releases the persistence handle. It does not disconnect any
// active transport; call Disconnect first if that is desired.
func (c *Client) Close() error {
	return c.store.Close()
}

// DeliverAppToApp feeds an inbound frame pushed by the host application
// into the app-to-app transport (SPEC §4.3 AppToApp variant's host-driven
// delivery path).
func (c *Client) DeliverAppToApp(frame []byte) {
	c.appToApp.Deliver(frame)
}

// Sale implements SPEC §4.6/§6's per-action helper for the Sale action.
func (c *Client) Sale(ctx context.Context, req SaleRequest, cb Callback) (string, error) {
	return c.orch.Sale(ctx, req, cb)
}

func (c *Client) Auth(ctx context.Context, req AuthRequest, cb Callback) (string, error) {
	return c.orch.Auth(ctx, req, cb)
}

func (c *Client) ForcedAuth(ctx context.Context, req AuthRequest, cb Callback) (string, error) {
	return c.orch.ForcedAuth(ctx, req, cb)
}

func (c *Client) IncrementalAuth(ctx context.Context, req IncrementalAuthRequest, cb Callback) (string, error) {
	return c.orch.IncrementalAuth(ctx, req, cb)
}

func (c *Client) PostAuth(ctx context.Context, req PostAuthRequest, cb Callback) (string, error) {
	return c.orch.PostAuth(ctx, req, cb)
}

func (c *Client) Refund(ctx context.Context, req RefundRequest, cb Callback) (string, error) {
	return c.orch.Refund(ctx, req, cb)
}

func (c *Client) Void(ctx context.Context, req VoidRequest, cb Callback) (string, error) {
	return c.orch.Void(ctx, req, cb)
}

func (c *Client) TipAdjust(ctx context.Context, req TipAdjustRequest, cb Callback) (string, error) {
	return c.orch.TipAdjust(ctx, req, cb)
}

func (c *Client) BatchClose(ctx context.Context, cb Callback) (string, error) {
	return c.orch.BatchClose(ctx, cb)
}

// Query implements SPEC §6's `query`.
func (c *Client) Query(ctx context.Context, req QueryRequest, cb Callback) (string, error) {
	return c.orch.Query(ctx, req, cb)
}

// Abort implements SPEC §6's `abort`.
func (c *Client) Abort(ctx context.Context, originalTransactionRequestID string, cb Callback) (string, error) {
	return c.orch.Abort(ctx, originalTransactionRequestID, cb)
}
