package lantransport

import (
	"sync"
	"time"
)

// heartbeatFrame and heartbeatAck are the reserved text bodies the LAN
// transport uses to distinguish heartbeat traffic from application
// envelopes (SPEC §4.4.3): neither is valid JSON, so it can never collide
// with a decoded Envelope.
const (
	heartbeatFrame = "\x00TAPLINK_HEARTBEAT"
	heartbeatAck   = "\x00TAPLINK_HEARTBEAT_ACK"
)

// DefaultHeartbeatInterval and DefaultHeartbeatTimeout are the reference
// cadence from SPEC §6.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultHeartbeatTimeout  = 10 * time.Second
	heartbeatDelayedRatio    = 0.7
)

type heartbeatConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// heartbeatSupervisor implements SPEC §4.4.3: it sends a heartbeat on a
// fixed cadence, tracks round-trip time, and declares the connection dead
// after two consecutive failures.
type heartbeatSupervisor struct {
	cfg    heartbeatConfig
	sendFn func() error
	onDead func()
	hooks  Hooks

	mu                  sync.Mutex
	ticker              *time.Ticker
	stopCh              chan struct{}
	pending             bool
	sentAt              time.Time
	lastRTT             time.Duration
	consecutiveFailures int
	delayedTimer        *time.Timer
	timeoutTimer        *time.Timer
}

func newHeartbeatSupervisor(cfg heartbeatConfig, hooks Hooks, sendFn func() error, onDead func()) *heartbeatSupervisor {
	return &heartbeatSupervisor{cfg: cfg, hooks: hooks, sendFn: sendFn, onDead: onDead}
}

func (h *heartbeatSupervisor) Start() {
	h.mu.Lock()
	if h.ticker != nil {
		h.mu.Unlock()
		return
	}
	h.ticker = time.NewTicker(h.cfg.Interval)
	h.stopCh = make(chan struct{})
	ticker := h.ticker
	stop := h.stopCh
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				h.beat()
			case <-stop:
				return
			}
		}
	}()
}

func (h *heartbeatSupervisor) Stop() {
	h.mu.Lock()
	if h.ticker == nil {
		h.mu.Unlock()
		return
	}
	h.ticker.Stop()
	close(h.stopCh)
	h.ticker = nil
	h.stopDeadlinesLocked()
	h.mu.Unlock()
}

func (h *heartbeatSupervisor) stopDeadlinesLocked() {
	if h.delayedTimer != nil {
		h.delayedTimer.Stop()
		h.delayedTimer = nil
	}
	if h.timeoutTimer != nil {
		h.timeoutTimer.Stop()
		h.timeoutTimer = nil
	}
}

func (h *heartbeatSupervisor) beat() {
	if err := h.sendFn(); err != nil {
		h.mu.Lock()
		h.consecutiveFailures++
		dead := h.consecutiveFailures >= 2
		h.mu.Unlock()
		if h.hooks.OnHeartbeatFailed != nil {
			h.hooks.OnHeartbeatFailed(err)
		}
		if dead {
			h.declareDead()
		}
		return
	}

	h.mu.Lock()
	h.pending = true
	h.sentAt = time.Now()
	h.stopDeadlinesLocked()
	h.delayedTimer = time.AfterFunc(time.Duration(float64(h.cfg.Timeout)*heartbeatDelayedRatio), h.fireDelayed)
	h.timeoutTimer = time.AfterFunc(h.cfg.Timeout, h.fireTimeout)
	h.mu.Unlock()
}

func (h *heartbeatSupervisor) fireDelayed() {
	h.mu.Lock()
	pending := h.pending
	h.mu.Unlock()
	if pending && h.hooks.OnHeartbeatDelayed != nil {
		h.hooks.OnHeartbeatDelayed()
	}
}

func (h *heartbeatSupervisor) fireTimeout() {
	h.mu.Lock()
	if !h.pending {
		h.mu.Unlock()
		return
	}
	h.pending = false
	h.consecutiveFailures++
	dead := h.consecutiveFailures >= 2
	h.mu.Unlock()

	if h.hooks.OnHeartbeatTimeout != nil {
		h.hooks.OnHeartbeatTimeout()
	}
	if dead {
		h.declareDead()
	}
}

// HandleAck is called by the transport's read loop when a heartbeatAck
// frame arrives; it resets the failure counter and records RTT.
func (h *heartbeatSupervisor) HandleAck() {
	h.mu.Lock()
	if h.pending {
		h.lastRTT = time.Since(h.sentAt)
	}
	h.pending = false
	h.consecutiveFailures = 0
	h.stopDeadlinesLocked()
	h.mu.Unlock()
}

func (h *heartbeatSupervisor) declareDead() {
	h.Stop()
	if h.onDead != nil {
		h.onDead()
	}
}
