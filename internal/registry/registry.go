// Package registry implements the trace-id-keyed callback manager (SPEC
// §4.2/C2): it stores completions, enforces per-operation timeouts, and
// fails every outstanding call when the transport beneath it disappears.
//
// The concurrency shape is grounded in the teacher's SQLiteStore, which
// tracks in-flight operations under a mutex and drains them on Close with a
// sync.Cond instead of a channel-per-caller; here the "in-flight operation"
// is a registered completion instead of a database statement, and draining
// happens through FailAll instead of a close barrier.
package registry

import (
	"sync"
	"time"

	"github.com/sunbay-developer/taplink-sdk-go/internal/errs"
	"github.com/sunbay-developer/taplink-sdk-go/internal/protocol"
	"go.uber.org/zap"
)

// NoExpiry is the sentinel RegisteredAt value that disables expiry: used by
// the app-to-app transport, whose host app drives completion directly
// (SPEC §9 open question — documented as policy, not a bug).
const NoExpiry int64 = -1

// Default per-kind timeouts (SPEC §3).
var DefaultTimeouts = map[protocol.OperationKind]time.Duration{
	protocol.OperationInit:        180 * time.Second,
	protocol.OperationConnection:  60 * time.Second,
	protocol.OperationQuery:       60 * time.Second,
	protocol.OperationTransaction: 180 * time.Second,
}

type entry struct {
	traceID      string
	completion   Completion
	kind         protocol.OperationKind
	registeredAt int64
	timeoutMs    int64
	timer        *time.Timer
}

// Registry is safe for concurrent use from multiple goroutines without any
// external locking (SPEC §4.2/§5).
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	log     *zap.Logger
	nowFn   func() time.Time
}

func New(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]*entry),
		log:     log,
		nowFn:   time.Now,
	}
}

// Register stores completion under traceID. It returns false without
// overwriting anything if traceID is already present (SPEC §4.1/§4.2:
// duplicate trace ids are a fatal bug the registry refuses to hide).
func (r *Registry) Register(traceID string, completion Completion, kind protocol.OperationKind, timeoutMs ...int64) bool {
	r.mu.Lock()
	if _, exists := r.entries[traceID]; exists {
		r.mu.Unlock()
		r.log.Error("refusing duplicate trace id registration", zap.String("traceID", traceID))
		return false
	}

	timeout := defaultTimeoutMs(kind)
	if len(timeoutMs) > 0 {
		timeout = timeoutMs[0]
	}

	e := &entry{
		traceID:      traceID,
		completion:   completion,
		kind:         kind,
		registeredAt: r.nowFn().UnixMilli(),
		timeoutMs:    timeout,
	}
	if timeout == NoExpiry {
		e.registeredAt = NoExpiry
	} else {
		e.timer = time.AfterFunc(time.Duration(timeout)*time.Millisecond, func() {
			r.expire(traceID)
		})
	}
	r.entries[traceID] = e
	r.mu.Unlock()
	return true
}

func defaultTimeoutMs(kind protocol.OperationKind) int64 {
	if d, ok := DefaultTimeouts[kind]; ok {
		return d.Milliseconds()
	}
	return DefaultTimeouts[protocol.OperationTransaction].Milliseconds()
}

// TakeByTraceID removes and returns the completion for traceID. It is
// idempotent: a second call for the same id returns ok=false (SPEC §4.2).
func (r *Registry) TakeByTraceID(traceID string) (Completion, bool) {
	r.mu.Lock()
	e, ok := r.entries[traceID]
	if ok {
		delete(r.entries, traceID)
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	r.mu.Unlock()
	if !ok {
		return Completion{}, false
	}
	return e.completion, true
}

// Peek returns the completion without removing it, applying lazy expiry:
// a record already past its deadline is treated as absent (SPEC §4.2).
func (r *Registry) Peek(traceID string) (Completion, bool) {
	r.mu.Lock()
	e, ok := r.entries[traceID]
	if ok && r.isExpiredLocked(e) {
		delete(r.entries, traceID)
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return Completion{}, false
	}
	return e.completion, true
}

func (r *Registry) isExpiredLocked(e *entry) bool {
	if e.registeredAt == NoExpiry {
		return false
	}
	deadline := e.registeredAt + e.timeoutMs
	return deadline <= r.nowFn().UnixMilli()
}

// Cancel removes traceID's record without invoking its completion.
func (r *Registry) Cancel(traceID string) {
	r.mu.Lock()
	e, ok := r.entries[traceID]
	if ok {
		delete(r.entries, traceID)
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	r.mu.Unlock()
}

// Len reports the number of outstanding completions; used by tests to
// assert the registry drains after connection loss (SPEC testable
// property #5).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) expire(traceID string) {
	r.mu.Lock()
	e, ok := r.entries[traceID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.entries, traceID)
	r.mu.Unlock()

	r.log.Warn("completion expired", zap.String("traceID", traceID))
	e.completion.fireFailure(errs.New(errs.CodeResponseTimeout, "response timeout").WithTraceID(traceID))
}

// ExpireDue scans for records whose deadline has already passed and fires
// them with E306. AfterFunc normally does this per-record; ExpireDue exists
// for deterministic tests and for hosts that prefer to drive expiry from
// their own scheduler tick instead of one timer goroutine per call.
func (r *Registry) ExpireDue() {
	now := r.nowFn().UnixMilli()
	r.mu.Lock()
	var due []*entry
	for id, e := range r.entries {
		if e.registeredAt == NoExpiry {
			continue
		}
		if e.registeredAt+e.timeoutMs <= now {
			due = append(due, e)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, e := range due {
		if e.timer != nil {
			e.timer.Stop()
		}
		r.log.Warn("completion expired (sweep)", zap.String("traceID", e.traceID))
		e.completion.fireFailure(errs.New(errs.CodeResponseTimeout, "response timeout").WithTraceID(e.traceID))
	}
}

// DeliverProgress routes a non-terminal status update to traceID's
// completion, logging it the same way expiry and failure paths do.
// Unrecognized or already-finished trace ids are silently ignored (SPEC
// §3: not every inbound frame ties back to a pending completion).
func (r *Registry) DeliverProgress(traceID, status, message string) bool {
	c, ok := r.Peek(traceID)
	if !ok {
		return false
	}
	r.log.Debug("completion progress", zap.String("traceID", traceID), zap.String("status", status))
	c.fireProgress(status, message)
	return true
}

// Deliver routes a response to the completion registered for envelope's
// trace id. If it is a terminal event (success/failure) the record is
// removed; otherwise it is a progress update and the record stays live.
// Unrecognized trace ids (already delivered, cancelled, or a stream event
// with no matching completion) are silently ignored, per SPEC §3's
// invariant that not every inbound frame ties back to a pending completion.
func (r *Registry) Deliver(traceID string, terminal bool, fn func(c Completion)) bool {
	if terminal {
		c, ok := r.TakeByTraceID(traceID)
		if !ok {
			return false
		}
		fn(c)
		return true
	}
	c, ok := r.Peek(traceID)
	if !ok {
		return false
	}
	fn(c)
	return true
}

// FailAll drains every outstanding completion and invokes each with the
// supplied error (SPEC §4.2). Safe to call repeatedly: subsequent calls
// drain an empty set.
func (r *Registry) FailAll(code, message string) {
	r.mu.Lock()
	drained := make([]*entry, 0, len(r.entries))
	for id, e := range r.entries {
		drained = append(drained, e)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	for _, e := range drained {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.completion.fireFailure(errs.New(code, message).WithTraceID(e.traceID))
	}
	if len(drained) > 0 {
		r.log.Info("registry drained", zap.Int("count", len(drained)), zap.String("code", code))
	}
}
