package lantransport

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestHeartbeatDeclaresDeadAfterTwoConsecutiveFailures(t *testing.T) {
	var failures int32
	var dead atomic.Bool
	hb := newHeartbeatSupervisor(
		heartbeatConfig{Interval: 10 * time.Millisecond, Timeout: 20 * time.Millisecond},
		Hooks{},
		func() error { atomic.AddInt32(&failures, 1); return errors.New("send failed") },
		func() { dead.Store(true) },
	)
	hb.Start()
	defer hb.Stop()

	deadline := time.After(time.Second)
	for !dead.Load() {
		select {
		case <-deadline:
			t.Fatal("heartbeat never declared connection dead")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if atomic.LoadInt32(&failures) < 2 {
		t.Fatalf("expected at least 2 send attempts before death, got %d", failures)
	}
}

func TestHeartbeatAckResetsFailureCounter(t *testing.T) {
	sendOK := atomic.Bool{}
	sendOK.Store(true)
	var dead atomic.Bool
	hb := newHeartbeatSupervisor(
		heartbeatConfig{Interval: 10 * time.Millisecond, Timeout: 20 * time.Millisecond},
		Hooks{},
		func() error {
			if sendOK.Load() {
				return nil
			}
			return errors.New("send failed")
		},
		func() { dead.Store(true) },
	)
	hb.Start()
	time.Sleep(15 * time.Millisecond)
	hb.mu.Lock()
	hb.consecutiveFailures = 1
	hb.mu.Unlock()
	hb.HandleAck()
	hb.mu.Lock()
	failuresAfterAck := hb.consecutiveFailures
	hb.mu.Unlock()
	hb.Stop()

	if failuresAfterAck != 0 {
		t.Fatalf("HandleAck must reset the consecutive-failure counter, got %d", failuresAfterAck)
	}
	if dead.Load() {
		t.Fatal("healthy heartbeat exchanges must not declare the connection dead")
	}
}
