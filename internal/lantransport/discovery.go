package lantransport

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

const discoveryQueryTimeout = 2 * time.Second

// discoverOnce runs a single mDNS lookup for ServiceType and returns every
// valid-shaped entry it observes before timeout elapses (SPEC §4.4.2,
// "one-shot discovery").
func discoverOnce(ctx context.Context) ([]ServiceInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 32)
	params := mdns.DefaultParams(ServiceType)
	params.Timeout = discoveryQueryTimeout
	params.Entries = entries

	queryDone := make(chan error, 1)
	go func() { queryDone <- mdns.Query(params) }()

	var found []ServiceInfo
	deadline := time.After(discoveryQueryTimeout + 500*time.Millisecond)
collect:
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				break collect
			}
			si := serviceInfoFromEntry(e)
			if si.IsValid() {
				found = append(found, si)
			}
		case <-deadline:
			break collect
		case <-ctx.Done():
			break collect
		}
	}
	select {
	case err := <-queryDone:
		return found, err
	default:
		return found, nil
	}
}

func serviceInfoFromEntry(e *mdns.ServiceEntry) ServiceInfo {
	host := e.Name
	switch {
	case e.AddrV4 != nil:
		host = e.AddrV4.String()
	case e.AddrV6 != nil:
		host = e.AddrV6.String()
	}
	attrs := make(map[string]string, len(e.InfoFields))
	for i, f := range e.InfoFields {
		attrs[string(rune('0'+i))] = f
	}
	return ServiceInfo{
		Name:       e.Name,
		Type:       ServiceType,
		Host:       host,
		Port:       e.Port,
		Attributes: attrs,
	}
}

// Monitor runs continuous mDNS polling while a LAN connection is CONNECTED
// (SPEC §4.4.2, "continuous monitoring"): it diffs successive snapshots and
// raises found/lost/updated events, dropping updates whose (host, port)
// didn't actually change.
type Monitor struct {
	interval time.Duration
	hooks    Hooks

	mu     sync.Mutex
	known  map[string]ServiceInfo
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(interval time.Duration, hooks Hooks) *Monitor {
	return &Monitor{interval: interval, hooks: hooks, known: make(map[string]ServiceInfo)}
}

func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.loop(runCtx)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	entries, err := discoverOnce(ctx)
	if err != nil {
		return
	}
	seen := make(map[string]ServiceInfo, len(entries))
	for _, e := range entries {
		seen[e.key()] = e
	}

	m.mu.Lock()
	prev := m.known
	m.known = seen
	m.mu.Unlock()

	for name, cur := range seen {
		old, existed := prev[name]
		switch {
		case !existed:
			if m.hooks.OnServiceFound != nil {
				m.hooks.OnServiceFound(cur)
			}
		case !old.sameEndpoint(cur):
			if m.hooks.OnServiceUpdated != nil {
				m.hooks.OnServiceUpdated(old, cur)
			}
		}
	}
	for name, old := range prev {
		if _, stillThere := seen[name]; !stillThere && m.hooks.OnServiceLost != nil {
			m.hooks.OnServiceLost(old)
		}
	}
}
