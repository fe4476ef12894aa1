package protocol

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// TraceGenerator mints collision-free trace ids. The wire format is not
// standardized (SPEC §4.1): implementations only need uniqueness across
// concurrently outstanding requests, so this combines a random UUIDv4 with a
// per-process monotonic counter so trace ids sort roughly by issue order in
// logs — the registry is the real uniqueness authority and refuses a
// colliding id regardless of how it was generated.
type TraceGenerator struct {
	counter atomic.Uint64
}

func NewTraceGenerator() *TraceGenerator {
	return &TraceGenerator{}
}

// Next returns a new trace id. It never blocks and never fails.
func (g *TraceGenerator) Next() string {
	n := g.counter.Add(1)
	return fmt.Sprintf("%d-%s", n, uuid.NewString())
}
