package domain

import (
	"fmt"
	"sync/atomic"
	"time"
)

// IDGenerator produces human-readable log ids of the form
// LOG-<year>-<zero-padded sequence>. The sequence is an atomic counter, so
// ids from one generator never collide with each other even under
// concurrent creation. Collisions with caller-supplied ids already in the
// store are handled by the repositories, which retry with the next
// sequence value on insert conflict.
type IDGenerator struct {
	seq atomic.Int64
	now func() time.Time
}

// NewIDGenerator returns a generator starting at sequence 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// NewIDGeneratorAt returns a generator with an injected clock, for tests.
func NewIDGeneratorAt(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// Next returns the next id, e.g. "LOG-2026-000001".
func (g *IDGenerator) Next() string {
	n := g.seq.Add(1)
	return fmt.Sprintf("LOG-%d-%06d", g.now().Year(), n)
}
