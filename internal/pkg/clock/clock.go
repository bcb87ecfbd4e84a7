// Package clock lets time-dependent components run against a virtual clock in tests.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns the wall clock
func Real() Clock { return realClock{} }

// Manual is a clock that only moves when told to
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock set to start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current virtual time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set moves the clock to t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
