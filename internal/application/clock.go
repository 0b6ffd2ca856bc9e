package application

import (
	"sync"
	"time"
)

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock stamps records in UTC so stored dates compare byte for byte.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// StepClock returns Start, then advances by Step on every call. It is a
// deterministic clock for tests in the packages that take a Clock; the
// binaries always use SystemClock.
type StepClock struct {
	Start time.Time
	Step  time.Duration

	mu    sync.Mutex
	calls int
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.Start.Add(time.Duration(c.calls) * c.Step)
	c.calls++
	return t
}
