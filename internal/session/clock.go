package session

import (
	"context"
	"time"
)

// Clock is a whole-second countdown. It has no pause: only Restart and Stop
// change it outside of Tick. Clock is not safe for concurrent use; the owning
// Session serialises access.
type Clock struct {
	start     int
	remaining int
	running   bool
}

// Restart arms the clock at seconds.
func (c *Clock) Restart(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	c.start = seconds
	c.remaining = seconds
	c.running = seconds > 0
}

// Tick removes one second. expired is true exactly once per Restart, on the
// tick that reaches zero.
func (c *Clock) Tick() (remaining int, expired bool) {
	if !c.running {
		return c.remaining, false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.running = false
		return 0, true
	}
	return c.remaining, false
}

func (c *Clock) Stop() {
	c.running = false
}

func (c *Clock) Remaining() int {
	return c.remaining
}

func (c *Clock) Start() int {
	return c.start
}

func (c *Clock) Running() bool {
	return c.running
}

// drive calls tick every interval until ctx ends or tick reports false.
func drive(ctx context.Context, interval time.Duration, tick func() bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !tick() {
				return
			}
		}
	}
}
