package core

import "time"

// Clock measures time since Start. A zero Clock is stopped.
type Clock struct {
	startTime time.Time
	elapsed   time.Duration
	lastTick  time.Duration
}

func NewClock() *Clock {
	return &Clock{}
}

// Start resets the clock and starts it.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.elapsed = 0
	c.lastTick = 0
}

// Stop keeps the elapsed time of the last Update.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

func (c *Clock) Running() bool {
	return !c.startTime.IsZero()
}

// Update samples the elapsed time. It does nothing on a stopped clock.
func (c *Clock) Update() {
	if c.Running() {
		c.elapsed = time.Since(c.startTime)
	}
}

// Elapsed returns the seconds between Start and the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed.Seconds()
}

// Tick updates the clock and returns the seconds since the previous Tick,
// or since Start for the first one.
func (c *Clock) Tick() float64 {
	c.Update()
	delta := c.elapsed - c.lastTick
	c.lastTick = c.elapsed
	return delta.Seconds()
}
