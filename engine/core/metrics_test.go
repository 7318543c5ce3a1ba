package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAverage(t *testing.T) {
	MetricsReset()
	for i := 0; i < int(AVG_COUNT); i++ {
		MetricsUpdate(0.016)
	}
	assert.InDelta(t, 16.0, MetricsFrameTime(), 1e-9)
	assert.Equal(t, uint64(AVG_COUNT), MetricsTotalFrames())
}

func TestClockNotStarted(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Equal(t, 0.0, c.Elapsed())

	assert.Zero(t, c.Tick())
	assert.False(t, c.Running())

	c.Start()
	assert.True(t, c.Running())
	first := c.Tick()
	assert.GreaterOrEqual(t, first, 0.0)
	assert.GreaterOrEqual(t, c.Tick(), 0.0)
	assert.GreaterOrEqual(t, c.Elapsed(), first)

	c.Stop()
	assert.False(t, c.Running())
}
