package clock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/navstack/clock"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
)

func TestClock(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 10, Total: 3, Interval: 0.5})
	assert.Equal(t, int32(10), c.InternalStep)
	assert.InDelta(t, 5, c.Now(), 1e-9)
	assert.False(t, c.Done())

	assert.True(t, c.Next())
	assert.True(t, c.Next())
	assert.False(t, c.Next())
	assert.True(t, c.Done())
	assert.InDelta(t, 6.5, c.Now(), 1e-9)

	c.Init()
	assert.Equal(t, int32(10), c.InternalStep)
}

func TestClockString(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 3725, Total: 1, Interval: 1})
	assert.Equal(t, "01:02:05", c.String())
	h, m, s := c.GetHourMinuteSecond()
	assert.Equal(t, 1, h)
	assert.Equal(t, 2, m)
	assert.InDelta(t, 5, s, 1e-9)
}
