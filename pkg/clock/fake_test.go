package clock_test

import (
	"testing"
	"time"

	"github.com/aretw0/itinera/pkg/clock"
	"github.com/stretchr/testify/assert"
)

func TestFake_FiresInDeadlineOrder(t *testing.T) {
	start := time.Unix(0, 0)
	c := clock.NewFake(start)

	var fired []string
	c.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	c.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, start.Add(2*time.Second), c.Now())

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFake_Stop(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	called := false
	timer := c.AfterFunc(time.Second, func() { called = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop is a no-op")

	c.Advance(2 * time.Second)
	assert.False(t, called)
}

func TestFake_NowInsideCallback(t *testing.T) {
	start := time.Unix(0, 0)
	c := clock.NewFake(start)

	var seen time.Time
	c.AfterFunc(500*time.Millisecond, func() { seen = c.Now() })
	c.Advance(2 * time.Second)

	assert.Equal(t, start.Add(500*time.Millisecond), seen)
}

func TestFake_ChainedTimers(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	count := 0
	c.AfterFunc(time.Second, func() {
		count++
		c.AfterFunc(time.Second, func() { count++ })
	})

	c.Advance(2 * time.Second)
	assert.Equal(t, 2, count)
}
