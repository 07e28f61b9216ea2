package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_Available(t *testing.T) {
	c, err := System()
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NotPanics(t, func() { MustSystem() })
}

func TestSystem_Monotonic(t *testing.T) {
	c := MustSystem()

	prev := c.Now()
	for i := 0; i < 10000; i++ {
		now := c.Now()
		require.GreaterOrEqual(t, now, prev, "clock went backwards at iteration %d", i)
		prev = now
	}
}

func TestSystem_SleepBlocksAtLeastRequested(t *testing.T) {
	c := MustSystem()

	const want = 0.005
	start := c.Now()
	c.Sleep(want)
	elapsed := c.Now() - start

	assert.GreaterOrEqual(t, elapsed, want)
	// Generous upper bound; CI machines overshoot.
	assert.Less(t, elapsed, 0.5)
}

func TestSystem_SleepNonPositiveReturnsImmediately(t *testing.T) {
	c := MustSystem()

	start := time.Now()
	c.Sleep(0)
	c.Sleep(-1)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestDurationConversions(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Duration(1.5))
	assert.Equal(t, time.Duration(0), Duration(0))
	assert.InDelta(t, 0.25, Seconds(250*time.Millisecond), 1e-12)
	assert.Equal(t, 8333333*time.Nanosecond, Duration(1.0/120))
}
