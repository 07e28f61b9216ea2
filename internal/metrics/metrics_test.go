package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/avhost/internal/scheduler"
)

func TestCollector_ObserveIteration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveIteration(scheduler.IterationReport{Iteration: 1, Updates: 1, Idles: 2, Sleeps: 1, Updated: 10, Elapsed: 0.01})
	c.ObserveIteration(scheduler.IterationReport{Iteration: 2, Updates: 2, Bailed: true, Dropped: 40, Updated: 52, Elapsed: 0.5})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Iterations))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Updates))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Bails))
	assert.Equal(t, 40.0, testutil.ToFloat64(c.DroppedTicks))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Idles))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Sleeps))
	assert.Equal(t, 52.0, testutil.ToFloat64(c.UpdatedTicks))

	n, err := testutil.GatherAndCount(reg, "avhost_scheduler_iteration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_NilRegistry(t *testing.T) {
	c := New(nil)
	assert.Len(t, c.Collectors(), 9)
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.ObserveIteration(scheduler.IterationReport{Iteration: 1, Updates: 3, Updated: 3})

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "avhost_scheduler_updates_total 3")
	assert.Contains(t, string(body), "avhost_scheduler_iterations_total 1")
}
