package answercache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetThenGet(t *testing.T) {
	c := New(10)
	c.Set("k", "answer", time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "answer", v)
}

func TestZeroValuesAreLegitimate(t *testing.T) {
	c := New(10)
	for name, v := range map[string]any{"bool": false, "int": 0, "string": ""} {
		c.Set(name, v, time.Minute)
		got, ok := c.Get(name)
		require.True(t, ok, "cached zero value %q must not read as absent", name)
		assert.Equal(t, v, got)
	}
}

func TestExpiry(t *testing.T) {
	c := New(10)
	c.Set("k", "v", 20*time.Millisecond)

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok, "expired entry must read as absent")
	assert.False(t, c.Has("k"))
	assert.Equal(t, 0, c.Len(), "expired entry must be lazily removed")
}

func TestCapacityEvictsOldestInserted(t *testing.T) {
	c := New(3)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("c", 3, time.Minute)

	// Touch "a" to prove eviction is insertion-order, not access-order.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", 4, time.Minute)

	_, ok = c.Get("a")
	assert.False(t, ok, "oldest-inserted entry must be evicted")
	for _, k := range []string{"b", "c", "d"} {
		assert.True(t, c.Has(k), "entry %q must survive", k)
	}
}

func TestUpdateNeverEvicts(t *testing.T) {
	c := New(2)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Set("a", 10, time.Minute) // update at capacity

	assert.True(t, c.Has("a"))
	assert.True(t, c.Has("b"))
	v, _ := c.Get("a")
	assert.Equal(t, 10, v)
}

func TestDeleteAndClear(t *testing.T) {
	c := New(10)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	assert.False(t, c.Has("a"))
	assert.True(t, c.Has("b"))

	c.Clear()
	assert.False(t, c.Has("b"))
	assert.Equal(t, 0, c.Len())
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c := New(10)

	var calls atomic.Int32
	compute := func(ctx context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "shared", nil
	}

	const n = 20
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute(context.Background(), "k", time.Minute, compute)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "compute must run exactly once")
	for i, v := range results {
		assert.Equal(t, "shared", v, "caller %d got a different value", i)
	}
}

func TestGetOrComputeFailureDoesNotPoison(t *testing.T) {
	c := New(10)

	var calls atomic.Int32
	fail := errors.New("provider down")
	compute := func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			return nil, fail
		}
		return "recovered", nil
	}

	_, err := c.GetOrCompute(context.Background(), "k", time.Minute, compute)
	require.ErrorIs(t, err, fail)
	assert.False(t, c.Has("k"), "failed computation must leave no entry")

	v, err := c.GetOrCompute(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetOrComputeWaiterCancellation(t *testing.T) {
	c := New(10)

	started := make(chan struct{})
	compute := func(ctx context.Context) (any, error) {
		close(started)
		time.Sleep(80 * time.Millisecond)
		return "slow", nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := c.GetOrCompute(context.Background(), "k", time.Minute, compute)
		assert.NoError(t, err)
		assert.Equal(t, "slow", v)
	}()

	<-started
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrCompute(ctx, "k", time.Minute, compute)
	assert.ErrorIs(t, err, context.Canceled, "canceled waiter must unblock with ctx.Err()")

	// The shared flight still finishes and populates the cache.
	<-done
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "slow", v)
}

func TestGetOrComputeReturnsCachedWithoutComputing(t *testing.T) {
	c := New(10)
	c.Set("k", "cached", time.Minute)

	v, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
		t.Fatal("compute must not run for a cached key")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", v)
}
