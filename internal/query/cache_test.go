package query

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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestKey_StringAndPrefix(t *testing.T) {
	assert.Equal(t, "[users 2]", Key{"users", 2}.String())
	assert.True(t, Key{"users", 2}.HasPrefix(Key{"users"}))
	assert.True(t, Key{"users", 2}.HasPrefix(Key{"users", int64(2)}))
	assert.True(t, Key{"users", 2}.HasPrefix(nil))
	assert.False(t, Key{"user", 2}.HasPrefix(Key{"users"}))
	assert.False(t, Key{"users"}.HasPrefix(Key{"users", 1}))
}

func TestFetch_ConcurrentCallsShareOneRequest(t *testing.T) {
	c := NewCache()
	var calls atomic.Int32
	release := make(chan struct{})
	q := Query[string]{
		Key: Key{"users", 1},
		Fn: func(context.Context) (string, error) {
			calls.Add(1)
			<-release
			return "page-1", nil
		},
	}

	var wg sync.WaitGroup
	results := make([]Result[string], 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Fetch(context.Background(), c, q)
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining goroutines time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.True(t, r.HasData)
		assert.Equal(t, "page-1", r.Data)
		assert.NoError(t, r.Err)
		assert.False(t, r.Loading)
	}
}

func TestFetch_ServesFromCacheWithinStaleTime(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(WithClock(clock.Now))
	var calls int
	q := Query[int]{
		Key:     Key{"users", 1},
		Fn:      func(context.Context) (int, error) { calls++; return calls, nil },
		Options: Options{StaleTime: 5 * time.Minute},
	}
	ctx := context.Background()

	first := Fetch(ctx, c, q)
	require.Equal(t, 1, first.Data)

	clock.Advance(4 * time.Minute)
	second := Fetch(ctx, c, q)
	assert.Equal(t, 1, second.Data)
	assert.False(t, second.Stale)
	assert.Equal(t, 1, calls)

	clock.Advance(2 * time.Minute)
	third := Fetch(ctx, c, q)
	assert.Equal(t, 2, third.Data)
	assert.Equal(t, 2, calls)
}

func TestFetch_ZeroStaleTimeAlwaysRefetches(t *testing.T) {
	c := NewCache()
	var calls int
	q := Query[int]{Key: Key{"k"}, Fn: func(context.Context) (int, error) { calls++; return calls, nil }}

	Fetch(context.Background(), c, q)
	Fetch(context.Background(), c, q)
	assert.Equal(t, 2, calls)
}

func TestFetch_DisabledQueryIsInert(t *testing.T) {
	c := NewCache()
	var events int
	c.Subscribe(func(Event) { events++ })

	called := false
	q := Query[string]{
		Key:     Key{"user", 0},
		Fn:      func(context.Context) (string, error) { called = true; return "x", nil },
		Options: Options{Enabled: func() bool { return false }},
	}

	res := Fetch(context.Background(), c, q)
	assert.False(t, called)
	assert.True(t, res.Idle)
	assert.False(t, res.HasData)
	assert.False(t, res.Loading)
	assert.False(t, res.Fetching)
	assert.NoError(t, res.Err)
	assert.Zero(t, events)
}

func TestFetch_ErrorKeepsPreviousData(t *testing.T) {
	c := NewCache()
	fail := false
	boom := errors.New("boom")
	q := Query[string]{
		Key: Key{"users", 1},
		Fn: func(context.Context) (string, error) {
			if fail {
				return "", boom
			}
			return "ok", nil
		},
	}
	ctx := context.Background()

	require.Equal(t, "ok", Fetch(ctx, c, q).Data)

	fail = true
	res := Fetch(ctx, c, q)
	assert.ErrorIs(t, res.Err, boom)
	assert.True(t, res.HasData)
	assert.Equal(t, "ok", res.Data)

	fail = false
	res = Fetch(ctx, c, q)
	assert.NoError(t, res.Err)
	assert.Equal(t, "ok", res.Data)
}

func TestFetch_FailedResultIsNotServedAsFresh(t *testing.T) {
	c := NewCache()
	var calls int
	q := Query[string]{
		Key: Key{"users", 1},
		Fn: func(context.Context) (string, error) {
			calls++
			return "", errors.New("down")
		},
		Options: Options{StaleTime: time.Hour},
	}

	Fetch(context.Background(), c, q)
	res := Fetch(context.Background(), c, q)
	assert.Equal(t, 2, calls)
	assert.Error(t, res.Err)
	assert.False(t, res.HasData)
}

func TestFetch_SupersededResponseIsDiscarded(t *testing.T) {
	c := NewCache()
	key := Key{"users", 1}
	releaseOld := make(chan struct{})
	releaseNew := make(chan struct{})
	var calls atomic.Int32

	q := Query[string]{
		Key: key,
		Fn: func(context.Context) (string, error) {
			if calls.Add(1) == 1 {
				<-releaseOld
				return "old", nil
			}
			<-releaseNew
			return "new", nil
		},
	}

	oldDone := make(chan Result[string], 1)
	go func() { oldDone <- Fetch(context.Background(), c, q) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Invalidate(Key{"users"})

	newDone := make(chan Result[string], 1)
	go func() { newDone <- Fetch(context.Background(), c, q) }()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	close(releaseNew)
	assert.Equal(t, "new", (<-newDone).Data)

	close(releaseOld)
	<-oldDone

	res := Peek[string](c, key, Options{StaleTime: time.Hour})
	assert.Equal(t, "new", res.Data)
	assert.False(t, res.Fetching)
}

func TestInvalidate_ForcesRefetchWithinStaleTime(t *testing.T) {
	c := NewCache()
	var calls int
	q := Query[int]{
		Key:     Key{"users", 2},
		Fn:      func(context.Context) (int, error) { calls++; return calls, nil },
		Options: Options{StaleTime: time.Hour},
	}
	other := Query[int]{
		Key:     Key{"user", 2},
		Fn:      func(context.Context) (int, error) { return 99, nil },
		Options: Options{StaleTime: time.Hour},
	}
	ctx := context.Background()

	Fetch(ctx, c, q)
	Fetch(ctx, c, other)

	assert.Equal(t, 1, c.Invalidate(Key{"users"}))
	assert.True(t, Peek[int](c, q.Key, q.Options).Stale)
	assert.False(t, Peek[int](c, other.Key, other.Options).Stale)

	res := Fetch(ctx, c, q)
	assert.Equal(t, 2, res.Data)
	assert.False(t, res.Stale)
}

func TestInvalidate_DuringFlightSettlesStale(t *testing.T) {
	c := NewCache()
	release := make(chan struct{})
	started := make(chan struct{})
	q := Query[string]{
		Key: Key{"users", 1},
		Fn: func(context.Context) (string, error) {
			close(started)
			<-release
			return "v1", nil
		},
		Options: Options{StaleTime: time.Hour},
	}

	done := make(chan Result[string], 1)
	go func() { done <- Fetch(context.Background(), c, q) }()
	<-started
	c.Invalidate(Key{"users"})
	close(release)

	res := <-done
	assert.Equal(t, "v1", res.Data)
	assert.True(t, res.Stale)
}

func TestSubscribe_ReportsLifecycle(t *testing.T) {
	c := NewCache()
	var mu sync.Mutex
	var kinds []EventKind
	var loading []bool
	unsubscribe := c.Subscribe(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		loading = append(loading, ev.Loading)
		mu.Unlock()
	})

	q := Query[string]{
		Key:     Key{"users", 1},
		Fn:      func(context.Context) (string, error) { return "ok", nil },
		Options: Options{StaleTime: time.Hour},
	}
	Fetch(context.Background(), c, q)
	Fetch(context.Background(), c, q)

	c.Invalidate(Key{"users"})
	Fetch(context.Background(), c, q)

	unsubscribe()
	c.Invalidate(Key{"users"})
	Fetch(context.Background(), c, q)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventKind{EventStarted, EventSucceeded, EventHit, EventStarted, EventSucceeded}, kinds)
	// Only the first call has no previous data.
	assert.Equal(t, []bool{true, false, false, false, false}, loading)
}

func TestFetch_CallerCancellationDoesNotCancelCall(t *testing.T) {
	c := NewCache()
	release := make(chan struct{})
	var sawCancel atomic.Bool
	q := Query[string]{
		Key: Key{"users", 1},
		Fn: func(ctx context.Context) (string, error) {
			<-release
			if ctx.Err() != nil {
				sawCancel.Store(true)
			}
			return "ok", nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result[string], 1)
	go func() { done <- Fetch(ctx, c, q) }()
	cancel()

	res := <-done
	assert.ErrorIs(t, res.Err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		return Peek[string](c, q.Key, q.Options).HasData
	}, time.Second, time.Millisecond)
	assert.False(t, sawCancel.Load())
}

func TestRemove_DropsEntries(t *testing.T) {
	c := NewCache()
	q := Query[int]{Key: Key{"users", 1}, Fn: func(context.Context) (int, error) { return 1, nil }}
	Fetch(context.Background(), c, q)

	c.Remove(Key{"users"})
	res := Peek[int](c, q.Key, q.Options)
	assert.False(t, res.HasData)
	assert.True(t, res.Stale)
}
