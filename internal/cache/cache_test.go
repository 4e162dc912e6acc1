package cache

import (
	"context"
	"errors"
	"sync"
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
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache() (*Cache, *fakeClock) {
	clock := newFakeClock()
	return New(Options{StaleTime: time.Minute, GCTime: 5 * time.Minute, Clock: clock}), clock
}

// counter returns a FetchFunc yielding the values in order, then repeating the last
func counter(values ...interface{}) (FetchFunc, *int) {
	calls := 0
	var mu sync.Mutex
	return func(ctx context.Context) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		i := calls
		if i >= len(values) {
			i = len(values) - 1
		}
		calls++
		return values[i], nil
	}, &calls
}

func TestKey_HasPrefix(t *testing.T) {
	tests := []struct {
		name   string
		key    Key
		prefix Key
		want   bool
	}{
		{"empty prefix", Key{"clients", "list"}, Key{}, true},
		{"exact", Key{"clients", "list"}, Key{"clients", "list"}, true},
		{"parent", Key{"clients", "list", "ACTIVE"}, Key{"clients"}, true},
		{"segment mismatch", Key{"clients", "listing"}, Key{"clients", "list"}, false},
		{"longer prefix", Key{"clients"}, Key{"clients", "list"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.HasPrefix(tt.prefix))
		})
	}
}

func TestFetch_FreshValueSkipsFetcher(t *testing.T) {
	c, clock := newTestCache()
	fn, calls := counter("v1")
	key := Key{"clients", "list", "ACTIVE"}

	value, err := c.Fetch(context.Background(), key, fn)
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	clock.Advance(30 * time.Second)
	value, err = c.Fetch(context.Background(), key, fn)
	require.NoError(t, err)
	assert.Equal(t, "v1", value)
	assert.Equal(t, 1, *calls)
}

func TestFetch_StaleValueRevalidatesInBackground(t *testing.T) {
	c, clock := newTestCache()
	fn, calls := counter("v1", "v2")
	key := Key{"projects", "list"}

	_, err := c.Fetch(context.Background(), key, fn)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	value, err := c.Fetch(context.Background(), key, fn)
	require.NoError(t, err)
	assert.Equal(t, "v1", value, "stale value is served at once")

	c.Wait()
	assert.Equal(t, 2, *calls)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "v2", got)
	assert.False(t, c.State(key).Invalidated)
}

func TestInvalidate_MarksPrefixStale(t *testing.T) {
	c, _ := newTestCache()
	c.Set(Key{"clients", "list", "ACTIVE"}, "a")
	c.Set(Key{"clients", "list", "ALL"}, "b")
	c.Set(Key{"projects", "list"}, "p")

	assert.Equal(t, 2, c.Invalidate(Key{"clients", "list"}))
	assert.True(t, c.State(Key{"clients", "list", "ACTIVE"}).Invalidated)
	assert.False(t, c.State(Key{"projects", "list"}).Invalidated)

	fn, calls := counter("a2")
	value, err := c.Fetch(context.Background(), Key{"clients", "list", "ACTIVE"}, fn)
	require.NoError(t, err)
	assert.Equal(t, "a", value)

	c.Wait()
	assert.Equal(t, 1, *calls)
	got, _ := c.Get(Key{"clients", "list", "ACTIVE"})
	assert.Equal(t, "a2", got)
}

func TestFetch_FailedRevalidationKeepsValue(t *testing.T) {
	c, _ := newTestCache()
	key := Key{"clients", "detail", "c1"}
	c.Set(key, "kept")
	c.Invalidate(key)

	boom := errors.New("backend down")
	value, err := c.Fetch(context.Background(), key, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	require.NoError(t, err)
	assert.Equal(t, "kept", value)
	c.Wait()

	state := c.State(key)
	assert.Equal(t, StatusSuccess, state.Status)
	assert.Equal(t, "kept", state.Value)
	assert.ErrorIs(t, state.Err, boom)
}

func TestFetch_MissingValueFailure(t *testing.T) {
	c, _ := newTestCache()
	key := Key{"clients", "detail", "missing"}
	boom := errors.New("not there")

	_, err := c.Fetch(context.Background(), key, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	state := c.State(key)
	assert.Equal(t, StatusError, state.Status)
	assert.ErrorIs(t, state.Err, boom)
	assert.False(t, state.Fetching)
}

func TestFetch_DiscardsResultAfterCancel(t *testing.T) {
	c, _ := newTestCache()
	key := Key{"communications", "client", "c1"}
	ctx, cancel := context.WithCancel(context.Background())

	_, err := c.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		cancel()
		return "late", nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, ok := c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, StatusLoading, c.State(key).Status)
}

func TestFetch_LastCompletionWins(t *testing.T) {
	c, _ := newTestCache()
	key := Key{"projects", "list"}

	startedA, releaseA := make(chan struct{}), make(chan struct{})
	startedB, releaseB := make(chan struct{}), make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.Fetch(context.Background(), key, func(ctx context.Context) (interface{}, error) {
			close(startedA)
			<-releaseA
			return "first issued", nil
		})
	}()
	<-startedA

	doneB := make(chan struct{})
	go func() {
		defer close(doneB)
		_, _ = c.Fetch(context.Background(), key, func(ctx context.Context) (interface{}, error) {
			close(startedB)
			<-releaseB
			return "second issued", nil
		})
	}()
	<-startedB

	close(releaseB)
	<-doneB
	close(releaseA)
	wg.Wait()

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "first issued", got)
}

func TestRemove_ForcesSynchronousFetch(t *testing.T) {
	c, _ := newTestCache()
	c.Set(Key{"projects", "client", "c1"}, "old")
	c.Set(Key{"projects", "client", "c2"}, "other")

	assert.Equal(t, 1, c.Remove(Key{"projects", "client", "c1"}))

	fn, calls := counter("new")
	value, err := c.Fetch(context.Background(), Key{"projects", "client", "c1"}, fn)
	require.NoError(t, err)
	assert.Equal(t, "new", value)
	assert.Equal(t, 1, *calls)

	other, ok := c.Get(Key{"projects", "client", "c2"})
	require.True(t, ok)
	assert.Equal(t, "other", other)
}

func TestUpdate_And_UpdateAll(t *testing.T) {
	c, _ := newTestCache()
	c.Set(Key{"clients", "list", "ACTIVE"}, 1)
	c.Set(Key{"clients", "list", "ALL"}, 10)

	assert.False(t, c.Update(Key{"clients", "list", "ARCHIVED"}, func(old interface{}) interface{} {
		return 99
	}), "missing entries are not created")
	_, ok := c.Get(Key{"clients", "list", "ARCHIVED"})
	assert.False(t, ok)

	assert.True(t, c.Update(Key{"clients", "list", "ACTIVE"}, func(old interface{}) interface{} {
		return old.(int) + 1
	}))

	n := c.UpdateAll(Key{"clients", "list"}, func(key Key, old interface{}) (interface{}, bool) {
		return old.(int) * 2, true
	})
	assert.Equal(t, 2, n)

	n = c.UpdateAll(Key{"clients"}, func(key Key, old interface{}) (interface{}, bool) {
		return old, false
	})
	assert.Equal(t, 0, n)

	entries := c.Scan(Key{"clients"})
	require.Len(t, entries, 2)
	assert.Equal(t, Key{"clients", "list", "ACTIVE"}, entries[0].Key)
	assert.Equal(t, 4, entries[0].Value)
	assert.Equal(t, 20, entries[1].Value)
	assert.False(t, entries[0].Stale)

	c.Invalidate(Key{"clients", "list", "ALL"})
	entries = c.Scan(Key{"clients"})
	assert.False(t, entries[0].Stale)
	assert.True(t, entries[1].Stale)
}

func TestSubscribe(t *testing.T) {
	c, _ := newTestCache()
	key := Key{"clients", "detail", "c1"}

	var seen []State
	unsubscribe := c.Subscribe(key, func(s State) {
		seen = append(seen, s)
	})

	_, err := c.Fetch(context.Background(), key, func(ctx context.Context) (interface{}, error) {
		return "loaded", nil
	})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, StatusLoading, seen[0].Status)
	assert.True(t, seen[0].Fetching)
	assert.Equal(t, StatusSuccess, seen[1].Status)
	assert.Equal(t, "loaded", seen[1].Value)

	c.Remove(key)
	require.Len(t, seen, 3)
	assert.Equal(t, StatusLoading, seen[2].Status)

	unsubscribe()
	c.Set(key, "ignored")
	assert.Len(t, seen, 3)
}

func TestGC(t *testing.T) {
	c, clock := newTestCache()
	c.Set(Key{"clients", "list", "ACTIVE"}, "unused")
	c.Set(Key{"clients", "list", "ALL"}, "observed")
	unsubscribe := c.Subscribe(Key{"clients", "list", "ALL"}, func(State) {})

	clock.Advance(4 * time.Minute)
	assert.Equal(t, 0, c.GC())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, c.GC())
	_, ok := c.Get(Key{"clients", "list", "ACTIVE"})
	assert.False(t, ok)
	_, ok = c.Get(Key{"clients", "list", "ALL"})
	assert.True(t, ok)

	unsubscribe()
	clock.Advance(6 * time.Minute)
	assert.Equal(t, 1, c.GC())
	assert.Equal(t, 0, c.Len())
}

func TestRunGC_StopsOnCancel(t *testing.T) {
	c, _ := newTestCache()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		c.RunGC(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunGC did not return after cancel")
	}
}

func TestFetchAs_GetAs(t *testing.T) {
	c, _ := newTestCache()
	key := Key{"projects", "list"}

	items, err := FetchAs(context.Background(), c, key, func(ctx context.Context) ([]string, error) {
		return []string{"p1", "p2"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, items)

	got, ok := GetAs[[]string](c, key)
	require.True(t, ok)
	assert.Len(t, got, 2)

	_, ok = GetAs[int](c, key)
	assert.False(t, ok)
}

// blockingFetch returns a FetchFunc that signals started and waits for release
func blockingFetch(value interface{}) (FetchFunc, chan struct{}, chan struct{}) {
	started, release := make(chan struct{}), make(chan struct{})
	return func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return value, nil
	}, started, release
}

func TestRemove_DiscardsInFlightRevalidation(t *testing.T) {
	c, clock := newTestCache()
	key := Key{"projects", "client", "c1"}
	c.Set(key, []string{"p1"})
	clock.Advance(2 * time.Minute)

	fn, started, release := blockingFetch([]string{"p1", "p2"})
	_, err := c.Fetch(context.Background(), key, fn)
	require.NoError(t, err)
	<-started

	c.Remove(key)
	close(release)
	c.Wait()

	_, ok := c.Get(key)
	assert.False(t, ok, "a removed entry is not brought back by an older fetch")

	fresh, calls := counter([]string{"p2"})
	value, err := c.Fetch(context.Background(), key, fresh)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, value)
	assert.Equal(t, 1, *calls)
}

func TestRemove_WithSubscriber_DiscardsInFlightRevalidation(t *testing.T) {
	c, clock := newTestCache()
	key := Key{"communications", "client", "c1"}
	c.Set(key, "before")
	unsubscribe := c.Subscribe(key, func(State) {})
	defer unsubscribe()
	clock.Advance(2 * time.Minute)

	fn, started, release := blockingFetch("stale result")
	_, err := c.Fetch(context.Background(), key, fn)
	require.NoError(t, err)
	<-started

	c.Remove(key)
	close(release)
	c.Wait()

	state := c.State(key)
	assert.Equal(t, StatusLoading, state.Status)
	assert.False(t, state.Fetching)
}

func TestInvalidate_DiscardsInFlightRevalidation(t *testing.T) {
	c, clock := newTestCache()
	key := Key{"clients", "list", "ACTIVE"}
	c.Set(key, "v1")
	clock.Advance(2 * time.Minute)

	fn, started, release := blockingFetch("read before mutation")
	_, err := c.Fetch(context.Background(), key, fn)
	require.NoError(t, err)
	<-started

	c.Invalidate(key)
	close(release)
	c.Wait()

	state := c.State(key)
	assert.Equal(t, "v1", state.Value)
	assert.True(t, state.Invalidated, "the entry still needs a fetch that started after the change")

	next, _ := counter("v2")
	_, err = c.Fetch(context.Background(), key, next)
	require.NoError(t, err)
	c.Wait()
	got, _ := c.Get(key)
	assert.Equal(t, "v2", got)
}

func TestSet_WinsOverInFlightRevalidation(t *testing.T) {
	c, clock := newTestCache()
	key := Key{"clients", "detail", "c1"}
	c.Set(key, "old")
	clock.Advance(2 * time.Minute)

	fn, started, release := blockingFetch("old from backend")
	_, err := c.Fetch(context.Background(), key, fn)
	require.NoError(t, err)
	<-started

	c.Set(key, "written by mutation")
	close(release)
	c.Wait()

	got, _ := c.Get(key)
	assert.Equal(t, "written by mutation", got)
}
