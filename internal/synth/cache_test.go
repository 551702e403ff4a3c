package synth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache(t *testing.T, capacity int) *Cache {
	t.Helper()
	m, _ := newTestMetrics(t)
	c, err := NewCache(capacity, WithCacheMetrics(m))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return c
}

// countingCompute returns a payload derived from the request and counts calls.
func countingCompute(calls *atomic.Int64) ComputeFunc {
	return func(_ context.Context, req Request) ([]byte, error) {
		calls.Add(1)
		return []byte(req.VoiceID + ":" + req.Text), nil
	}
}

func TestCache_Idempotent(t *testing.T) {
	c := newTestCache(t, 10)
	var calls atomic.Int64
	compute := countingCompute(&calls)

	first, err := c.GetOrCompute(context.Background(), NewRequest("Hello", "v1"), compute)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := c.GetOrCompute(context.Background(), NewRequest("  Hello ", "v1"), compute)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("payloads differ: %q vs %q", first, second)
	}
	if calls.Load() != 1 {
		t.Errorf("compute called %d times, want 1", calls.Load())
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Len != 1 || st.Capacity != 10 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCache_CallersGetIndependentCopies(t *testing.T) {
	c := newTestCache(t, 10)
	var calls atomic.Int64
	req := NewRequest("Hello", "v1")

	a, _ := c.GetOrCompute(context.Background(), req, countingCompute(&calls))
	a[0] = 'X'
	b, _ := c.GetOrCompute(context.Background(), req, countingCompute(&calls))
	if b[0] == 'X' {
		t.Error("mutating a returned payload changed the cached copy")
	}
}

func TestCache_AtMostOneInFlight(t *testing.T) {
	c := newTestCache(t, 10)
	var calls atomic.Int64
	release := make(chan struct{})
	compute := func(_ context.Context, req Request) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("audio"), nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), NewRequest("same", "v"), compute)
		}()
	}

	// Let the callers pile up behind the first flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("compute called %d times, want 1", calls.Load())
	}
	for i := range callers {
		if errs[i] != nil || string(results[i]) != "audio" {
			t.Errorf("caller %d: %q, %v", i, results[i], errs[i])
		}
	}
}

func TestCache_DistinctKeysComputeSeparately(t *testing.T) {
	c := newTestCache(t, 10)
	var calls atomic.Int64
	compute := countingCompute(&calls)

	for _, req := range []Request{
		NewRequest("Hello", "v1"),
		NewRequest("Hello", "v2"),
		NewRequest("hello", "v1"),
	} {
		if _, err := c.GetOrCompute(context.Background(), req, compute); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("compute called %d times, want 3", calls.Load())
	}
}

func TestCache_FailuresNotCached(t *testing.T) {
	c := newTestCache(t, 10)
	req := NewRequest("Hello", "v1")
	boom := errors.New("upstream down")

	var calls int
	compute := func(context.Context, Request) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []byte("audio"), nil
	}

	if _, err := c.GetOrCompute(context.Background(), req, compute); !errors.Is(err, boom) {
		t.Fatalf("first err = %v, want %v", err, boom)
	}
	if c.Contains(req) {
		t.Fatal("failure was cached")
	}
	got, err := c.GetOrCompute(context.Background(), req, compute)
	if err != nil || string(got) != "audio" {
		t.Fatalf("retry = %q, %v", got, err)
	}
	if calls != 2 {
		t.Errorf("compute called %d times, want 2", calls)
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestCache(t, 2)
	var calls atomic.Int64
	compute := countingCompute(&calls)
	ctx := context.Background()

	a, b, d := NewRequest("a", "v"), NewRequest("b", "v"), NewRequest("d", "v")
	_, _ = c.GetOrCompute(ctx, a, compute)
	_, _ = c.GetOrCompute(ctx, b, compute)
	_, _ = c.GetOrCompute(ctx, a, compute) // a is now most recent
	_, _ = c.GetOrCompute(ctx, d, compute) // evicts b

	if !c.Contains(a) || !c.Contains(d) {
		t.Error("recently used entries were evicted")
	}
	if c.Contains(b) {
		t.Error("least recently used entry survived")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if st := c.Stats(); st.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", st.Evictions)
	}

	// An evicted key recomputes on its next request.
	before := calls.Load()
	_, _ = c.GetOrCompute(ctx, b, compute)
	if calls.Load() != before+1 {
		t.Error("evicted entry served without recompute")
	}
}

func TestCache_ContainsDoesNotRefresh(t *testing.T) {
	c := newTestCache(t, 2)
	var calls atomic.Int64
	compute := countingCompute(&calls)
	ctx := context.Background()

	a, b, d := NewRequest("a", "v"), NewRequest("b", "v"), NewRequest("d", "v")
	_, _ = c.GetOrCompute(ctx, a, compute)
	_, _ = c.GetOrCompute(ctx, b, compute)
	_ = c.Contains(a)
	_, _ = c.GetOrCompute(ctx, d, compute)

	if c.Contains(a) {
		t.Error("Contains refreshed recency")
	}
}

func TestCache_CallerCancellationDoesNotCancelCompute(t *testing.T) {
	c := newTestCache(t, 10)
	req := NewRequest("Hello", "v1")

	started := make(chan struct{})
	release := make(chan struct{})
	computeErr := make(chan error, 1)
	compute := func(ctx context.Context, _ Request) ([]byte, error) {
		close(started)
		<-release
		computeErr <- ctx.Err()
		return []byte("audio"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(ctx, req, compute)
		done <- err
	}()

	<-started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("caller err = %v, want context.Canceled", err)
	}
	close(release)
	if err := <-computeErr; err != nil {
		t.Errorf("compute saw ctx error %v, want nil", err)
	}

	// The finished flight populates the cache for the next caller.
	deadline := time.Now().Add(time.Second)
	for !c.Contains(req) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !c.Contains(req) {
		t.Fatal("result of abandoned call was not cached")
	}
}

func TestCache_DefaultCapacity(t *testing.T) {
	c := newTestCache(t, 0)
	if st := c.Stats(); st.Capacity != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", st.Capacity, DefaultCapacity)
	}
}

func TestCache_ConcurrentMixedKeys(t *testing.T) {
	c := newTestCache(t, 8)
	var calls atomic.Int64
	compute := countingCompute(&calls)

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := NewRequest(fmt.Sprintf("line %d", i%16), "v")
			got, err := c.GetOrCompute(context.Background(), req, compute)
			if err != nil || string(got) != "v:"+req.Text {
				t.Errorf("GetOrCompute(%q) = %q, %v", req.Text, got, err)
			}
		}()
	}
	wg.Wait()
	if c.Len() > 8 {
		t.Errorf("Len = %d exceeds capacity", c.Len())
	}
}
