package prefetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"modalnav/internal/components"
	"modalnav/pkg/types"
)

func modalPage(name, url, baseURL string) types.Page {
	return types.Page{
		Component: "Backdrop",
		Props: types.Props{
			types.ModalPropsKey: types.ModalData{Component: name, URL: url, BaseURL: baseURL},
		},
		URL: baseURL,
	}
}

func newResolver(t *testing.T) *components.Registry {
	t.Helper()
	r := components.NewRegistry()
	r.Register("Users/Show", func() components.Component { return "users-show-view" })
	return r
}

func TestGetReturnsLiveEntry(t *testing.T) {
	c := New(newResolver(t), nil, zerolog.Nop())
	if !c.Ingest(context.Background(), modalPage("Users/Show", "/users/1", "/users")) {
		t.Fatalf("ingest failed")
	}
	e, ok := c.Get("/users/1")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if e.Data.Component != "Users/Show" || e.Component != "users-show-view" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestTTLBoundary(t *testing.T) {
	now := time.Unix(1000, 0)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	advance := func(d time.Duration) { mu.Lock(); now = now.Add(d); mu.Unlock() }

	c := New(newResolver(t), nil, zerolog.Nop(), WithTTL(30*time.Second), WithClock(clock))
	c.Ingest(context.Background(), modalPage("Users/Show", "/users/1", "/users"))

	advance(30*time.Second - time.Millisecond)
	if _, ok := c.Get("/users/1"); !ok {
		t.Fatalf("entry expired before TTL")
	}
	advance(time.Millisecond)
	if _, ok := c.Get("/users/1"); ok {
		t.Fatalf("entry served at TTL boundary")
	}
	// Lazy eviction removed it for good.
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted")
	}
}

func TestPrefetchIdempotentOnCacheHit(t *testing.T) {
	var fetches int32
	fetch := func(ctx context.Context, url string) (types.Page, error) {
		atomic.AddInt32(&fetches, 1)
		return modalPage("Users/Show", url, "/users"), nil
	}
	c := New(newResolver(t), fetch, zerolog.Nop())
	if err := c.Prefetch(context.Background(), "/users/1"); err != nil {
		t.Fatalf("prefetch: %v", err)
	}
	if err := c.Prefetch(context.Background(), "/users/1"); err != nil {
		t.Fatalf("prefetch: %v", err)
	}
	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}
}

func TestPrefetchCoalescesInflight(t *testing.T) {
	release := make(chan struct{})
	var fetches int32
	fetch := func(ctx context.Context, url string) (types.Page, error) {
		atomic.AddInt32(&fetches, 1)
		<-release
		return modalPage("Users/Show", url, "/users"), nil
	}
	c := New(newResolver(t), fetch, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Prefetch(context.Background(), "/users/1")
	}()
	// Wait for the first prefetch to be marked in flight.
	for atomic.LoadInt32(&fetches) == 0 {
		time.Sleep(time.Millisecond)
	}
	// Second identical prefetch is suppressed, not duplicated.
	if err := c.Prefetch(context.Background(), "/users/1"); err != nil {
		t.Fatalf("coalesced prefetch: %v", err)
	}
	close(release)
	<-done
	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}
}

func TestPrefetchFetchError(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(ctx context.Context, url string) (types.Page, error) {
		return types.Page{}, boom
	}
	c := New(newResolver(t), fetch, zerolog.Nop())
	if err := c.Prefetch(context.Background(), "/users/1"); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, ok := c.Get("/users/1"); ok {
		t.Fatalf("failed prefetch cached an entry")
	}
	// The in-flight slot is released so a retry can proceed.
	if err := c.Prefetch(context.Background(), "/users/1"); !errors.Is(err, boom) {
		t.Fatalf("retry did not reach fetch: %v", err)
	}
}

func TestPrefetchNonModalPage(t *testing.T) {
	fetch := func(ctx context.Context, url string) (types.Page, error) {
		return types.Page{Component: "Plain", URL: url}, nil
	}
	c := New(newResolver(t), fetch, zerolog.Nop())
	err := c.Prefetch(context.Background(), "/plain")
	if err == nil || !IsNotModalPage(err) {
		t.Fatalf("expected not-modal error, got %v", err)
	}
}

func TestIngestSkipsUnresolvableComponent(t *testing.T) {
	c := New(components.NewRegistry(), nil, zerolog.Nop())
	if c.Ingest(context.Background(), modalPage("Missing/View", "/x", "/")) {
		t.Fatalf("ingest should fail when resolution fails")
	}
	if _, ok := c.Get("/x"); ok {
		t.Fatalf("unresolved entry committed")
	}
}

func TestComponentResolutionCrossCachedByName(t *testing.T) {
	var resolutions int32
	resolver := components.ResolverFunc(func(ctx context.Context, name string) (components.Component, error) {
		atomic.AddInt32(&resolutions, 1)
		return name + "-view", nil
	})
	c := New(resolver, nil, zerolog.Nop())
	c.Ingest(context.Background(), modalPage("Users/Show", "/users/1", "/users"))
	c.Ingest(context.Background(), modalPage("Users/Show", "/users/2", "/users"))
	if n := atomic.LoadInt32(&resolutions); n != 1 {
		t.Fatalf("expected 1 resolution, got %d", n)
	}
}
