package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeFeed signals one change per value pushed into events, then blocks
// until the subscription context is cancelled or the feed is failed.
type fakeFeed struct {
	events chan struct{}
	err    error
	mu     sync.Mutex
}

func (f *fakeFeed) Next(ctx context.Context) bool {
	select {
	case _, ok := <-f.events:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (f *fakeFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeFeed) Close(ctx context.Context) error { return nil }

type recorder struct {
	mu        sync.Mutex
	snapshots []int // length of each delivered snapshot
}

func (r *recorder) record(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, n)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) last() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return -1
	}
	return r.snapshots[len(r.snapshots)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSubscribeDeliversSnapshotPerChange(t *testing.T) {
	log := zap.NewNop().Sugar()
	feed := &fakeFeed{events: make(chan struct{}, 8)}
	rec := &recorder{}

	deliver := func(ctx context.Context) error {
		rec.record(2)
		return nil
	}
	unsub := Subscribe(log, "test", deliver, func() { rec.record(0) }, func(ctx context.Context) (Feed, error) {
		return feed, nil
	})
	defer unsub()

	waitFor(t, func() bool { return rec.count() >= 1 }) // initial snapshot

	feed.events <- struct{}{}
	feed.events <- struct{}{}
	waitFor(t, func() bool { return rec.count() >= 3 })

	if rec.last() != 2 {
		t.Fatalf("expected a populated snapshot, got length %d", rec.last())
	}
}

func TestSubscribeDegradesToEmptyOnError(t *testing.T) {
	log := zap.NewNop().Sugar()
	rec := &recorder{}

	var mu sync.Mutex
	fail := true

	deliver := func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return errors.New("store unreachable")
		}
		rec.record(3)
		return nil
	}
	open := func(ctx context.Context) (Feed, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, errors.New("store unreachable")
		}
		return &fakeFeed{events: make(chan struct{})}, nil
	}

	unsub := Subscribe(log, "test", deliver, func() { rec.record(0) }, open)
	defer unsub()

	// failure surfaces as an empty delivery, not a dead subscription
	waitFor(t, func() bool { return rec.count() >= 1 && rec.last() == 0 })

	mu.Lock()
	fail = false
	mu.Unlock()

	// loop reattaches and delivers real data again
	waitFor(t, func() bool { return rec.last() == 3 })
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	log := zap.NewNop().Sugar()
	feed := &fakeFeed{events: make(chan struct{}, 8)}
	rec := &recorder{}

	deliver := func(ctx context.Context) error {
		rec.record(1)
		return nil
	}
	unsub := Subscribe(log, "test", deliver, func() { rec.record(0) }, func(ctx context.Context) (Feed, error) {
		return feed, nil
	})

	waitFor(t, func() bool { return rec.count() >= 1 })
	unsub()
	n := rec.count()

	select {
	case feed.events <- struct{}{}:
	default:
	}
	time.Sleep(50 * time.Millisecond)

	if rec.count() != n {
		t.Fatalf("delivery after unsubscribe: %d -> %d", n, rec.count())
	}

	// second invocation is a no-op
	unsub()
}

func TestNoopUnsubscribe(t *testing.T) {
	u := NoopUnsubscribe()
	u()
	u()
}
