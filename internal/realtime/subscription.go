// Package realtime turns store change feeds into standing push
// subscriptions. A subscription delivers a full snapshot on every
// change and stays logically alive across transport failures: errors
// are logged and surfaced to the caller as one empty delivery, never as
// a terminated subscription.
package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// retryDelay is how long a broken feed waits before reattaching.
const retryDelay = time.Second

// Feed is a store change feed. *mongo.ChangeStream satisfies it.
type Feed interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// OpenFeed attaches a new change feed for the watched resource.
type OpenFeed func(ctx context.Context) (Feed, error)

// Deliver fetches the current snapshot and hands it to the caller's
// callback. It returns an error only when the store is unreachable.
type Deliver func(ctx context.Context) error

// Subscription is a running watch loop.
type Subscription struct {
	name         string
	log          *zap.SugaredLogger
	deliver      Deliver
	deliverEmpty func()
	open         OpenFeed

	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe starts the watch loop and returns the parameterless
// disposer the caller must invoke on teardown. The first snapshot is
// delivered immediately; afterwards one delivery per observed change.
func Subscribe(log *zap.SugaredLogger, name string, deliver Deliver, deliverEmpty func(), open OpenFeed) func() {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		name:         name,
		log:          log,
		deliver:      deliver,
		deliverEmpty: deliverEmpty,
		open:         open,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	go s.run(ctx)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-s.done
		})
	}
}

// NoopUnsubscribe is returned when a listener refuses to attach, e.g.
// for an empty resource id. Attaching to an undefined resource is a
// programming error, not a condition to retry.
func NoopUnsubscribe() func() { return func() {} }

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)

	for ctx.Err() == nil {
		feed, err := s.open(ctx)
		if err != nil {
			s.degrade(ctx, err)
			s.sleep(ctx)
			continue
		}

		// re-sync: changes may have landed while the feed was down
		s.snapshot(ctx)

		for feed.Next(ctx) {
			s.snapshot(ctx)
		}
		err = feed.Err()
		_ = feed.Close(context.Background())

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.degrade(ctx, err)
		}
		s.sleep(ctx)
	}
}

func (s *Subscription) snapshot(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.deliver(ctx); err != nil {
		s.degrade(ctx, err)
	}
}

// degrade is the error-suppression policy: log, hand the caller an
// empty state so a long-lived screen never crashes over a transient
// backend failure, and let the loop reattach.
func (s *Subscription) degrade(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	s.log.Warnw("subscription degraded", "name", s.name, "error", err)
	s.deliverEmpty()
}

func (s *Subscription) sleep(ctx context.Context) {
	t := time.NewTimer(retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
