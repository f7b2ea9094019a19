// Package poll turns the pull-only message store into a live feed: each
// subscription owns an id cursor and re-queries the log on a fixed tick,
// dispatching anything newer than the cursor to its callback.
package poll

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/metrics"
	"github.com/hasna/convo/internal/storage"
)

// DefaultInterval is the tick period when Options.Interval is zero.
const DefaultInterval = 200 * time.Millisecond

// Reader is the slice of the store the poller needs.
type Reader interface {
	Query(filter storage.MessageFilter) ([]core.Message, error)
}

// Options selects which messages a subscription tails. At most one of
// SessionID, To, Channel is usually set; all set predicates apply
// conjunctively, matching the store's query semantics.
type Options struct {
	SessionID string
	To        string
	Channel   string
	Interval  time.Duration
	OnMessages func([]core.Message)
}

// Subscription is one live tail. The cursor advances past a batch before
// the callback sees it, so a slow or panicking callback can neither stall
// the loop nor cause redelivery.
type Subscription struct {
	store Reader
	opts  Options
	log   zerolog.Logger

	// runMu serializes tick bodies; an overlapping tick is skipped, not
	// queued. Stop acquires it to wait out an in-flight dispatch.
	runMu sync.Mutex

	mu      sync.Mutex
	cursor  int64
	stopped bool

	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// Subscribe seeds the cursor from the newest matching message, so only
// messages created after this call are ever delivered, and starts the
// polling loop.
func Subscribe(store Reader, opts Options, log zerolog.Logger) (*Subscription, error) {
	if opts.OnMessages == nil {
		return nil, fmt.Errorf("poll: OnMessages callback required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	s := &Subscription{
		store: store,
		opts:  opts,
		log:   log,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	latest, err := store.Query(storage.MessageFilter{
		SessionID:  opts.SessionID,
		To:         opts.To,
		Channel:    opts.Channel,
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("seed cursor: %w", err)
	}
	if len(latest) > 0 {
		s.cursor = latest[0].ID
	}

	go s.loop()
	return s, nil
}

func (s *Subscription) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Subscription) tick() {
	// A tick that would overlap a still-running poll is dropped.
	if !s.runMu.TryLock() {
		return
	}
	defer s.runMu.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	cursor := s.cursor
	s.mu.Unlock()

	metrics.PollTicks.Inc()

	msgs, err := s.store.Query(storage.MessageFilter{
		SessionID: s.opts.SessionID,
		To:        s.opts.To,
		Channel:   s.opts.Channel,
		SinceID:   cursor,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("poll query failed")
		return
	}
	if len(msgs) == 0 {
		return
	}

	// Advance before dispatch: delivery is at-most-once per subscription
	// even when the callback fails.
	s.mu.Lock()
	s.cursor = msgs[len(msgs)-1].ID
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	s.dispatch(msgs)
}

func (s *Subscription) dispatch(msgs []core.Message) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PollCallbackFailures.Inc()
			s.log.Error().Any("panic", r).Msg("subscription callback panicked")
		}
	}()
	s.opts.OnMessages(msgs)
}

// Cursor returns the id of the last message handed to the callback (or the
// seed id if nothing has been delivered yet).
func (s *Subscription) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Stop halts the loop. Idempotent; when it returns, no further callback
// invocations will occur, and any in-flight tick has finished.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.quit)
		<-s.done
		// Wait out a tick that was mid-dispatch when stop was called.
		s.runMu.Lock()
		s.runMu.Unlock()
	})
}
