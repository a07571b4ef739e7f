package convert

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sagarc03/mdedge/rewrite"
)

// BatchHandler processes a batch of events. *Pipeline implements it.
type BatchHandler interface {
	Handle(ctx context.Context, events []Event) Results
}

type DispatcherConfig struct {
	// Filter decides which keys are forwarded: only keys with one of its
	// source extensions are queued.
	Filter    rewrite.Config
	Workers   int // default: 1
	QueueSize int // default: 64
	// MaxAttempts bounds deliveries of a failing event (default: 3).
	MaxAttempts int
	// RetryDelay is the wait before the second attempt; it grows linearly
	// with each further attempt (default: 1s).
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Dispatcher stands in for an object-store notification service. It
// filters object-created calls by source extension and feeds them to a
// BatchHandler from a bounded queue.
type Dispatcher struct {
	handler     BatchHandler
	filter      rewrite.Config
	maxAttempts int
	retryDelay  time.Duration
	log         *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers. Call Close to stop them.
func NewDispatcher(handler BatchHandler, cfg DispatcherConfig) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	d := &Dispatcher{
		handler:     handler,
		filter:      cfg.Filter,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		log:         log.With("component", "dispatcher"),
		queue:       make(chan Event, queueSize),
	}

	d.wg.Add(workers)
	for range workers {
		go d.work()
	}

	return d
}

// ObjectCreated announces that key was written to bucket. It reports
// whether an event was queued. It never blocks: when the queue is full the
// event is dropped and a warning logged.
func (d *Dispatcher) ObjectCreated(bucket, key string) bool {
	if !d.filter.HasSourceExtension(key) {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("dispatcher closed, event dropped", "bucket", bucket, "key", key)
		return false
	}

	select {
	case d.queue <- Created(bucket, key):
		return true
	default:
		d.log.Warn("queue full, event dropped", "bucket", bucket, "key", key)
		return false
	}
}

// Close stops accepting events, waits for the queued ones to be processed
// and returns once all workers have exited.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for e := range d.queue {
		d.deliver(e)
	}
}

// deliver hands e to the handler, redelivering it after a failure until
// MaxAttempts is reached. Invalid events are not redelivered.
func (d *Dispatcher) deliver(e Event) {
	for attempt := 1; ; attempt++ {
		res := d.handler.Handle(context.Background(), []Event{e})
		err := res.Err()
		if err == nil {
			c := res.Counts()
			d.log.Debug("event processed", "key", e.Key, "attempt", attempt, "converted", c.Converted, "skipped", c.Skipped)
			return
		}

		if attempt >= d.maxAttempts || errors.Is(err, ErrInvalidEvent) {
			d.log.Error("event failed, giving up", "bucket", e.Bucket, "key", e.Key, "attempts", attempt, "error", err)
			return
		}

		d.log.Warn("event failed, redelivering", "bucket", e.Bucket, "key", e.Key, "attempt", attempt, "error", err)
		time.Sleep(d.retryDelay * time.Duration(attempt))
	}
}
