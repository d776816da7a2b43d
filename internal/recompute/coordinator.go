// Package recompute schedules per-(user, day) daily balance rebuilds.
// Because a rebuild is a pure function of the event log, the only
// scheduling obligations are deduplication, per-key serialization, and
// retry on transient storage errors.
package recompute

import (
	"context"
	"sync"
	"time"

	"github.com/kaldera-app/backend/internal/logger"
	"github.com/kaldera-app/backend/internal/metrics"
)

// Execution modes.
const (
	ModeSync   = "sync"
	ModeQueued = "queued"
)

// Func performs the actual day rebuild.
type Func func(ctx context.Context, userID, date string) error

// Options tune the coordinator.
type Options struct {
	Mode        string
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration
}

func (o *Options) withDefaults() {
	if o.Mode == "" {
		o.Mode = ModeSync
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 100 * time.Millisecond
	}
}

type dayKey struct {
	userID string
	date   string
}

// Coordinator runs recomputes either inline (sync) or on a fixed worker
// pool draining a deduplicating pending set (queued). A key is never
// processed by two workers at once; a trigger arriving while its key is
// running marks it dirty for one more pass, so the last write always
// reflects the full event set.
type Coordinator struct {
	fn   Func
	opts Options

	mu      sync.Mutex
	cond    *sync.Cond
	pending []dayKey
	queued  map[dayKey]struct{}
	running map[dayKey]struct{}
	dirty   map[dayKey]struct{}
	stopped bool

	wg sync.WaitGroup
}

// New creates a coordinator. Call Start before Trigger in queued mode.
func New(fn Func, opts Options) *Coordinator {
	opts.withDefaults()
	c := &Coordinator{
		fn:      fn,
		opts:    opts,
		queued:  make(map[dayKey]struct{}),
		running: make(map[dayKey]struct{}),
		dirty:   make(map[dayKey]struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Start launches the worker pool. No-op in sync mode.
func (c *Coordinator) Start() {
	if c.opts.Mode != ModeQueued {
		return
	}
	for i := 0; i < c.opts.Workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	logger.Default().Info("recompute workers started",
		logger.Int("workers", c.opts.Workers),
	)
}

// Trigger requests a recompute of (userID, date). In sync mode it runs
// inline; in queued mode it enqueues, deduplicating against pending work.
func (c *Coordinator) Trigger(userID, date string) {
	key := dayKey{userID, date}

	if c.opts.Mode != ModeQueued {
		c.run(context.Background(), key)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if _, isRunning := c.running[key]; isRunning {
		c.dirty[key] = struct{}{}
		return
	}
	if _, isQueued := c.queued[key]; isQueued {
		return
	}
	c.queued[key] = struct{}{}
	c.pending = append(c.pending, key)
	metrics.SetQueueDepth(len(c.pending))
	c.cond.Signal()
}

// Drain stops accepting triggers and waits for in-flight and pending work
// to finish, or for ctx to expire.
func (c *Coordinator) Drain(ctx context.Context) error {
	c.mu.Lock()
	c.stopped = true
	c.cond.Broadcast()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) worker() {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		for len(c.pending) == 0 && !c.stopped {
			c.cond.Wait()
		}
		if len(c.pending) == 0 && c.stopped {
			c.mu.Unlock()
			return
		}
		key := c.pending[0]
		c.pending = c.pending[1:]
		delete(c.queued, key)
		c.running[key] = struct{}{}
		metrics.SetQueueDepth(len(c.pending))
		c.mu.Unlock()

		c.run(context.Background(), key)

		c.mu.Lock()
		delete(c.running, key)
		if _, isDirty := c.dirty[key]; isDirty {
			// A trigger landed mid-run; one more pass picks up the
			// events that arrived after our snapshot.
			delete(c.dirty, key)
			c.queued[key] = struct{}{}
			c.pending = append(c.pending, key)
			metrics.SetQueueDepth(len(c.pending))
			c.cond.Signal()
		}
		c.mu.Unlock()
	}
}

// run executes the rebuild with capped exponential backoff. Retrying is
// always safe: the rebuild reads the current event set each attempt.
func (c *Coordinator) run(ctx context.Context, key dayKey) {
	backoff := c.opts.BaseBackoff
	for attempt := 1; ; attempt++ {
		err := c.fn(ctx, key.userID, key.date)
		if err == nil {
			return
		}
		if attempt >= c.opts.MaxAttempts {
			logger.Default().Error("recompute failed, giving up",
				logger.String("user_id", key.userID),
				logger.String("date", key.date),
				logger.Int("attempts", attempt),
				logger.Err(err),
			)
			return
		}
		logger.Default().Warn("recompute failed, retrying",
			logger.String("user_id", key.userID),
			logger.String("date", key.date),
			logger.Int("attempt", attempt),
			logger.Err(err),
		)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > 5*time.Second {
			backoff = 5 * time.Second
		}
	}
}
