package liveview

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/honeywatch/internal/aggregate"
	"github.com/tinytelemetry/honeywatch/internal/logging"
	"github.com/tinytelemetry/honeywatch/internal/metrics"
	"github.com/tinytelemetry/honeywatch/internal/model"
)

// State is the controller lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
	StateStopped State = "stopped"
)

var (
	// ErrStopped is returned by Start once the controller has been stopped.
	ErrStopped = errors.New("liveview: controller stopped")
	// ErrInvalidInterval is returned for a non-positive polling interval.
	ErrInvalidInterval = errors.New("liveview: interval must be positive")
)

type errHolder struct{ err error }

// Controller keeps subscribers in sync with the record store by re-reading
// and re-aggregating it on an interval.
//
// Refresh cycles never overlap. Subscriber callbacks run synchronously on the
// refreshing goroutine and must not call Subscribe, a cancel func, or Stop.
type Controller struct {
	reader model.RecordReader
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex // guards the lifecycle fields below
	state    State
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	resetCh  chan time.Duration

	cycleMu sync.Mutex

	pubMu   sync.Mutex
	subs    map[uint64]func(model.Update)
	nextSub uint64

	latest  atomic.Pointer[model.Snapshot]
	lastErr atomic.Pointer[errHolder]
	seq     atomic.Uint64
}

// New creates an idle controller over reader.
func New(reader model.RecordReader, log *zap.Logger) *Controller {
	log = logging.OrNop(log)
	return &Controller{
		reader:   reader,
		log:      log,
		now:      time.Now,
		state:    StateIdle,
		interval: model.DefaultUpdateInterval,
		subs:     make(map[uint64]func(model.Update)),
	}
}

// Start begins polling: one refresh right away, then one per interval.
// Calling Start while already polling does nothing.
func (c *Controller) Start(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePolling:
		return nil
	case StateStopped:
		return ErrStopped
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.state = StatePolling
	c.interval = interval
	c.cancel = cancel
	c.done = make(chan struct{})
	c.resetCh = make(chan time.Duration, 1)

	go c.run(ctx, interval, c.resetCh, c.done)

	c.log.Info("live view polling started", zap.Duration("interval", interval))
	return nil
}

// Stop cancels polling and waits for the loop to exit. It is idempotent and
// every caller returns only once the loop is gone.
func (c *Controller) Stop() {
	c.mu.Lock()
	wasPolling := c.state == StatePolling
	if wasPolling {
		c.cancel()
	}
	c.state = StateStopped
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	if wasPolling {
		c.log.Info("live view polling stopped")
	}
}

// SetInterval changes the polling interval, applying it to a running loop
// immediately.
func (c *Controller) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.interval = d
	if c.state == StatePolling {
		// Only the latest pending interval matters.
		select {
		case <-c.resetCh:
		default:
		}
		c.resetCh <- d
	}
	return nil
}

// Interval returns the configured polling interval.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// State returns the lifecycle state as a string.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.state)
}

// RefreshNow runs one refresh cycle regardless of state, waiting for any
// in-flight cycle to finish first. A read that fails because ctx is done is
// returned to the caller but neither recorded nor published.
func (c *Controller) RefreshNow(ctx context.Context) error {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	return c.refresh(ctx, false)
}

// Latest returns the last good snapshot, or nil before the first success.
func (c *Controller) Latest() *model.Snapshot {
	return c.latest.Load()
}

// LastError returns the error of the most recent cycle, or nil when it
// succeeded.
func (c *Controller) LastError() error {
	if h := c.lastErr.Load(); h != nil {
		return h.err
	}
	return nil
}

// Subscribe registers fn for every published update. When a snapshot already
// exists, fn receives it before Subscribe returns.
func (c *Controller) Subscribe(fn func(model.Update)) (cancel func()) {
	c.pubMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	if snap := c.latest.Load(); snap != nil {
		fn(model.Update{Snapshot: snap, Err: c.LastError()})
	}
	c.pubMu.Unlock()
	metrics.Subscribers.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.pubMu.Lock()
			delete(c.subs, id)
			c.pubMu.Unlock()
			metrics.Subscribers.Dec()
		})
	}
}

func (c *Controller) run(ctx context.Context, interval time.Duration, resetCh <-chan time.Duration, done chan struct{}) {
	defer close(done)

	c.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-resetCh:
			ticker.Reset(d)
			c.log.Debug("live view interval changed", zap.Duration("interval", d))
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick runs a loop-driven cycle unless one is already in flight.
func (c *Controller) tick(ctx context.Context) {
	if !c.cycleMu.TryLock() {
		metrics.RefreshSkipped.Inc()
		c.log.Debug("refresh still in flight, skipping tick")
		return
	}
	defer c.cycleMu.Unlock()
	_ = c.refresh(ctx, true)
}

func (c *Controller) refresh(ctx context.Context, fromLoop bool) error {
	start := time.Now()
	records, err := c.reader.Read(ctx)
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		// A cancelled caller says nothing about the store.
		if ctx.Err() != nil {
			metrics.RefreshCycles.WithLabelValues("canceled").Inc()
			return err
		}
		metrics.RefreshCycles.WithLabelValues("error").Inc()
		c.log.Warn("refresh failed, keeping previous snapshot", zap.Error(err))
		c.publish(ctx, fromLoop, nil, err)
		return err
	}

	snap := aggregate.Build(records, c.seq.Add(1), c.now())
	metrics.RefreshCycles.WithLabelValues("ok").Inc()
	c.publish(ctx, fromLoop, snap, nil)
	return nil
}

// publish swaps the cache on success and delivers the update. Loop-driven
// cycles drop their result once Stop has cancelled ctx.
func (c *Controller) publish(ctx context.Context, fromLoop bool, snap *model.Snapshot, err error) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	if fromLoop && ctx.Err() != nil {
		return
	}

	if snap != nil {
		c.latest.Store(snap)
		c.lastErr.Store(nil)
		metrics.SnapshotRecords.Set(float64(len(snap.Records)))
	} else {
		c.lastErr.Store(&errHolder{err: err})
	}

	upd := model.Update{Snapshot: c.latest.Load(), Err: err}
	ids := make([]uint64, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		c.subs[id](upd)
	}
}
