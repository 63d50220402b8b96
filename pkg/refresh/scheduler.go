package refresh

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/orderdesk/pkg/models"
	"go.uber.org/zap"
)

// Fetch performs one tick of a task. On success it returns a commit that
// installs the fetched state; the scheduler decides whether it runs.
type Fetch func(ctx context.Context) (commit func(), err error)

// Scheduler runs periodic refresh tasks.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	handles map[*Handle]struct{}
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:  logger.Named("refresh"),
		handles: make(map[*Handle]struct{}),
	}
}

// Start runs fetch now and then every interval until the handle is stopped.
func (s *Scheduler) Start(name string, fetch Fetch, interval time.Duration) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		name:     name,
		fetch:    fetch,
		interval: interval,
		logger:   s.logger.With(zap.String("task", name)),
		ctx:      ctx,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
		owner:    s,
	}

	s.mu.Lock()
	s.handles[h] = struct{}{}
	s.mu.Unlock()

	h.wg.Add(1)
	go h.loop()

	s.logger.Info("Refresh task started",
		zap.String("task", name),
		zap.Duration("interval", interval))
	return h
}

func (s *Scheduler) Stop(h *Handle) {
	h.Stop()
}

// StopAll stops every running task.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.handles))
	for h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

// Stats reports every running task, ordered by name.
func (s *Scheduler) Stats() []Stats {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.handles))
	for h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	out := make([]Stats, 0, len(handles))
	for _, h := range handles {
		out = append(out, h.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) forget(h *Handle) {
	s.mu.Lock()
	delete(s.handles, h)
	s.mu.Unlock()
}

type Stats struct {
	Name                string
	Interval            time.Duration
	Ticks               int
	Skipped             int
	Failures            int
	Stale               int
	ConsecutiveFailures int
	LastError           error
	LastSuccess         time.Time
}

// Healthy reports whether the task has failed fewer than threshold ticks in
// a row. A threshold below 1 never marks a task unhealthy.
func (st Stats) Healthy(threshold int) bool {
	return threshold < 1 || st.ConsecutiveFailures < threshold
}

// Handle controls one running task. Commits and Stop are serialized on the
// handle, so neither Stop nor Stats may be called from inside a commit or
// from a subscriber it notifies.
type Handle struct {
	name     string
	fetch    Fetch
	interval time.Duration
	logger   *zap.Logger
	owner    *Scheduler

	ctx     context.Context
	cancel  context.CancelFunc
	trigger chan struct{}

	mu       sync.Mutex
	stopped  bool
	issued   uint64
	applied  uint64
	inFlight int
	stats    Stats

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func (h *Handle) Name() string { return h.name }

// Trigger requests an immediate tick. Unlike timer ticks, a triggered tick
// runs even when a fetch is already in flight.
func (h *Handle) Trigger() {
	select {
	case h.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels in-flight fetches and waits for them. After Stop returns no
// commit of this task runs. Safe to call more than once.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()

		h.cancel()
		h.wg.Wait()

		if h.owner != nil {
			h.owner.forget(h)
		}
		h.logger.Info("Refresh task stopped")
	})
}

func (h *Handle) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.stats
	st.Name = h.name
	st.Interval = h.interval
	return st
}

func (h *Handle) loop() {
	defer h.wg.Done()

	h.tick(false)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.tick(false)
		case <-h.trigger:
			h.tick(true)
		}
	}
}

func (h *Handle) tick(forced bool) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if !forced && h.inFlight > 0 {
		h.stats.Skipped++
		h.mu.Unlock()
		h.logger.Debug("Refresh tick skipped, fetch still in flight")
		return
	}
	h.issued++
	seq := h.issued
	h.inFlight++
	h.stats.Ticks++
	h.wg.Add(1)
	h.mu.Unlock()

	go h.run(seq)
}

func (h *Handle) run(seq uint64) {
	defer h.wg.Done()

	commit, err := h.fetch(h.ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.inFlight--
	if h.stopped {
		return
	}

	if err != nil {
		h.stats.Failures++
		h.stats.ConsecutiveFailures++
		h.stats.LastError = err
		h.logger.Warn("Refresh failed, keeping previous state",
			zap.Uint64("tick", seq),
			zap.Int("consecutive_failures", h.stats.ConsecutiveFailures),
			zap.Error(err))
		return
	}

	if seq < h.applied {
		h.stats.Stale++
		h.logger.Debug("Discarding refresh result",
			zap.Uint64("tick", seq),
			zap.Uint64("applied", h.applied),
			zap.Error(models.ErrStaleWrite))
		return
	}

	h.applied = seq
	if commit != nil {
		commit()
	}
	h.stats.ConsecutiveFailures = 0
	h.stats.LastError = nil
	h.stats.LastSuccess = time.Now()
}
