package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/txlab/internal/config"
	"github.com/phrazzld/txlab/internal/platform/logger"
)

// LaneConfig holds configuration options for a lane.
type LaneConfig struct {
	// QueueSize bounds the number of units waiting to run.
	// If zero or negative, defaults to config.DefaultLaneQueueSize.
	QueueSize int

	// PollInterval is how often an async monitor reports a unit still running.
	PollInterval time.Duration

	// FatalHandler is called when an async completion callback fails.
	// If nil, the failure panics.
	FatalHandler func(err error)
}

// DefaultLaneConfig returns a LaneConfig with reasonable defaults.
func DefaultLaneConfig() LaneConfig {
	return LaneConfig{
		QueueSize:    config.DefaultLaneQueueSize,
		PollInterval: config.DefaultPollInterval,
	}
}

// LaneConfigFromHarness maps harness configuration onto a LaneConfig.
func LaneConfigFromHarness(cfg config.HarnessConfig) LaneConfig {
	return LaneConfig{
		QueueSize:    cfg.LaneQueueSize,
		PollInterval: cfg.PollInterval,
	}
}

// Lane is a single-goroutine FIFO executor playing the second actor.
type Lane struct {
	name   string
	units  chan *Handle
	cfg    LaneConfig
	logger *slog.Logger

	// mu guards the intake state; units is only closed under the write lock.
	mu      sync.RWMutex
	started bool
	closed  bool

	// quit is closed when the lane stops taking work, waking blocked senders.
	quit     chan struct{}
	quitOnce sync.Once

	failMu  sync.Mutex
	failure error

	// worker tracks the lane goroutine, monitors the async watchers.
	worker   sync.WaitGroup
	monitors sync.WaitGroup
}

// NewLane creates a lane. Call Start before submitting work.
func NewLane(name string, cfg LaneConfig, log *slog.Logger) *Lane {
	if log == nil {
		log = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		log.Warn("invalid lane queue size specified, using default",
			"specified_size", cfg.QueueSize,
			"default_size", config.DefaultLaneQueueSize)
		cfg.QueueSize = config.DefaultLaneQueueSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.DefaultPollInterval
	}
	return &Lane{
		name:   name,
		units:  make(chan *Handle, cfg.QueueSize),
		cfg:    cfg,
		quit:   make(chan struct{}),
		logger: log.With("component", "actor_lane", "actor", name),
	}
}

// Name returns the actor name of the lane.
func (l *Lane) Name() string {
	return l.name
}

// Start launches the lane goroutine. Calling it twice is a no-op.
func (l *Lane) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.closed {
		return
	}
	l.started = true
	l.worker.Add(1)
	go l.run()
	l.logger.Info("lane started", "queue_cap", cap(l.units))
}

// Stop closes the lane to new work, lets queued units finish and waits for
// the lane goroutine and every async monitor to exit.
func (l *Lane) Stop() {
	l.closeQuit()
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.units)
	}
	started := l.started
	l.mu.Unlock()

	if !started {
		// Nothing will ever run what is still queued.
		for h := range l.units {
			h.Cancel()
		}
	}
	l.worker.Wait()
	l.monitors.Wait()
	l.logger.Info("lane stopped")
}

// Err returns the fatal failure that stopped the lane, if any.
func (l *Lane) Err() error {
	l.failMu.Lock()
	defer l.failMu.Unlock()
	return l.failure
}

func (l *Lane) closeQuit() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// Pending returns the number of queued units that have not started.
func (l *Lane) Pending() int {
	return len(l.units)
}

// Submit queues work and returns immediately. It fails with ErrQueueFull
// when the queue has no room.
func (l *Lane) Submit(work Work) (*Handle, error) {
	return l.enqueue(context.Background(), work, false)
}

// SubmitWait queues work, waiting for room in the queue until ctx ends or
// the lane stops taking work.
func (l *Lane) SubmitWait(ctx context.Context, work Work) (*Handle, error) {
	return l.enqueue(ctx, work, true)
}

// intakeErr reports why the lane refuses work. The caller holds mu.
func (l *Lane) intakeErr() error {
	if err := l.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrLaneFailed, err)
	}
	switch {
	case l.closed:
		return ErrLaneClosed
	case !l.started:
		return ErrLaneNotStarted
	}
	return nil
}

func (l *Lane) enqueue(ctx context.Context, work Work, wait bool) (*Handle, error) {
	if work == nil {
		return nil, ErrNilWork
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.intakeErr(); err != nil {
		return nil, err
	}

	h := newHandle(work)
	if !wait {
		select {
		case l.units <- h:
			l.logEnqueued(h)
			return h, nil
		default:
			return nil, fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(l.units))
		}
	}

	select {
	case l.units <- h:
		l.logEnqueued(h)
		return h, nil
	case <-l.quit:
		if err := l.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLaneFailed, err)
		}
		return nil, ErrLaneClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Lane) logEnqueued(h *Handle) {
	l.logger.Debug("work unit enqueued",
		"unit_id", h.id,
		"queue_len", len(l.units),
		"queue_cap", cap(l.units))
}

// RunSync submits every unit, waits for all of them and returns the first
// failure in submission order. A failing unit does not stop later ones, and
// submission waits for queue room, so any number of units may be passed.
// If ctx ends first, RunSync returns ctx's error while the units keep running.
func (l *Lane) RunSync(ctx context.Context, units ...Work) error {
	if laneFrom(ctx) == l {
		return ErrReentrant
	}

	handles := make([]*Handle, 0, len(units))
	var submitErr error
	for _, u := range units {
		h, err := l.SubmitWait(ctx, u)
		if err != nil {
			submitErr = err
			break
		}
		handles = append(handles, h)
	}

	var first error
	for _, h := range handles {
		if err := h.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if first == nil {
				first = err
			}
		}
	}
	if submitErr != nil && first != nil {
		return errors.Join(first, fmt.Errorf("%d of %d units not submitted: %w",
			len(units)-len(handles), len(units), submitErr))
	}
	if first != nil {
		return first
	}
	return submitErr
}

// RunAsync submits work, waiting only for queue room. After the unit finishes,
// whatever its outcome, onComplete runs on a new goroutine. A failing or
// panicking onComplete is fatal to the lane.
func (l *Lane) RunAsync(work Work, onComplete func() error) (*Handle, error) {
	h, err := l.SubmitWait(context.Background(), work)
	if err != nil {
		return nil, err
	}

	l.monitors.Add(1)
	go l.monitor(h, onComplete)
	return h, nil
}

func (l *Lane) monitor(h *Handle, onComplete func() error) {
	defer l.monitors.Done()

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

wait:
	for {
		select {
		case <-h.Done():
			break wait
		case <-ticker.C:
			l.logger.Debug("awaiting async work unit",
				"unit_id", h.id,
				"elapsed", time.Since(h.submitted))
		}
	}

	if onComplete == nil {
		return
	}

	l.monitors.Add(1)
	go func() {
		defer l.monitors.Done()
		if err := protect(onComplete); err != nil {
			l.fail(fmt.Errorf("completion callback of unit %s: %w", h.id, err))
		}
	}()
}

// fail records a fatal failure and hands it to the fatal handler.
func (l *Lane) fail(err error) {
	l.failMu.Lock()
	if l.failure == nil {
		l.failure = err
	}
	l.failMu.Unlock()
	l.closeQuit()

	l.logger.Error("lane failed", "error", err)
	if l.cfg.FatalHandler != nil {
		l.cfg.FatalHandler(err)
		return
	}
	// ALLOW-PANIC: an async completion failure must not pass silently
	panic(fmt.Errorf("%w: %w", ErrLaneFailed, err))
}

func (l *Lane) run() {
	defer l.worker.Done()

	ctx := context.WithValue(context.Background(), laneKey{}, l)
	ctx = logger.WithLogger(ctx, l.logger)

	for h := range l.units {
		if !h.start() {
			continue
		}
		log := l.logger.With("unit_id", h.id)
		log.Debug("work unit started", "queued_for", time.Since(h.submitted))

		start := time.Now()
		err := protect(func() error { return h.work(ctx) })

		var pe *PanicError
		switch {
		case errors.As(err, &pe):
			log.Error("work unit panicked", "panic", formatPanic(pe.Value))
		case err != nil:
			log.Debug("work unit failed", "error", err, "duration", time.Since(start))
		default:
			log.Debug("work unit finished", "duration", time.Since(start))
		}
		h.finish(err)
	}
}
