package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is a unit of periodic work.
type Task struct {
	// Name identifies the task in logs.
	Name string

	// Interval is the fixed rate at which Run is invoked.
	// A task with Interval <= 0 is disabled and never scheduled.
	Interval time.Duration

	// InitialDelay is the wait before the first run. Zero runs immediately.
	InitialDelay time.Duration

	// Run performs the work. The context is detached from the scheduler's
	// cancellation, so stopping the scheduler never interrupts a run that
	// has already begun.
	Run func(ctx context.Context)
}

// Scheduler runs a fixed set of [Task] values at fixed rates, each in its
// own goroutine.
//
// Runs of the same task never overlap: if a run takes longer than the
// interval, the missed ticks are dropped rather than queued. Panics inside a
// run are recovered and logged so a task survives any number of failures.
//
// All lifecycle methods (Start, Stop, Wait) are safe for concurrent use.
type Scheduler struct {
	tasks  []Task
	logger *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a [Scheduler] for tasks. Nothing runs until [Scheduler.Start].
func New(tasks []Task, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		tasks:  tasks,
		logger: logger,
	}
}

// Start launches one loop per enabled task and returns immediately.
//
// If ctx is nil, context.Background() is used as the parent context.
// Cancelling ctx has the same effect as [Scheduler.Stop].
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, task := range s.tasks {
		if task.Interval <= 0 {
			s.logger.Info("task disabled", "task", task.Name, "interval", task.Interval.String())
			continue
		}
		s.logger.Info("task scheduled",
			"task", task.Name,
			"interval", task.Interval.String(),
			"initial_delay", task.InitialDelay.String(),
		)

		s.wg.Add(1)
		go s.loop(loopCtx, task)
	}
}

// Stop cancels all future runs. It does not wait for a run in progress; use
// [Scheduler.Wait] for that.
//
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until every task loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// loop drives a single task until ctx is cancelled.
func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	if task.InitialDelay > 0 {
		timer := time.NewTimer(task.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	runCtx := context.WithoutCancel(ctx)
	s.safeRun(runCtx, task)

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// a tick and a cancellation can be ready together
			if ctx.Err() != nil {
				return
			}
			s.safeRun(runCtx, task)
		}
	}
}

// safeRun calls task.Run with panic recovery. A recovered panic is logged
// with a correlation ID and the full stack.
func (s *Scheduler) safeRun(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("uncaught panic in scheduled task",
				"correlation_id", uuid.NewString(),
				"task", task.Name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	task.Run(ctx)
}
