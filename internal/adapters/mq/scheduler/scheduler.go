// Package scheduler runs delayed one-shot tasks that can be cancelled
// through a handle until (and while) they run.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tiermark/pkg/logger"
	"github.com/okian/tiermark/pkg/metrics"
)

// Task is the work executed once the delay elapses. The context is cancelled
// when the handle is cancelled or the scheduler stops.
type Task func(ctx context.Context) error

// State describes where a scheduled task is in its lifecycle.
type State string

// Task states.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// Handle controls a single scheduled task.
type Handle struct {
	id       string
	runAt    time.Time
	cancel   context.CancelFunc
	done     chan struct{}
	onFinish func(*Handle)

	mu    sync.Mutex
	state State
	err   error
}

// ID returns the handle identifier.
func (h *Handle) ID() string { return h.id }

// RunAt returns when the task is (or was) due.
func (h *Handle) RunAt() time.Time { return h.runAt }

// Done is closed once the task reached a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the task error, or context.Canceled for cancelled tasks.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Cancel stops the task. A pending task never runs; a running task sees its
// context cancelled. It returns false if the task had already finished.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return false
	}
	h.cancel()
	return true
}

// Wait blocks until the task finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return fmt.Errorf("wait for task %s: %w", h.id, ctx.Err())
	}
}

// start moves a pending handle to running. It fails if the handle is
// terminal or ctx was cancelled, marking the latter cancelled.
func (h *Handle) start(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return false
	}
	if ctx.Err() != nil {
		h.state, h.err = StateCancelled, context.Canceled
		return false
	}
	h.state = StateRunning
	return true
}

// transition moves the handle to next unless it is already terminal.
func (h *Handle) transition(next State, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return false
	}
	h.state = next
	h.err = err
	return true
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRetention keeps finished handles retrievable via Get for d.
func WithRetention(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.retention = d
		}
	}
}

const defaultRetention = 10 * time.Minute

// Scheduler tracks scheduled tasks by id.
type Scheduler struct {
	mu        sync.Mutex
	handles   map[string]*Handle
	retention time.Duration
	stopped   bool
	wg        sync.WaitGroup
	logger    logger.Logger
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		handles:   make(map[string]*Handle),
		retention: defaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scheduler")
	}
	return s
}

// Schedule runs task once after delay. Cancelling ctx cancels the task too.
// After Stop the returned handle is already cancelled.
func (s *Scheduler) Schedule(ctx context.Context, delay time.Duration, task Task) *Handle {
	if delay < 0 {
		delay = 0
	}
	taskCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:     uuid.NewString(),
		runAt:  time.Now().Add(delay),
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StatePending,
	}
	h.onFinish = s.finished

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		h.transition(StateCancelled, context.Canceled)
		close(h.done)
		return h
	}
	s.handles[h.id] = h
	s.wg.Add(1)
	s.mu.Unlock()

	metrics.RecordTaskScheduled()
	go s.run(taskCtx, h, delay, task)
	return h
}

func (s *Scheduler) run(ctx context.Context, h *Handle, delay time.Duration, task Task) {
	defer s.wg.Done()
	defer close(h.done)
	defer h.cancel()
	defer h.onFinish(h)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		h.transition(StateCancelled, context.Canceled)
		metrics.RecordTaskCancelled()
		s.logger.Debug(ctx, "task cancelled before running", logger.String("id", h.id))
		return
	case <-timer.C:
	}

	if !h.start(ctx) {
		metrics.RecordTaskCancelled()
		s.logger.Debug(ctx, "task cancelled before running", logger.String("id", h.id))
		return
	}

	err := runSafely(ctx, task)
	switch {
	case err == nil:
		h.transition(StateDone, nil)
		metrics.RecordTaskCompleted()
	case ctx.Err() != nil:
		h.transition(StateCancelled, context.Canceled)
		metrics.RecordTaskCancelled()
	default:
		h.transition(StateFailed, err)
		metrics.RecordErrorByComponent("scheduler", "task_failed")
		s.logger.Warn(ctx, "scheduled task failed", logger.String("id", h.id), logger.Error(err))
	}
}

// runSafely turns a panicking task into an error.
func runSafely(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return task(ctx)
}

// finished forgets h after the retention window.
func (s *Scheduler) finished(h *Handle) {
	time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		delete(s.handles, h.id)
		s.mu.Unlock()
	})
}

// Get returns the handle for id, if still known.
func (s *Scheduler) Get(id string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[id]
	return h, ok
}

// Cancel cancels the task with id. ErrNotFound is returned for unknown ids.
func (s *Scheduler) Cancel(id string) (bool, error) {
	h, ok := s.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h.Cancel(), nil
}

// Len returns the number of tasks that have not finished yet.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.handles {
		if !h.State().Terminal() {
			n++
		}
	}
	return n
}

// Stop cancels every outstanding task and waits for their goroutines.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	handles := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	s.wg.Wait()
}
