// Package scheduler runs the dashboard's periodic tasks (cache sweep,
// ticker refresh, auto-updates) as named jobs with a process-wide
// pause switch, the headless analogue of pausing timers when the page
// is hidden. Pause suppresses future firings only; a run already in
// flight finishes.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type task struct {
	name     string
	interval time.Duration
	fn       func(context.Context)
}

// Scheduler owns a set of independent periodic tasks.
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []task
	paused  bool
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(clk clock.Clock, logger *slog.Logger) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{clock: clk, logger: logger}
}

// Add registers a task. Must be called before Start.
func (s *Scheduler) Add(name string, interval time.Duration, fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task{name: name, interval: interval, fn: fn})
}

// Start launches one goroutine per task. Tasks fire on their own
// intervals, unsynchronized with each other.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	tasks := make([]task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.Unlock()

	for _, t := range tasks {
		s.wg.Add(1)
		go s.run(ctx, t)
	}
}

func (s *Scheduler) run(ctx context.Context, t task) {
	defer s.wg.Done()

	ticker := s.clock.Ticker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Paused() {
				continue
			}
			s.logger.Debug("running task", "task", t.name)
			t.fn(ctx)
		}
	}
}

// Stop cancels all tasks and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Pause suppresses future firings for every task.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume re-enables firings.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Paused reports whether the scheduler is paused.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}
