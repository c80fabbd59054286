// Package ticker runs periodic tasks whose failures are logged and retried
// on the next tick.
package ticker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/siteops/permitboard/internal/logger"
)

// Task is one periodic job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler owns a set of task loops. Each loop is independent: a slow or
// failing task never delays another one.
type Scheduler struct {
	tasks []Task

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a scheduler for the given tasks.
func New(tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks}
}

// Start launches one goroutine per task. It returns an error for tasks with
// a non-positive interval or no Run function, or if already started.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	for _, t := range s.tasks {
		if t.Interval <= 0 {
			return fmt.Errorf("task %q: interval must be positive, got %v", t.Name, t.Interval)
		}
		if t.Run == nil {
			return fmt.Errorf("task %q: missing run function", t.Name)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(loopCtx, t)
	}
	return nil
}

// Stop cancels every loop and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()

	tick := time.NewTicker(t.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.runOnce(ctx, t)
		}
	}
}

// runOnce swallows errors and panics; the next tick is the retry.
func (s *Scheduler) runOnce(ctx context.Context, t Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorMsg("Scheduler", t.Name, fmt.Sprintf("task panicked: %v", r))
		}
	}()

	if err := t.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Debugf("Scheduler", t.Name, "run failed, retrying next tick: %v", err)
	}
}
