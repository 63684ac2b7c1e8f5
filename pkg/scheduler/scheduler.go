package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/fadedpez/ledger/internal/logging"
)

// Task represents a scheduled task
type Task struct {
	Name     string
	Interval time.Duration
	Fn       func(context.Context) error
}

// Scheduler runs each task on its own ticker
type Scheduler struct {
	tasks   []*Task
	running bool
	mutex   sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *logging.Logger
}

// NewScheduler creates a new scheduler. A nil logger uses logging.Default.
func NewScheduler(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default
	}

	return &Scheduler{
		tasks:  make([]*Task, 0),
		logger: logger,
	}
}

// AddTask adds a task to the scheduler. Tasks added after Start run on the next Start.
func (s *Scheduler) AddTask(name string, interval time.Duration, fn func(context.Context) error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tasks = append(s.tasks, &Task{
		Name:     name,
		Interval: interval,
		Fn:       fn,
	})
}

// Tasks returns the registered task names
func (s *Scheduler) Tasks() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	names := make([]string, 0, len(s.tasks))
	for _, task := range s.tasks {
		names = append(names, task.Name)
	}
	return names
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(ctx, task)
	}

	s.logger.Info("Scheduler started with %d tasks", len(s.tasks))
}

// Stop cancels every task and waits for in-flight runs to return
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mutex.Unlock()

	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// runTask runs a task immediately and then at the specified interval
func (s *Scheduler) runTask(ctx context.Context, task *Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.run(ctx, task)

	for {
		select {
		case <-ticker.C:
			s.run(ctx, task)
		case <-ctx.Done():
			s.logger.Debug("Task %s stopped", task.Name)
			return
		}
	}
}

func (s *Scheduler) run(ctx context.Context, task *Task) {
	s.logger.Debug("Running scheduled task: %s", task.Name)
	if err := task.Fn(ctx); err != nil {
		s.logger.Warn("Error running task %s: %v", task.Name, err)
	}
}
