package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task is a periodic background job. Run must tolerate being called again
// after a failure; the scheduler guarantees a panic or error in one run never
// stops the ticker.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context)
}

type Scheduler struct {
	log   *zap.Logger
	tasks []Task
}

func New(log *zap.Logger) *Scheduler {
	return &Scheduler{log: log}
}

func (s *Scheduler) Add(t Task) {
	s.tasks = append(s.tasks, t)
}

// Start launches one goroutine per task and returns. Tasks stop when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, t := range s.tasks {
		go s.loop(ctx, t)
	}
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	s.log.Info("scheduled task started", zap.String("task", t.Name), zap.Duration("every", t.Every))
	ticker := time.NewTicker(t.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduled task stopped", zap.String("task", t.Name))
			return
		case <-ticker.C:
			s.runOnce(ctx, t)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t Task) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled task panicked", zap.String("task", t.Name), zap.Any("panic", r))
		}
	}()
	t.Run(ctx)
}
