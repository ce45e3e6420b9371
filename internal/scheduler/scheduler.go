// Package scheduler runs the periodic due-soon scan and notification purge.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
)

// Config holds the job schedules and windows.
type Config struct {
	DueSoonSchedule string
	DueSoonWindow   time.Duration
	PurgeSchedule   string
	Retention       time.Duration
}

type Scheduler struct {
	cfg           Config
	cron          *cron.Cron
	tasks         repository.TaskRepository
	notifications repository.NotificationRepository
	inbox         *services.NotificationService
	dispatcher    *services.Dispatcher
	log           *zap.Logger
	now           func() time.Time
}

func New(
	cfg Config,
	tasks repository.TaskRepository,
	notifications repository.NotificationRepository,
	inbox *services.NotificationService,
	dispatcher *services.Dispatcher,
	log *zap.Logger,
) *Scheduler {
	cronLog := cronLogger{log.Sugar().Named("cron")}
	runner := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	return &Scheduler{
		cfg:           cfg,
		cron:          runner,
		tasks:         tasks,
		notifications: notifications,
		inbox:         inbox,
		dispatcher:    dispatcher,
		log:           log,
		now:           time.Now,
	}
}

// Start registers both jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.DueSoonSchedule, func() {
		sent, err := s.NotifyDueSoon()
		if err != nil {
			s.log.Error("due-soon scan failed", zap.Error(err))
			return
		}
		s.log.Info("due-soon scan finished", zap.Int("notified", sent))
	}); err != nil {
		return fmt.Errorf("invalid due-soon schedule %q: %w", s.cfg.DueSoonSchedule, err)
	}

	if _, err := s.cron.AddFunc(s.cfg.PurgeSchedule, func() {
		purged, err := s.inbox.PurgeOlderThan(s.cfg.Retention)
		if err != nil {
			s.log.Error("notification purge failed", zap.Error(err))
			return
		}
		s.log.Info("notification purge finished", zap.Int64("deleted", purged))
	}); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", s.cfg.PurgeSchedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NotifyDueSoon notifies the assignee of every open task due within the
// window. A task is announced once per due date: a due_soon notification
// created after the window opened counts as already sent.
func (s *Scheduler) NotifyDueSoon() (int, error) {
	now := s.now()
	tasks, err := s.tasks.FindDueBetween(now, now.Add(s.cfg.DueSoonWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to find tasks due soon: %w", err)
	}

	sent := 0
	for i := range tasks {
		task := &tasks[i]
		windowStart := task.DueDate.Add(-s.cfg.DueSoonWindow)

		exists, err := s.notifications.ExistsSince(task.AssignedTo, task.ID, models.NotificationTaskDueSoon, windowStart)
		if err != nil {
			s.log.Warn("failed to check due-soon notification", zap.Uint64("task_id", task.ID), zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		if err := s.dispatcher.TaskDueSoon(task); err != nil {
			s.log.Warn("failed to notify due-soon task", zap.Uint64("task_id", task.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// cronLogger routes cron's own logging to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
