// internal/workers/scheduler.go
package workers

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

// Schedule holds the cron specs of the periodic tasks. An empty spec
// disables its task.
type Schedule struct {
	ReconcileCron string
	CleanupCron   string
}

// NewScheduler registers the periodic counter rebuild and upload cleanup.
func NewScheduler(opt asynq.RedisConnOpt, schedule Schedule, logger *slog.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Logger:   NewAsynqLogger(logger),
		Location: time.Local,
	})

	entries := []struct {
		spec string
		task *asynq.Task
	}{
		{schedule.ReconcileCron, NewCounterReconcileTask()},
		{schedule.CleanupCron, NewCleanupTask()},
	}
	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		id, err := scheduler.Register(e.spec, e.task)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", e.task.Type(), err)
		}
		logger.Info("periodic task registered",
			slog.String("type", e.task.Type()),
			slog.String("cron", e.spec),
			slog.String("entry_id", id))
	}
	return scheduler, nil
}

// asynqLogger adapts slog for Asynq
type asynqLogger struct {
	logger *slog.Logger
}

// NewAsynqLogger routes asynq's own logging through logger.
func NewAsynqLogger(logger *slog.Logger) asynq.Logger {
	return &asynqLogger{
		logger: logger.With(slog.String("component", "asynq")),
	}
}

func (l *asynqLogger) Debug(args ...any) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...any) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...any) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...any) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...any) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
