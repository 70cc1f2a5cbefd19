// Package scheduler runs named background jobs on cron specs (with seconds).
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of scheduled work. Its context is cancelled when the
// scheduler's base context ends.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(baseCtx context.Context, logger *zap.Logger) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	clog := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers job under name. An overlapping run is skipped.
func (s *Scheduler) Add(name, spec string, job Job) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() { s.run(name, job) })
}

func (s *Scheduler) run(name string, job Job) {
	if s.baseCtx.Err() != nil {
		return
	}
	started := time.Now()
	err := job(s.baseCtx)
	fields := []zap.Field{zap.String("job", name), zap.Duration("took", time.Since(started))}
	if err != nil {
		s.logger.Warn("scheduled job failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Debug("scheduled job done", fields...)
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", zap.Int("jobs", s.Entries()))
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
