// Package schedule runs the harvest jobs on cron specs while "serve" is up.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tekkin/internal/harvest"
	appLog "tekkin/internal/log"
)

// Scheduler wraps a cron instance. A job that is still running when its
// next tick fires is skipped, and a panicking job is recovered and logged.
type Scheduler struct {
	cron *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	jobs   map[string]cron.EntryID
}

func New(loc *time.Location) *Scheduler {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{cron: c, ctx: ctx, cancel: cancel, jobs: make(map[string]cron.EntryID)}
}

// Add registers runner under name. An empty spec leaves the job disabled.
func (s *Scheduler) Add(name, spec string, runner harvest.Runner) error {
	if spec == "" {
		appLog.Info("scheduled job disabled", "job", name)
		return nil
	}

	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		results := runner.Run(s.ctx)
		appLog.Info("scheduled job finished",
			"job", name,
			"sources", len(results),
			"failed", harvest.Failed(results),
			"duration", time.Since(start).String(),
		)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: invalid spec %q: %w", name, spec, err)
	}

	s.mu.Lock()
	s.jobs[name] = id
	s.mu.Unlock()
	appLog.Info("scheduled job registered", "job", name, "spec", spec)
	return nil
}

// Next returns the next activation time of the named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		appLog.Error("scheduler stop timed out", ctx.Err())
	}
}

// cronLogger routes cron's own messages to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
