// Package scheduler rebuilds the site on a cron schedule so the "Next:"
// labels roll forward without a manual rebuild.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "coloft/internal/log"
)

// cronLogger routes robfig/cron's own messages through appLog.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}

// Refresher runs a rebuild job on a cron spec. Runs never overlap: a tick
// that arrives while the previous rebuild is still going is skipped.
type Refresher struct {
	cron *cron.Cron
	spec string
	job  func() error
}

// New validates spec (standard 5-field cron or a descriptor such as
// "@daily") and prepares the refresher. loc nil means time.Local.
func New(spec string, loc *time.Location, job func() error) (*Refresher, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler: job is nil")
	}
	if loc == nil {
		loc = time.Local
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid refresh spec %q: %w", spec, err)
	}

	logger := cronLogger{}
	r := &Refresher{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		spec: spec,
		job:  job,
	}
	if _, err := r.cron.AddFunc(spec, r.RunNow); err != nil {
		return nil, fmt.Errorf("scheduler: add job: %w", err)
	}
	return r, nil
}

// RunNow runs the job once on the calling goroutine.
func (r *Refresher) RunNow() {
	start := time.Now()
	if err := r.job(); err != nil {
		appLog.Error("scheduled rebuild failed", err, "spec", r.spec)
		return
	}
	appLog.Info("scheduled rebuild done", "spec", r.spec, "took", time.Since(start).String())
}

func (r *Refresher) Start() {
	appLog.Info("starting refresh scheduler", "spec", r.spec)
	r.cron.Start()
}

// Stop stops new runs and waits for a running job, or for ctx.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		appLog.Info("refresh scheduler stopped")
	case <-ctx.Done():
		appLog.Warn("refresh scheduler stop timed out")
	}
}

// Next reports when the job will run next. Zero before Start.
func (r *Refresher) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
