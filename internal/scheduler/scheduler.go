// Package scheduler triggers the scrape pipeline once per day at a
// configured wall-clock time.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openkiosk/priceboard/internal/config"
	"github.com/openkiosk/priceboard/internal/pipeline"
)

// Runner is the subset of the pipeline the scheduler drives.
type Runner interface {
	RunOnce(ctx context.Context) (pipeline.Result, error)
}

// Scheduler owns the cron instance that fires the daily run.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string
}

// New builds a Scheduler from the configured "HH:MM" wall-clock time and
// IANA timezone. The cron is not started yet; call Start.
func New(runner Runner, cfg config.ScheduleConfig) (*Scheduler, error) {
	spec, err := cronSpec(cfg.At)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "scheduler: load timezone %q", cfg.Timezone)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{log: zap.L().With(zap.String("component", "scheduler"))}),
	)

	s := &Scheduler{cron: c, runner: runner, spec: spec}
	if _, err := c.AddFunc(spec, s.fire); err != nil {
		return nil, eris.Wrapf(err, "scheduler: register schedule %q", spec)
	}

	return s, nil
}

// Start begins the schedule and blocks until ctx is cancelled. Run
// failures are logged and the schedule keeps going.
func (s *Scheduler) Start(ctx context.Context) error {
	zap.L().Info("scheduler: starting",
		zap.String("component", "scheduler"),
		zap.String("schedule", s.spec),
	)
	s.cron.Start()

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

func (s *Scheduler) fire() {
	log := zap.L().With(zap.String("component", "scheduler"))

	result, err := s.runner.RunOnce(context.Background())
	if err != nil {
		if eris.Is(err, pipeline.ErrRunInProgress) {
			log.Warn("scheduler: run skipped, another run in flight")
			return
		}
		log.Error("scheduler: scheduled run failed", zap.Error(err))
		return
	}

	log.Info("scheduler: scheduled run complete",
		zap.Int("extracted", result.Extracted),
		zap.Int("inserted", result.Inserted),
	)
}

// cronSpec converts a "HH:MM" wall-clock time into a daily cron spec.
func cronSpec(at string) (string, error) {
	parts := strings.SplitN(at, ":", 2)
	if len(parts) != 2 {
		return "", eris.Errorf("scheduler: invalid schedule time %q, want HH:MM", at)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", eris.Errorf("scheduler: invalid hour in %q", at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", eris.Errorf("scheduler: invalid minute in %q", at)
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("scheduler: "+msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("scheduler: "+msg, zap.Error(err), zap.Any("details", keysAndValues))
}
