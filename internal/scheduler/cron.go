package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teemow/calsheet/internal/logging"
	"github.com/teemow/calsheet/internal/orchestrator"
)

// DefaultSchedule refreshes the timesheet once an hour.
const DefaultSchedule = "@every 1h"

// stopTimeout bounds how long Stop waits for a running tick.
const stopTimeout = 5 * time.Second

var errAlreadyStarted = errors.New("scheduler already started")

// parser accepts standard five-field specs and descriptors such as
// "@hourly" or "@every 30m".
var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

var _ orchestrator.Ticker = (*CronTicker)(nil)

// Validate reports whether spec is a usable schedule.
func Validate(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return nil
}

// CronTicker runs a tick callback on a cron schedule.
type CronTicker struct {
	spec   string
	loc    *time.Location
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewCronTicker creates a ticker for spec evaluated in loc. An empty spec
// selects DefaultSchedule and a nil loc means UTC.
func NewCronTicker(spec string, loc *time.Location, logger *slog.Logger) (*CronTicker, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	adapter := logging.NewCronAdapter(logger)
	return &CronTicker{
		spec:   spec,
		loc:    loc,
		logger: logger,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(parser),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
	}, nil
}

// Start registers tick and starts the schedule. It does not block.
func (t *CronTicker) Start(tick func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return errAlreadyStarted
	}
	if _, err := t.cron.AddFunc(t.spec, tick); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	t.cron.Start()
	t.started = true
	t.logger.Info("Refresh schedule started",
		slog.String("schedule", t.spec),
		slog.Time("next", t.Next(time.Now())))
	return nil
}

// Stop halts the schedule and waits briefly for a running tick.
func (t *CronTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}
	t.started = false

	ctx, cancel := context.WithTimeout(t.cron.Stop(), stopTimeout)
	defer cancel()
	<-ctx.Done()
}

// Next returns the next scheduled fire time after now, in the ticker's
// location.
func (t *CronTicker) Next(now time.Time) time.Time {
	schedule, err := parser.Parse(t.spec)
	if err != nil {
		return time.Time{}
	}
	return schedule.Next(now.In(t.loc))
}
