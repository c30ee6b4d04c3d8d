// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard five-field expressions and descriptors such as
// @daily or @every 6h.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether spec is a usable cron expression.
func ValidateSchedule(spec string) error {
	if spec == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}

// Schedule runs job on every tick of spec until ctx is done. Ticks that
// arrive while a job is still running are skipped. A failed job is logged
// and does not stop the schedule.
func Schedule(ctx context.Context, spec string, loc *time.Location, job func(ctx context.Context) error) error {
	if err := ValidateSchedule(spec); err != nil {
		return err
	}
	if loc == nil {
		loc = time.Local
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		slog.Info("scheduled run started")
		if err := job(ctx); err != nil {
			slog.Error("scheduled run failed",
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err))
			return
		}
		slog.Info("scheduled run completed", slog.Duration("duration", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("adding cron job: %w", err)
	}

	c.Start()
	if entries := c.Entries(); len(entries) > 0 {
		slog.Info("scheduler started",
			slog.String("schedule", spec),
			slog.Time("next_run", entries[0].Next))
	}

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
