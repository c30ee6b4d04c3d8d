// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fourp-digest/internal/pipeline"
)

const defaultSchedule = "0 6 * * 1"

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Repeat the pipeline on a cron schedule",
	Long: `Schedule runs the full pipeline (see run) on every tick of a cron
expression until interrupted. Standard five-field expressions and
descriptors such as @daily or @every 12h are accepted. A tick that arrives
while the previous run is still going is skipped.`,
	RunE: runSchedule,
}

func init() {
	addPipelineFlags(scheduleCmd)
	scheduleCmd.Flags().String("cron", defaultSchedule, "cron expression (default: Mondays at 06:00)")
	scheduleCmd.Flags().String("timezone", "", "IANA time zone for the schedule (default: local)")
	scheduleCmd.Flags().Bool("now", false, "also run once immediately")

	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	keys := map[string]string{
		"schedule.cron":     "cron",
		"schedule.timezone": "timezone",
	}
	for k, f := range pipelineKeys {
		keys[k] = f
	}
	if err := bindFlags(cmd, keys); err != nil {
		return err
	}

	spec := viper.GetString("schedule.cron")
	if err := pipeline.ValidateSchedule(spec); err != nil {
		return err
	}
	loc := time.Local
	if tz := viper.GetString("schedule.timezone"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("loading time zone %q: %w", tz, err)
		}
		loc = l
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := func(ctx context.Context) error {
		_, err := runPipeline(ctx)
		if err == nil {
			if werr := recorder.WriteTextfile(viper.GetString("metrics-file")); werr != nil {
				return fmt.Errorf("writing metrics: %w", werr)
			}
		}
		return err
	}

	if now, _ := cmd.Flags().GetBool("now"); now {
		if err := job(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "initial run failed: %v\n", err)
		}
	}

	fmt.Printf("Scheduled %q in %s; press Ctrl-C to stop.\n", spec, loc)
	return pipeline.Schedule(ctx, spec, loc, job)
}
