package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newScheduleCmd() *cobra.Command {
	var timers bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the sliding-scale check schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := apiClient.Monitoring().Schedule(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get schedule: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(sched)
			}

			if timers {
				t := NewTable("JOB TYPE", "PLATFORM", "LEVEL", "INTERVAL", "DUE")
				for _, tm := range sched.Timers {
					interval := "cron"
					if tm.Interval > 0 {
						interval = tm.Interval.String()
					}
					t.AddRow(tm.JobType, tm.Platform, tm.ActivityLevel, interval, formatTime(tm.DueAt))
				}
				t.Render()
				return nil
			}

			t := NewTable("PLATFORM", "LEVEL", "INTERVAL", "NEXT LEVEL", "NEXT INTERVAL", "TRANSITION")
			for _, e := range sched.SlidingScale {
				t.AddRow(
					e.Platform,
					e.ActivityLevel,
					e.CurrentInterval.String(),
					e.NextLevel,
					e.NextInterval.String(),
					formatTime(e.TransitionTime),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&timers, "timers", false, "show the live scheduler timer table instead")
	return cmd
}
