package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and trigger monitoring jobs",
	}

	cmd.AddCommand(newJobListCmd())
	cmd.AddCommand(newJobTriggerCmd())

	return cmd
}

func newJobListCmd() *cobra.Command {
	var (
		platform string
		states   []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := apiClient.Jobs().List(context.Background(), platform, states...)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(jobs)
			}

			t := NewTable("ID", "TYPE", "PLATFORM", "STATE", "ATTEMPTS", "DUE")
			for _, j := range jobs {
				t.AddRow(
					truncate(j.ID, 48),
					j.JobType,
					j.Platform,
					formatStatus(j.State),
					strconv.Itoa(j.Attempts),
					formatTime(j.DueAt),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "filter by platform")
	cmd.Flags().StringSliceVar(&states, "state", nil, "filter by state (waiting, delayed, active, completed, failed)")
	return cmd
}

func newJobTriggerCmd() *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "trigger <job-type>",
		Short: "Enqueue a manual job",
		Long: `Enqueue a manual job outside the timer schedule. Valid job types are
platform_monitor (requires --platform), compliance_check,
policy_change_detection and dashboard_report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := apiClient.Monitoring().Trigger(context.Background(), args[0], platform)
			if err != nil {
				return fmt.Errorf("failed to trigger job: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(j)
			}

			fmt.Printf("Job %s enqueued (%s)\n", j.ID, j.State)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "platform for platform_monitor jobs")
	return cmd
}
