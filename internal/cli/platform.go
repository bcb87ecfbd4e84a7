package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPlatformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "platform",
		Aliases: []string{"platforms"},
		Short:   "Inspect and control monitored platforms",
	}

	cmd.AddCommand(newPlatformListCmd())
	cmd.AddCommand(newPlatformGetCmd())
	cmd.AddCommand(newPlatformReportCmd())
	cmd.AddCommand(newPlatformSpamFlagCmd())
	cmd.AddCommand(newPlatformResumeCmd())

	return cmd
}

func newPlatformListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List platform monitoring status",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := apiClient.Monitoring().Platforms(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list platforms: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(statuses)
			}

			t := NewTable("PLATFORM", "LEVEL", "CALLS/H", "RATE LIMIT", "STATE", "NEXT CHECK")
			for _, s := range statuses {
				t.AddRow(
					s.Platform,
					s.ActivityLevel,
					fmt.Sprintf("%d", s.CallsLastHour),
					formatPercent(s.RateLimitPercentage),
					formatStatus(s.State),
					formatTime(s.NextCheckTime),
				)
			}
			t.Render()
			return nil
		},
	}
}

func newPlatformGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <platform>",
		Short: "Show one platform's monitoring status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := apiClient.Monitoring().Platform(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get platform: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(s)
			}

			fmt.Printf("Platform:        %s\n", s.Platform)
			fmt.Printf("Activity level:  %s\n", s.ActivityLevel)
			fmt.Printf("Calls last hour: %d\n", s.CallsLastHour)
			fmt.Printf("Rate limit:      %s\n", formatPercent(s.RateLimitPercentage))
			fmt.Printf("State:           %s\n", formatStatus(s.State))
			fmt.Printf("Compliance:      %s\n", formatStatus(s.ComplianceStatus))
			fmt.Printf("Next check:      %s\n", formatTime(s.NextCheckTime))
			return nil
		},
	}
}

func newPlatformReportCmd() *cobra.Command {
	var headers []string

	cmd := &cobra.Command{
		Use:   "report <platform>",
		Short: "Report one upstream API response with its rate-limit headers",
		Example: `  ratewatch platform report twitter \
    -H x-rate-limit-limit=300 -H x-rate-limit-remaining=12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make(map[string]string, len(headers))
			for _, h := range headers {
				k, v, ok := strings.Cut(h, "=")
				if !ok {
					return fmt.Errorf("invalid header %q, expected name=value", h)
				}
				parsed[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}

			result, err := apiClient.Monitoring().ReportResponse(context.Background(), args[0], parsed)
			if err != nil {
				return fmt.Errorf("failed to report response: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			fmt.Printf("Calls last hour: %d\n", result.CallsLastHour)
			if result.Sample != nil {
				fmt.Printf("Rate limit:      %.1f%% (%d/%d)\n", result.Sample.PercentUsed, result.Sample.CallCount, result.Sample.CallsPerHour)
			}
			fmt.Printf("Action:          %s\n", result.Action)
			fmt.Printf("State:           %s\n", formatStatus(result.State))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "response header as name=value (repeatable)")
	return cmd
}

func newPlatformSpamFlagCmd() *cobra.Command {
	var code, message string

	cmd := &cobra.Command{
		Use:   "spam-flag <platform>",
		Short: "Report a spam flag and stop all pending jobs for the platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := apiClient.Monitoring().SpamFlag(context.Background(), args[0], code, message)
			if err != nil {
				return fmt.Errorf("failed to report spam flag: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			fmt.Printf("Platform %s stopped, %d pending jobs removed\n", result.Platform, result.JobsRemoved)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "platform error code (required)")
	cmd.Flags().StringVar(&message, "message", "", "platform error message")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newPlatformResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <platform>",
		Short: "Return a throttled, paused or stopped platform to normal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := apiClient.Monitoring().Resume(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to resume platform: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			fmt.Printf("Platform %s: %s -> %s\n", result.Platform, result.PreviousState, result.State)
			return nil
		},
	}
}
