package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dashboard summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			dashboard, err := apiClient.Monitoring().Dashboard(ctx)
			if err != nil {
				return fmt.Errorf("failed to get dashboard: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(dashboard)
			}

			fmt.Println("RateWatch Dashboard")
			fmt.Println(strings.Repeat("=", 40))
			fmt.Printf("  Generated:          %s\n", formatTime(dashboard.GeneratedAt))
			fmt.Printf("  Active platforms:   %d of %d\n", dashboard.Summary.ActivePlatforms, len(dashboard.Platforms))
			fmt.Printf("  Critical alerts:    %d (last 24h)\n", dashboard.Summary.CriticalAlerts)
			fmt.Printf("  Compliance issues:  %d\n", dashboard.Summary.ComplianceIssues)
			fmt.Println()

			t := NewTable("PLATFORM", "LEVEL", "CALLS/H", "RATE LIMIT", "STATE", "COMPLIANCE", "NEXT CHECK")
			for _, p := range dashboard.Platforms {
				t.AddRow(
					p.Platform,
					p.ActivityLevel,
					fmt.Sprintf("%d", p.CallsLastHour),
					formatPercent(p.RateLimitPercentage),
					formatStatus(p.State),
					formatStatus(p.ComplianceStatus),
					formatTime(p.NextCheckTime),
				)
			}
			t.Render()
			return nil
		},
	}
}
