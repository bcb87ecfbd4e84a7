package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newComplianceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Regulatory compliance results",
	}

	cmd.AddCommand(newComplianceReportCmd())

	return cmd
}

func newComplianceReportCmd() *cobra.Command {
	var failingOnly bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Evaluate every regulation against every platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := apiClient.Monitoring().ComplianceReport(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get compliance report: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(report)
			}

			fmt.Printf("Regulations: %d  Platforms: %d  Critical issues: %d\n\n",
				report.Regulations, report.Platforms, report.CriticalIssues)

			t := NewTable("REGULATION", "PLATFORM", "RESULT", "ISSUES")
			for _, r := range report.Results {
				if failingOnly && r.Compliant {
					continue
				}
				result := "compliant"
				if !r.Compliant {
					result = "non_compliant"
				}
				issues := append(append([]string{}, r.Issues...), r.EvaluationErrors...)
				t.AddRow(r.Regulation, r.Platform, formatStatus(result), truncate(strings.Join(issues, "; "), 60))
			}
			t.Render()

			if len(report.Recommendations) > 0 {
				fmt.Println("\nRecommendations:")
				for _, rec := range report.Recommendations {
					fmt.Printf("  - %s\n", rec)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failingOnly, "failing", false, "only show non-compliant results")
	return cmd
}
