package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/pratik-mahalle/ratewatch/pkg/client"
	"github.com/spf13/cobra"
)

func newAlertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage alerts",
	}

	cmd.AddCommand(newAlertListCmd())
	cmd.AddCommand(newAlertGetCmd())
	cmd.AddCommand(newAlertSummaryCmd())
	cmd.AddCommand(newAlertStatusCmd("acknowledge", "Acknowledge an alert", "acknowledged"))
	cmd.AddCommand(newAlertStatusCmd("resolve", "Resolve an alert", "resolved"))

	return cmd
}

type alertFilterFlags struct {
	since, platform, severity, status, alertType string
}

func (f *alertFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.since, "since", "24h", "window as a duration or RFC3339 time")
	cmd.Flags().StringVar(&f.platform, "platform", "", "filter by platform")
	cmd.Flags().StringVar(&f.severity, "severity", "", "filter by severity")
	cmd.Flags().StringVar(&f.status, "status", "", "filter by status")
	cmd.Flags().StringVar(&f.alertType, "type", "", "filter by alert type")
}

func (f *alertFilterFlags) options() *client.AlertListOptions {
	opts := &client.AlertListOptions{Since: f.since}
	if f.platform != "" {
		opts.Platform = &f.platform
	}
	if f.severity != "" {
		opts.Severity = &f.severity
	}
	if f.status != "" {
		opts.Status = &f.status
	}
	if f.alertType != "" {
		opts.Type = &f.alertType
	}
	return opts
}

func newAlertListCmd() *cobra.Command {
	var (
		filters        alertFilterFlags
		page, pageSize int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := filters.options()
			opts.Page = page
			opts.PageSize = pageSize

			result, err := apiClient.Alerts().List(context.Background(), opts)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			t := NewTable("ID", "PLATFORM", "TYPE", "SEVERITY", "STATUS", "MESSAGE")
			for _, a := range result.Data {
				t.AddRow(
					strconv.FormatInt(a.ID, 10),
					a.Platform,
					a.AlertType,
					formatSeverity(a.Severity),
					formatStatus(a.Status),
					truncate(a.Message, 60),
				)
			}
			t.Render()
			fmt.Printf("\nPage %d of %d (%d alerts)\n", result.Page, result.TotalPages, result.TotalItems)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "alerts per page")
	return cmd
}

func newAlertGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get alert details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid alert ID: %s", args[0])
			}

			alert, err := apiClient.Alerts().Get(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to get alert: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(alert)
			}

			fmt.Printf("ID:         %d\n", alert.ID)
			fmt.Printf("Platform:   %s\n", alert.Platform)
			fmt.Printf("Type:       %s\n", alert.AlertType)
			fmt.Printf("Severity:   %s\n", formatSeverity(alert.Severity))
			fmt.Printf("Status:     %s\n", formatStatus(alert.Status))
			fmt.Printf("Message:    %s\n", alert.Message)
			fmt.Printf("Rate limit: %s\n", formatPercent(alert.RateLimitPercentage))
			if alert.ActionTaken != nil {
				fmt.Printf("Action:     %s\n", *alert.ActionTaken)
			}
			fmt.Printf("Created:    %s\n", formatTime(alert.CreatedAt))
			return nil
		},
	}
}

func newAlertSummaryCmd() *cobra.Command {
	var filters alertFilterFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show alert counts by severity and type",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := apiClient.Alerts().Summary(context.Background(), filters.options())
			if err != nil {
				return fmt.Errorf("failed to get alert summary: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(summary)
			}

			fmt.Printf("Total:    %d\n", summary.Total)
			fmt.Printf("Critical: %d\n", summary.Critical)
			fmt.Printf("Warning:  %d\n", summary.Warning)
			fmt.Printf("Info:     %d\n", summary.Info)

			types := make([]string, 0, len(summary.ByType))
			for k := range summary.ByType {
				types = append(types, k)
			}
			sort.Strings(types)

			t := NewTable("TYPE", "COUNT")
			for _, k := range types {
				t.AddRow(k, strconv.Itoa(summary.ByType[k]))
			}
			fmt.Println()
			t.Render()
			return nil
		},
	}

	filters.register(cmd)
	return cmd
}

func newAlertStatusCmd(use, short, status string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid alert ID: %s", args[0])
			}

			if err := apiClient.Alerts().UpdateStatus(context.Background(), id, status); err != nil {
				return fmt.Errorf("failed to update alert: %w", err)
			}

			fmt.Printf("Alert %d %s\n", id, status)
			return nil
		},
	}
}
