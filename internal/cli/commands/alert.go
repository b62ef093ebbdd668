package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rs-systems/healthwatch/internal/api/client"
	"github.com/rs-systems/healthwatch/internal/models"
)

func NewAlertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alert",
		Short:   "Alert management commands",
		Aliases: []string{"alerts", "a"},
	}

	cmd.AddCommand(newAlertListCommand())
	cmd.AddCommand(newAlertHistoryCommand())
	cmd.AddCommand(newAlertSummaryCommand())
	cmd.AddCommand(newAlertResolveCommand())

	return cmd
}

func newAlertListCommand() *cobra.Command {
	var severity, component string

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List active alerts",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			alerts, err := c.ListAlerts(severity, component)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %v", err)
			}
			if len(alerts) == 0 {
				fmt.Println("No active alerts")
				return nil
			}
			return printAlertTable(alerts)
		},
	}

	cmd.Flags().StringVar(&severity, "severity", "", "Filter by severity (info, warning, critical)")
	cmd.Flags().StringVar(&component, "component", "", "Filter by component")
	return cmd
}

func newAlertHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent alert history",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			alerts, err := c.AlertHistory(limit)
			if err != nil {
				return fmt.Errorf("failed to get alert history: %v", err)
			}
			if len(alerts) == 0 {
				fmt.Println("No alerts recorded")
				return nil
			}
			return printAlertTable(alerts)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of alerts to show")
	return cmd
}

func newAlertSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show alert counts by severity and component",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			summary, err := c.AlertSummary()
			if err != nil {
				return fmt.Errorf("failed to get alert summary: %v", err)
			}

			fmt.Printf("Active alerts: %d (last 24h: %d)\n",
				summary.ActiveAlertsCount, summary.AlertsLast24h)
			for severity, count := range summary.SeverityBreakdown {
				fmt.Printf("  %s: %d\n", severity, count)
			}
			for component, count := range summary.ComponentBreakdown {
				fmt.Printf("  %s: %d\n", component, count)
			}
			return nil
		},
	}
}

func newAlertResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [alert_id]",
		Short: "Resolve an active alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}
			if err := c.ResolveAlert(args[0]); err != nil {
				return fmt.Errorf("failed to resolve alert: %v", err)
			}
			fmt.Printf("Alert %s resolved\n", args[0])
			return nil
		},
	}
}

func printAlertTable(alerts []models.Alert) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSEVERITY\tCOMPONENT\tTYPE\tCREATED\tRESOLVED\tMESSAGE")
	for _, a := range alerts {
		resolved := "-"
		if a.IsResolved && a.ResolvedAt != nil {
			resolved = a.ResolvedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(a.ID),
			a.Severity,
			a.Component,
			a.Type,
			a.CreatedAt.Format(time.RFC3339),
			resolved,
			a.Message,
		)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
