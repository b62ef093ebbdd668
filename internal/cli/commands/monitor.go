package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rs-systems/healthwatch/internal/api/client"
	"github.com/rs-systems/healthwatch/internal/models"
)

func NewMonitorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "monitor",
		Short:   "Run and control monitoring cycles",
		Aliases: []string{"mon"},
	}

	cmd.AddCommand(newMonitorRunCommand())
	cmd.AddCommand(newMonitorStartCommand())
	cmd.AddCommand(newMonitorStopCommand())
	cmd.AddCommand(newMonitorStatusCommand())

	return cmd
}

func newMonitorRunCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run [component]",
		Short: "Run a monitoring cycle, optionally for a single component",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if len(args) == 1 {
				report, err := c.RunComponent(args[0])
				if err != nil {
					return fmt.Errorf("failed to run monitor: %v", err)
				}
				if asJSON {
					return printJSON(report)
				}
				printComponentReport(report)
				return nil
			}

			report, err := c.RunCycle()
			if err != nil {
				return fmt.Errorf("failed to run monitoring cycle: %v", err)
			}
			if asJSON {
				return printJSON(report)
			}
			for _, component := range componentOrder() {
				if cr, ok := report.Components[component]; ok {
					printComponentReport(cr)
				}
			}
			fmt.Printf("\n%d issue(s) found, %d alert(s) active\n",
				len(report.Issues), report.AlertSummary.ActiveAlertsCount)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw cycle report as JSON")
	return cmd
}

func newMonitorStartCommand() *cobra.Command {
	var intervalSeconds int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the scheduled monitoring loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}
			if err := c.StartMonitoring(intervalSeconds); err != nil {
				return fmt.Errorf("failed to start monitoring: %v", err)
			}
			fmt.Println("Monitoring started")
			return nil
		},
	}

	cmd.Flags().IntVar(&intervalSeconds, "interval", 0,
		"Cycle interval in seconds (0 keeps the server's configured interval)")
	return cmd
}

func newMonitorStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the scheduled monitoring loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}
			if err := c.StopMonitoring(); err != nil {
				return fmt.Errorf("failed to stop monitoring: %v", err)
			}
			fmt.Println("Monitoring stopped")
			return nil
		},
	}
}

func newMonitorStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the monitoring loop is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}
			status, err := c.MonitoringStatus()
			if err != nil {
				return fmt.Errorf("failed to get monitoring status: %v", err)
			}
			return printJSON(status)
		},
	}
}

func printComponentReport(report *models.ComponentReport) {
	fmt.Printf("[%s] %s: %s\n", report.Component, report.Health.Status, report.Health.Message)
	if report.Error != "" {
		fmt.Printf("  error: %s\n", report.Error)
	}
	for _, issue := range report.Issues {
		fmt.Printf("  %s %s: %s\n", issue.Severity, issue.Type, issue.Message)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func componentOrder() []models.Component {
	return models.AllComponents()
}
