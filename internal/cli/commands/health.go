package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rs-systems/healthwatch/internal/api/client"
)

func NewHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "health",
		Short:   "Show system health summary",
		Aliases: []string{"status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			summary, err := c.HealthSummary()
			if err != nil {
				return fmt.Errorf("failed to get health summary: %v", err)
			}

			fmt.Printf("Overall: %s (score %.1f, %d active alerts)\n\n",
				summary.OverallStatus, summary.OverallHealthScore, summary.ActiveAlertsCount)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "COMPONENT\tSTATUS\tMESSAGE")
			for _, component := range componentOrder() {
				result, ok := summary.Components[component]
				if !ok {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", component, result.Status, result.Message)
			}
			return w.Flush()
		},
	}

	return cmd
}
