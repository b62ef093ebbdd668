package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rs-systems/healthwatch/internal/cli/commands"
)

var rootCmd = &cobra.Command{
	Use:   "healthwatch",
	Short: "Healthwatch CLI - RS Systems health monitoring",
	Long: `Healthwatch CLI controls a running healthwatch server.
It can trigger monitoring cycles, inspect component health and manage alerts.`,
}

func init() {
	rootCmd.AddCommand(commands.NewHealthCommand())
	rootCmd.AddCommand(commands.NewMonitorCommand())
	rootCmd.AddCommand(commands.NewAlertCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
