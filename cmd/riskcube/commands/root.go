package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "riskcube",
	Short: "Monte Carlo exposure and XVA engine",
	Long: `riskcube builds NPV cubes by replaying market scenarios over a
portfolio and aggregates them into exposure profiles and XVA.

Usage:
  go run ./cmd/riskcube [command]

Examples:
  go run ./cmd/riskcube simulate
  go run ./cmd/riskcube xva
  go run ./cmd/riskcube run
  go run ./cmd/riskcube serve
  go run ./cmd/riskcube cube info output/cube.dat`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
