package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oskarlind/riskcube/internal/cube"
)

// cubeCmd groups cube file inspection commands.
var cubeCmd = &cobra.Command{
	Use:   "cube",
	Short: "Inspect cube files",
}

var cubeInfoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print the dimensions of a cube file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cube.Load(args[0])
		if err != nil {
			return err
		}

		dates := c.Dates()
		fmt.Printf("asof:    %s\n", c.AsOf().Format("2006-01-02"))
		fmt.Printf("trades:  %d\n", len(c.IDs()))
		fmt.Printf("dates:   %d", len(dates))
		if len(dates) > 0 {
			fmt.Printf(" (%s .. %s)",
				dates[0].Format("2006-01-02"),
				dates[len(dates)-1].Format("2006-01-02"))
		}
		fmt.Println()
		fmt.Printf("samples: %d\n", c.Samples())
		fmt.Printf("depth:   %d\n", c.Depth())

		for i, id := range c.IDs() {
			t0, err := c.GetT0(i, 0)
			if err != nil {
				return err
			}
			fmt.Printf("  %-20s t0=%g\n", id, t0)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cubeCmd)
	cubeCmd.AddCommand(cubeInfoCmd)
}
