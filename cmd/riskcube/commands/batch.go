package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oskarlind/riskcube/internal/scheduler"
	"github.com/oskarlind/riskcube/internal/scheduler/jobs"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the nightly batch on a cron schedule",
	Long: `Starts the scheduler with the full simulate-and-aggregate pipeline
as a recurring job. The process stays in the foreground until interrupted.

Example:
  go run ./cmd/riskcube batch
  go run ./cmd/riskcube batch --schedule "0 0 2 * * *"`,
	RunE: runBatch,
}

var batchSchedule string

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchSchedule, "schedule", "", "cron expression with seconds (default 1 AM daily)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	r, log, cleanup, err := buildRunner(true)
	if err != nil {
		return err
	}
	defer cleanup()

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewXVABatchJob(r, log, batchSchedule)); err != nil {
		return fmt.Errorf("add batch job: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}
