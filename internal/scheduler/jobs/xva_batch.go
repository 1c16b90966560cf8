package jobs

import (
	"context"

	"github.com/oskarlind/riskcube/internal/runner"
	"github.com/oskarlind/riskcube/pkg/logger"
)

// XVABatchJob runs the full overnight batch: simulation, cube build and
// post processing. A failed run surfaces in the job history; the next
// scheduled run starts from the latest input files.
type XVABatchJob struct {
	runner   *runner.Runner
	logger   *logger.Logger
	schedule string
}

// NewXVABatchJob creates the nightly batch job.
func NewXVABatchJob(r *runner.Runner, log *logger.Logger, schedule string) *XVABatchJob {
	if schedule == "" {
		schedule = "0 0 1 * * *" // 1 AM daily (with seconds)
	}
	return &XVABatchJob{
		runner:   r,
		logger:   log,
		schedule: schedule,
	}
}

// Name returns the job name
func (j *XVABatchJob) Name() string {
	return "xva_batch"
}

// Schedule returns the cron schedule
func (j *XVABatchJob) Schedule() string {
	return j.schedule
}

// Run executes the batch pipeline
func (j *XVABatchJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled batch run")
	return j.runner.RunFull(ctx)
}
