package scheduler

import (
	"context"
	"time"
)

// Job is a batch task the scheduler runs on a cron schedule, such as the
// nightly simulation and XVA run.
type Job interface {
	// Name identifies the job in logs and history.
	Name() string

	// Run executes one batch run. A failed run is recorded and left alone;
	// the next scheduled run picks up from fresh inputs.
	Run(ctx context.Context) error

	// Schedule returns the cron expression the job fires on, with seconds,
	// e.g. "0 0 1 * * *" for 01:00 every night, or "@daily".
	Schedule() string
}

// JobResult records the outcome of one batch run.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps a rolling window of recent run outcomes per scheduler.
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a run outcome, dropping the oldest past 100 entries.
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	if len(h.Results) > 100 {
		h.Results = h.Results[len(h.Results)-100:]
	}
}

// GetLatestResults returns the most recent n outcomes, oldest first.
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}

	if n == 0 {
		return []JobResult{}
	}

	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns the failed runs still inside the window.
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the fraction of runs in the window that
// succeeded, 0 when the history is empty.
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	successCount := 0
	for _, result := range h.Results {
		if result.Success {
			successCount++
		}
	}

	return float64(successCount) / float64(len(h.Results))
}
