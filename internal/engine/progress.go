package engine

import (
	"golang.org/x/time/rate"

	"github.com/oskarlind/riskcube/pkg/logger"
)

// ProgressIndicator receives one notification per completed unit of work
// (one (sample, date) market update with all trades valued).
type ProgressIndicator interface {
	Update(completed, total int)
	Finish()
}

// ProgressLog logs progress at most once per interval, plus a final line.
// The limiter keeps a tight valuation loop from flooding the log.
type ProgressLog struct {
	log     *logger.Logger
	limiter *rate.Limiter
}

// NewProgressLog creates a progress logger emitting at most perSecond
// lines per second.
func NewProgressLog(log *logger.Logger, perSecond float64) *ProgressLog {
	return &ProgressLog{
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (p *ProgressLog) Update(completed, total int) {
	if !p.limiter.Allow() {
		return
	}
	p.log.WithFields(map[string]interface{}{
		"completed": completed,
		"total":     total,
		"pct":       100 * completed / total,
	}).Info("Valuation progress")
}

func (p *ProgressLog) Finish() {
	p.log.Info("Valuation complete")
}
