package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oskarlind/riskcube/internal/cube"
	"github.com/oskarlind/riskcube/internal/portfolio"
	"github.com/oskarlind/riskcube/internal/simmarket"
	"github.com/oskarlind/riskcube/pkg/logger"
)

// ErrDimensionMismatch is returned when the cube's axes do not match the
// engine grid and portfolio. The engine never resizes a cube; the caller
// allocates it to the exact dimensions.
var ErrDimensionMismatch = errors.New("cube dimensions do not match engine configuration")

// ValuationEngine drives the scenario valuation loop: samples outer, grid
// dates inner, trades innermost. One engine instance serves one run.
type ValuationEngine struct {
	log     *logger.Logger
	grid    []time.Time
	samples int

	// ContinueOnError leaves the sentinel value in failing cells instead
	// of aborting the run.
	ContinueOnError bool

	progress []ProgressIndicator
}

// New creates an engine over the given date grid and sample count.
func New(log *logger.Logger, grid []time.Time, samples int) (*ValuationEngine, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("engine: date grid is empty")
	}
	for i := 1; i < len(grid); i++ {
		if !grid[i].After(grid[i-1]) {
			return nil, fmt.Errorf("engine: date grid must be strictly increasing at index %d", i)
		}
	}
	if samples <= 0 {
		return nil, fmt.Errorf("engine: samples must be positive, got %d", samples)
	}
	return &ValuationEngine{log: log, grid: grid, samples: samples}, nil
}

// Grid returns the simulation date grid.
func (e *ValuationEngine) Grid() []time.Time { return e.grid }

// Samples returns the configured sample count.
func (e *ValuationEngine) Samples() int { return e.samples }

// RegisterProgressIndicator attaches a progress sink notified once per
// completed (sample, date) unit.
func (e *ValuationEngine) RegisterProgressIndicator(p ProgressIndicator) {
	e.progress = append(e.progress, p)
}

func (e *ValuationEngine) checkDimensions(out cube.NPVCube, pf *portfolio.Portfolio, calculators []ValuationCalculator) error {
	if out.Samples() != e.samples {
		return fmt.Errorf("%w: cube samples %d, engine samples %d", ErrDimensionMismatch, out.Samples(), e.samples)
	}
	dates := out.Dates()
	if len(dates) != len(e.grid) {
		return fmt.Errorf("%w: cube dates %d, grid dates %d", ErrDimensionMismatch, len(dates), len(e.grid))
	}
	for i := range dates {
		if !dates[i].Equal(e.grid[i]) {
			return fmt.Errorf("%w: cube date %d is %s, grid has %s", ErrDimensionMismatch,
				i, dates[i].Format("2006-01-02"), e.grid[i].Format("2006-01-02"))
		}
	}
	ids := out.IDs()
	pfIDs := pf.IDs()
	if len(ids) != len(pfIDs) {
		return fmt.Errorf("%w: cube ids %d, portfolio trades %d", ErrDimensionMismatch, len(ids), len(pfIDs))
	}
	for i := range ids {
		if ids[i] != pfIDs[i] {
			return fmt.Errorf("%w: cube id %d is %q, portfolio has %q", ErrDimensionMismatch, i, ids[i], pfIDs[i])
		}
	}
	for _, c := range calculators {
		if n, ok := c.(*NPVCalculator); ok && n.Index >= out.Depth() {
			return fmt.Errorf("%w: npv calculator depth %d, cube depth %d", ErrDimensionMismatch, n.Index, out.Depth())
		}
		if f, ok := c.(*CashflowCalculator); ok && f.Index >= out.Depth() {
			return fmt.Errorf("%w: cashflow calculator depth %d, cube depth %d", ErrDimensionMismatch, f.Index, out.Depth())
		}
	}
	return nil
}

// BuildCube runs the full valuation loop into out. The market must have a
// scenario generator attached; the T0 pass runs against the unshocked
// market before the first sample.
func (e *ValuationEngine) BuildCube(ctx context.Context, market *simmarket.ScenarioSimMarket, pf *portfolio.Portfolio, out cube.NPVCube, calculators []ValuationCalculator) error {
	if err := e.checkDimensions(out, pf, calculators); err != nil {
		return err
	}

	start := time.Now()
	e.log.WithFields(map[string]interface{}{
		"trades":  pf.Size(),
		"dates":   len(e.grid),
		"samples": e.samples,
	}).Info("Building NPV cube")

	if err := e.runT0(market, pf, out, calculators); err != nil {
		return err
	}

	var completed atomic.Int64
	if err := e.runSampleRange(ctx, market, pf, out, calculators, 0, e.samples, &completed, e.totalUnits()); err != nil {
		return err
	}

	for _, p := range e.progress {
		p.Finish()
	}
	e.log.WithField("elapsed", time.Since(start).String()).Info("NPV cube built")
	return nil
}

func (e *ValuationEngine) totalUnits() int { return e.samples * len(e.grid) }

func (e *ValuationEngine) runT0(market *simmarket.ScenarioSimMarket, pf *portfolio.Portfolio, out cube.NPVCube, calculators []ValuationCalculator) error {
	for i, t := range pf.Trades() {
		for _, c := range calculators {
			if err := c.CalculateT0(t, i, market, out); err != nil {
				if e.ContinueOnError {
					e.log.WithError(err).WithField("trade", t.ID()).Error("T0 valuation failed, leaving sentinel value")
					continue
				}
				return fmt.Errorf("t0 valuation of trade %s: %w", t.ID(), err)
			}
		}
	}
	return nil
}

