package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oskarlind/riskcube/internal/cube"
	"github.com/oskarlind/riskcube/internal/portfolio"
	"github.com/oskarlind/riskcube/internal/simmarket"
)

// MarketFactory builds an independent sim market for one worker. The
// returned market must carry its own scenario generator and, if scenario
// data is collected, an aggregation view pinned to sampleBase.
type MarketFactory func(sampleBase int) (*simmarket.ScenarioSimMarket, error)

// BuildCubeParallel splits the sample axis over workers goroutines, each
// with its own market. Workers write disjoint sample ranges of the shared
// cube, so no synchronisation is needed on the data itself.
func (e *ValuationEngine) BuildCubeParallel(ctx context.Context, factory MarketFactory, pf *portfolio.Portfolio, out cube.NPVCube, calculators []ValuationCalculator, workers int) error {
	if workers <= 0 {
		return fmt.Errorf("engine: workers must be positive, got %d", workers)
	}
	if workers > e.samples {
		workers = e.samples
	}
	if workers == 1 {
		market, err := factory(0)
		if err != nil {
			return fmt.Errorf("engine: building market: %w", err)
		}
		return e.BuildCube(ctx, market, pf, out, calculators)
	}

	if err := e.checkDimensions(out, pf, calculators); err != nil {
		return err
	}

	start := time.Now()
	e.log.WithFields(map[string]interface{}{
		"trades":  pf.Size(),
		"dates":   len(e.grid),
		"samples": e.samples,
		"workers": workers,
	}).Info("Building NPV cube in parallel")

	t0Market, err := factory(0)
	if err != nil {
		return fmt.Errorf("engine: building t0 market: %w", err)
	}
	if err := e.runT0(t0Market, pf, out, calculators); err != nil {
		return err
	}

	var completed atomic.Int64
	total := e.totalUnits()

	g, gctx := errgroup.WithContext(ctx)
	per := e.samples / workers
	extra := e.samples % workers
	lo := 0
	for w := 0; w < workers; w++ {
		n := per
		if w < extra {
			n++
		}
		from, to := lo, lo+n
		lo = to

		g.Go(func() error {
			market, err := factory(from)
			if err != nil {
				return fmt.Errorf("engine: building market for samples [%d,%d): %w", from, to, err)
			}
			return e.runSampleRange(gctx, market, pf, out, calculators, from, to, &completed, total)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, p := range e.progress {
		p.Finish()
	}
	e.log.WithField("elapsed", time.Since(start).String()).Info("NPV cube built")
	return nil
}

func (e *ValuationEngine) runSampleRange(ctx context.Context, market *simmarket.ScenarioSimMarket, pf *portfolio.Portfolio, out cube.NPVCube, calculators []ValuationCalculator, from, to int, completed *atomic.Int64, total int) error {
	for sample := from; sample < to; sample++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cube build cancelled at sample %d: %w", sample, err)
		}
		market.ResetSample()

		for dateIdx, d := range e.grid {
			if err := market.Update(d); err != nil {
				return fmt.Errorf("sample %d, date %s: %w", sample, d.Format("2006-01-02"), err)
			}

			for tradeIdx, t := range pf.Trades() {
				for _, c := range calculators {
					err := c.Calculate(t, tradeIdx, market, out, d, dateIdx, sample)
					if err == nil {
						continue
					}
					if e.ContinueOnError {
						e.log.WithError(err).WithFields(map[string]interface{}{
							"trade":  t.ID(),
							"date":   d.Format("2006-01-02"),
							"sample": sample,
						}).Error("Valuation failed, leaving sentinel value")
						continue
					}
					return fmt.Errorf("valuation of trade %s at %s, sample %d: %w",
						t.ID(), d.Format("2006-01-02"), sample, err)
				}
			}

			done := int(completed.Add(1))
			for _, p := range e.progress {
				p.Update(done, total)
			}
		}
	}
	return nil
}
