package postprocess

import (
	"math"

	"github.com/oskarlind/riskcube/internal/portfolio"
)

// Marginal allocation splits a netting set adjustment across member trades
// in proportion to each trade's contribution on the paths where the
// netting set is exposed (positive paths for CVA, negative for DVA).
// Trades hedging the exposure receive negative allocations.
//
// The cap (AllocationLimit) bounds any single trade's share. When a share
// exceeds the cap it is clipped and the excess is redistributed pro rata
// over the not-yet-capped trades; ties resolve by portfolio order, and if
// every trade is capped the residual goes to the first trade in portfolio
// order. The procedure is fully deterministic for fixed inputs.
func (p *PostProcessor) allocate(total float64, ns string, trades []portfolio.Trade, tradePaths map[string]*pathValues, nsRaw *pathValues, positive bool, out map[string]float64) {
	if len(trades) == 0 {
		return
	}
	if total == 0 {
		for _, t := range trades {
			out[t.ID()] = 0
		}
		return
	}

	contributions := make([]float64, len(trades))
	sign := 1.0
	if !positive {
		sign = -1.0
	}
	sum := 0.0
	for i, t := range trades {
		paths := tradePaths[t.ID()]
		c := 0.0
		for j, nsValue := range nsRaw.values {
			if sign*nsValue > 0 {
				c += sign * paths.values[j]
			}
		}
		contributions[i] = c
		sum += c
	}

	fractions := make([]float64, len(trades))
	if sum == 0 {
		// exposed paths exist but contributions cancel exactly; fall back
		// to an equal split
		for i := range fractions {
			fractions[i] = 1.0 / float64(len(trades))
		}
	} else {
		for i, c := range contributions {
			fractions[i] = c / sum
		}
	}

	p.applyCap(fractions, ns)

	for i, t := range trades {
		out[t.ID()] = fractions[i] * total
	}
}

// applyCap clips fractions at the allocation limit, redistributing the
// excess pro rata over uncapped trades until stable.
func (p *PostProcessor) applyCap(fractions []float64, ns string) {
	limit := p.cfg.AllocationLimit
	if math.IsInf(limit, 1) {
		return
	}

	capped := make([]bool, len(fractions))
	for {
		excess := 0.0
		for i, f := range fractions {
			if !capped[i] && f > limit {
				excess += f - limit
				fractions[i] = limit
				capped[i] = true
			}
		}
		if excess == 0 {
			return
		}

		// redistribute over uncapped positive shares, pro rata
		base := 0.0
		for i, f := range fractions {
			if !capped[i] && f > 0 {
				base += f
			}
		}
		if base == 0 {
			// everyone is capped or non-positive; the residual goes to the
			// first uncapped trade, or the first trade outright
			for i := range fractions {
				if !capped[i] {
					fractions[i] += excess
					return
				}
			}
			p.log.WithField("netting_set", ns).Warn("Allocation cap absorbed the full share, residual assigned to first trade")
			fractions[0] += excess
			return
		}
		for i := range fractions {
			if !capped[i] && fractions[i] > 0 {
				fractions[i] += excess * fractions[i] / base
			}
		}
	}
}
