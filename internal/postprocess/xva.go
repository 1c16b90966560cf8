package postprocess

import "math"

// The exposure profiles fed into these adjustments are already discounted
// (deflated by the path numeraire), so no further discount factors appear.

// creditAdjustment integrates LGD x default probability increments against
// the exposure profile: the generic form of CVA (counterparty curve against
// EPE) and DVA (own curve against ENE).
func creditAdjustment(exposure, times []float64, survival interface {
	SurvivalProbability(t float64) float64
}, lgd float64) float64 {
	adj := 0.0
	prev := 0.0
	for i, t := range times {
		pd := survival.SurvivalProbability(prev) - survival.SurvivalProbability(t)
		adj += lgd * pd * exposure[i]
		prev = t
	}
	return adj
}

// fundingAdjustment accrues a funding spread over the exposure profile.
func fundingAdjustment(exposure, times []float64, spread float64) float64 {
	if spread == 0 {
		return 0
	}
	adj := 0.0
	prev := 0.0
	for i, t := range times {
		adj += spread * (t - prev) * exposure[i]
		prev = t
	}
	return adj
}

// colva values the spread earned or paid on the expected collateral
// balance. A positive balance (collateral held) with a positive spread is
// a cost, hence the sign.
func colva(meanBalance, times []float64, spread float64) float64 {
	if spread == 0 {
		return 0
	}
	adj := 0.0
	prev := 0.0
	for i, t := range times {
		adj += -meanBalance[i] * spread * (t - prev)
		prev = t
	}
	return adj
}

// collateralFloorValue prices the floor at zero on the collateral rate:
// only the positive part of the spread leg survives the floor.
func collateralFloorValue(meanBalance, times []float64, spread float64) float64 {
	adj := 0.0
	prev := 0.0
	for i, t := range times {
		leg := -meanBalance[i] * spread * (t - prev)
		adj += math.Max(leg, 0) - leg
		prev = t
	}
	return adj
}

// kva costs regulatory capital held against the exposure profile: an
// EEPE-style capital proxy (charge x risk weight x exposure) accrued at
// the cost of capital.
func (p *PostProcessor) kva(epe, times []float64) float64 {
	adj := 0.0
	prev := 0.0
	for i, t := range times {
		capital := p.cfg.KVACapitalCharge * p.cfg.KVARiskWeight * epe[i]
		adj += p.cfg.KVACostOfCapital * capital * (t - prev)
		prev = t
	}
	return adj
}

// mva accrues the funding spread over the expected DIM profile.
func (p *PostProcessor) mva(dim, times []float64) float64 {
	if p.cfg.DimFundingSpread == 0 {
		return 0
	}
	adj := 0.0
	prev := 0.0
	for i, t := range times {
		adj += p.cfg.DimFundingSpread * dim[i] * (t - prev)
		prev = t
	}
	return adj
}
