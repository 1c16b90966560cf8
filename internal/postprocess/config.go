package postprocess

import (
	"fmt"
	"math"
)

// DIMParams are the knobs of the dynamic initial margin regression. All
// defaults are explicit; there are no hidden fallbacks beyond the
// order-0/evaluations-0 flat quantile proxy.
type DIMParams struct {
	// Quantile of the margin distribution, e.g. 0.99.
	Quantile float64
	// HorizonDays is the margin period of risk in calendar days.
	HorizonDays int
	// RegressionOrder 0 disables the polynomial regression; together with
	// LocalEvaluations 0 the flat quantile proxy is used.
	RegressionOrder int
	// Scaling multiplies the resulting DIM.
	Scaling float64
	// LocalEvaluations is the evaluation point count of the kernel
	// regression; 0 disables it.
	LocalEvaluations int
	// Bandwidth of the kernel regression, as a fraction of the regressor
	// range.
	Bandwidth float64
}

// DefaultDIMParams returns the documented defaults.
func DefaultDIMParams() DIMParams {
	return DIMParams{
		Quantile:         0.99,
		HorizonDays:      14,
		RegressionOrder:  0,
		Scaling:          1.0,
		LocalEvaluations: 0,
		Bandwidth:        0.25,
	}
}

// Config parametrises one post-processing run.
type Config struct {
	// Quantile used for peak exposure reporting, e.g. 0.95.
	Quantile float64

	// LGD applied to counterparty default in CVA, and to our own default
	// in DVA.
	CounterpartyLGD float64
	OwnLGD          float64

	// Funding spreads (annualised, absolute) for FVA: borrowing applies
	// to negative exposure, lending to positive.
	BorrowingSpread float64
	LendingSpread   float64

	// CollateralSpread drives COLVA on the collateral balance.
	CollateralSpread float64

	// KVA proxy: capital = CapitalCharge x risk weight x EEPE-style
	// exposure, costed at CostOfCapital per year.
	KVACostOfCapital float64
	KVARiskWeight    float64
	KVACapitalCharge float64

	// DimFundingSpread prices the initial margin funding cost in MVA.
	DimFundingSpread float64

	// AllocationLimit caps a single trade's share of allocated netting set
	// XVA. +Inf disables the cap.
	AllocationLimit float64

	DIM DIMParams
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Quantile:         0.95,
		CounterpartyLGD:  0.6,
		OwnLGD:           0.6,
		BorrowingSpread:  0.0,
		LendingSpread:    0.0,
		CollateralSpread: 0.0,
		KVACostOfCapital: 0.10,
		KVARiskWeight:    1.0,
		KVACapitalCharge: 0.08,
		DimFundingSpread: 0.0,
		AllocationLimit:  math.Inf(1),
		DIM:              DefaultDIMParams(),
	}
}

// Validate checks the numeric ranges.
func (c *Config) Validate() error {
	if c.Quantile <= 0 || c.Quantile >= 1 {
		return fmt.Errorf("postprocess: quantile must be in (0,1), got %g", c.Quantile)
	}
	if c.CounterpartyLGD < 0 || c.CounterpartyLGD > 1 || c.OwnLGD < 0 || c.OwnLGD > 1 {
		return fmt.Errorf("postprocess: LGD must be in [0,1]")
	}
	if c.AllocationLimit <= 0 {
		return fmt.Errorf("postprocess: allocation limit must be positive, got %g", c.AllocationLimit)
	}
	if c.DIM.Quantile <= 0 || c.DIM.Quantile >= 1 {
		return fmt.Errorf("postprocess: DIM quantile must be in (0,1), got %g", c.DIM.Quantile)
	}
	if c.DIM.HorizonDays <= 0 {
		return fmt.Errorf("postprocess: DIM horizon must be positive, got %d days", c.DIM.HorizonDays)
	}
	if c.DIM.RegressionOrder < 0 {
		return fmt.Errorf("postprocess: DIM regression order must be >= 0")
	}
	if c.DIM.LocalEvaluations > 0 && (c.DIM.Bandwidth <= 0 || c.DIM.Bandwidth > 1) {
		return fmt.Errorf("postprocess: DIM bandwidth must be in (0,1], got %g", c.DIM.Bandwidth)
	}
	return nil
}
