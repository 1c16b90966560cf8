package postprocess

import (
	"fmt"
	"math"
	"sort"

	"github.com/oskarlind/riskcube/internal/aggregation"
	"github.com/oskarlind/riskcube/internal/nettingset"
)

// pathValues holds deflated values per (date, sample) for one entity
// (trade or netting set), date-major.
type pathValues struct {
	dates   int
	samples int
	values  []float64
}

func newPathValues(dates, samples int) *pathValues {
	return &pathValues{dates: dates, samples: samples, values: make([]float64, dates*samples)}
}

func (p *pathValues) at(dateIdx, sample int) float64 {
	return p.values[dateIdx*p.samples+sample]
}

func (p *pathValues) add(dateIdx, sample int, v float64) {
	p.values[dateIdx*p.samples+sample] += v
}

func (p *pathValues) set(dateIdx, sample int, v float64) {
	p.values[dateIdx*p.samples+sample] = v
}

// epe returns the expected positive exposure profile over the date grid.
func (p *pathValues) epe() []float64 {
	return p.profile(func(v float64) float64 { return math.Max(v, 0) })
}

// ene returns the expected negative exposure profile, reported as a
// positive magnitude.
func (p *pathValues) ene() []float64 {
	return p.profile(func(v float64) float64 { return math.Max(-v, 0) })
}

func (p *pathValues) mean() []float64 {
	return p.profile(func(v float64) float64 { return v })
}

func (p *pathValues) profile(f func(float64) float64) []float64 {
	out := make([]float64, p.dates)
	for d := 0; d < p.dates; d++ {
		sum := 0.0
		for s := 0; s < p.samples; s++ {
			sum += f(p.at(d, s))
		}
		out[d] = sum / float64(p.samples)
	}
	return out
}

// peak returns the per-date quantile of the positive exposure.
func (p *pathValues) peak(quantile float64) []float64 {
	out := make([]float64, p.dates)
	buf := make([]float64, p.samples)
	for d := 0; d < p.dates; d++ {
		for s := 0; s < p.samples; s++ {
			buf[s] = math.Max(p.at(d, s), 0)
		}
		sort.Float64s(buf)
		idx := int(math.Ceil(quantile*float64(p.samples))) - 1
		if idx < 0 {
			idx = 0
		}
		out[d] = buf[idx]
	}
	return out
}

// deflate divides every cell by the path numeraire from the scenario data,
// turning raw NPVs into discounted exposures.
func (p *pathValues) deflate(asd aggregation.ScenarioData) error {
	for d := 0; d < p.dates; d++ {
		for s := 0; s < p.samples; s++ {
			n, err := asd.Get(d, s, aggregation.Numeraire, "")
			if err != nil {
				return err
			}
			if n <= 0 {
				return fmt.Errorf("postprocess: non-positive numeraire %g at date %d sample %d", n, d, s)
			}
			p.set(d, s, p.at(d, s)/n)
		}
	}
	return nil
}

// collateralBalance tracks the variation margin balance along each path
// under the CSA terms. The balance responds to the previous grid date's
// uncollateralised value, modelling the margining lag; calls below the
// minimum transfer amount are suppressed.
func collateralBalance(values *pathValues, csa *nettingset.CSA) *pathValues {
	balances := newPathValues(values.dates, values.samples)
	for s := 0; s < values.samples; s++ {
		balance := csa.IndependentAmount
		for d := 0; d < values.dates; d++ {
			// balance decided at the previous date carries into this one
			balances.set(d, s, balance)

			v := values.at(d, s)
			desired := csa.IndependentAmount
			if v > csa.Threshold {
				desired += v - csa.Threshold
			} else if v < -csa.ThresholdReceive {
				desired += v + csa.ThresholdReceive
			}
			if math.Abs(desired-balance) >= csa.MinTransferAmount {
				balance = desired
			}
		}
	}
	return balances
}

// collateralise subtracts the balance from the exposure path-wise.
func collateralise(values, balances *pathValues) *pathValues {
	out := newPathValues(values.dates, values.samples)
	for i := range values.values {
		out.values[i] = values.values[i] - balances.values[i]
	}
	return out
}
