package portfolio

import (
	"fmt"
	"time"

	"github.com/oskarlind/riskcube/internal/marketdata"
	"github.com/oskarlind/riskcube/internal/simmarket"
)

// Swap is a single-currency fixed vs forecast interest rate swap. Both legs
// share one payment schedule. The floating leg forecasts off the index
// curve; periods that already started resolve against the fixing history,
// so a path-dependent valuation picks up the simulated fixings.
type Swap struct {
	id           string
	nettingSet   string
	counterparty string
	currency     string

	notional  float64
	fixedRate float64
	// payFixed true means we pay fixed and receive float.
	payFixed bool
	index    string

	// schedule holds period boundaries; payments fall on period ends.
	schedule []time.Time
}

// NewSwap builds the swap with a regular schedule from start to maturity
// stepping by freqMonths.
func NewSwap(id, nettingSet, counterparty, currency string, notional, fixedRate float64, payFixed bool, index string, start, maturity time.Time, freqMonths int) (*Swap, error) {
	if freqMonths <= 0 {
		return nil, fmt.Errorf("swap %s: frequency must be positive, got %d months", id, freqMonths)
	}
	if !maturity.After(start) {
		return nil, fmt.Errorf("swap %s: maturity %s is not after start %s",
			id, maturity.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var schedule []time.Time
	for d := start; d.Before(maturity); d = d.AddDate(0, freqMonths, 0) {
		schedule = append(schedule, d)
	}
	schedule = append(schedule, maturity)

	return &Swap{
		id:           id,
		nettingSet:   nettingSet,
		counterparty: counterparty,
		currency:     currency,
		notional:     notional,
		fixedRate:    fixedRate,
		payFixed:     payFixed,
		index:        index,
		schedule:     schedule,
	}, nil
}

func (s *Swap) ID() string           { return s.id }
func (s *Swap) NettingSetID() string { return s.nettingSet }
func (s *Swap) Counterparty() string { return s.counterparty }
func (s *Swap) Currency() string     { return s.currency }
func (s *Swap) Maturity() time.Time  { return s.schedule[len(s.schedule)-1] }

// NPV values the remaining periods off the live curves. Sign convention:
// positive means the receive leg is worth more than the pay leg.
func (s *Swap) NPV(m simmarket.Market) (float64, error) {
	asof := m.AsOf()
	disc, err := m.DiscountCurve(s.currency)
	if err != nil {
		return 0, fmt.Errorf("swap %s: %w", s.id, err)
	}
	fwd, err := m.IndexCurve(s.index)
	if err != nil {
		return 0, fmt.Errorf("swap %s: %w", s.id, err)
	}

	npv := 0.0
	for i := 0; i+1 < len(s.schedule); i++ {
		start, end := s.schedule[i], s.schedule[i+1]
		if !end.After(asof) {
			continue
		}
		accrual := marketdata.YearFraction(start, end)
		df := disc.Discount(marketdata.YearFraction(asof, end))

		rate, err := s.floatRate(m, fwd, asof, start, end, accrual)
		if err != nil {
			return 0, err
		}
		npv += s.notional * accrual * (rate - s.fixedRate) * df
	}

	if !s.payFixed {
		npv = -npv
	}
	return npv, nil
}

// floatRate resolves the floating rate for one period: the recorded fixing
// when the period already started, the curve forward otherwise. The market
// records fixings for every simulated day including today, so a started
// period without one means the input fixing history has a gap.
func (s *Swap) floatRate(m simmarket.Market, fwd marketdata.YieldCurve, asof, start, end time.Time, accrual float64) (float64, error) {
	if !start.After(asof) {
		if fixing, ok := m.Fixing(s.index, start); ok {
			return fixing, nil
		}
		if !end.After(asof) {
			// elapsed period, nothing left to estimate off the curve
			return 0, fmt.Errorf("swap %s: no fixing for %s on %s", s.id, s.index, start.Format("2006-01-02"))
		}
		// running period with a pre-history fixing date; estimate with the
		// curve spot rate over the remaining window
		dfEnd := fwd.Discount(marketdata.YearFraction(asof, end))
		if dfEnd <= 0 {
			return 0, fmt.Errorf("swap %s: degenerate forward df for period ending %s", s.id, end.Format("2006-01-02"))
		}
		return (1.0/dfEnd - 1.0) / accrual, nil
	}
	t0 := marketdata.YearFraction(asof, start)
	t1 := marketdata.YearFraction(asof, end)
	df0, df1 := fwd.Discount(t0), fwd.Discount(t1)
	if df1 <= 0 {
		return 0, fmt.Errorf("swap %s: degenerate forward df for period ending %s", s.id, end.Format("2006-01-02"))
	}
	return (df0/df1 - 1.0) / accrual, nil
}

// Flow returns the net coupon amounts paid in (from, to].
func (s *Swap) Flow(m simmarket.Market, from, to time.Time) (float64, error) {
	asof := m.AsOf()
	fwd, err := m.IndexCurve(s.index)
	if err != nil {
		return 0, fmt.Errorf("swap %s: %w", s.id, err)
	}

	flow := 0.0
	for i := 0; i+1 < len(s.schedule); i++ {
		start, end := s.schedule[i], s.schedule[i+1]
		if !end.After(from) || end.After(to) {
			continue
		}
		accrual := marketdata.YearFraction(start, end)
		rate, err := s.floatRate(m, fwd, asof, start, end, accrual)
		if err != nil {
			return 0, err
		}
		flow += s.notional * accrual * (rate - s.fixedRate)
	}
	if !s.payFixed {
		flow = -flow
	}
	return flow, nil
}
