package portfolio

import (
	"fmt"
	"math"
	"time"

	"github.com/oskarlind/riskcube/internal/marketdata"
	"github.com/oskarlind/riskcube/internal/simmarket"
)

// EuropeanSwaption is a cash-settled european swaption on a fixed vs
// forecast swap, priced with the Bachelier formula against the market's
// normal swaption vols.
type EuropeanSwaption struct {
	id           string
	nettingSet   string
	counterparty string
	currency     string

	notional float64
	strike   float64
	payer    bool // right to enter a pay-fixed swap
	index    string

	exercise   time.Time
	swapTenor  float64 // underlying swap length in years
	freqMonths int
}

func NewEuropeanSwaption(id, nettingSet, counterparty, currency string, notional, strike float64, payer bool, index string, exercise time.Time, swapTenorYears float64, freqMonths int) (*EuropeanSwaption, error) {
	if swapTenorYears <= 0 {
		return nil, fmt.Errorf("swaption %s: swap tenor must be positive", id)
	}
	if freqMonths <= 0 {
		return nil, fmt.Errorf("swaption %s: frequency must be positive, got %d months", id, freqMonths)
	}
	return &EuropeanSwaption{
		id:           id,
		nettingSet:   nettingSet,
		counterparty: counterparty,
		currency:     currency,
		notional:     notional,
		strike:       strike,
		payer:        payer,
		index:        index,
		exercise:     exercise,
		swapTenor:    swapTenorYears,
		freqMonths:   freqMonths,
	}, nil
}

func (o *EuropeanSwaption) ID() string           { return o.id }
func (o *EuropeanSwaption) NettingSetID() string { return o.nettingSet }
func (o *EuropeanSwaption) Counterparty() string { return o.counterparty }
func (o *EuropeanSwaption) Currency() string     { return o.currency }
func (o *EuropeanSwaption) Maturity() time.Time  { return o.exercise }

// NPV prices the option off the live forward swap rate, annuity and the
// simulated (or decayed) normal vol at (expiry, tenor).
func (o *EuropeanSwaption) NPV(m simmarket.Market) (float64, error) {
	asof := m.AsOf()
	expiry := marketdata.YearFraction(asof, o.exercise)
	if expiry <= 0 {
		// cash settled, no residual value past exercise
		return 0, nil
	}

	disc, err := m.DiscountCurve(o.currency)
	if err != nil {
		return 0, fmt.Errorf("swaption %s: %w", o.id, err)
	}
	fwd, err := m.IndexCurve(o.index)
	if err != nil {
		return 0, fmt.Errorf("swaption %s: %w", o.id, err)
	}

	// forward swap rate and annuity over the underlying schedule
	step := float64(o.freqMonths) / 12.0
	annuity := 0.0
	floatLeg := 0.0
	for t := expiry; t < expiry+o.swapTenor-1e-9; t += step {
		accrual := step
		if t+accrual > expiry+o.swapTenor {
			accrual = expiry + o.swapTenor - t
		}
		df := disc.Discount(t + accrual)
		annuity += accrual * df
		f := (fwd.Discount(t)/fwd.Discount(t+accrual) - 1.0) / accrual
		floatLeg += accrual * f * df
	}
	if annuity <= 0 {
		return 0, fmt.Errorf("swaption %s: degenerate annuity", o.id)
	}
	forward := floatLeg / annuity

	vol, err := m.SwaptionVol(o.currency, expiry, o.swapTenor)
	if err != nil {
		return 0, fmt.Errorf("swaption %s: %w", o.id, err)
	}

	price := bachelier(forward, o.strike, vol, expiry, o.payer)
	return o.notional * annuity * price, nil
}

// bachelier prices a normal-model call (payer) or put (receiver) on the
// forward rate.
func bachelier(forward, strike, vol, expiry float64, payer bool) float64 {
	omega := 1.0
	if !payer {
		omega = -1.0
	}
	stdDev := vol * math.Sqrt(expiry)
	if stdDev <= 0 {
		return math.Max(omega*(forward-strike), 0)
	}
	d := omega * (forward - strike) / stdDev
	return stdDev * (d*normCDF(d) + normPDF(d))
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
