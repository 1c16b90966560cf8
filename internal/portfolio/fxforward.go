package portfolio

import (
	"fmt"
	"time"

	"github.com/oskarlind/riskcube/internal/marketdata"
	"github.com/oskarlind/riskcube/internal/simmarket"
)

// FXForward exchanges boughtNotional of boughtCurrency against soldNotional
// of soldCurrency at maturity. Valued in the market's base currency, which
// is also the trade currency reported upstream.
type FXForward struct {
	id           string
	nettingSet   string
	counterparty string
	currency     string // base currency, the valuation currency

	boughtCurrency string
	boughtNotional float64
	soldCurrency   string
	soldNotional   float64
	maturity       time.Time
}

func NewFXForward(id, nettingSet, counterparty, baseCurrency string, boughtCurrency string, boughtNotional float64, soldCurrency string, soldNotional float64, maturity time.Time) (*FXForward, error) {
	if boughtNotional <= 0 || soldNotional <= 0 {
		return nil, fmt.Errorf("fx forward %s: notionals must be positive", id)
	}
	if boughtCurrency == soldCurrency {
		return nil, fmt.Errorf("fx forward %s: bought and sold currency are both %s", id, boughtCurrency)
	}
	return &FXForward{
		id:             id,
		nettingSet:     nettingSet,
		counterparty:   counterparty,
		currency:       baseCurrency,
		boughtCurrency: boughtCurrency,
		boughtNotional: boughtNotional,
		soldCurrency:   soldCurrency,
		soldNotional:   soldNotional,
		maturity:       maturity,
	}, nil
}

func (f *FXForward) ID() string           { return f.id }
func (f *FXForward) NettingSetID() string { return f.nettingSet }
func (f *FXForward) Counterparty() string { return f.counterparty }
func (f *FXForward) Currency() string     { return f.currency }
func (f *FXForward) Maturity() time.Time  { return f.maturity }

// NPV discounts each leg on its own currency curve and converts to base at
// today's simulated spot.
func (f *FXForward) NPV(m simmarket.Market) (float64, error) {
	asof := m.AsOf()
	if !f.maturity.After(asof) {
		return 0, nil
	}
	t := marketdata.YearFraction(asof, f.maturity)

	leg := func(ccy string, notional float64) (float64, error) {
		disc, err := m.DiscountCurve(ccy)
		if err != nil {
			return 0, fmt.Errorf("fx forward %s: %w", f.id, err)
		}
		spot, err := m.FXSpot(ccy + f.currency)
		if err != nil {
			return 0, fmt.Errorf("fx forward %s: %w", f.id, err)
		}
		return notional * disc.Discount(t) * spot, nil
	}

	bought, err := leg(f.boughtCurrency, f.boughtNotional)
	if err != nil {
		return 0, err
	}
	sold, err := leg(f.soldCurrency, f.soldNotional)
	if err != nil {
		return 0, err
	}
	return bought - sold, nil
}
