package engine

import (
	"fmt"
	"time"

	"github.com/oskarlind/riskcube/internal/cube"
	"github.com/oskarlind/riskcube/internal/portfolio"
	"github.com/oskarlind/riskcube/internal/simmarket"
)

// ValuationCalculator computes one family of values per (trade, date,
// sample) cell and writes them into the cube at its own depth slot.
type ValuationCalculator interface {
	// Calculate runs after the market was updated to date d.
	Calculate(t portfolio.Trade, tradeIdx int, m simmarket.Market, out cube.NPVCube, d time.Time, dateIdx, sample int) error
	// CalculateT0 runs once against the unshocked market.
	CalculateT0(t portfolio.Trade, tradeIdx int, m simmarket.Market, out cube.NPVCube) error
}

// NPVCalculator writes the base-currency trade NPV at a fixed depth slot.
// Values are undeflated; the post processor divides by the path numeraire
// from the aggregation scenario data.
type NPVCalculator struct {
	// Index is the cube depth slot written, normally 0.
	Index int
}

func (c *NPVCalculator) npv(t portfolio.Trade, m simmarket.Market) (float64, error) {
	v, err := t.NPV(m)
	if err != nil {
		return 0, err
	}
	if t.Currency() == m.BaseCurrency() {
		return v, nil
	}
	fx, err := m.FXSpot(t.Currency() + m.BaseCurrency())
	if err != nil {
		return 0, fmt.Errorf("trade %s: %w", t.ID(), err)
	}
	return v * fx, nil
}

func (c *NPVCalculator) Calculate(t portfolio.Trade, tradeIdx int, m simmarket.Market, out cube.NPVCube, d time.Time, dateIdx, sample int) error {
	v, err := c.npv(t, m)
	if err != nil {
		return err
	}
	return out.Set(tradeIdx, dateIdx, sample, c.Index, v)
}

func (c *NPVCalculator) CalculateT0(t portfolio.Trade, tradeIdx int, m simmarket.Market, out cube.NPVCube) error {
	v, err := c.npv(t, m)
	if err != nil {
		return err
	}
	return out.SetT0(tradeIdx, c.Index, v)
}

// CashflowCalculator writes the base-currency net cash paid since the
// previous grid date (or since today for the first date). Trades that do
// not produce flows contribute zero.
type CashflowCalculator struct {
	// Index is the cube depth slot written, normally 1.
	Index int
	// Grid is the simulation date grid; needed to find the window start.
	Grid []time.Time
}

func (c *CashflowCalculator) flow(t portfolio.Trade, m simmarket.Market, from, to time.Time) (float64, error) {
	producer, ok := t.(portfolio.FlowProducer)
	if !ok {
		return 0, nil
	}
	v, err := producer.Flow(m, from, to)
	if err != nil {
		return 0, err
	}
	if v == 0 || t.Currency() == m.BaseCurrency() {
		return v, nil
	}
	fx, err := m.FXSpot(t.Currency() + m.BaseCurrency())
	if err != nil {
		return 0, fmt.Errorf("trade %s: %w", t.ID(), err)
	}
	return v * fx, nil
}

func (c *CashflowCalculator) Calculate(t portfolio.Trade, tradeIdx int, m simmarket.Market, out cube.NPVCube, d time.Time, dateIdx, sample int) error {
	from := m.Today()
	if dateIdx > 0 {
		from = c.Grid[dateIdx-1]
	}
	v, err := c.flow(t, m, from, d)
	if err != nil {
		return err
	}
	return out.Set(tradeIdx, dateIdx, sample, c.Index, v)
}

// CalculateT0 writes zero: no window has elapsed at the valuation date.
func (c *CashflowCalculator) CalculateT0(t portfolio.Trade, tradeIdx int, m simmarket.Market, out cube.NPVCube) error {
	return out.SetT0(tradeIdx, c.Index, 0)
}
