package portfolio

import (
	"time"

	"github.com/oskarlind/riskcube/internal/simmarket"
)

// Trade is anything the valuation engine can price against a live market.
// NPV is returned in the trade's own currency; conversion to the base
// currency is the engine's job.
type Trade interface {
	ID() string
	NettingSetID() string
	Counterparty() string
	Currency() string
	Maturity() time.Time
	NPV(m simmarket.Market) (float64, error)
}

// FlowProducer is implemented by trades that can report the cash paid in a
// date window. Used by the cashflow calculator for cube depths above one.
type FlowProducer interface {
	// Flow returns the net amount paid in (from, to], in trade currency.
	Flow(m simmarket.Market, from, to time.Time) (float64, error)
}
