package portfolio

import (
	"fmt"
	"time"
)

// Portfolio is an ordered trade collection. Order matters: the cube's id
// axis, report rows and the allocation tie-break all follow it.
type Portfolio struct {
	trades []Trade
	byID   map[string]Trade
}

// New creates an empty portfolio.
func New() *Portfolio {
	return &Portfolio{byID: make(map[string]Trade)}
}

// Add appends a trade. Duplicate ids are rejected.
func (p *Portfolio) Add(t Trade) error {
	if _, exists := p.byID[t.ID()]; exists {
		return fmt.Errorf("portfolio: duplicate trade id %s", t.ID())
	}
	p.trades = append(p.trades, t)
	p.byID[t.ID()] = t
	return nil
}

// Size returns the number of trades.
func (p *Portfolio) Size() int { return len(p.trades) }

// Trades returns the trades in insertion order.
func (p *Portfolio) Trades() []Trade { return p.trades }

// IDs returns the trade ids in insertion order.
func (p *Portfolio) IDs() []string {
	ids := make([]string, len(p.trades))
	for i, t := range p.trades {
		ids[i] = t.ID()
	}
	return ids
}

// Get looks a trade up by id.
func (p *Portfolio) Get(id string) (Trade, bool) {
	t, ok := p.byID[id]
	return t, ok
}

// NettingSets returns the distinct netting set ids in first-seen order.
func (p *Portfolio) NettingSets() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range p.trades {
		ns := t.NettingSetID()
		if _, ok := seen[ns]; !ok {
			seen[ns] = struct{}{}
			out = append(out, ns)
		}
	}
	return out
}

// RemoveMatured drops trades maturing on or before asof and returns how
// many were removed.
func (p *Portfolio) RemoveMatured(asof time.Time) int {
	kept := p.trades[:0]
	removed := 0
	for _, t := range p.trades {
		if t.Maturity().After(asof) {
			kept = append(kept, t)
		} else {
			delete(p.byID, t.ID())
			removed++
		}
	}
	p.trades = kept
	return removed
}
