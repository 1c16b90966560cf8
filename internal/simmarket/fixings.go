package simmarket

import (
	"fmt"
	"strings"
	"time"
)

// FixingManager maintains index fixing histories during a simulation.
// As the evaluation date advances along the grid, the fixings implied by
// the simulated market state are recorded as historical fixings, so that
// path-dependent coupons resolve against the path, not against today's
// history. Reset restores the original history between samples.
type FixingManager struct {
	today time.Time

	// live histories, mutated during a sample
	fixings map[string]map[time.Time]float64
	// pristine copies taken at construction
	cache map[string]map[time.Time]float64
	// projection reads the index's current simulated level
	project  map[string]func() float64
	modified bool
}

// NewFixingManager creates an empty manager for the given today date.
func NewFixingManager(today time.Time) *FixingManager {
	return &FixingManager{
		today:   today,
		fixings: make(map[string]map[time.Time]float64),
		cache:   make(map[string]map[time.Time]float64),
		project: make(map[string]func() float64),
	}
}

// AddIndex registers an index with its historical fixings and a projection
// function returning the index's current simulated fixing level. When the
// history carries no fixing for today, today's projected fixing is recorded
// into the pristine history as well, so coupons whose period starts today
// resolve on every sample; Update only covers days strictly after today.
func (m *FixingManager) AddIndex(name string, history map[time.Time]float64, project func() float64) {
	live := make(map[time.Time]float64, len(history))
	orig := make(map[time.Time]float64, len(history))
	for d, v := range history {
		live[d] = v
		orig[d] = v
	}
	if _, ok := live[m.today]; !ok {
		v := project()
		live[m.today] = v
		orig[m.today] = v
	}
	m.fixings[name] = live
	m.cache[name] = orig
	m.project[name] = project
}

// Update records simulated fixings for all registered indices on every day
// in (prev, d]. Called once per grid date by the sim market.
func (m *FixingManager) Update(prev, d time.Time) {
	if !d.After(prev) {
		return
	}
	for name, project := range m.project {
		level := project()
		for day := prev.AddDate(0, 0, 1); !day.After(d); day = day.AddDate(0, 0, 1) {
			m.fixings[name][day] = level
		}
	}
	m.modified = true
}

// Fixing returns the fixing of an index on a date, simulated or historical.
func (m *FixingManager) Fixing(name string, date time.Time) (float64, bool) {
	h, ok := m.fixings[name]
	if !ok {
		return 0, false
	}
	v, ok := h[date]
	return v, ok
}

// Reset restores the pristine fixing histories. Called between samples.
func (m *FixingManager) Reset() {
	if !m.modified {
		return
	}
	for name, orig := range m.cache {
		live := make(map[time.Time]float64, len(orig))
		for d, v := range orig {
			live[d] = v
		}
		m.fixings[name] = live
	}
	m.modified = false
}

// parseIndexTenor extracts the tenor in years from index names of the form
// CCY-FAMILY-TENOR, e.g. USD-LIBOR-3M or EUR-EURIBOR-6M.
func parseIndexTenor(name string) (float64, error) {
	parts := strings.Split(name, "-")
	if len(parts) < 3 {
		return 0, fmt.Errorf("index name %q is not of the form CCY-FAMILY-TENOR", name)
	}
	tenor := parts[len(parts)-1]
	if tenor == "ON" {
		return 1.0 / 365.0, nil
	}
	if len(tenor) < 2 {
		return 0, fmt.Errorf("bad tenor %q in index name %q", tenor, name)
	}
	unit := tenor[len(tenor)-1]
	var n int
	if _, err := fmt.Sscanf(tenor[:len(tenor)-1], "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("bad tenor %q in index name %q", tenor, name)
	}
	switch unit {
	case 'D':
		return float64(n) / 365.0, nil
	case 'W':
		return float64(n) * 7.0 / 365.0, nil
	case 'M':
		return float64(n) / 12.0, nil
	case 'Y':
		return float64(n), nil
	default:
		return 0, fmt.Errorf("bad tenor unit %q in index name %q", unit, name)
	}
}
