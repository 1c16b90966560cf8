package simmarket

import "fmt"

// ObservationMode selects how quote mutations propagate to derived term
// structures during a scenario update. All modes produce identical numbers;
// they only differ in how much recomputation is wasted.
type ObservationMode string

const (
	// ObserveEager recomputes a dependent object on every single cell
	// mutation. Simplest, slowest.
	ObserveEager ObservationMode = "eager"
	// ObserveDefer buffers notifications for the whole update and flushes
	// each dependent once at the end.
	ObserveDefer ObservationMode = "defer"
	// ObserveDisable suppresses notifications entirely; the market refreshes
	// every dependent once per update instead.
	ObserveDisable ObservationMode = "disable"
)

// ParseObservationMode converts the config string form.
func ParseObservationMode(s string) (ObservationMode, error) {
	switch ObservationMode(s) {
	case ObserveEager, ObserveDefer, ObserveDisable:
		return ObservationMode(s), nil
	default:
		return "", fmt.Errorf("unknown observation mode %q (eager|defer|disable)", s)
	}
}

// Observer is anything that derives state from quote cells and must
// recompute when they move. Term structures implement this.
type Observer interface {
	MarketUpdate()
}

// ObservationManager owns the notification policy for one sim market.
// It is an explicit value held by the market, not a process global, so two
// markets in different goroutines never share notification state.
type ObservationManager struct {
	mode ObservationMode

	// all registered dependents, in registration order, for RefreshAll
	targets []Observer

	// deferred-notification bookkeeping
	buffering  bool
	pending    []Observer
	pendingSet map[Observer]struct{}
}

// NewObservationManager creates a manager with the given policy.
func NewObservationManager(mode ObservationMode) *ObservationManager {
	return &ObservationManager{
		mode:       mode,
		pendingSet: make(map[Observer]struct{}),
	}
}

// Mode returns the active policy.
func (m *ObservationManager) Mode() ObservationMode { return m.mode }

// Register adds a dependent to the refresh-all set. Called once per derived
// object at market construction.
func (m *ObservationManager) Register(o Observer) {
	m.targets = append(m.targets, o)
}

// Notify dispatches a cell mutation to the cell's dependents according to
// the active mode.
func (m *ObservationManager) Notify(observers []Observer) {
	switch m.mode {
	case ObserveEager:
		for _, o := range observers {
			o.MarketUpdate()
		}
	case ObserveDefer:
		if !m.buffering {
			for _, o := range observers {
				o.MarketUpdate()
			}
			return
		}
		for _, o := range observers {
			if _, seen := m.pendingSet[o]; !seen {
				m.pendingSet[o] = struct{}{}
				m.pending = append(m.pending, o)
			}
		}
	case ObserveDisable:
		// dropped; RefreshAll covers it
	}
}

// BeginUpdate starts buffering notifications (defer mode only).
func (m *ObservationManager) BeginUpdate() {
	if m.mode == ObserveDefer {
		m.buffering = true
	}
}

// EndUpdate flushes buffered notifications, each dependent exactly once.
func (m *ObservationManager) EndUpdate() {
	if !m.buffering {
		return
	}
	m.buffering = false
	for _, o := range m.pending {
		o.MarketUpdate()
	}
	m.pending = m.pending[:0]
	for k := range m.pendingSet {
		delete(m.pendingSet, k)
	}
}

// RefreshAll recomputes every registered dependent once. Disable mode calls
// this at the end of each update.
func (m *ObservationManager) RefreshAll() {
	for _, o := range m.targets {
		o.MarketUpdate()
	}
}
