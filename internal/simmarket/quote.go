package simmarket

// Quote is one mutable scalar cell behind a risk factor key. Term
// structures hold references to the cells they were built from, so
// overwriting a cell's value ripples through every derived object without
// rebuilding anything.
type Quote struct {
	value     float64
	manager   *ObservationManager
	observers []Observer
}

// NewQuote creates a cell with an initial value.
func NewQuote(value float64, manager *ObservationManager) *Quote {
	return &Quote{value: value, manager: manager}
}

// Value returns the current cell value.
func (q *Quote) Value() float64 { return q.value }

// SetValue overwrites the cell and notifies dependents per the active
// observation mode.
func (q *Quote) SetValue(v float64) {
	q.value = v
	q.manager.Notify(q.observers)
}

// RegisterObserver attaches a dependent recomputed when this cell moves.
func (q *Quote) RegisterObserver(o Observer) {
	q.observers = append(q.observers, o)
}
