package scenario

import (
	"sort"
	"time"
)

// Scenario is one joint realization of all simulated risk factors at a
// given future date. A scenario applied to a sim market must carry exactly
// the market's configured key set.
type Scenario interface {
	// AsOf returns the date this scenario describes.
	AsOf() time.Time
	// Numeraire returns the path numeraire used to deflate values
	// during aggregation.
	Numeraire() float64
	// Keys returns all keys in deterministic (sorted) order.
	Keys() []RiskFactorKey
	// Has reports whether the scenario carries a value for key.
	Has(key RiskFactorKey) bool
	// Get returns the value for key. The second return is false if absent.
	Get(key RiskFactorKey) (float64, bool)
}

// Simple is the plain map-backed Scenario implementation.
type Simple struct {
	asof      time.Time
	numeraire float64
	values    map[RiskFactorKey]float64

	// cached sorted key view, invalidated on Add
	keys []RiskFactorKey
}

// NewSimple creates an empty scenario for the given date.
func NewSimple(asof time.Time, numeraire float64) *Simple {
	return &Simple{
		asof:      asof,
		numeraire: numeraire,
		values:    make(map[RiskFactorKey]float64),
	}
}

func (s *Simple) AsOf() time.Time    { return s.asof }
func (s *Simple) Numeraire() float64 { return s.numeraire }

// Add sets the value for key, overwriting any previous value.
func (s *Simple) Add(key RiskFactorKey, value float64) {
	s.values[key] = value
	s.keys = nil
}

func (s *Simple) Has(key RiskFactorKey) bool {
	_, ok := s.values[key]
	return ok
}

func (s *Simple) Get(key RiskFactorKey) (float64, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the key set sorted by (type, qualifier, index).
func (s *Simple) Keys() []RiskFactorKey {
	if s.keys == nil {
		s.keys = make([]RiskFactorKey, 0, len(s.values))
		for k := range s.values {
			s.keys = append(s.keys, k)
		}
		sort.Slice(s.keys, func(i, j int) bool { return s.keys[i].Less(s.keys[j]) })
	}
	return s.keys
}

// Size returns the number of risk factor values carried.
func (s *Simple) Size() int { return len(s.values) }

// Clone returns a deep copy with a new asof date. Used by generators that
// replay a base state across the date grid.
func (s *Simple) Clone(asof time.Time) *Simple {
	c := NewSimple(asof, s.numeraire)
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}
