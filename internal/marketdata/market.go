package marketdata

import (
	"fmt"
	"time"
)

// Package marketdata holds the read-only "today" market the simulation
// market is snapshotted from. Bootstrapping these objects from raw quotes
// is out of scope; curves arrive already built.

// YearFraction converts a date interval to a year fraction (Act/365 Fixed).
// All term structures in this module are parametrised in these units.
func YearFraction(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24.0 / 365.0
}

// YieldCurve exposes discount factors by time-to-maturity in years.
type YieldCurve interface {
	Discount(t float64) float64
}

// VolCurve exposes a volatility by expiry in years.
type VolCurve interface {
	Vol(expiry float64) float64
}

// SurvivalCurve exposes survival probabilities by horizon in years.
type SurvivalCurve interface {
	SurvivalProbability(t float64) float64
}

// VolConvention distinguishes quoting conventions of volatility inputs.
type VolConvention string

const (
	VolNormal    VolConvention = "normal"
	VolLognormal VolConvention = "lognormal"
)

// VolMatrix is a rectangular expiry x underlying-term volatility grid,
// as used for swaption volatilities. Values are stored row-major
// (expiry-major), matching the index layout of SwaptionVolatility keys.
type VolMatrix struct {
	Expiries   []float64 // years
	Terms      []float64 // years
	Values     []float64 // len = len(Expiries)*len(Terms)
	Convention VolConvention
}

// At returns the vol at (expiry index, term index).
func (m *VolMatrix) At(i, j int) float64 {
	return m.Values[i*len(m.Terms)+j]
}

// Snapshot is the concrete initial market: a bag of curves and spots keyed
// by currency / pair / name. Lookups fail loudly; a missing object is a
// configuration error, never a silent default.
type Snapshot struct {
	asof time.Time

	discountCurves map[string]YieldCurve
	indexCurves    map[string]YieldCurve
	fxSpots        map[string]float64
	swaptionVols   map[string]*VolMatrix
	fxVols         map[string]VolCurve
	eqSpots        map[string]float64
	eqVols         map[string]VolCurve
	defaultCurves  map[string]SurvivalCurve
	fixings        map[string]map[time.Time]float64
}

// NewSnapshot creates an empty market snapshot for the given asof date.
func NewSnapshot(asof time.Time) *Snapshot {
	return &Snapshot{
		asof:           asof,
		discountCurves: make(map[string]YieldCurve),
		indexCurves:    make(map[string]YieldCurve),
		fxSpots:        make(map[string]float64),
		swaptionVols:   make(map[string]*VolMatrix),
		fxVols:         make(map[string]VolCurve),
		eqSpots:        make(map[string]float64),
		eqVols:         make(map[string]VolCurve),
		defaultCurves:  make(map[string]SurvivalCurve),
		fixings:        make(map[string]map[time.Time]float64),
	}
}

func (m *Snapshot) AsOf() time.Time { return m.asof }

// AddDiscountCurve registers the discount curve for a currency.
func (m *Snapshot) AddDiscountCurve(ccy string, c YieldCurve) { m.discountCurves[ccy] = c }

// AddIndexCurve registers the forwarding curve for an index name.
func (m *Snapshot) AddIndexCurve(name string, c YieldCurve) { m.indexCurves[name] = c }

// AddFXSpot registers the spot for a ccy pair, e.g. "EURUSD".
func (m *Snapshot) AddFXSpot(pair string, spot float64) { m.fxSpots[pair] = spot }

// AddSwaptionVol registers the swaption vol matrix for a currency.
func (m *Snapshot) AddSwaptionVol(ccy string, v *VolMatrix) { m.swaptionVols[ccy] = v }

// AddFXVol registers the fx vol curve for a pair.
func (m *Snapshot) AddFXVol(pair string, v VolCurve) { m.fxVols[pair] = v }

// AddEquitySpot registers an equity spot by name.
func (m *Snapshot) AddEquitySpot(name string, spot float64) { m.eqSpots[name] = spot }

// AddEquityVol registers an equity vol curve by name.
func (m *Snapshot) AddEquityVol(name string, v VolCurve) { m.eqVols[name] = v }

// AddDefaultCurve registers a survival curve for a credit name.
func (m *Snapshot) AddDefaultCurve(name string, c SurvivalCurve) { m.defaultCurves[name] = c }

// AddFixing records a historical index fixing.
func (m *Snapshot) AddFixing(index string, date time.Time, value float64) {
	if m.fixings[index] == nil {
		m.fixings[index] = make(map[time.Time]float64)
	}
	m.fixings[index][date] = value
}

func (m *Snapshot) DiscountCurve(ccy string) (YieldCurve, error) {
	c, ok := m.discountCurves[ccy]
	if !ok {
		return nil, fmt.Errorf("initial market: no discount curve for currency %s", ccy)
	}
	return c, nil
}

func (m *Snapshot) IndexCurve(name string) (YieldCurve, error) {
	c, ok := m.indexCurves[name]
	if !ok {
		return nil, fmt.Errorf("initial market: no index curve for %s", name)
	}
	return c, nil
}

func (m *Snapshot) FXSpot(pair string) (float64, error) {
	s, ok := m.fxSpots[pair]
	if !ok {
		return 0, fmt.Errorf("initial market: no fx spot for pair %s", pair)
	}
	return s, nil
}

func (m *Snapshot) SwaptionVol(ccy string) (*VolMatrix, error) {
	v, ok := m.swaptionVols[ccy]
	if !ok {
		return nil, fmt.Errorf("initial market: no swaption vols for currency %s", ccy)
	}
	return v, nil
}

func (m *Snapshot) FXVol(pair string) (VolCurve, error) {
	v, ok := m.fxVols[pair]
	if !ok {
		return nil, fmt.Errorf("initial market: no fx vols for pair %s", pair)
	}
	return v, nil
}

func (m *Snapshot) EquitySpot(name string) (float64, error) {
	s, ok := m.eqSpots[name]
	if !ok {
		return 0, fmt.Errorf("initial market: no equity spot for %s", name)
	}
	return s, nil
}

func (m *Snapshot) EquityVol(name string) (VolCurve, error) {
	v, ok := m.eqVols[name]
	if !ok {
		return nil, fmt.Errorf("initial market: no equity vols for %s", name)
	}
	return v, nil
}

func (m *Snapshot) DefaultCurve(name string) (SurvivalCurve, error) {
	c, ok := m.defaultCurves[name]
	if !ok {
		return nil, fmt.Errorf("initial market: no default curve for %s", name)
	}
	return c, nil
}

// Fixings returns the recorded fixing history for an index (may be empty).
func (m *Snapshot) Fixings(index string) map[time.Time]float64 {
	return m.fixings[index]
}
