package marketdata

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File format for initial market snapshots. Curves are either flat (a
// single rate) or pillar-based; bootstrapping from quotes is out of scope,
// the file carries curves already built.

type curveSpec struct {
	Currency string    `yaml:"currency,omitempty"`
	Name     string    `yaml:"name,omitempty"`
	Rate     *float64  `yaml:"rate,omitempty"` // flat zero rate
	Times    []float64 `yaml:"times,omitempty"`
	DFs      []float64 `yaml:"dfs,omitempty"`
}

type volMatrixSpec struct {
	Currency   string    `yaml:"currency"`
	Convention string    `yaml:"convention"` // normal | lognormal
	Expiries   []float64 `yaml:"expiries"`
	Terms      []float64 `yaml:"terms"`
	Values     []float64 `yaml:"values"` // expiry-major
}

type volCurveSpec struct {
	Pair     string    `yaml:"pair,omitempty"`
	Name     string    `yaml:"name,omitempty"`
	Vol      *float64  `yaml:"vol,omitempty"` // flat
	Expiries []float64 `yaml:"expiries,omitempty"`
	Vols     []float64 `yaml:"vols,omitempty"`
}

type defaultCurveSpec struct {
	Name   string `yaml:"name"`
	Hazard float64 `yaml:"hazard"` // flat hazard rate
}

type fixingSpec struct {
	Index  string    `yaml:"index"`
	Dates  []string  `yaml:"dates"`
	Values []float64 `yaml:"values"`
}

type marketFile struct {
	AsOf           string             `yaml:"asof"`
	DiscountCurves []curveSpec        `yaml:"discountCurves"`
	IndexCurves    []curveSpec        `yaml:"indexCurves"`
	FXSpots        map[string]float64 `yaml:"fxSpots"`
	SwaptionVols   []volMatrixSpec    `yaml:"swaptionVols"`
	FXVols         []volCurveSpec     `yaml:"fxVols"`
	EquitySpots    map[string]float64 `yaml:"equitySpots"`
	EquityVols     []volCurveSpec     `yaml:"equityVols"`
	DefaultCurves  []defaultCurveSpec `yaml:"defaultCurves"`
	Fixings        []fixingSpec       `yaml:"fixings"`
}

// LoadSnapshot reads an initial market from a YAML file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read market file: %w", err)
	}
	var f marketFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse market file %s: %w", path, err)
	}

	asof, err := time.Parse("2006-01-02", f.AsOf)
	if err != nil {
		return nil, fmt.Errorf("market file %s: bad asof %q, want YYYY-MM-DD", path, f.AsOf)
	}
	snap := NewSnapshot(asof)

	for _, spec := range f.DiscountCurves {
		c, err := buildCurve(spec)
		if err != nil {
			return nil, fmt.Errorf("market file %s: discount curve %s: %w", path, spec.Currency, err)
		}
		snap.AddDiscountCurve(spec.Currency, c)
	}
	for _, spec := range f.IndexCurves {
		c, err := buildCurve(spec)
		if err != nil {
			return nil, fmt.Errorf("market file %s: index curve %s: %w", path, spec.Name, err)
		}
		snap.AddIndexCurve(spec.Name, c)
	}
	for pair, spot := range f.FXSpots {
		snap.AddFXSpot(pair, spot)
	}
	for _, spec := range f.SwaptionVols {
		m, err := buildVolMatrix(spec)
		if err != nil {
			return nil, fmt.Errorf("market file %s: swaption vols %s: %w", path, spec.Currency, err)
		}
		snap.AddSwaptionVol(spec.Currency, m)
	}
	for _, spec := range f.FXVols {
		c, err := buildVolCurve(spec)
		if err != nil {
			return nil, fmt.Errorf("market file %s: fx vols %s: %w", path, spec.Pair, err)
		}
		snap.AddFXVol(spec.Pair, c)
	}
	for name, spot := range f.EquitySpots {
		snap.AddEquitySpot(name, spot)
	}
	for _, spec := range f.EquityVols {
		c, err := buildVolCurve(spec)
		if err != nil {
			return nil, fmt.Errorf("market file %s: equity vols %s: %w", path, spec.Name, err)
		}
		snap.AddEquityVol(spec.Name, c)
	}
	for _, spec := range f.DefaultCurves {
		snap.AddDefaultCurve(spec.Name, FlatHazardCurve{Hazard: spec.Hazard})
	}
	for _, spec := range f.Fixings {
		if len(spec.Dates) != len(spec.Values) {
			return nil, fmt.Errorf("market file %s: fixings for %s have %d dates and %d values",
				path, spec.Index, len(spec.Dates), len(spec.Values))
		}
		for i, ds := range spec.Dates {
			d, err := time.Parse("2006-01-02", ds)
			if err != nil {
				return nil, fmt.Errorf("market file %s: fixing date %q for %s", path, ds, spec.Index)
			}
			snap.AddFixing(spec.Index, d, spec.Values[i])
		}
	}
	return snap, nil
}

func buildCurve(spec curveSpec) (YieldCurve, error) {
	if spec.Rate != nil {
		return FlatCurve{Rate: *spec.Rate}, nil
	}
	if len(spec.Times) == 0 || len(spec.Times) != len(spec.DFs) {
		return nil, fmt.Errorf("need a flat rate or matching times/dfs pillars")
	}
	return &InterpolatedCurve{Times: spec.Times, DFs: spec.DFs}, nil
}

func buildVolMatrix(spec volMatrixSpec) (*VolMatrix, error) {
	var conv VolConvention
	switch spec.Convention {
	case "normal", "":
		conv = VolNormal
	case "lognormal":
		conv = VolLognormal
	default:
		return nil, fmt.Errorf("unknown vol convention %q", spec.Convention)
	}
	if len(spec.Values) != len(spec.Expiries)*len(spec.Terms) {
		return nil, fmt.Errorf("value count %d does not match %d expiries x %d terms",
			len(spec.Values), len(spec.Expiries), len(spec.Terms))
	}
	return &VolMatrix{
		Expiries:   spec.Expiries,
		Terms:      spec.Terms,
		Values:     spec.Values,
		Convention: conv,
	}, nil
}

func buildVolCurve(spec volCurveSpec) (VolCurve, error) {
	if spec.Vol != nil {
		return FlatVolCurve{Value: *spec.Vol}, nil
	}
	if len(spec.Expiries) == 0 || len(spec.Expiries) != len(spec.Vols) {
		return nil, fmt.Errorf("need a flat vol or matching expiries/vols pillars")
	}
	return &InterpolatedVolCurve{Expiries: spec.Expiries, Vols: spec.Vols}, nil
}
