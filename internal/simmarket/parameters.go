package simmarket

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parameters enumerates exactly which risk factors the sim market
// simulates, and at which pillar grids. A key requested here but absent
// from the initial market is a fatal construction error.
type Parameters struct {
	BaseCurrency string `yaml:"baseCurrency"`

	// Discount curves, one per currency, snapshotted at YieldCurveTenors.
	Currencies       []string  `yaml:"currencies"`
	YieldCurveTenors []float64 `yaml:"yieldCurveTenors"` // years

	// Forwarding curves by index name, e.g. USD-LIBOR-3M, sharing the
	// yield curve tenor grid.
	Indices []string `yaml:"indices"`

	// FX spots quoted against the base currency, e.g. EURUSD when base
	// is USD.
	FXPairs []string `yaml:"fxPairs"`

	// Swaption volatilities per currency. When not simulated the initial
	// surface decays deterministically instead; no sim data cells exist.
	SimulateSwaptionVols  bool      `yaml:"simulateSwaptionVols"`
	SwaptionVolCurrencies []string  `yaml:"swaptionVolCurrencies"`
	SwaptionVolDecayMode  DecayMode `yaml:"swaptionVolDecayMode"`
	// ATM forward level used for the one-off lognormal-to-normal vol
	// conversion at construction.
	SwaptionATMForward float64 `yaml:"swaptionAtmForward"`

	SimulateFXVols bool      `yaml:"simulateFxVols"`
	FXVolPairs     []string  `yaml:"fxVolPairs"`
	FXVolExpiries  []float64 `yaml:"fxVolExpiries"` // years
	FXVolDecayMode DecayMode `yaml:"fxVolDecayMode"`

	EquityNames        []string  `yaml:"equityNames"`
	SimulateEquityVols bool      `yaml:"simulateEquityVols"`
	EquityVolExpiries  []float64 `yaml:"equityVolExpiries"` // years
	EquityVolDecayMode DecayMode `yaml:"equityVolDecayMode"`

	// Credit names with survival probabilities at DefaultTenors.
	DefaultNames  []string  `yaml:"defaultNames"`
	DefaultTenors []float64 `yaml:"defaultTenors"` // years

	// Series collected into the aggregation scenario data store.
	AsdCurrencies []string `yaml:"asdCurrencies"`
	AsdIndices    []string `yaml:"asdIndices"`
}

// LoadParameters reads parameters from a YAML file.
func LoadParameters(path string) (*Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read simulation parameters: %w", err)
	}

	var p Parameters
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse simulation parameters %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("simulation parameters %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks structural consistency of the parameter set.
func (p *Parameters) Validate() error {
	if p.BaseCurrency == "" {
		return fmt.Errorf("baseCurrency is required")
	}
	if len(p.Currencies) == 0 {
		return fmt.Errorf("at least one currency is required")
	}
	if !contains(p.Currencies, p.BaseCurrency) {
		return fmt.Errorf("base currency %s must be in the currency list", p.BaseCurrency)
	}
	if len(p.YieldCurveTenors) == 0 {
		return fmt.Errorf("yieldCurveTenors is required")
	}
	for i := 1; i < len(p.YieldCurveTenors); i++ {
		if p.YieldCurveTenors[i] <= p.YieldCurveTenors[i-1] {
			return fmt.Errorf("yieldCurveTenors must be strictly increasing")
		}
	}
	for _, pair := range p.FXPairs {
		if len(pair) != 6 {
			return fmt.Errorf("fx pair %q must be a 6-letter pair code", pair)
		}
		if !strings.HasSuffix(pair, p.BaseCurrency) {
			return fmt.Errorf("fx pair %q must be quoted against base currency %s", pair, p.BaseCurrency)
		}
	}
	if p.SimulateFXVols && len(p.FXVolExpiries) == 0 && len(p.FXVolPairs) > 0 {
		return fmt.Errorf("fxVolExpiries is required when fx vols are simulated")
	}
	if p.SimulateEquityVols && len(p.EquityVolExpiries) == 0 && len(p.EquityNames) > 0 {
		return fmt.Errorf("equityVolExpiries is required when equity vols are simulated")
	}
	if len(p.DefaultNames) > 0 && len(p.DefaultTenors) == 0 {
		return fmt.Errorf("defaultTenors is required when default curves are simulated")
	}
	for _, c := range p.AsdCurrencies {
		if c == p.BaseCurrency {
			return fmt.Errorf("asdCurrencies must not contain the base currency")
		}
		if !contains(p.FXPairs, c+p.BaseCurrency) {
			return fmt.Errorf("asd currency %s has no simulated fx pair %s", c, c+p.BaseCurrency)
		}
	}
	for _, ix := range p.AsdIndices {
		if !contains(p.Indices, ix) {
			return fmt.Errorf("asd index %s is not a simulated index", ix)
		}
	}
	return nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
