package portfolio

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// tradeSpec is the on-file form of one trade. Fields beyond the common
// block apply per type; unknown types are rejected.
type tradeSpec struct {
	ID           string `yaml:"id"`
	Type         string `yaml:"type"` // swap | fxforward | swaption
	NettingSet   string `yaml:"nettingSet"`
	Counterparty string `yaml:"counterparty"`
	Currency     string `yaml:"currency"`

	Notional  float64 `yaml:"notional"`
	FixedRate float64 `yaml:"fixedRate"`
	PayFixed  bool    `yaml:"payFixed"`
	Index     string  `yaml:"index"`
	Start     string  `yaml:"start"`
	Maturity  string  `yaml:"maturity"`
	FreqM     int     `yaml:"frequencyMonths"`

	BoughtCurrency string  `yaml:"boughtCurrency"`
	BoughtNotional float64 `yaml:"boughtNotional"`
	SoldCurrency   string  `yaml:"soldCurrency"`
	SoldNotional   float64 `yaml:"soldNotional"`

	Strike    float64 `yaml:"strike"`
	Payer     bool    `yaml:"payer"`
	Exercise  string  `yaml:"exercise"`
	SwapTenor float64 `yaml:"swapTenorYears"`
}

type portfolioFile struct {
	Trades []tradeSpec `yaml:"trades"`
}

// Load reads a portfolio YAML file and builds the trades in file order.
func Load(path string) (*Portfolio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portfolio: %w", err)
	}

	var f portfolioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse portfolio %s: %w", path, err)
	}
	if len(f.Trades) == 0 {
		return nil, fmt.Errorf("portfolio %s contains no trades", path)
	}

	p := New()
	for i, spec := range f.Trades {
		t, err := buildTrade(spec)
		if err != nil {
			return nil, fmt.Errorf("portfolio %s, trade %d: %w", path, i, err)
		}
		if err := p.Add(t); err != nil {
			return nil, fmt.Errorf("portfolio %s: %w", path, err)
		}
	}
	return p, nil
}

func buildTrade(spec tradeSpec) (Trade, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("trade id is required")
	}
	if spec.NettingSet == "" {
		return nil, fmt.Errorf("trade %s: nettingSet is required", spec.ID)
	}

	switch spec.Type {
	case "swap":
		start, err := parseDate(spec.Start)
		if err != nil {
			return nil, fmt.Errorf("trade %s: start: %w", spec.ID, err)
		}
		maturity, err := parseDate(spec.Maturity)
		if err != nil {
			return nil, fmt.Errorf("trade %s: maturity: %w", spec.ID, err)
		}
		return NewSwap(spec.ID, spec.NettingSet, spec.Counterparty, spec.Currency,
			spec.Notional, spec.FixedRate, spec.PayFixed, spec.Index, start, maturity, spec.FreqM)

	case "fxforward":
		maturity, err := parseDate(spec.Maturity)
		if err != nil {
			return nil, fmt.Errorf("trade %s: maturity: %w", spec.ID, err)
		}
		return NewFXForward(spec.ID, spec.NettingSet, spec.Counterparty, spec.Currency,
			spec.BoughtCurrency, spec.BoughtNotional, spec.SoldCurrency, spec.SoldNotional, maturity)

	case "swaption":
		exercise, err := parseDate(spec.Exercise)
		if err != nil {
			return nil, fmt.Errorf("trade %s: exercise: %w", spec.ID, err)
		}
		return NewEuropeanSwaption(spec.ID, spec.NettingSet, spec.Counterparty, spec.Currency,
			spec.Notional, spec.Strike, spec.Payer, spec.Index, exercise, spec.SwapTenor, spec.FreqM)

	default:
		return nil, fmt.Errorf("trade %s: unknown type %q", spec.ID, spec.Type)
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}
