package nettingset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CSA holds the variation margin terms of one netting agreement. A nil CSA
// on a definition means the netting set is uncollateralised.
type CSA struct {
	// Threshold below which no collateral is called, from our perspective.
	Threshold float64 `yaml:"threshold"`
	// ThresholdReceive is the counterparty's threshold when posting to us.
	ThresholdReceive float64 `yaml:"thresholdReceive"`
	// MinTransferAmount suppresses calls smaller than this.
	MinTransferAmount float64 `yaml:"minTransferAmount"`
	// IndependentAmount is posted regardless of exposure.
	IndependentAmount float64 `yaml:"independentAmount"`
	// MarginPeriodDays is the margin period of risk in calendar days.
	MarginPeriodDays int `yaml:"marginPeriodDays"`
}

// Definition describes one netting set.
type Definition struct {
	ID           string `yaml:"id"`
	Counterparty string `yaml:"counterparty"`
	// ActiveCSA enables collateralisation with the CSA terms below.
	ActiveCSA bool `yaml:"activeCsa"`
	CSA       *CSA `yaml:"csa"`
}

// Manager resolves netting set ids to their definitions. The definition set
// is closed: an unknown id is an error, consistent with the fail-fast
// treatment of configuration gaps elsewhere.
type Manager struct {
	defs  map[string]*Definition
	order []string
}

// NewManager builds a manager over the given definitions.
func NewManager(defs []Definition) (*Manager, error) {
	m := &Manager{defs: make(map[string]*Definition, len(defs))}
	for i := range defs {
		d := &defs[i]
		if d.ID == "" {
			return nil, fmt.Errorf("netting set %d: id is required", i)
		}
		if _, exists := m.defs[d.ID]; exists {
			return nil, fmt.Errorf("duplicate netting set id %s", d.ID)
		}
		if d.ActiveCSA && d.CSA == nil {
			return nil, fmt.Errorf("netting set %s: activeCsa requires csa terms", d.ID)
		}
		if d.CSA != nil {
			if d.CSA.Threshold < 0 || d.CSA.ThresholdReceive < 0 {
				return nil, fmt.Errorf("netting set %s: thresholds must be non-negative", d.ID)
			}
			if d.CSA.MinTransferAmount < 0 {
				return nil, fmt.Errorf("netting set %s: minTransferAmount must be non-negative", d.ID)
			}
			if d.CSA.MarginPeriodDays < 0 {
				return nil, fmt.Errorf("netting set %s: marginPeriodDays must be non-negative", d.ID)
			}
		}
		m.defs[d.ID] = d
		m.order = append(m.order, d.ID)
	}
	return m, nil
}

// Get returns the definition for a netting set id.
func (m *Manager) Get(id string) (*Definition, error) {
	d, ok := m.defs[id]
	if !ok {
		return nil, fmt.Errorf("netting set %s is not defined", id)
	}
	return d, nil
}

// Has reports whether the id is defined.
func (m *Manager) Has(id string) bool {
	_, ok := m.defs[id]
	return ok
}

// IDs returns the netting set ids in definition order.
func (m *Manager) IDs() []string { return m.order }

type nettingFile struct {
	NettingSets []Definition `yaml:"nettingSets"`
}

// Load reads netting set definitions from a YAML file.
func Load(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read netting sets: %w", err)
	}
	var f nettingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse netting sets %s: %w", path, err)
	}
	if len(f.NettingSets) == 0 {
		return nil, fmt.Errorf("netting sets %s: no definitions", path)
	}
	m, err := NewManager(f.NettingSets)
	if err != nil {
		return nil, fmt.Errorf("netting sets %s: %w", path, err)
	}
	return m, nil
}
