package runner

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oskarlind/riskcube/internal/postprocess"
	"github.com/oskarlind/riskcube/internal/simmarket"
)

// RunSpec is the simulation file: risk factor configuration, the date
// grid, sample count and the XVA knobs of the post processor.
type RunSpec struct {
	Parameters simmarket.Parameters `yaml:"parameters"`

	// GridMonths are month offsets from the market asof date, strictly
	// increasing.
	GridMonths []int `yaml:"gridMonths"`
	Samples    int   `yaml:"samples"`
	// CubeDepth 1 stores NPVs only, 2 adds period cashflows.
	CubeDepth int `yaml:"cubeDepth"`

	XVA XVASpec `yaml:"xva"`
}

// XVASpec is the YAML form of the post-processing configuration.
type XVASpec struct {
	Quantile         float64 `yaml:"quantile"`
	CounterpartyLGD  float64 `yaml:"counterpartyLgd"`
	OwnLGD           float64 `yaml:"ownLgd"`
	BorrowingSpread  float64 `yaml:"borrowingSpread"`
	LendingSpread    float64 `yaml:"lendingSpread"`
	CollateralSpread float64 `yaml:"collateralSpread"`
	KVACostOfCapital float64 `yaml:"kvaCostOfCapital"`
	KVARiskWeight    float64 `yaml:"kvaRiskWeight"`
	KVACapitalCharge float64 `yaml:"kvaCapitalCharge"`
	DimFundingSpread float64 `yaml:"dimFundingSpread"`
	// AllocationLimit 0 means uncapped.
	AllocationLimit float64 `yaml:"allocationLimit"`

	DimQuantile         float64 `yaml:"dimQuantile"`
	DimHorizonDays      int     `yaml:"dimHorizonDays"`
	DimRegressionOrder  int     `yaml:"dimRegressionOrder"`
	DimScaling          float64 `yaml:"dimScaling"`
	DimLocalEvaluations int     `yaml:"dimLocalEvaluations"`
	DimBandwidth        float64 `yaml:"dimBandwidth"`
}

// LoadRunSpec reads and validates a simulation file.
func LoadRunSpec(path string) (*RunSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read simulation file: %w", err)
	}
	var spec RunSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse simulation file %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("simulation file %s: %w", path, err)
	}
	return &spec, nil
}

// Validate checks the run dimensions; the embedded parameters validate
// themselves at market construction.
func (s *RunSpec) Validate() error {
	if len(s.GridMonths) == 0 {
		return fmt.Errorf("gridMonths is required")
	}
	prev := 0
	for i, m := range s.GridMonths {
		if m <= prev {
			return fmt.Errorf("gridMonths must be strictly increasing and positive at index %d", i)
		}
		prev = m
	}
	if s.Samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d", s.Samples)
	}
	if s.CubeDepth != 0 && s.CubeDepth != 1 && s.CubeDepth != 2 {
		return fmt.Errorf("cubeDepth must be 1 or 2, got %d", s.CubeDepth)
	}
	return nil
}

// Grid materialises the date grid from the asof date.
func (s *RunSpec) Grid(asof time.Time) []time.Time {
	grid := make([]time.Time, len(s.GridMonths))
	for i, m := range s.GridMonths {
		grid[i] = asof.AddDate(0, m, 0)
	}
	return grid
}

// PostProcessConfig converts the XVA section into a post-processing
// configuration, filling unset knobs with the documented defaults.
func (s *RunSpec) PostProcessConfig() postprocess.Config {
	cfg := postprocess.DefaultConfig()

	if s.XVA.Quantile > 0 {
		cfg.Quantile = s.XVA.Quantile
	}
	if s.XVA.CounterpartyLGD > 0 {
		cfg.CounterpartyLGD = s.XVA.CounterpartyLGD
	}
	if s.XVA.OwnLGD > 0 {
		cfg.OwnLGD = s.XVA.OwnLGD
	}
	cfg.BorrowingSpread = s.XVA.BorrowingSpread
	cfg.LendingSpread = s.XVA.LendingSpread
	cfg.CollateralSpread = s.XVA.CollateralSpread
	if s.XVA.KVACostOfCapital > 0 {
		cfg.KVACostOfCapital = s.XVA.KVACostOfCapital
	}
	if s.XVA.KVARiskWeight > 0 {
		cfg.KVARiskWeight = s.XVA.KVARiskWeight
	}
	if s.XVA.KVACapitalCharge > 0 {
		cfg.KVACapitalCharge = s.XVA.KVACapitalCharge
	}
	cfg.DimFundingSpread = s.XVA.DimFundingSpread
	if s.XVA.AllocationLimit > 0 {
		cfg.AllocationLimit = s.XVA.AllocationLimit
	} else {
		cfg.AllocationLimit = math.Inf(1)
	}

	if s.XVA.DimQuantile > 0 {
		cfg.DIM.Quantile = s.XVA.DimQuantile
	}
	if s.XVA.DimHorizonDays > 0 {
		cfg.DIM.HorizonDays = s.XVA.DimHorizonDays
	}
	cfg.DIM.RegressionOrder = s.XVA.DimRegressionOrder
	if s.XVA.DimScaling > 0 {
		cfg.DIM.Scaling = s.XVA.DimScaling
	}
	cfg.DIM.LocalEvaluations = s.XVA.DimLocalEvaluations
	if s.XVA.DimBandwidth > 0 {
		cfg.DIM.Bandwidth = s.XVA.DimBandwidth
	}

	return cfg
}
