package runner

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpecFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRunSpec(t *testing.T) {
	path := writeSpecFile(t, `
parameters:
  baseCurrency: USD
  currencies: [USD, EUR]
  yieldCurveTenors: [0.5, 1, 2, 5]
gridMonths: [1, 3, 6, 12]
samples: 500
cubeDepth: 2
xva:
  quantile: 0.99
  counterpartyLgd: 0.4
  borrowingSpread: 0.002
  allocationLimit: 1.5
  dimRegressionOrder: 2
`)

	spec, err := LoadRunSpec(path)
	require.NoError(t, err)

	assert.Equal(t, "USD", spec.Parameters.BaseCurrency)
	assert.Equal(t, []int{1, 3, 6, 12}, spec.GridMonths)
	assert.Equal(t, 500, spec.Samples)
	assert.Equal(t, 2, spec.CubeDepth)

	cfg := spec.PostProcessConfig()
	assert.Equal(t, 0.99, cfg.Quantile)
	assert.Equal(t, 0.4, cfg.CounterpartyLGD)
	assert.Equal(t, 0.002, cfg.BorrowingSpread)
	assert.Equal(t, 1.5, cfg.AllocationLimit)
	assert.Equal(t, 2, cfg.DIM.RegressionOrder)

	// Unset knobs keep the documented defaults.
	assert.Equal(t, 0.6, cfg.OwnLGD)
	assert.Equal(t, 0.99, cfg.DIM.Quantile)
	assert.Equal(t, 14, cfg.DIM.HorizonDays)
	assert.Equal(t, 0.25, cfg.DIM.Bandwidth)
}

func TestLoadRunSpecValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing grid",
			content: `
samples: 100
`,
			wantErr: "gridMonths",
		},
		{
			name: "non increasing grid",
			content: `
gridMonths: [1, 3, 3]
samples: 100
`,
			wantErr: "strictly increasing",
		},
		{
			name: "zero samples",
			content: `
gridMonths: [1, 3]
samples: 0
`,
			wantErr: "samples",
		},
		{
			name: "bad depth",
			content: `
gridMonths: [1, 3]
samples: 100
cubeDepth: 7
`,
			wantErr: "cubeDepth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSpecFile(t, tt.content)
			_, err := LoadRunSpec(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunSpecGrid(t *testing.T) {
	spec := &RunSpec{GridMonths: []int{1, 6, 12}}
	asof := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	grid := spec.Grid(asof)
	require.Len(t, grid, 3)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), grid[0])
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), grid[1])
	assert.Equal(t, time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC), grid[2])
}

func TestPostProcessConfigUncappedByDefault(t *testing.T) {
	spec := &RunSpec{}
	cfg := spec.PostProcessConfig()
	assert.True(t, math.IsInf(cfg.AllocationLimit, 1))
}
