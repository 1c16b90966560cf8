package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oskarlind/riskcube/internal/cube"
	"github.com/oskarlind/riskcube/internal/marketdata"
	"github.com/oskarlind/riskcube/internal/portfolio"
	"github.com/oskarlind/riskcube/internal/scenario"
	"github.com/oskarlind/riskcube/internal/simmarket"
	"github.com/oskarlind/riskcube/pkg/logger"
)

var testAsof = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

func testSnapshot() *marketdata.Snapshot {
	snap := marketdata.NewSnapshot(testAsof)
	snap.AddDiscountCurve("USD", marketdata.FlatCurve{Rate: 0.02})
	snap.AddIndexCurve("USD-LIBOR-3M", marketdata.FlatCurve{Rate: 0.03})
	return snap
}

func testParams() *simmarket.Parameters {
	return &simmarket.Parameters{
		BaseCurrency:     "USD",
		Currencies:       []string{"USD"},
		YieldCurveTenors: []float64{0.5, 1, 2, 5, 10},
		Indices:          []string{"USD-LIBOR-3M"},
	}
}

func newMarket(t *testing.T) *simmarket.ScenarioSimMarket {
	t.Helper()
	m, err := simmarket.New(testSnapshot(), testParams(), simmarket.ObserveDefer, logger.Nop())
	require.NoError(t, err)
	m.SetGenerator(scenario.NewConstantGenerator(m.BaseScenario(1.0)))
	return m
}

func testPortfolio(t *testing.T) *portfolio.Portfolio {
	t.Helper()
	p := portfolio.New()
	swap, err := portfolio.NewSwap("SWAP1", "NS1", "CPTY_A", "USD", 1e6, 0.02, true,
		"USD-LIBOR-3M", testAsof, testAsof.AddDate(5, 0, 0), 6)
	require.NoError(t, err)
	require.NoError(t, p.Add(swap))
	return p
}

func testGrid() []time.Time {
	return []time.Time{testAsof.AddDate(0, 6, 0), testAsof.AddDate(1, 0, 0)}
}

func TestBuildCubeConstantScenarioGivesIdenticalSamples(t *testing.T) {
	grid := testGrid()
	pf := testPortfolio(t)

	eng, err := New(logger.Nop(), grid, 3)
	require.NoError(t, err)

	out := cube.NewInMemory(testAsof, pf.IDs(), grid, 3)
	err = eng.BuildCube(context.Background(), newMarket(t), pf, out,
		[]ValuationCalculator{&NPVCalculator{Index: 0}})
	require.NoError(t, err)

	t0, err := out.GetT0(0, 0)
	require.NoError(t, err)
	assert.Greater(t, t0, 0.0)

	for dateIdx := range grid {
		v0, err := out.Get(0, dateIdx, 0, 0)
		require.NoError(t, err)
		assert.Greater(t, v0, 0.0)
		for sample := 1; sample < 3; sample++ {
			v, err := out.Get(0, dateIdx, sample, 0)
			require.NoError(t, err)
			assert.Equal(t, v0, v, "date %d sample %d", dateIdx, sample)
		}
	}
}

func TestBuildCubeDimensionPreconditions(t *testing.T) {
	grid := testGrid()
	pf := testPortfolio(t)
	eng, err := New(logger.Nop(), grid, 3)
	require.NoError(t, err)
	calcs := []ValuationCalculator{&NPVCalculator{Index: 0}}
	ctx := context.Background()

	// wrong sample count
	out := cube.NewInMemory(testAsof, pf.IDs(), grid, 4)
	err = eng.BuildCube(ctx, newMarket(t), pf, out, calcs)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// wrong id axis
	out = cube.NewInMemory(testAsof, []string{"SWAP1", "GHOST"}, grid, 3)
	err = eng.BuildCube(ctx, newMarket(t), pf, out, calcs)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// wrong date axis
	out = cube.NewInMemory(testAsof, pf.IDs(), []time.Time{grid[0]}, 3)
	err = eng.BuildCube(ctx, newMarket(t), pf, out, calcs)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// calculator depth beyond cube depth
	out = cube.NewInMemory(testAsof, pf.IDs(), grid, 3)
	err = eng.BuildCube(ctx, newMarket(t), pf, out,
		[]ValuationCalculator{&NPVCalculator{Index: 0}, &CashflowCalculator{Index: 1, Grid: grid}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuildCubeWithCashflowDepth(t *testing.T) {
	grid := testGrid()
	pf := testPortfolio(t)
	eng, err := New(logger.Nop(), grid, 2)
	require.NoError(t, err)

	out := cube.NewInMemoryN(testAsof, pf.IDs(), grid, 2, 2)
	err = eng.BuildCube(context.Background(), newMarket(t), pf, out,
		[]ValuationCalculator{&NPVCalculator{Index: 0}, &CashflowCalculator{Index: 1, Grid: grid}})
	require.NoError(t, err)

	// a pay-2% vs 3%-curve swap pays us every period
	flow, err := out.Get(0, 0, 0, 1)
	require.NoError(t, err)
	assert.Greater(t, flow, 0.0)

	t0Flow, err := out.GetT0(0, 1)
	require.NoError(t, err)
	assert.Zero(t, t0Flow)
}

func TestBuildCubeObservationModeInvariance(t *testing.T) {
	grid := testGrid()
	pf := testPortfolio(t)
	samples := 3
	calcs := []ValuationCalculator{&NPVCalculator{Index: 0}, &CashflowCalculator{Index: 1, Grid: grid}}

	build := func(mode simmarket.ObservationMode) *cube.InMemoryN {
		m, err := simmarket.New(testSnapshot(), testParams(), mode, logger.Nop())
		require.NoError(t, err)
		m.SetGenerator(scenario.NewConstantGenerator(m.BaseScenario(1.0)))

		eng, err := New(logger.Nop(), grid, samples)
		require.NoError(t, err)
		out := cube.NewInMemoryN(testAsof, pf.IDs(), grid, samples, 2)
		require.NoError(t, eng.BuildCube(context.Background(), m, pf, out, calcs))
		return out
	}

	eager := build(simmarket.ObserveEager)
	deferred := build(simmarket.ObserveDefer)
	disabled := build(simmarket.ObserveDisable)

	for depth := 0; depth < 2; depth++ {
		want, err := eager.GetT0(0, depth)
		require.NoError(t, err)
		for _, other := range []*cube.InMemoryN{deferred, disabled} {
			got, err := other.GetT0(0, depth)
			require.NoError(t, err)
			assert.Equal(t, want, got, "t0 depth %d", depth)
		}
		for dateIdx := range grid {
			for sample := 0; sample < samples; sample++ {
				want, err := eager.Get(0, dateIdx, sample, depth)
				require.NoError(t, err)
				for _, other := range []*cube.InMemoryN{deferred, disabled} {
					got, err := other.Get(0, dateIdx, sample, depth)
					require.NoError(t, err)
					assert.Equal(t, want, got, "date %d sample %d depth %d", dateIdx, sample, depth)
				}
			}
		}
	}
}

type failingTrade struct{ portfolio.Trade }

func (f *failingTrade) ID() string { return "FAIL1" }
func (f *failingTrade) NPV(simmarket.Market) (float64, error) {
	return 0, fmt.Errorf("pricing blew up")
}

func TestBuildCubeContinueOnError(t *testing.T) {
	grid := testGrid()

	pf := portfolio.New()
	swap, err := portfolio.NewSwap("SWAP1", "NS1", "CPTY_A", "USD", 1e6, 0.02, true,
		"USD-LIBOR-3M", testAsof, testAsof.AddDate(5, 0, 0), 6)
	require.NoError(t, err)
	require.NoError(t, pf.Add(swap))
	require.NoError(t, pf.Add(&failingTrade{Trade: swap}))

	eng, err := New(logger.Nop(), grid, 2)
	require.NoError(t, err)

	// strict mode aborts
	out := cube.NewInMemory(testAsof, pf.IDs(), grid, 2)
	err = eng.BuildCube(context.Background(), newMarket(t), pf, out,
		[]ValuationCalculator{&NPVCalculator{Index: 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pricing blew up")

	// tolerant mode leaves the sentinel and finishes
	eng.ContinueOnError = true
	out = cube.NewInMemory(testAsof, pf.IDs(), grid, 2)
	err = eng.BuildCube(context.Background(), newMarket(t), pf, out,
		[]ValuationCalculator{&NPVCalculator{Index: 0}})
	require.NoError(t, err)

	good, err := out.Get(0, 0, 0, 0)
	require.NoError(t, err)
	assert.NotZero(t, good)

	bad, err := out.Get(1, 0, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, bad)
}

func TestBuildCubeCancellation(t *testing.T) {
	grid := testGrid()
	pf := testPortfolio(t)
	eng, err := New(logger.Nop(), grid, 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := cube.NewInMemory(testAsof, pf.IDs(), grid, 3)
	err = eng.BuildCube(ctx, newMarket(t), pf, out,
		[]ValuationCalculator{&NPVCalculator{Index: 0}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildCubeParallelMatchesSequential(t *testing.T) {
	grid := testGrid()
	pf := testPortfolio(t)
	samples := 5

	eng, err := New(logger.Nop(), grid, samples)
	require.NoError(t, err)
	calcs := []ValuationCalculator{&NPVCalculator{Index: 0}}

	seq := cube.NewInMemory(testAsof, pf.IDs(), grid, samples)
	require.NoError(t, eng.BuildCube(context.Background(), newMarket(t), pf, seq, calcs))

	par := cube.NewInMemory(testAsof, pf.IDs(), grid, samples)
	factory := func(sampleBase int) (*simmarket.ScenarioSimMarket, error) {
		return newMarket(t), nil
	}
	require.NoError(t, eng.BuildCubeParallel(context.Background(), factory, pf, par, calcs, 3))

	for dateIdx := range grid {
		for sample := 0; sample < samples; sample++ {
			want, err := seq.Get(0, dateIdx, sample, 0)
			require.NoError(t, err)
			got, err := par.Get(0, dateIdx, sample, 0)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}
}

type countingProgress struct{ updates, finishes int }

func (c *countingProgress) Update(completed, total int) { c.updates++ }
func (c *countingProgress) Finish()                     { c.finishes++ }

func TestProgressNotifiedPerUnit(t *testing.T) {
	grid := testGrid()
	pf := testPortfolio(t)
	eng, err := New(logger.Nop(), grid, 3)
	require.NoError(t, err)

	p := &countingProgress{}
	eng.RegisterProgressIndicator(p)

	out := cube.NewInMemory(testAsof, pf.IDs(), grid, 3)
	require.NoError(t, eng.BuildCube(context.Background(), newMarket(t), pf, out,
		[]ValuationCalculator{&NPVCalculator{Index: 0}}))

	assert.Equal(t, 3*len(grid), p.updates)
	assert.Equal(t, 1, p.finishes)
}

func TestNewEngineValidation(t *testing.T) {
	_, err := New(logger.Nop(), nil, 3)
	require.Error(t, err)

	_, err = New(logger.Nop(), testGrid(), 0)
	require.Error(t, err)

	backwards := []time.Time{testAsof.AddDate(1, 0, 0), testAsof.AddDate(0, 6, 0)}
	_, err = New(logger.Nop(), backwards, 3)
	require.Error(t, err)
}
