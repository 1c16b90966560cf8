package portfolio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oskarlind/riskcube/internal/marketdata"
	"github.com/oskarlind/riskcube/internal/scenario"
	"github.com/oskarlind/riskcube/internal/simmarket"
	"github.com/oskarlind/riskcube/pkg/logger"
)

var testAsof = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

func testMarket(t *testing.T) *simmarket.ScenarioSimMarket {
	t.Helper()

	snap := marketdata.NewSnapshot(testAsof)
	snap.AddDiscountCurve("USD", marketdata.FlatCurve{Rate: 0.02})
	snap.AddDiscountCurve("EUR", marketdata.FlatCurve{Rate: 0.01})
	snap.AddIndexCurve("USD-LIBOR-3M", marketdata.FlatCurve{Rate: 0.03})
	snap.AddFXSpot("EURUSD", 1.10)
	snap.AddSwaptionVol("USD", &marketdata.VolMatrix{
		Expiries:   []float64{1, 5},
		Terms:      []float64{2, 10},
		Values:     []float64{0.0050, 0.0060, 0.0055, 0.0065},
		Convention: marketdata.VolNormal,
	})

	params := &simmarket.Parameters{
		BaseCurrency:          "USD",
		Currencies:            []string{"USD", "EUR"},
		YieldCurveTenors:      []float64{0.5, 1, 2, 5, 10},
		Indices:               []string{"USD-LIBOR-3M"},
		FXPairs:               []string{"EURUSD"},
		SimulateSwaptionVols:  true,
		SwaptionVolCurrencies: []string{"USD"},
	}

	m, err := simmarket.New(snap, params, simmarket.ObserveEager, logger.Nop())
	require.NoError(t, err)
	return m
}

func TestSwapNPVSignAndSymmetry(t *testing.T) {
	m := testMarket(t)
	maturity := testAsof.AddDate(5, 0, 0)

	payer, err := NewSwap("S1", "NS1", "CPTY_A", "USD", 1e6, 0.0, true,
		"USD-LIBOR-3M", testAsof, maturity, 3)
	require.NoError(t, err)
	receiver, err := NewSwap("S2", "NS1", "CPTY_A", "USD", 1e6, 0.0, false,
		"USD-LIBOR-3M", testAsof, maturity, 3)
	require.NoError(t, err)

	// zero fixed rate against a 3% forward curve: the float receiver wins
	v1, err := payer.NPV(m)
	require.NoError(t, err)
	assert.Greater(t, v1, 0.0)

	v2, err := receiver.NPV(m)
	require.NoError(t, err)
	assert.InDelta(t, -v1, v2, 1e-9)
}

func TestSwapUsesRecordedFixings(t *testing.T) {
	m := testMarket(t)

	start := testAsof.AddDate(0, -1, 0)
	swap, err := NewSwap("S1", "NS1", "CPTY_A", "USD", 1e6, 0.02, true,
		"USD-LIBOR-3M", start, start.AddDate(1, 0, 0), 3)
	require.NoError(t, err)

	// no fixing recorded for the running period start, falls back to curve
	v, err := swap.NPV(m)
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)
}

func TestSwapFlowForElapsedFirstPeriod(t *testing.T) {
	m := testMarket(t)
	m.SetGenerator(scenario.NewConstantGenerator(m.BaseScenario(1.0)))

	swap, err := NewSwap("S1", "NS1", "CPTY_A", "USD", 1e6, 0.02, true,
		"USD-LIBOR-3M", testAsof, testAsof.AddDate(5, 0, 0), 6)
	require.NoError(t, err)

	end := testAsof.AddDate(0, 6, 0)
	require.NoError(t, m.Update(end))

	flow, err := swap.Flow(m, testAsof, end)
	require.NoError(t, err)

	// the first period fixed today at the 3m spot rate off the flat 3%
	// index curve, so the payer of 2% fixed collects the difference
	fix := (1.0/math.Exp(-0.03*0.25) - 1.0) / 0.25
	accrual := marketdata.YearFraction(testAsof, end)
	assert.Greater(t, flow, 0.0)
	assert.InDelta(t, 1e6*accrual*(fix-0.02), flow, 1e-6)
}

func TestSwapFlowMissingHistoricalFixing(t *testing.T) {
	m := testMarket(t)

	start := testAsof.AddDate(0, -6, 0)
	swap, err := NewSwap("S1", "NS1", "CPTY_A", "USD", 1e6, 0.02, true,
		"USD-LIBOR-3M", start, start.AddDate(2, 0, 0), 3)
	require.NoError(t, err)

	// the period ending three months ago needs a fixing the snapshot never
	// supplied, and there is nothing left to project
	_, err = swap.Flow(m, start, testAsof)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fixing")
}

func TestFXForwardNPV(t *testing.T) {
	m := testMarket(t)
	maturity := testAsof.AddDate(1, 0, 0)

	// buy 1m EUR, sell 1.1m USD at par with spot; value driven by the
	// rate differential only
	fwd, err := NewFXForward("F1", "NS1", "CPTY_B", "USD", "EUR", 1e6, "USD", 1.1e6, maturity)
	require.NoError(t, err)

	v, err := fwd.NPV(m)
	require.NoError(t, err)
	// EUR discounts at 1%, USD at 2%: the bought EUR leg is worth more
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 1.1e6*0.02)
}

func TestFXForwardExpiredIsWorthless(t *testing.T) {
	m := testMarket(t)
	fwd, err := NewFXForward("F1", "NS1", "CPTY_B", "USD", "EUR", 1e6, "USD", 1.1e6, testAsof)
	require.NoError(t, err)

	v, err := fwd.NPV(m)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestSwaptionNPV(t *testing.T) {
	m := testMarket(t)

	payer, err := NewEuropeanSwaption("O1", "NS1", "CPTY_A", "USD", 1e6, 0.03, true,
		"USD-LIBOR-3M", testAsof.AddDate(1, 0, 0), 5, 3)
	require.NoError(t, err)

	v, err := payer.NPV(m)
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)

	expired, err := NewEuropeanSwaption("O2", "NS1", "CPTY_A", "USD", 1e6, 0.03, true,
		"USD-LIBOR-3M", testAsof.AddDate(0, 0, -1), 5, 3)
	require.NoError(t, err)
	v, err = expired.NPV(m)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestPortfolioOrderAndLookup(t *testing.T) {
	p := New()
	maturity := testAsof.AddDate(2, 0, 0)

	s1, err := NewSwap("SW_B", "NS1", "CPTY_A", "USD", 1e6, 0.02, true,
		"USD-LIBOR-3M", testAsof, maturity, 6)
	require.NoError(t, err)
	s2, err := NewSwap("SW_A", "NS2", "CPTY_B", "USD", 1e6, 0.02, false,
		"USD-LIBOR-3M", testAsof, maturity, 6)
	require.NoError(t, err)

	require.NoError(t, p.Add(s1))
	require.NoError(t, p.Add(s2))

	// insertion order, not lexical
	assert.Equal(t, []string{"SW_B", "SW_A"}, p.IDs())
	assert.Equal(t, []string{"NS1", "NS2"}, p.NettingSets())

	_, ok := p.Get("SW_A")
	assert.True(t, ok)

	err = p.Add(s1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate trade id SW_B")
}

func TestPortfolioRemoveMatured(t *testing.T) {
	p := New()
	short, err := NewSwap("SHORT", "NS1", "CPTY_A", "USD", 1e6, 0.02, true,
		"USD-LIBOR-3M", testAsof.AddDate(-1, 0, 0), testAsof.AddDate(0, 6, 0), 6)
	require.NoError(t, err)
	long, err := NewSwap("LONG", "NS1", "CPTY_A", "USD", 1e6, 0.02, true,
		"USD-LIBOR-3M", testAsof, testAsof.AddDate(5, 0, 0), 6)
	require.NoError(t, err)
	require.NoError(t, p.Add(short))
	require.NoError(t, p.Add(long))

	removed := p.RemoveMatured(testAsof.AddDate(1, 0, 0))
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"LONG"}, p.IDs())
	_, ok := p.Get("SHORT")
	assert.False(t, ok)
}

func TestLoadPortfolioYAML(t *testing.T) {
	content := `
trades:
  - id: SWAP1
    type: swap
    nettingSet: NS1
    counterparty: CPTY_A
    currency: USD
    notional: 1000000
    fixedRate: 0.02
    payFixed: true
    index: USD-LIBOR-3M
    start: 2026-08-25
    maturity: 2031-08-25
    frequencyMonths: 3
  - id: FXF1
    type: fxforward
    nettingSet: NS2
    counterparty: CPTY_B
    currency: USD
    boughtCurrency: EUR
    boughtNotional: 1000000
    soldCurrency: USD
    soldNotional: 1100000
    maturity: 2027-08-25
  - id: SWPT1
    type: swaption
    nettingSet: NS1
    counterparty: CPTY_A
    currency: USD
    notional: 1000000
    strike: 0.025
    payer: true
    index: USD-LIBOR-3M
    exercise: 2028-08-25
    swapTenorYears: 5
    frequencyMonths: 6
`
	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SWAP1", "FXF1", "SWPT1"}, p.IDs())

	trade, ok := p.Get("SWAP1")
	require.True(t, ok)
	assert.Equal(t, "NS1", trade.NettingSetID())
	assert.IsType(t, &Swap{}, trade)
}

func TestLoadPortfolioRejectsUnknownType(t *testing.T) {
	content := `
trades:
  - id: X1
    type: variance_swap
    nettingSet: NS1
`
	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown type "variance_swap"`)
}
