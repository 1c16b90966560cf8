package simmarket

import (
	"math"
	"time"

	"github.com/oskarlind/riskcube/internal/marketdata"
)

// Live term structures read from quote cells, never from the initial
// market. Each caches its cell values and recomputes on MarketUpdate; in
// disable mode the cache refresh happens via ObservationManager.RefreshAll.

// LiveYieldCurve interpolates discount factors over pillar cells.
type LiveYieldCurve struct {
	times  []float64
	quotes []*Quote
	dfs    []float64
}

// NewLiveYieldCurve builds the curve, registers it against its cells and
// the manager, and primes the cache.
func NewLiveYieldCurve(times []float64, quotes []*Quote, manager *ObservationManager) *LiveYieldCurve {
	c := &LiveYieldCurve{
		times:  times,
		quotes: quotes,
		dfs:    make([]float64, len(quotes)),
	}
	for _, q := range quotes {
		q.RegisterObserver(c)
	}
	manager.Register(c)
	c.MarketUpdate()
	return c
}

// MarketUpdate re-reads all pillar cells.
func (c *LiveYieldCurve) MarketUpdate() {
	for i, q := range c.quotes {
		c.dfs[i] = q.Value()
	}
}

func (c *LiveYieldCurve) Discount(t float64) float64 {
	return marketdata.LogLinearDF(c.times, c.dfs, t)
}

// SpotQuote is a live scalar (FX spot, equity spot).
type SpotQuote struct {
	quote *Quote
	value float64
}

func NewSpotQuote(quote *Quote, manager *ObservationManager) *SpotQuote {
	s := &SpotQuote{quote: quote}
	quote.RegisterObserver(s)
	manager.Register(s)
	s.MarketUpdate()
	return s
}

func (s *SpotQuote) MarketUpdate() { s.value = s.quote.Value() }
func (s *SpotQuote) Value() float64 {
	return s.value
}

// LiveVolMatrix is a simulated expiry x term vol grid. Lookup is bilinear
// with flat extrapolation, matching the initial-market matrix layout.
type LiveVolMatrix struct {
	expiries []float64
	terms    []float64
	quotes   []*Quote
	values   []float64
}

func NewLiveVolMatrix(expiries, terms []float64, quotes []*Quote, manager *ObservationManager) *LiveVolMatrix {
	m := &LiveVolMatrix{
		expiries: expiries,
		terms:    terms,
		quotes:   quotes,
		values:   make([]float64, len(quotes)),
	}
	for _, q := range quotes {
		q.RegisterObserver(m)
	}
	manager.Register(m)
	m.MarketUpdate()
	return m
}

func (m *LiveVolMatrix) MarketUpdate() {
	for i, q := range m.quotes {
		m.values[i] = q.Value()
	}
}

// Vol returns the bilinearly interpolated vol at (expiry, term).
func (m *LiveVolMatrix) Vol(expiry, term float64) float64 {
	return bilinear(m.expiries, m.terms, m.values, expiry, term)
}

// LiveVolCurve is a simulated vol-by-expiry curve (FX, equity).
type LiveVolCurve struct {
	expiries []float64
	quotes   []*Quote
	vols     []float64
}

func NewLiveVolCurve(expiries []float64, quotes []*Quote, manager *ObservationManager) *LiveVolCurve {
	c := &LiveVolCurve{
		expiries: expiries,
		quotes:   quotes,
		vols:     make([]float64, len(quotes)),
	}
	for _, q := range quotes {
		q.RegisterObserver(c)
	}
	manager.Register(c)
	c.MarketUpdate()
	return c
}

func (c *LiveVolCurve) MarketUpdate() {
	for i, q := range c.quotes {
		c.vols[i] = q.Value()
	}
}

func (c *LiveVolCurve) Vol(expiry float64) float64 {
	return marketdata.LinearInterp(c.expiries, c.vols, expiry)
}

// LiveSurvivalCurve interpolates survival probabilities over pillar cells,
// log-linearly like discount factors.
type LiveSurvivalCurve struct {
	times  []float64
	quotes []*Quote
	probs  []float64
}

func NewLiveSurvivalCurve(times []float64, quotes []*Quote, manager *ObservationManager) *LiveSurvivalCurve {
	c := &LiveSurvivalCurve{
		times:  times,
		quotes: quotes,
		probs:  make([]float64, len(quotes)),
	}
	for _, q := range quotes {
		q.RegisterObserver(c)
	}
	manager.Register(c)
	c.MarketUpdate()
	return c
}

func (c *LiveSurvivalCurve) MarketUpdate() {
	for i, q := range c.quotes {
		c.probs[i] = q.Value()
	}
}

func (c *LiveSurvivalCurve) SurvivalProbability(t float64) float64 {
	return marketdata.LogLinearDF(c.times, c.probs, t)
}

// =============================================================================
// Deterministic time decay for non-simulated vols
// =============================================================================

// DecayMode selects how a non-simulated vol surface reacts to the advancing
// evaluation date. No sim data cells exist for these surfaces; the decay is
// a pure function of the asof date.
type DecayMode string

const (
	// DecayConstantVariance keeps the variance for a given relative expiry
	// constant: the surface rolls with the evaluation date unchanged.
	DecayConstantVariance DecayMode = "ConstantVariance"
	// DecayForwardVariance reads the forward variance between the elapsed
	// time and the requested expiry off the base surface.
	DecayForwardVariance DecayMode = "ForwardVariance"
)

// DecayVolCurve wraps a base vol curve with deterministic time decay.
// The clock reads the owning market's current asof date.
type DecayVolCurve struct {
	base     marketdata.VolCurve
	baseAsof time.Time
	clock    func() time.Time
	mode     DecayMode
}

func NewDecayVolCurve(base marketdata.VolCurve, baseAsof time.Time, clock func() time.Time, mode DecayMode) *DecayVolCurve {
	return &DecayVolCurve{base: base, baseAsof: baseAsof, clock: clock, mode: mode}
}

func (c *DecayVolCurve) Vol(expiry float64) float64 {
	if c.mode == DecayConstantVariance {
		return c.base.Vol(expiry)
	}
	dt := marketdata.YearFraction(c.baseAsof, c.clock())
	return forwardVol(c.base.Vol, dt, expiry)
}

// DecayVolMatrix is the matrix analogue, decaying in the expiry dimension.
type DecayVolMatrix struct {
	base     *marketdata.VolMatrix
	baseAsof time.Time
	clock    func() time.Time
	mode     DecayMode
}

func NewDecayVolMatrix(base *marketdata.VolMatrix, baseAsof time.Time, clock func() time.Time, mode DecayMode) *DecayVolMatrix {
	return &DecayVolMatrix{base: base, baseAsof: baseAsof, clock: clock, mode: mode}
}

func (m *DecayVolMatrix) Vol(expiry, term float64) float64 {
	baseVol := func(e float64) float64 {
		return bilinear(m.base.Expiries, m.base.Terms, m.base.Values, e, term)
	}
	if m.mode == DecayConstantVariance {
		return baseVol(expiry)
	}
	dt := marketdata.YearFraction(m.baseAsof, m.clock())
	return forwardVol(baseVol, dt, expiry)
}

// forwardVol extracts the forward vol over [dt, dt+expiry] from a base vol
// function via total variances.
func forwardVol(baseVol func(float64) float64, dt, expiry float64) float64 {
	if expiry <= 0 {
		return baseVol(0)
	}
	if dt <= 0 {
		return baseVol(expiry)
	}
	v0 := baseVol(dt)
	v1 := baseVol(dt + expiry)
	fwdVar := (v1*v1*(dt+expiry) - v0*v0*dt) / expiry
	if fwdVar < 0 {
		fwdVar = 0
	}
	return math.Sqrt(fwdVar)
}

// bilinear interpolates a row-major (x-major) grid with flat extrapolation
// in both dimensions.
func bilinear(xs, ys, values []float64, x, y float64) float64 {
	nx, ny := len(xs), len(ys)
	if nx == 0 || ny == 0 {
		return 0
	}

	i, wx := bracket(xs, x)
	j, wy := bracket(ys, y)

	v00 := values[i*ny+j]
	v01 := values[i*ny+min(j+1, ny-1)]
	v10 := values[min(i+1, nx-1)*ny+j]
	v11 := values[min(i+1, nx-1)*ny+min(j+1, ny-1)]

	return (1-wx)*((1-wy)*v00+wy*v01) + wx*((1-wy)*v10+wy*v11)
}

// bracket returns the lower pillar index and interpolation weight for v,
// clamping outside the pillar range.
func bracket(xs []float64, v float64) (int, float64) {
	n := len(xs)
	if v <= xs[0] || n == 1 {
		return 0, 0
	}
	if v >= xs[n-1] {
		return n - 1, 0
	}
	i := 0
	for xs[i+1] < v {
		i++
	}
	return i, (v - xs[i]) / (xs[i+1] - xs[i])
}
