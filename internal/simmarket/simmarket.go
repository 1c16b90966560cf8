package simmarket

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/oskarlind/riskcube/internal/aggregation"
	"github.com/oskarlind/riskcube/internal/marketdata"
	"github.com/oskarlind/riskcube/internal/scenario"
	"github.com/oskarlind/riskcube/pkg/logger"
)

// Market is the surface the pricing layer sees: term structure and quote
// lookups against the current simulated state. Implementations carry their
// own evaluation date; nothing here is process-global, so one market per
// worker is safe.
type Market interface {
	AsOf() time.Time
	Today() time.Time
	Numeraire() float64
	BaseCurrency() string
	DiscountCurve(ccy string) (marketdata.YieldCurve, error)
	IndexCurve(name string) (marketdata.YieldCurve, error)
	FXSpot(pair string) (float64, error)
	SwaptionVol(ccy string, expiry, term float64) (float64, error)
	FXVol(pair string, expiry float64) (float64, error)
	EquitySpot(name string) (float64, error)
	EquityVol(name string, expiry float64) (float64, error)
	SurvivalProbability(name string, t float64) (float64, error)
	Fixing(index string, date time.Time) (float64, bool)
}

// Consistency errors between a scenario and the configured sim data.
// These indicate a generator/configuration mismatch and are never retried.
var (
	ErrScenarioKeyUnknown = errors.New("scenario references risk factor outside the configured set")
	ErrSimDataIncomplete  = errors.New("scenario left sim data cells unset")
)

// volSurface is the common lookup shape of simulated and decaying matrices.
type volSurface interface {
	Vol(expiry, term float64) float64
}

// volCurve is the curve analogue.
type volCurve interface {
	Vol(expiry float64) float64
}

// ScenarioSimMarket owns a complete revaluable market model. Curves and
// surfaces are built once from the initial market; scenario application
// only overwrites the scalar cells behind them. The key set of simData is
// fixed at construction and never changes.
type ScenarioSimMarket struct {
	log    *logger.Logger
	params *Parameters

	today     time.Time
	asof      time.Time
	numeraire float64

	generator scenario.Generator
	obs       *ObservationManager

	simData map[scenario.RiskFactorKey]*Quote
	keys    []scenario.RiskFactorKey // sorted view of simData for diagnostics

	discountCurves map[string]*LiveYieldCurve
	indexCurves    map[string]*LiveYieldCurve
	fxSpots        map[string]*SpotQuote
	swaptionVols   map[string]volSurface
	fxVols         map[string]volCurve
	eqSpots        map[string]*SpotQuote
	eqVols         map[string]volCurve
	defaultCurves  map[string]*LiveSurvivalCurve

	fixingManager *FixingManager
	asd           aggregation.ScenarioData
}

// New builds the sim market from the initial market and the parameter set.
// Every configured risk factor must be available in the initial market;
// anything missing is a fatal construction error, no partial market is
// ever returned.
func New(initial *marketdata.Snapshot, params *Parameters, mode ObservationMode, log *logger.Logger) (*ScenarioSimMarket, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("sim market: %w", err)
	}

	m := &ScenarioSimMarket{
		log:            log,
		params:         params,
		today:          initial.AsOf(),
		asof:           initial.AsOf(),
		numeraire:      1.0,
		obs:            NewObservationManager(mode),
		simData:        make(map[scenario.RiskFactorKey]*Quote),
		discountCurves: make(map[string]*LiveYieldCurve),
		indexCurves:    make(map[string]*LiveYieldCurve),
		fxSpots:        make(map[string]*SpotQuote),
		swaptionVols:   make(map[string]volSurface),
		fxVols:         make(map[string]volCurve),
		eqSpots:        make(map[string]*SpotQuote),
		eqVols:         make(map[string]volCurve),
		defaultCurves:  make(map[string]*LiveSurvivalCurve),
		fixingManager:  NewFixingManager(initial.AsOf()),
	}

	if err := m.buildYieldCurves(initial); err != nil {
		return nil, err
	}
	if err := m.buildFXSpots(initial); err != nil {
		return nil, err
	}
	if err := m.buildSwaptionVols(initial); err != nil {
		return nil, err
	}
	if err := m.buildFXVols(initial); err != nil {
		return nil, err
	}
	if err := m.buildEquity(initial); err != nil {
		return nil, err
	}
	if err := m.buildDefaultCurves(initial); err != nil {
		return nil, err
	}

	m.keys = make([]scenario.RiskFactorKey, 0, len(m.simData))
	for k := range m.simData {
		m.keys = append(m.keys, k)
	}
	sort.Slice(m.keys, func(i, j int) bool { return m.keys[i].Less(m.keys[j]) })

	log.WithFields(map[string]interface{}{
		"risk_factors": len(m.simData),
		"mode":         string(mode),
	}).Info("Scenario sim market built")

	return m, nil
}

func (m *ScenarioSimMarket) addCell(key scenario.RiskFactorKey, value float64) *Quote {
	q := NewQuote(value, m.obs)
	m.simData[key] = q
	return q
}

func (m *ScenarioSimMarket) buildYieldCurves(initial *marketdata.Snapshot) error {
	tenors := m.params.YieldCurveTenors

	for _, ccy := range m.params.Currencies {
		base, err := initial.DiscountCurve(ccy)
		if err != nil {
			return fmt.Errorf("sim market: %w", err)
		}
		quotes := make([]*Quote, len(tenors))
		for i, t := range tenors {
			key := scenario.RiskFactorKey{Type: scenario.DiscountCurve, Qualifier: ccy, Index: i}
			quotes[i] = m.addCell(key, base.Discount(t))
		}
		m.discountCurves[ccy] = NewLiveYieldCurve(tenors, quotes, m.obs)
	}

	for _, name := range m.params.Indices {
		base, err := initial.IndexCurve(name)
		if err != nil {
			return fmt.Errorf("sim market: %w", err)
		}
		quotes := make([]*Quote, len(tenors))
		for i, t := range tenors {
			key := scenario.RiskFactorKey{Type: scenario.IndexCurve, Qualifier: name, Index: i}
			quotes[i] = m.addCell(key, base.Discount(t))
		}
		curve := NewLiveYieldCurve(tenors, quotes, m.obs)
		m.indexCurves[name] = curve

		tenor, err := parseIndexTenor(name)
		if err != nil {
			return fmt.Errorf("sim market: %w", err)
		}
		m.fixingManager.AddIndex(name, initial.Fixings(name), func() float64 {
			// simple forward over one index tenor off the live curve
			df := curve.Discount(tenor)
			return (1.0/df - 1.0) / tenor
		})
	}
	return nil
}

func (m *ScenarioSimMarket) buildFXSpots(initial *marketdata.Snapshot) error {
	for _, pair := range m.params.FXPairs {
		spot, err := initial.FXSpot(pair)
		if err != nil {
			return fmt.Errorf("sim market: %w", err)
		}
		key := scenario.RiskFactorKey{Type: scenario.FXSpot, Qualifier: pair, Index: 0}
		m.fxSpots[pair] = NewSpotQuote(m.addCell(key, spot), m.obs)
	}
	return nil
}

func (m *ScenarioSimMarket) buildSwaptionVols(initial *marketdata.Snapshot) error {
	for _, ccy := range m.params.SwaptionVolCurrencies {
		base, err := initial.SwaptionVol(ccy)
		if err != nil {
			return fmt.Errorf("sim market: %w", err)
		}

		if !m.params.SimulateSwaptionVols {
			mode := m.params.SwaptionVolDecayMode
			if mode == "" {
				mode = DecayConstantVariance
			}
			m.swaptionVols[ccy] = NewDecayVolMatrix(base, m.today, m.clock(), mode)
			continue
		}

		// Simulated grids carry one vol convention. Non-Normal inputs are
		// converted to Normal once, here, before wrapping.
		conv := 1.0
		if base.Convention == marketdata.VolLognormal {
			conv = m.params.SwaptionATMForward
			if conv <= 0 {
				return fmt.Errorf("sim market: swaptionAtmForward must be > 0 to convert lognormal vols for %s", ccy)
			}
			m.log.WithField("ccy", ccy).Debug("Converting lognormal swaption vols to normal")
		}

		quotes := make([]*Quote, len(base.Values))
		for i := range base.Expiries {
			for j := range base.Terms {
				idx := i*len(base.Terms) + j
				key := scenario.RiskFactorKey{Type: scenario.SwaptionVolatility, Qualifier: ccy, Index: idx}
				quotes[idx] = m.addCell(key, base.At(i, j)*conv)
			}
		}
		m.swaptionVols[ccy] = NewLiveVolMatrix(base.Expiries, base.Terms, quotes, m.obs)
	}
	return nil
}

func (m *ScenarioSimMarket) buildFXVols(initial *marketdata.Snapshot) error {
	for _, pair := range m.params.FXVolPairs {
		base, err := initial.FXVol(pair)
		if err != nil {
			return fmt.Errorf("sim market: %w", err)
		}

		if !m.params.SimulateFXVols {
			mode := m.params.FXVolDecayMode
			if mode == "" {
				mode = DecayConstantVariance
			}
			m.fxVols[pair] = NewDecayVolCurve(base, m.today, m.clock(), mode)
			continue
		}

		expiries := m.params.FXVolExpiries
		quotes := make([]*Quote, len(expiries))
		for i, e := range expiries {
			key := scenario.RiskFactorKey{Type: scenario.FXVolatility, Qualifier: pair, Index: i}
			quotes[i] = m.addCell(key, base.Vol(e))
		}
		m.fxVols[pair] = NewLiveVolCurve(expiries, quotes, m.obs)
	}
	return nil
}

func (m *ScenarioSimMarket) buildEquity(initial *marketdata.Snapshot) error {
	for _, name := range m.params.EquityNames {
		spot, err := initial.EquitySpot(name)
		if err != nil {
			return fmt.Errorf("sim market: %w", err)
		}
		key := scenario.RiskFactorKey{Type: scenario.EQSpot, Qualifier: name, Index: 0}
		m.eqSpots[name] = NewSpotQuote(m.addCell(key, spot), m.obs)

		base, err := initial.EquityVol(name)
		if err != nil {
			return fmt.Errorf("sim market: %w", err)
		}
		if !m.params.SimulateEquityVols {
			mode := m.params.EquityVolDecayMode
			if mode == "" {
				mode = DecayConstantVariance
			}
			m.eqVols[name] = NewDecayVolCurve(base, m.today, m.clock(), mode)
			continue
		}
		expiries := m.params.EquityVolExpiries
		quotes := make([]*Quote, len(expiries))
		for i, e := range expiries {
			volKey := scenario.RiskFactorKey{Type: scenario.EQVolatility, Qualifier: name, Index: i}
			quotes[i] = m.addCell(volKey, base.Vol(e))
		}
		m.eqVols[name] = NewLiveVolCurve(expiries, quotes, m.obs)
	}
	return nil
}

func (m *ScenarioSimMarket) buildDefaultCurves(initial *marketdata.Snapshot) error {
	tenors := m.params.DefaultTenors
	for _, name := range m.params.DefaultNames {
		base, err := initial.DefaultCurve(name)
		if err != nil {
			return fmt.Errorf("sim market: %w", err)
		}
		quotes := make([]*Quote, len(tenors))
		for i, t := range tenors {
			key := scenario.RiskFactorKey{Type: scenario.DefaultCurve, Qualifier: name, Index: i}
			quotes[i] = m.addCell(key, base.SurvivalProbability(t))
		}
		m.defaultCurves[name] = NewLiveSurvivalCurve(tenors, quotes, m.obs)
	}
	return nil
}

func (m *ScenarioSimMarket) clock() func() time.Time {
	return func() time.Time { return m.asof }
}

// SetGenerator attaches the scenario source. Must be called before Update.
func (m *ScenarioSimMarket) SetGenerator(g scenario.Generator) { m.generator = g }

// AttachAggregator wires the auxiliary data sink filled during updates.
func (m *ScenarioSimMarket) AttachAggregator(asd aggregation.ScenarioData) { m.asd = asd }

// BaseScenario snapshots the current cell values into a scenario carrying
// exactly the configured key set. Feeding this into a ConstantGenerator
// replays today's market across the grid.
func (m *ScenarioSimMarket) BaseScenario(numeraire float64) *scenario.Simple {
	s := scenario.NewSimple(m.today, numeraire)
	for key, q := range m.simData {
		s.Add(key, q.Value())
	}
	return s
}

// SimDataKeys returns the configured key set in sorted order.
func (m *ScenarioSimMarket) SimDataKeys() []scenario.RiskFactorKey { return m.keys }

// Update advances the market to date d: pulls the next scenario, applies
// it to every sim data cell, rolls fixings forward and appends to the
// aggregation data sink. A scenario whose key set is not exactly the
// configured set is a fatal consistency error.
func (m *ScenarioSimMarket) Update(d time.Time) error {
	if m.generator == nil {
		return fmt.Errorf("sim market: no scenario generator attached")
	}

	scen, err := m.generator.Next(d)
	if err != nil {
		return fmt.Errorf("sim market: scenario generator failed for %s: %w", d.Format("2006-01-02"), err)
	}

	m.numeraire = scen.Numeraire()

	prev := m.asof
	if !d.Equal(m.asof) {
		m.asof = d
	}

	m.obs.BeginUpdate()

	count := 0
	var unknown []string
	for _, key := range scen.Keys() {
		q, ok := m.simData[key]
		if !ok {
			unknown = append(unknown, key.String())
			continue
		}
		v, _ := scen.Get(key)
		q.SetValue(v)
		count++
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %v", ErrScenarioKeyUnknown, unknown)
	}

	if count != len(m.simData) {
		var missing []string
		for _, key := range m.keys {
			if !scen.Has(key) {
				missing = append(missing, key.String())
			}
		}
		return fmt.Errorf("%w: applied %d of %d, missing %v",
			ErrSimDataIncomplete, count, len(m.simData), missing)
	}

	m.obs.EndUpdate()
	if m.obs.Mode() == ObserveDisable {
		m.obs.RefreshAll()
	}

	m.fixingManager.Update(prev, d)

	if m.asd != nil {
		for _, ix := range m.params.AsdIndices {
			fixing, ok := m.fixingManager.Fixing(ix, d)
			if !ok {
				// grid date beyond recorded days; read the live projection
				fixing = m.projectedFixing(ix)
			}
			if err := m.asd.Set(aggregation.IndexFixing, ix, fixing); err != nil {
				return fmt.Errorf("sim market: %w", err)
			}
		}
		for _, c := range m.params.AsdCurrencies {
			spot, err := m.FXSpot(c + m.params.BaseCurrency)
			if err != nil {
				return fmt.Errorf("sim market: %w", err)
			}
			if err := m.asd.Set(aggregation.FXSpot, c, spot); err != nil {
				return fmt.Errorf("sim market: %w", err)
			}
		}
		if err := m.asd.Set(aggregation.Numeraire, "", m.numeraire); err != nil {
			return fmt.Errorf("sim market: %w", err)
		}
		m.asd.Next()
	}

	return nil
}

func (m *ScenarioSimMarket) projectedFixing(index string) float64 {
	curve, ok := m.indexCurves[index]
	if !ok {
		return 0
	}
	tenor, err := parseIndexTenor(index)
	if err != nil {
		return 0
	}
	df := curve.Discount(tenor)
	return (1.0/df - 1.0) / tenor
}

// ResetSample restores per-sample state (fixing histories, evaluation
// date). The valuation engine calls this before starting a new sample.
func (m *ScenarioSimMarket) ResetSample() {
	m.fixingManager.Reset()
	m.asof = m.today
}

// Refresh recomputes all derived objects. Exposed for completeness; the
// disable mode refresh is already handled inside Update.
func (m *ScenarioSimMarket) Refresh() { m.obs.RefreshAll() }

func (m *ScenarioSimMarket) AsOf() time.Time      { return m.asof }
func (m *ScenarioSimMarket) Today() time.Time     { return m.today }
func (m *ScenarioSimMarket) Numeraire() float64   { return m.numeraire }
func (m *ScenarioSimMarket) BaseCurrency() string { return m.params.BaseCurrency }

func (m *ScenarioSimMarket) DiscountCurve(ccy string) (marketdata.YieldCurve, error) {
	c, ok := m.discountCurves[ccy]
	if !ok {
		return nil, fmt.Errorf("sim market: no discount curve for currency %s", ccy)
	}
	return c, nil
}

func (m *ScenarioSimMarket) IndexCurve(name string) (marketdata.YieldCurve, error) {
	c, ok := m.indexCurves[name]
	if !ok {
		return nil, fmt.Errorf("sim market: no index curve for %s", name)
	}
	return c, nil
}

func (m *ScenarioSimMarket) FXSpot(pair string) (float64, error) {
	if len(pair) == 6 && pair[:3] == pair[3:] {
		return 1.0, nil
	}
	s, ok := m.fxSpots[pair]
	if !ok {
		return 0, fmt.Errorf("sim market: no fx spot for pair %s", pair)
	}
	return s.Value(), nil
}

func (m *ScenarioSimMarket) SwaptionVol(ccy string, expiry, term float64) (float64, error) {
	v, ok := m.swaptionVols[ccy]
	if !ok {
		return 0, fmt.Errorf("sim market: no swaption vols for currency %s", ccy)
	}
	return v.Vol(expiry, term), nil
}

func (m *ScenarioSimMarket) FXVol(pair string, expiry float64) (float64, error) {
	v, ok := m.fxVols[pair]
	if !ok {
		return 0, fmt.Errorf("sim market: no fx vols for pair %s", pair)
	}
	return v.Vol(expiry), nil
}

func (m *ScenarioSimMarket) EquitySpot(name string) (float64, error) {
	s, ok := m.eqSpots[name]
	if !ok {
		return 0, fmt.Errorf("sim market: no equity spot for %s", name)
	}
	return s.Value(), nil
}

func (m *ScenarioSimMarket) EquityVol(name string, expiry float64) (float64, error) {
	v, ok := m.eqVols[name]
	if !ok {
		return 0, fmt.Errorf("sim market: no equity vols for %s", name)
	}
	return v.Vol(expiry), nil
}

func (m *ScenarioSimMarket) SurvivalProbability(name string, t float64) (float64, error) {
	c, ok := m.defaultCurves[name]
	if !ok {
		return 0, fmt.Errorf("sim market: no default curve for %s", name)
	}
	return c.SurvivalProbability(t), nil
}

func (m *ScenarioSimMarket) Fixing(index string, date time.Time) (float64, bool) {
	return m.fixingManager.Fixing(index, date)
}
