package postprocess

import (
	"errors"
	"fmt"
	"time"

	"github.com/oskarlind/riskcube/internal/aggregation"
	"github.com/oskarlind/riskcube/internal/cube"
	"github.com/oskarlind/riskcube/internal/marketdata"
	"github.com/oskarlind/riskcube/internal/nettingset"
	"github.com/oskarlind/riskcube/internal/portfolio"
	"github.com/oskarlind/riskcube/pkg/logger"
)

// ErrDimensionMismatch is returned when the cube, scenario data and
// portfolio do not describe the same run.
var ErrDimensionMismatch = errors.New("postprocess inputs have mismatching dimensions")

// XVA bundles the valuation adjustments of one netting set.
type XVA struct {
	CVA             float64
	DVA             float64
	FBA             float64 // funding benefit (borrowing leg)
	FCA             float64 // funding cost (lending leg)
	COLVA           float64
	CollateralFloor float64
	KVA             float64
	MVA             float64
}

// Results is the full output of one post-processing run.
type Results struct {
	AsOf  time.Time
	Dates []time.Time

	TradeEPE map[string][]float64
	TradeENE map[string][]float64

	NettingSetEPE  map[string][]float64
	NettingSetENE  map[string][]float64
	NettingSetPFE  map[string][]float64
	ExpectedDIM    map[string][]float64
	NettingSetXVA  map[string]*XVA
	AllocatedCVA   map[string]float64 // by trade id
	AllocatedDVA   map[string]float64 // by trade id
	NettingSetList []string
}

// PostProcessor aggregates a filled cube into exposures and XVA.
type PostProcessor struct {
	cfg Config
	log *logger.Logger

	npvCube cube.NPVCube
	asd     aggregation.ScenarioData
	pf      *portfolio.Portfolio
	netting *nettingset.Manager

	// survival curves by counterparty id, plus our own
	counterpartySurvival map[string]marketdata.SurvivalCurve
	ownSurvival          marketdata.SurvivalCurve
}

// New validates the inputs against each other before any aggregation work.
func New(cfg Config, log *logger.Logger, npvCube cube.NPVCube, asd aggregation.ScenarioData, pf *portfolio.Portfolio, netting *nettingset.Manager, counterpartySurvival map[string]marketdata.SurvivalCurve, ownSurvival marketdata.SurvivalCurve) (*PostProcessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ids := npvCube.IDs()
	pfIDs := pf.IDs()
	if len(ids) != len(pfIDs) {
		return nil, fmt.Errorf("%w: cube has %d ids, portfolio has %d trades",
			ErrDimensionMismatch, len(ids), len(pfIDs))
	}
	for i := range ids {
		if ids[i] != pfIDs[i] {
			return nil, fmt.Errorf("%w: cube id %d is %q, portfolio has %q",
				ErrDimensionMismatch, i, ids[i], pfIDs[i])
		}
	}
	if asd.DimDates() != len(npvCube.Dates()) || asd.DimSamples() != npvCube.Samples() {
		return nil, fmt.Errorf("%w: scenario data is %dx%d, cube is %dx%d",
			ErrDimensionMismatch, asd.DimDates(), asd.DimSamples(), len(npvCube.Dates()), npvCube.Samples())
	}

	for _, t := range pf.Trades() {
		def, err := netting.Get(t.NettingSetID())
		if err != nil {
			return nil, fmt.Errorf("postprocess: trade %s: %w", t.ID(), err)
		}
		if _, ok := counterpartySurvival[def.Counterparty]; !ok {
			return nil, fmt.Errorf("postprocess: no survival curve for counterparty %s (netting set %s)",
				def.Counterparty, def.ID)
		}
	}
	if ownSurvival == nil {
		return nil, fmt.Errorf("postprocess: own survival curve is required")
	}

	return &PostProcessor{
		cfg:                  cfg,
		log:                  log,
		npvCube:              npvCube,
		asd:                  asd,
		pf:                   pf,
		netting:              netting,
		counterpartySurvival: counterpartySurvival,
		ownSurvival:          ownSurvival,
	}, nil
}

// Run computes exposure profiles, XVA per netting set and trade-level
// allocations.
func (p *PostProcessor) Run() (*Results, error) {
	dates := p.npvCube.Dates()
	samples := p.npvCube.Samples()
	asof := p.npvCube.AsOf()

	p.log.WithFields(map[string]interface{}{
		"trades":  p.pf.Size(),
		"dates":   len(dates),
		"samples": samples,
	}).Info("Running XVA post processing")

	// deflated trade paths
	tradePaths := make(map[string]*pathValues, p.pf.Size())
	for i, t := range p.pf.Trades() {
		paths := newPathValues(len(dates), samples)
		for d := range dates {
			for s := 0; s < samples; s++ {
				v, err := p.npvCube.Get(i, d, s, 0)
				if err != nil {
					return nil, fmt.Errorf("postprocess: %w", err)
				}
				paths.set(d, s, v)
			}
		}
		if err := paths.deflate(p.asd); err != nil {
			return nil, err
		}
		tradePaths[t.ID()] = paths
	}

	// netting set paths are the sum of their members
	nsPaths := make(map[string]*pathValues)
	nsTrades := make(map[string][]portfolio.Trade)
	for _, t := range p.pf.Trades() {
		ns := t.NettingSetID()
		if nsPaths[ns] == nil {
			nsPaths[ns] = newPathValues(len(dates), samples)
		}
		paths := tradePaths[t.ID()]
		for i := range paths.values {
			nsPaths[ns].values[i] += paths.values[i]
		}
		nsTrades[ns] = append(nsTrades[ns], t)
	}

	res := &Results{
		AsOf:           asof,
		Dates:          dates,
		TradeEPE:       make(map[string][]float64),
		TradeENE:       make(map[string][]float64),
		NettingSetEPE:  make(map[string][]float64),
		NettingSetENE:  make(map[string][]float64),
		NettingSetPFE:  make(map[string][]float64),
		ExpectedDIM:    make(map[string][]float64),
		NettingSetXVA:  make(map[string]*XVA),
		AllocatedCVA:   make(map[string]float64),
		AllocatedDVA:   make(map[string]float64),
		NettingSetList: p.pf.NettingSets(),
	}

	for id, paths := range tradePaths {
		res.TradeEPE[id] = paths.epe()
		res.TradeENE[id] = paths.ene()
	}

	times := gridTimes(asof, dates)

	for _, ns := range res.NettingSetList {
		def, err := p.netting.Get(ns)
		if err != nil {
			return nil, fmt.Errorf("postprocess: %w", err)
		}

		raw := nsPaths[ns]
		exposure := raw
		var balances *pathValues
		if def.ActiveCSA {
			balances = collateralBalance(raw, def.CSA)
			exposure = collateralise(raw, balances)
		}

		res.NettingSetEPE[ns] = exposure.epe()
		res.NettingSetENE[ns] = exposure.ene()
		res.NettingSetPFE[ns] = exposure.peak(p.cfg.Quantile)

		xva := &XVA{}
		survival := p.counterpartySurvival[def.Counterparty]

		xva.CVA = creditAdjustment(res.NettingSetEPE[ns], times, survival, p.cfg.CounterpartyLGD)
		xva.DVA = creditAdjustment(res.NettingSetENE[ns], times, p.ownSurvival, p.cfg.OwnLGD)
		xva.FCA = fundingAdjustment(res.NettingSetEPE[ns], times, p.cfg.LendingSpread)
		xva.FBA = fundingAdjustment(res.NettingSetENE[ns], times, p.cfg.BorrowingSpread)

		if balances != nil {
			meanBalance := balances.mean()
			xva.COLVA = colva(meanBalance, times, p.cfg.CollateralSpread)
			xva.CollateralFloor = collateralFloorValue(meanBalance, times, p.cfg.CollateralSpread)
		}

		xva.KVA = p.kva(res.NettingSetEPE[ns], times)

		dim, err := p.dimProfile(exposure, times)
		if err != nil {
			return nil, fmt.Errorf("postprocess: netting set %s: %w", ns, err)
		}
		res.ExpectedDIM[ns] = dim
		xva.MVA = p.mva(dim, times)

		res.NettingSetXVA[ns] = xva

		p.allocate(xva.CVA, ns, nsTrades[ns], tradePaths, raw, true, res.AllocatedCVA)
		p.allocate(xva.DVA, ns, nsTrades[ns], tradePaths, raw, false, res.AllocatedDVA)

		p.log.WithFields(map[string]interface{}{
			"netting_set": ns,
			"cva":         xva.CVA,
			"dva":         xva.DVA,
			"mva":         xva.MVA,
		}).Info("Netting set XVA computed")
	}

	return res, nil
}

// gridTimes returns the year fractions of the grid dates from asof.
func gridTimes(asof time.Time, dates []time.Time) []float64 {
	times := make([]float64, len(dates))
	for i, d := range dates {
		times[i] = marketdata.YearFraction(asof, d)
	}
	return times
}
