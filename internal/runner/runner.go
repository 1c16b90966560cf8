package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/oskarlind/riskcube/internal/aggregation"
	"github.com/oskarlind/riskcube/internal/cube"
	"github.com/oskarlind/riskcube/internal/data/repos"
	"github.com/oskarlind/riskcube/internal/engine"
	"github.com/oskarlind/riskcube/internal/marketdata"
	"github.com/oskarlind/riskcube/internal/nettingset"
	"github.com/oskarlind/riskcube/internal/portfolio"
	"github.com/oskarlind/riskcube/internal/postprocess"
	"github.com/oskarlind/riskcube/internal/scenario"
	"github.com/oskarlind/riskcube/internal/simmarket"
	"github.com/oskarlind/riskcube/pkg/config"
	"github.com/oskarlind/riskcube/pkg/logger"
)

// Runner wires the simulation and aggregation stages together from the
// configured input files. It owns nothing long-lived; each call loads its
// inputs fresh so a batch run always picks up the latest files.
type Runner struct {
	cfg *config.Config
	log *logger.Logger

	// repo is optional; when nil, results stay on disk only.
	repo *repos.XVARepository
}

// New creates a runner. repo may be nil when no database is configured.
func New(cfg *config.Config, log *logger.Logger, repo *repos.XVARepository) *Runner {
	return &Runner{cfg: cfg, log: log, repo: repo}
}

// Simulate builds the NPV cube and the scenario data store and writes both
// to the output directory.
func (r *Runner) Simulate(ctx context.Context) error {
	sim := r.cfg.Simulation

	snapshot, err := marketdata.LoadSnapshot(sim.MarketFile)
	if err != nil {
		return err
	}
	spec, err := LoadRunSpec(sim.SimulationFile)
	if err != nil {
		return err
	}
	if err := spec.Parameters.Validate(); err != nil {
		return fmt.Errorf("simulation file %s: %w", sim.SimulationFile, err)
	}
	pf, err := portfolio.Load(sim.PortfolioFile)
	if err != nil {
		return err
	}

	mode, err := simmarket.ParseObservationMode(sim.ObservationMode)
	if err != nil {
		return err
	}

	asof := snapshot.AsOf()
	grid := spec.Grid(asof)
	depth := spec.CubeDepth
	if depth == 0 {
		depth = 1
	}

	r.log.WithFields(map[string]interface{}{
		"asof":    asof.Format("2006-01-02"),
		"dates":   len(grid),
		"samples": spec.Samples,
		"trades":  pf.Size(),
		"depth":   depth,
		"workers": sim.Workers,
	}).Info("Starting simulation")
	started := time.Now()

	asd := aggregation.NewInMemory(len(grid), spec.Samples,
		spec.Parameters.AsdCurrencies, spec.Parameters.AsdIndices)

	var out cube.NPVCube
	if depth == 1 {
		out = cube.NewInMemory(asof, pf.IDs(), grid, spec.Samples)
	} else {
		out = cube.NewInMemoryN(asof, pf.IDs(), grid, spec.Samples, depth)
	}

	calculators := []engine.ValuationCalculator{&engine.NPVCalculator{Index: 0}}
	if depth >= 2 {
		calculators = append(calculators, &engine.CashflowCalculator{Index: 1, Grid: grid})
	}

	eng, err := engine.New(r.log, grid, spec.Samples)
	if err != nil {
		return err
	}
	eng.ContinueOnError = sim.ContinueOnError
	eng.RegisterProgressIndicator(engine.NewProgressLog(r.log, 0.5))

	factory := func(sampleBase int) (*simmarket.ScenarioSimMarket, error) {
		m, err := simmarket.New(snapshot, &spec.Parameters, mode, r.log)
		if err != nil {
			return nil, err
		}
		m.SetGenerator(scenario.NewConstantGenerator(m.BaseScenario(1.0)))
		m.AttachAggregator(asd.SampleSlice(sampleBase))
		return m, nil
	}

	if err := eng.BuildCubeParallel(ctx, factory, pf, out, calculators, sim.Workers); err != nil {
		return err
	}

	if err := os.MkdirAll(sim.OutputPath, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	cubePath := filepath.Join(sim.OutputPath, sim.CubeFile)
	if err := cube.Save(out, cubePath); err != nil {
		return err
	}
	asdPath := filepath.Join(sim.OutputPath, sim.ScenarioFile)
	if err := asd.Save(asdPath); err != nil {
		return err
	}

	r.log.WithFields(map[string]interface{}{
		"cube":     cubePath,
		"scenario": asdPath,
		"elapsed":  time.Since(started).Round(time.Millisecond).String(),
	}).Info("Simulation finished")
	return nil
}

// RunXVA loads a previously built cube and scenario data, runs the
// post processor and writes the reports. When a repository is attached the
// run is also persisted under a fresh run id.
func (r *Runner) RunXVA(ctx context.Context) error {
	sim := r.cfg.Simulation

	npvCube, err := cube.Load(filepath.Join(sim.OutputPath, sim.CubeFile))
	if err != nil {
		return err
	}
	asd, err := aggregation.Load(filepath.Join(sim.OutputPath, sim.ScenarioFile))
	if err != nil {
		return err
	}
	pf, err := portfolio.Load(sim.PortfolioFile)
	if err != nil {
		return err
	}
	netting, err := nettingset.Load(sim.NettingFile)
	if err != nil {
		return err
	}
	snapshot, err := marketdata.LoadSnapshot(sim.MarketFile)
	if err != nil {
		return err
	}
	spec, err := LoadRunSpec(sim.SimulationFile)
	if err != nil {
		return err
	}

	survival := make(map[string]marketdata.SurvivalCurve)
	for _, t := range pf.Trades() {
		def, err := netting.Get(t.NettingSetID())
		if err != nil {
			return fmt.Errorf("trade %s: %w", t.ID(), err)
		}
		if _, ok := survival[def.Counterparty]; ok {
			continue
		}
		c, err := snapshot.DefaultCurve(def.Counterparty)
		if err != nil {
			return fmt.Errorf("netting set %s: %w", def.ID, err)
		}
		survival[def.Counterparty] = c
	}
	own, err := snapshot.DefaultCurve(sim.OwnCreditName)
	if err != nil {
		return fmt.Errorf("own credit curve %s: %w", sim.OwnCreditName, err)
	}

	pp, err := postprocess.New(spec.PostProcessConfig(), r.log, npvCube, asd, pf, netting, survival, own)
	if err != nil {
		return err
	}

	r.log.WithFields(map[string]interface{}{
		"trades":  pf.Size(),
		"dates":   len(npvCube.Dates()),
		"samples": npvCube.Samples(),
	}).Info("Starting post processing")

	res, err := pp.Run()
	if err != nil {
		return err
	}

	if err := writeReports(sim.OutputPath, res); err != nil {
		return err
	}

	for _, ns := range res.NettingSetList {
		x := res.NettingSetXVA[ns]
		r.log.WithFields(map[string]interface{}{
			"nettingSet": ns,
			"cva":        x.CVA,
			"dva":        x.DVA,
			"fca":        x.FCA,
			"fba":        x.FBA,
			"kva":        x.KVA,
			"mva":        x.MVA,
		}).Info("XVA computed")
	}

	if r.repo != nil {
		runID := uuid.New()
		if err := r.repo.SaveRun(ctx, runID, npvCube.Samples(), pf.Size(), res); err != nil {
			return fmt.Errorf("persist run: %w", err)
		}
		r.log.WithField("runId", runID.String()).Info("Run persisted")
	}

	return nil
}

// RunFull runs the simulation and the post processing back to back. This
// is the batch job entry point.
func (r *Runner) RunFull(ctx context.Context) error {
	if err := r.Simulate(ctx); err != nil {
		return err
	}
	return r.RunXVA(ctx)
}
