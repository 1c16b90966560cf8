package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oskarlind/riskcube/internal/data/repos"
	"github.com/oskarlind/riskcube/internal/runner"
	"github.com/oskarlind/riskcube/pkg/config"
	"github.com/oskarlind/riskcube/pkg/database"
	"github.com/oskarlind/riskcube/pkg/logger"
)

// simulateCmd builds the cube and scenario data files.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Build the NPV cube and scenario data",
	Long: `Runs the scenario simulation over the configured portfolio and
writes the NPV cube and the aggregation scenario data to the output
directory. Inputs come from the files named in the environment
(MARKET_FILE, SIMULATION_FILE, PORTFOLIO_FILE).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, cleanup, err := buildRunner(false)
		if err != nil {
			return err
		}
		defer cleanup()
		return r.Simulate(context.Background())
	},
}

// xvaCmd post-processes an existing cube.
var xvaCmd = &cobra.Command{
	Use:   "xva",
	Short: "Aggregate a built cube into exposures and XVA",
	Long: `Loads the cube and scenario data produced by simulate, applies
collateral and computes exposure profiles and XVA per netting set. CSV
reports land in the output directory; with DATABASE_ENABLED=true the run
is also stored under a fresh run id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, cleanup, err := buildRunner(true)
		if err != nil {
			return err
		}
		defer cleanup()
		return r.RunXVA(context.Background())
	},
}

// runCmd chains simulate and xva.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate and aggregate in one pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, cleanup, err := buildRunner(true)
		if err != nil {
			return err
		}
		defer cleanup()
		return r.RunFull(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(xvaCmd)
	rootCmd.AddCommand(runCmd)
}

// buildRunner loads config and wires the runner. The repository is only
// attached when the database is enabled and wantDB is set; the simulate
// stage never touches it.
func buildRunner(wantDB bool) (*runner.Runner, *logger.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	cleanup := func() {}
	var repo *repos.XVARepository
	if wantDB && cfg.Database.Enabled {
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		cleanup = db.Close
		repo = repos.NewXVARepository(db.Pool)
		log.Info("Connected to database")
	}

	return runner.New(cfg, log, repo), log, cleanup, nil
}
