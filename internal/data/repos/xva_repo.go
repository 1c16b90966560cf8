package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oskarlind/riskcube/internal/postprocess"
)

// XVARepository persists post-processing results. One row set per run id;
// re-saving a run id upserts.
type XVARepository struct {
	pool *pgxpool.Pool
}

// NewXVARepository creates a new XVA repository.
func NewXVARepository(pool *pgxpool.Pool) *XVARepository {
	return &XVARepository{pool: pool}
}

// RunInfo is the stored header of one simulation run.
type RunInfo struct {
	RunID     uuid.UUID
	AsOf      time.Time
	Samples   int
	Dates     int
	Trades    int
	CreatedAt time.Time
}

// NettingSetXVARow is one netting set's adjustments as stored.
type NettingSetXVARow struct {
	NettingSet string
	postprocess.XVA
}

// ExposurePoint is one grid date of a netting set exposure profile.
type ExposurePoint struct {
	Date        time.Time
	EPE         float64
	ENE         float64
	PFE         float64
	ExpectedDIM float64
}

// SaveRun stores the run header, netting set XVA, trade allocations and
// exposure profiles in one transaction.
func (r *XVARepository) SaveRun(ctx context.Context, runID uuid.UUID, samples, trades int, res *postprocess.Results) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	runQuery := `
		INSERT INTO xva.runs (run_id, asof, samples, dates, trades)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			asof = EXCLUDED.asof,
			samples = EXCLUDED.samples,
			dates = EXCLUDED.dates,
			trades = EXCLUDED.trades,
			updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, runQuery, runID, res.AsOf, samples, len(res.Dates), trades); err != nil {
		return fmt.Errorf("failed to save run header: %w", err)
	}

	for _, ns := range res.NettingSetList {
		if err := r.saveNettingSet(ctx, tx, runID, ns, res); err != nil {
			return fmt.Errorf("failed to save netting set %s: %w", ns, err)
		}
	}

	allocQuery := `
		INSERT INTO xva.trade_allocations (run_id, trade_id, allocated_cva, allocated_dva)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id, trade_id) DO UPDATE SET
			allocated_cva = EXCLUDED.allocated_cva,
			allocated_dva = EXCLUDED.allocated_dva,
			updated_at = NOW()
	`
	for tradeID, cva := range res.AllocatedCVA {
		if _, err := tx.Exec(ctx, allocQuery, runID, tradeID, cva, res.AllocatedDVA[tradeID]); err != nil {
			return fmt.Errorf("failed to save allocation for %s: %w", tradeID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *XVARepository) saveNettingSet(ctx context.Context, tx pgx.Tx, runID uuid.UUID, ns string, res *postprocess.Results) error {
	xva := res.NettingSetXVA[ns]

	xvaQuery := `
		INSERT INTO xva.results (
			run_id, netting_set,
			cva, dva, fba, fca, colva, collateral_floor, kva, mva
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id, netting_set) DO UPDATE SET
			cva = EXCLUDED.cva,
			dva = EXCLUDED.dva,
			fba = EXCLUDED.fba,
			fca = EXCLUDED.fca,
			colva = EXCLUDED.colva,
			collateral_floor = EXCLUDED.collateral_floor,
			kva = EXCLUDED.kva,
			mva = EXCLUDED.mva,
			updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, xvaQuery, runID, ns,
		xva.CVA, xva.DVA, xva.FBA, xva.FCA, xva.COLVA, xva.CollateralFloor, xva.KVA, xva.MVA); err != nil {
		return err
	}

	profileQuery := `
		INSERT INTO xva.exposure_profiles (
			run_id, netting_set, grid_date, epe, ene, pfe, expected_dim
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, netting_set, grid_date) DO UPDATE SET
			epe = EXCLUDED.epe,
			ene = EXCLUDED.ene,
			pfe = EXCLUDED.pfe,
			expected_dim = EXCLUDED.expected_dim,
			updated_at = NOW()
	`
	for i, d := range res.Dates {
		if _, err := tx.Exec(ctx, profileQuery, runID, ns, d,
			res.NettingSetEPE[ns][i], res.NettingSetENE[ns][i],
			res.NettingSetPFE[ns][i], res.ExpectedDIM[ns][i]); err != nil {
			return err
		}
	}
	return nil
}

// GetRun loads one run header.
func (r *XVARepository) GetRun(ctx context.Context, runID uuid.UUID) (*RunInfo, error) {
	query := `
		SELECT run_id, asof, samples, dates, trades, created_at
		FROM xva.runs
		WHERE run_id = $1
	`
	var info RunInfo
	err := r.pool.QueryRow(ctx, query, runID).Scan(
		&info.RunID, &info.AsOf, &info.Samples, &info.Dates, &info.Trades, &info.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &info, nil
}

// ListRuns returns the most recent run headers, newest first.
func (r *XVARepository) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	query := `
		SELECT run_id, asof, samples, dates, trades, created_at
		FROM xva.runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.RunID, &info.AsOf, &info.Samples, &info.Dates, &info.Trades, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return runs, nil
}

// GetXVA loads the netting set adjustments of one run.
func (r *XVARepository) GetXVA(ctx context.Context, runID uuid.UUID) ([]NettingSetXVARow, error) {
	query := `
		SELECT netting_set, cva, dva, fba, fca, colva, collateral_floor, kva, mva
		FROM xva.results
		WHERE run_id = $1
		ORDER BY netting_set
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query xva results: %w", err)
	}
	defer rows.Close()

	var out []NettingSetXVARow
	for rows.Next() {
		var row NettingSetXVARow
		if err := rows.Scan(&row.NettingSet,
			&row.CVA, &row.DVA, &row.FBA, &row.FCA,
			&row.COLVA, &row.CollateralFloor, &row.KVA, &row.MVA); err != nil {
			return nil, fmt.Errorf("failed to scan xva row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// GetExposure loads one netting set's exposure profile for a run.
func (r *XVARepository) GetExposure(ctx context.Context, runID uuid.UUID, nettingSet string) ([]ExposurePoint, error) {
	query := `
		SELECT grid_date, epe, ene, pfe, expected_dim
		FROM xva.exposure_profiles
		WHERE run_id = $1 AND netting_set = $2
		ORDER BY grid_date
	`
	rows, err := r.pool.Query(ctx, query, runID, nettingSet)
	if err != nil {
		return nil, fmt.Errorf("failed to query exposure profile: %w", err)
	}
	defer rows.Close()

	var out []ExposurePoint
	for rows.Next() {
		var pt ExposurePoint
		if err := rows.Scan(&pt.Date, &pt.EPE, &pt.ENE, &pt.PFE, &pt.ExpectedDIM); err != nil {
			return nil, fmt.Errorf("failed to scan exposure row: %w", err)
		}
		out = append(out, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
