package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/oskarlind/riskcube/internal/data/repos"
	"github.com/oskarlind/riskcube/pkg/logger"
)

// RunHandler serves stored simulation runs and their XVA reports.
type RunHandler struct {
	repo   *repos.XVARepository
	logger *logger.Logger
}

// NewRunHandler creates a new run handler.
func NewRunHandler(repo *repos.XVARepository, log *logger.Logger) *RunHandler {
	return &RunHandler{repo: repo, logger: log}
}

type runResponse struct {
	RunID     string    `json:"runId"`
	AsOf      string    `json:"asof"`
	Samples   int       `json:"samples"`
	Dates     int       `json:"dates"`
	Trades    int       `json:"trades"`
	CreatedAt time.Time `json:"createdAt"`
}

type xvaResponse struct {
	NettingSet      string  `json:"nettingSet"`
	CVA             float64 `json:"cva"`
	DVA             float64 `json:"dva"`
	FBA             float64 `json:"fba"`
	FCA             float64 `json:"fca"`
	COLVA           float64 `json:"colva"`
	CollateralFloor float64 `json:"collateralFloor"`
	KVA             float64 `json:"kva"`
	MVA             float64 `json:"mva"`
}

type exposureResponse struct {
	Date        string  `json:"date"`
	EPE         float64 `json:"epe"`
	ENE         float64 `json:"ene"`
	PFE         float64 `json:"pfe"`
	ExpectedDIM float64 `json:"expectedDim"`
}

// ListRuns returns the most recent run headers. Query param: limit.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, runResponse{
			RunID:     run.RunID.String(),
			AsOf:      run.AsOf.Format("2006-01-02"),
			Samples:   run.Samples,
			Dates:     run.Dates,
			Trades:    run.Trades,
			CreatedAt: run.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRun returns one run header.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}

	run, err := h.repo.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		RunID:     run.RunID.String(),
		AsOf:      run.AsOf.Format("2006-01-02"),
		Samples:   run.Samples,
		Dates:     run.Dates,
		Trades:    run.Trades,
		CreatedAt: run.CreatedAt,
	})
}

// GetXVA returns the netting set XVA rows of one run.
func (h *RunHandler) GetXVA(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}

	rows, err := h.repo.GetXVA(r.Context(), runID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load xva results")
		writeError(w, http.StatusInternalServerError, "failed to load xva results")
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	out := make([]xvaResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, xvaResponse{
			NettingSet:      row.NettingSet,
			CVA:             row.CVA,
			DVA:             row.DVA,
			FBA:             row.FBA,
			FCA:             row.FCA,
			COLVA:           row.COLVA,
			CollateralFloor: row.CollateralFloor,
			KVA:             row.KVA,
			MVA:             row.MVA,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetExposure returns one netting set's exposure profile for a run.
func (h *RunHandler) GetExposure(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	nettingSet := mux.Vars(r)["nettingSet"]

	points, err := h.repo.GetExposure(r.Context(), runID, nettingSet)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load exposure profile")
		writeError(w, http.StatusInternalServerError, "failed to load exposure profile")
		return
	}
	if len(points) == 0 {
		writeError(w, http.StatusNotFound, "no exposure profile for netting set")
		return
	}

	out := make([]exposureResponse, 0, len(points))
	for _, pt := range points {
		out = append(out, exposureResponse{
			Date:        pt.Date.Format("2006-01-02"),
			EPE:         pt.EPE,
			ENE:         pt.ENE,
			PFE:         pt.PFE,
			ExpectedDIM: pt.ExpectedDIM,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RunHandler) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "run id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
