package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/dupscan/internal/domain/model"
)

const maxBatchBodyBytes = 16 << 20

// DuplicatesHandler serves the three detection modes.
type DuplicatesHandler struct {
	deps Dependencies
}

// NewDuplicatesHandler creates a new duplicates handler.
func NewDuplicatesHandler(deps Dependencies) *DuplicatesHandler {
	return &DuplicatesHandler{deps: deps}
}

// checkRequest mirrors the OpenAPI schema for POST .../duplicates/check.
type checkRequest struct {
	Candidates []model.DonorRecord `json:"candidates"`
	MinScore   *int                `json:"minScore"`
}

// HandleFindDuplicates handles GET /v1/tenants/{tenantID}/donors/{donorID}/duplicates.
func (h *DuplicatesHandler) HandleFindDuplicates(w http.ResponseWriter, r *http.Request) {
	tenantID, donorID := chi.URLParam(r, "tenantID"), chi.URLParam(r, "donorID")
	if tenantID == "" || donorID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingParam)
		return
	}
	minScore, err := parseMinScore(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err)
		return
	}

	res, err := h.deps.FindDuplicatesFor(r.Context(), tenantID, donorID, minScore)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleScan handles POST /v1/tenants/{tenantID}/duplicates/scan.
func (h *DuplicatesHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	minScore, err := parseMinScore(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err)
		return
	}

	res, err := h.deps.ScanAllDuplicates(r.Context(), tenantID, minScore)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleCheckBatch handles POST /v1/tenants/{tenantID}/duplicates/check.
// A minScore query parameter takes precedence over the body field.
func (h *DuplicatesHandler) HandleCheckBatch(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req checkRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", ErrInvalidBody)
		return
	}

	minScore, err := parseMinScore(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err)
		return
	}
	if minScore == nil {
		minScore = req.MinScore
	}

	res, err := h.deps.CheckBatchDuplicates(r.Context(), tenantID, req.Candidates, minScore)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
