package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ScansHandler serves asynchronous scan jobs.
type ScansHandler struct {
	deps Dependencies
}

// NewScansHandler creates a new scans handler.
func NewScansHandler(deps Dependencies) *ScansHandler {
	return &ScansHandler{deps: deps}
}

// HandleSubmit handles POST /v1/tenants/{tenantID}/scans.
func (h *ScansHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	minScore, err := parseMinScore(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err)
		return
	}

	job, err := h.deps.SubmitScan(r.Context(), tenantID, minScore)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/scans/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

// HandleGet handles GET /v1/scans/{jobID}.
func (h *ScansHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	job, err := h.deps.ScanJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
