package api

import (
	"net/http"

	"huette/internal/metrics"
	"huette/internal/models"
)

// handleListQuotas returns the quota in force on each day.
// GET /api/quotas?start=&end=
func (s *HTTPServer) handleListQuotas(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("quotas")
	start, end := s.dateRange(r)

	perDay, err := s.deps.Quotas.PerDay(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	days := make([]quotaDay, 0, len(perDay))
	for _, d := range perDay {
		days = append(days, quotaDay{Date: models.FormatDate(d.Day), Quota: toQuotaResponse(d.Quota)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

// POST /api/quotas
func (s *HTTPServer) handleCreateQuota(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("quota_create")

	var req quotaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := req.toModel()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.deps.Quotas.Create(r.Context(), q); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuotaResponse(q))
}

// DELETE /api/quotas/{id}
func (s *HTTPServer) handleDeleteQuota(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("quota_delete")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Quotas.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCompareQuotas lists the current and proposed quota of every day.
// GET /api/quotas/compare?start=&end=&za=
func (s *HTTPServer) handleCompareQuotas(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("quotas_compare")
	start, end := s.dateRange(r)

	rows, err := s.deps.Reports.Compare(r.Context(), start, end, s.target(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
