package api

import (
	"net/http"

	"huette/internal/metrics"
	"huette/internal/models"
)

// handleImport runs an HRS import now. Without start/end the configured
// window is imported.
// POST /api/import?start=&end=
func (s *HTTPServer) handleImport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("import")

	if s.deps.Importer == nil {
		writeError(w, http.StatusServiceUnavailable, "HRS import is disabled")
		return
	}

	var (
		run *models.ImportRun
		err error
	)
	q := r.URL.Query()
	if q.Get("start") == "" && q.Get("end") == "" {
		run, err = s.deps.Importer.RunWindow(r.Context())
	} else {
		start, end := s.dateRange(r)
		run, err = s.deps.Importer.Run(r.Context(), start, end)
	}

	// A failed run is still reported with its details.
	if run != nil {
		status := http.StatusOK
		if run.Status == models.ImportFailed {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, toImportRunResponse(run))
		return
	}
	s.writeServiceError(w, err)
}

// GET /api/import/last
func (s *HTTPServer) handleLastImport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("import_last")

	run, err := s.deps.Reports.LastImport(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "no import yet")
		return
	}
	writeJSON(w, http.StatusOK, toImportRunResponse(run))
}
