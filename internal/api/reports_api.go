package api

import (
	"bytes"
	"fmt"
	"net/http"

	"huette/internal/export"
	"huette/internal/metrics"
	"huette/internal/models"
)

// handleOccupancy returns the per-day occupancy of a range.
// GET /api/occupancy?start=&end=
func (s *HTTPServer) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("occupancy")
	start, end := s.dateRange(r)

	occ, err := s.deps.Reports.Occupancy(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOccupancyResponse(start, end, occ))
}

// handleFree returns the free capacity per day.
// GET /api/free?start=&end=
func (s *HTTPServer) handleFree(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("free")
	start, end := s.dateRange(r)

	free, err := s.deps.Reports.Free(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	days := make([]freeDay, 0, len(free))
	for _, f := range free {
		days = append(days, toFreeDay(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"start": models.FormatDate(start),
		"end":   models.FormatDate(end),
		"days":  days,
	})
}

// handleDashboard returns the front desk view of one day.
// GET /api/dashboard?date=
func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dashboard")

	day := models.DateOnly(s.now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	dash, err := s.deps.Reports.Dashboard(r.Context(), day)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardResponse(dash))
}

// handleExport streams the report of a range as xlsx. With raw=1 the
// database tables are dumped instead.
// GET /api/export.xlsx?start=&end=&za=
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")

	writer := export.NewExcelizeWriter()
	defer writer.Close()

	filename := ""
	if r.URL.Query().Get("raw") == "1" {
		if s.deps.Tables == nil {
			writeError(w, http.StatusNotImplemented, "table export not configured")
			return
		}
		if err := export.WriteTables(r.Context(), writer, s.deps.Tables); err != nil {
			s.writeServiceError(w, err)
			return
		}
		filename = fmt.Sprintf("huette_%s.xlsx", s.now().Format("20060102"))
	} else {
		start, end := s.dateRange(r)
		rep, err := s.deps.Reports.Report(r.Context(), start, end, s.target(r))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if err := export.WriteReport(writer, rep); err != nil {
			s.writeServiceError(w, err)
			return
		}
		filename = fmt.Sprintf("belegung_%s_%s.xlsx", models.FormatDate(start), models.FormatDate(end))
	}

	var buf bytes.Buffer
	if err := writer.Save(&buf); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
