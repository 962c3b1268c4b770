package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"huette/internal/models"

	"github.com/gorilla/mux"
)

// dateRange reads start and end. A missing or malformed start means today,
// a missing or malformed end means today plus the default window. A
// reversed range falls back to the default window from today. The range
// is capped at MaxDays.
func (s *HTTPServer) dateRange(r *http.Request) (start, end time.Time) {
	today := models.DateOnly(s.now())
	q := r.URL.Query()

	start, err := models.ParseDate(q.Get("start"))
	if err != nil {
		start = today
	}
	end, err = models.ParseDate(q.Get("end"))
	if err != nil {
		end = today.AddDate(0, 0, s.opts.WindowDays)
	}
	if end.Before(start) {
		start, end = today, today.AddDate(0, 0, s.opts.WindowDays)
	}
	if s.opts.MaxDays > 0 && len(models.EachDay(start, end)) > s.opts.MaxDays {
		end = start.AddDate(0, 0, s.opts.MaxDays-1)
	}
	return start, end
}

// target reads za; missing, malformed or negative values give the default.
func (s *HTTPServer) target(r *http.Request) int {
	raw := r.URL.Query().Get("za")
	if raw == "" {
		return s.opts.DefaultTarget
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return s.opts.DefaultTarget
	}
	return n
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
