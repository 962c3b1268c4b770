package api

import (
	"net/http"

	"huette/internal/metrics"

	"github.com/gorilla/mux"
)

// GET /api/reservations?start=&end=
func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservations")
	start, end := s.dateRange(r)

	list, err := s.deps.Reservations.List(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": toReservationList(list)})
}

// POST /api/reservations
func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_create")

	var req reservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := req.toModel()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.deps.Reservations.Create(r.Context(), res); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationResponse(res))
}

// GET /api/reservations/{id}
func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_get")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Reservations.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

// PUT /api/reservations/{id}
func (s *HTTPServer) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_update")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req reservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toModel()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	res, err := s.deps.Reservations.Update(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

// DELETE /api/reservations/{id}
func (s *HTTPServer) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_delete")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Reservations.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/reservations/{id}/cancel
func (s *HTTPServer) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_cancel")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Reservations.Cancel(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

// POST /api/reservations/{id}/checkin
func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checkin")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Reservations.CheckIn(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

// POST /api/reservations/{id}/checkout
func (s *HTTPServer) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checkout")

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Reservations.CheckOut(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

// POST /api/checkin/{code}
func (s *HTTPServer) handleCheckInByCode(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checkin_code")

	res, err := s.deps.Reservations.CheckInByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

// POST /api/reservations/checkin {"ids": [...]}
func (s *HTTPServer) handleBulkCheckIn(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checkin_bulk")

	var req bulkCheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := s.deps.Reservations.BulkCheckIn(r.Context(), req.IDs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"requested": len(req.IDs), "checked_in": n})
}
