package api

import (
	"time"

	"huette/internal/models"
	"huette/internal/occupancy"
	"huette/internal/service"
)

type reservationResponse struct {
	ID           int64       `json:"id"`
	HRSID        int64       `json:"hrs_id,omitempty"`
	Code         string      `json:"code"`
	GuestName    string      `json:"guest_name"`
	Email        string      `json:"email,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	Arrival      string      `json:"arrival"`
	Departure    string      `json:"departure"`
	Nights       int         `json:"nights"`
	Beds         models.Beds `json:"beds"`
	Total        int         `json:"total"`
	Cancelled    bool        `json:"cancelled"`
	Source       string      `json:"source"`
	Comment      string      `json:"comment,omitempty"`
	CheckedInAt  *time.Time  `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time  `json:"checked_out_at,omitempty"`
}

func toReservationResponse(r *models.Reservation) reservationResponse {
	return reservationResponse{
		ID:           r.ID,
		HRSID:        r.HRSID,
		Code:         r.Code,
		GuestName:    r.GuestName,
		Email:        r.Email,
		Phone:        r.Phone,
		Arrival:      models.FormatDate(r.Arrival),
		Departure:    models.FormatDate(r.Departure),
		Nights:       r.Nights(),
		Beds:         r.Beds,
		Total:        r.Beds.Total(),
		Cancelled:    r.Cancelled,
		Source:       string(r.Source),
		Comment:      r.Comment,
		CheckedInAt:  r.CheckedInAt,
		CheckedOutAt: r.CheckedOutAt,
	}
}

func toReservationList(rs []models.Reservation) []reservationResponse {
	out := make([]reservationResponse, 0, len(rs))
	for i := range rs {
		out = append(out, toReservationResponse(&rs[i]))
	}
	return out
}

// reservationRequest is the body of POST and PUT /api/reservations.
type reservationRequest struct {
	GuestName string      `json:"guest_name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Arrival   string      `json:"arrival"`
	Departure string      `json:"departure"`
	Beds      models.Beds `json:"beds"`
	Comment   string      `json:"comment"`
}

func (req reservationRequest) toModel() (*models.Reservation, error) {
	arrival, err := models.ParseDate(req.Arrival)
	if err != nil {
		return nil, models.ErrMissingStay
	}
	departure, err := models.ParseDate(req.Departure)
	if err != nil {
		return nil, models.ErrMissingStay
	}
	return &models.Reservation{
		GuestName: req.GuestName,
		Email:     req.Email,
		Phone:     req.Phone,
		Arrival:   arrival,
		Departure: departure,
		Beds:      req.Beds,
		Comment:   req.Comment,
	}, nil
}

type bulkCheckInRequest struct {
	IDs []int64 `json:"ids"`
}

type occupancyDay struct {
	Date  string      `json:"date"`
	HRS   models.Beds `json:"hrs"`
	Local models.Beds `json:"local"`
	Total models.Beds `json:"total"`
	Sum   int         `json:"sum"`
}

type occupancyResponse struct {
	Start string                `json:"start"`
	End   string                `json:"end"`
	Days  []occupancyDay        `json:"days"`
	Rows  []reservationResponse `json:"rows"`
}

func toOccupancyResponse(start, end time.Time, occ occupancy.Occupancy) occupancyResponse {
	resp := occupancyResponse{
		Start: models.FormatDate(start),
		End:   models.FormatDate(end),
		Days:  make([]occupancyDay, 0, len(occ.Days)),
		Rows:  toReservationList(occ.Rows),
	}
	for _, d := range occ.Days {
		total := d.Total()
		resp.Days = append(resp.Days, occupancyDay{
			Date:  models.FormatDate(d.Day),
			HRS:   d.HRS,
			Local: d.Local,
			Total: total,
			Sum:   total.Total(),
		})
	}
	return resp
}

type freeDay struct {
	Date        string      `json:"date"`
	Total       int         `json:"total"`
	Beds        models.Beds `json:"beds"`
	Categorized bool        `json:"categorized"`
}

func toFreeDay(f occupancy.FreeCapacity) freeDay {
	return freeDay{Date: models.FormatDate(f.Day), Total: f.Total, Beds: f.Beds, Categorized: f.Categorized}
}

type quotaResponse struct {
	ID         int64                  `json:"id"`
	HRSID      int64                  `json:"hrs_id,omitempty"`
	Title      string                 `json:"title"`
	Mode       string                 `json:"mode"`
	DateFrom   string                 `json:"date_from"`
	DateTo     string                 `json:"date_to"`
	Categories []models.QuotaCategory `json:"categories"`
	Allocation models.Beds            `json:"allocation"`
}

func toQuotaResponse(q *models.Quota) *quotaResponse {
	if q == nil {
		return nil
	}
	cats := q.Categories
	if cats == nil {
		cats = []models.QuotaCategory{}
	}
	return &quotaResponse{
		ID:         q.ID,
		HRSID:      q.HRSID,
		Title:      q.Title,
		Mode:       string(q.Mode),
		DateFrom:   models.FormatDate(q.DateFrom),
		DateTo:     models.FormatDate(q.DateTo),
		Categories: cats,
		Allocation: q.Allocation(),
	}
}

type quotaDay struct {
	Date  string         `json:"date"`
	Quota *quotaResponse `json:"quota"`
}

// quotaRequest is the body of POST /api/quotas.
type quotaRequest struct {
	Title    string      `json:"title"`
	Mode     string      `json:"mode"`
	DateFrom string      `json:"date_from"`
	DateTo   string      `json:"date_to"`
	Beds     models.Beds `json:"beds"`
}

func (req quotaRequest) toModel() (*models.Quota, error) {
	from, err := models.ParseDate(req.DateFrom)
	if err != nil {
		return nil, models.ErrQuotaWindow
	}
	to, err := models.ParseDate(req.DateTo)
	if err != nil {
		return nil, models.ErrQuotaWindow
	}
	if req.Beds.HasNegative() {
		return nil, models.ErrInvalidBeds
	}
	return &models.Quota{
		Title:      req.Title,
		Mode:       models.QuotaMode(req.Mode),
		DateFrom:   from,
		DateTo:     to,
		Categories: models.QuotaCategoriesFromBeds(req.Beds),
	}, nil
}

type dashboardResponse struct {
	Date            string                `json:"date"`
	Arrivals        []reservationResponse `json:"arrivals"`
	Departures      []reservationResponse `json:"departures"`
	InHouse         models.Beds           `json:"in_house"`
	InHouseTotal    int                   `json:"in_house_total"`
	CheckedIn       int                   `json:"checked_in"`
	PendingCheckIns []reservationResponse `json:"pending_checkins"`
	Free            freeDay               `json:"free"`
	Quota           *quotaResponse        `json:"quota"`
	LastImport      *importRunResponse    `json:"last_import"`
}

func toDashboardResponse(d *service.Dashboard) dashboardResponse {
	return dashboardResponse{
		Date:            models.FormatDate(d.Day),
		Arrivals:        toReservationList(d.Arrivals),
		Departures:      toReservationList(d.Departures),
		InHouse:         d.InHouse,
		InHouseTotal:    d.InHouse.Total(),
		CheckedIn:       d.CheckedIn,
		PendingCheckIns: toReservationList(d.PendingCheckIns),
		Free:            toFreeDay(d.Free),
		Quota:           toQuotaResponse(d.Quota),
		LastImport:      toImportRunResponse(d.LastImport),
	}
}

type importRunResponse struct {
	ID           int64     `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Status       string    `json:"status"`
	Summaries    int       `json:"summaries"`
	Quotas       int       `json:"quotas"`
	Reservations int       `json:"reservations"`
	Error        string    `json:"error,omitempty"`
}

func toImportRunResponse(run *models.ImportRun) *importRunResponse {
	if run == nil {
		return nil
	}
	return &importRunResponse{
		ID:           run.ID,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		From:         models.FormatDate(run.From),
		To:           models.FormatDate(run.To),
		Status:       run.Status,
		Summaries:    run.Summaries,
		Quotas:       run.Quotas,
		Reservations: run.Reservations,
		Error:        run.Error,
	}
}
