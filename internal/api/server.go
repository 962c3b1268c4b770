// Package api serves the JSON HTTP interface of the hut.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"huette/internal/database"
	"huette/internal/export"
	"huette/internal/hrs"
	"huette/internal/models"
	"huette/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Importer triggers HRS imports.
type Importer interface {
	Run(ctx context.Context, from, to time.Time) (*models.ImportRun, error)
	RunWindow(ctx context.Context) (*models.ImportRun, error)
}

// Options holds the HTTP and report defaults.
type Options struct {
	Address        string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	DefaultTarget  int
	WindowDays     int
	MaxDays        int
}

// Deps are the services behind the handlers. Importer and Tables may be nil.
type Deps struct {
	Reservations *service.ReservationService
	Reports      *service.ReportService
	Quotas       *service.QuotaService
	Importer     Importer
	Tables       export.TableSource
}

// HTTPServer exposes the reservation, report and quota endpoints.
type HTTPServer struct {
	server *http.Server
	opts   Options
	deps   Deps
	logger *zerolog.Logger
	now    func() time.Time
}

func NewHTTPServer(opts Options, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.DefaultTarget <= 0 {
		opts.DefaultTarget = 135
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 31
	}
	l := logger.With().Str("component", "http").Logger()

	s := &HTTPServer{
		opts:   opts,
		deps:   deps,
		logger: &l,
		now:    time.Now,
	}
	s.server = &http.Server{
		Addr:         opts.Address,
		Handler:      s.routes(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

func (s *HTTPServer) routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/occupancy", s.handleOccupancy).Methods(http.MethodGet)
	api.HandleFunc("/free", s.handleFree).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/export.xlsx", s.handleExport).Methods(http.MethodGet)

	api.HandleFunc("/quotas", s.handleListQuotas).Methods(http.MethodGet)
	api.HandleFunc("/quotas", s.handleCreateQuota).Methods(http.MethodPost)
	api.HandleFunc("/quotas/compare", s.handleCompareQuotas).Methods(http.MethodGet)
	api.HandleFunc("/quotas/{id:[0-9]+}", s.handleDeleteQuota).Methods(http.MethodDelete)

	// Bulk check-in must be registered before the {id} routes.
	api.HandleFunc("/reservations/checkin", s.handleBulkCheckIn).Methods(http.MethodPost)
	api.HandleFunc("/reservations", s.handleListReservations).Methods(http.MethodGet)
	api.HandleFunc("/reservations", s.handleCreateReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id:[0-9]+}", s.handleGetReservation).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id:[0-9]+}", s.handleUpdateReservation).Methods(http.MethodPut)
	api.HandleFunc("/reservations/{id:[0-9]+}", s.handleDeleteReservation).Methods(http.MethodDelete)
	api.HandleFunc("/reservations/{id:[0-9]+}/cancel", s.handleCancelReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id:[0-9]+}/checkin", s.handleCheckIn).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id:[0-9]+}/checkout", s.handleCheckOut).Methods(http.MethodPost)
	api.HandleFunc("/checkin/{code}", s.handleCheckInByCode).Methods(http.MethodPost)

	api.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/import/last", s.handleLastImport).Methods(http.MethodGet)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	// Subrouters do not inherit these from the root router.
	for _, router := range []*mux.Router{r, api} {
		router.NotFoundHandler = notFound
		router.MethodNotAllowedHandler = notAllowed
	}

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(false),
	)
	return recovery(cors(r))
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("address", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type recoveryLogger struct {
	logger *zerolog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error().Interface("panic", v).Msg("Recovered from panic in handler")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps storage and validation errors to status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrCancelled),
		errors.Is(err, database.ErrAlreadyCheckedIn),
		errors.Is(err, database.ErrNotCheckedIn),
		errors.Is(err, database.ErrAlreadyCheckedOut),
		errors.Is(err, hrs.ErrImportRunning):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidStay),
		errors.Is(err, models.ErrInvalidBeds),
		errors.Is(err, models.ErrGuestName),
		errors.Is(err, models.ErrMissingStay),
		errors.Is(err, models.ErrQuotaWindow),
		errors.Is(err, models.ErrQuotaMode),
		errors.Is(err, models.ErrQuotaTitle),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrNoIDs):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
