// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/umastats/internal/adapters/loader"
	"github.com/okian/umastats/internal/adapters/mq/queue"
	"github.com/okian/umastats/internal/adapters/repository"
	"github.com/okian/umastats/internal/domain/stats"
	"github.com/okian/umastats/internal/domain/types"
	"github.com/okian/umastats/pkg/logger"
)

// defaultMaxBodyBytes bounds POST /races and PUT table bodies.
const defaultMaxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RaceDependencies
	StatsDependencies
	TournamentDependencies
}

// IngestResult mirrors the ingest outcome returned by POST /races.
type IngestResult = types.IngestResult

// Tournament mirrors one entry of GET /tournaments.
type Tournament = types.Tournament

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statusHandler      *StatusHandler
	racesHandler       *RacesHandler
	statsHandler       *StatsHandler
	tournamentsHandler *TournamentsHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter of the stats endpoints.
func NewServer(deps Dependencies, statusProvider StatusProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statusHandler:      NewStatusHandler(statusProvider),
		racesHandler:       NewRacesHandler(deps),
		statsHandler:       NewStatsHandler(deps, maxLimit),
		tournamentsHandler: NewTournamentsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("POST /races", MetricsMiddleware(s.racesHandler.HandlePostRaces, "races"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /stats/entrants", MetricsMiddleware(s.statsHandler.HandleEntrants, "stats_entrants"))
	mux.HandleFunc("GET /stats/operators", MetricsMiddleware(s.statsHandler.HandleOperators, "stats_operators"))
	mux.HandleFunc("GET /tournaments", MetricsMiddleware(s.tournamentsHandler.HandleList, "tournaments"))
	mux.HandleFunc("PUT /tournaments/{id}/winners", MetricsMiddleware(s.tournamentsHandler.HandlePutWinners, "tournament_winners"))
	mux.HandleFunc("PUT /tournaments/{id}/bans", MetricsMiddleware(s.tournamentsHandler.HandlePutBans, "tournament_bans"))
	mux.HandleFunc("DELETE /tournaments/{id}/winners", MetricsMiddleware(s.tournamentsHandler.HandleDeleteWinners, "tournament_winners"))
	mux.HandleFunc("DELETE /tournaments/{id}/bans", MetricsMiddleware(s.tournamentsHandler.HandleDeleteBans, "tournament_bans"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes the matching status and code.
// Server-side failures are logged.
func writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code, kind := classify(err)
	wrapped := WrapKind(op, kind, err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(wrapped),
		)
	}
	writeError(w, status, code, wrapped)
}

// classify maps upstream errors to an HTTP status, an error code and a kind.
func classify(err error) (int, string, error) {
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large", ErrTooLarge
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, stats.ErrInvalidRow),
		errors.Is(err, stats.ErrUnknownSortKey),
		errors.Is(err, stats.ErrUnknownSortOrder),
		errors.Is(err, loader.ErrMalformed),
		errors.Is(err, repository.ErrEmptyTournament):
		return http.StatusBadRequest, "bad_request", ErrBadRequest
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure", ErrBackpressure
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, queue.ErrClosed),
		errors.Is(err, repository.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable", ErrUnavailable
	default:
		return http.StatusInternalServerError, "internal_error", ErrServe
	}
}
