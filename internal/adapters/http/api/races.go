package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/umastats/internal/adapters/loader"
	"github.com/okian/umastats/internal/domain/model"
)

// RaceDependencies defines the interface for race row ingestion.
type RaceDependencies interface {
	Ingest(ctx context.Context, rows []model.RaceRow) (IngestResult, error)
}

// RacesHandler handles race row submissions.
type RacesHandler struct {
	deps    RaceDependencies
	maxBody int64
}

// NewRacesHandler creates a new races handler.
func NewRacesHandler(deps RaceDependencies) *RacesHandler {
	return &RacesHandler{deps: deps, maxBody: defaultMaxBodyBytes}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	IngestResult
}

// HandlePostRaces handles POST /races requests. The body is one row object,
// an array of rows or {"rows": [...]}.
func (h *RacesHandler) HandlePostRaces(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_races"

	body, err := readBody(w, r, h.maxBody)
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	rows, err := loader.ParseRowsJSON(body)
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("no rows")))
		return
	}

	res, err := h.deps.Ingest(r.Context(), rows)
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	if res.Accepted == 0 {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, IngestResult: res})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", IngestResult: res})
}

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: read body: %w", ErrBadRequest, err)
	}
	return body, nil
}
