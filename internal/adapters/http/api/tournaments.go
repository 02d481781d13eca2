package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// TournamentDependencies defines the interface for reference table access.
type TournamentDependencies interface {
	SetWinners(ctx context.Context, tournamentID string, trainers []string) error
	SetBans(ctx context.Context, tournamentID string, entrants []string) error
	DeleteWinners(ctx context.Context, tournamentID string) error
	DeleteBans(ctx context.Context, tournamentID string) error
	Tournaments(ctx context.Context) ([]Tournament, error)
}

// TournamentsHandler handles the winners and bans tables.
type TournamentsHandler struct {
	deps    TournamentDependencies
	maxBody int64
}

// NewTournamentsHandler creates a new tournaments handler.
func NewTournamentsHandler(deps TournamentDependencies) *TournamentsHandler {
	return &TournamentsHandler{deps: deps, maxBody: defaultMaxBodyBytes}
}

type tournamentsResponse struct {
	Tournaments []Tournament `json:"tournaments"`
}

type tableEntryResponse struct {
	ID    string   `json:"id"`
	Names []string `json:"names"`
}

// HandleList handles GET /tournaments requests.
func (h *TournamentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_tournaments"
	list, err := h.deps.Tournaments(r.Context())
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, tournamentsResponse{Tournaments: list})
}

// HandlePutWinners handles PUT /tournaments/{id}/winners requests.
func (h *TournamentsHandler) HandlePutWinners(w http.ResponseWriter, r *http.Request) {
	h.put(w, r, "api.put_winners", h.deps.SetWinners)
}

// HandlePutBans handles PUT /tournaments/{id}/bans requests.
func (h *TournamentsHandler) HandlePutBans(w http.ResponseWriter, r *http.Request) {
	h.put(w, r, "api.put_bans", h.deps.SetBans)
}

func (h *TournamentsHandler) put(w http.ResponseWriter, r *http.Request, op string,
	set func(ctx context.Context, id string, names []string) error,
) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	body, err := readBody(w, r, h.maxBody)
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	names, err := parseNames(body)
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	if err := set(r.Context(), id, names); err != nil {
		writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, tableEntryResponse{ID: id, Names: names})
}

// HandleDeleteWinners handles DELETE /tournaments/{id}/winners requests.
func (h *TournamentsHandler) HandleDeleteWinners(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "api.delete_winners", h.deps.DeleteWinners)
}

// HandleDeleteBans handles DELETE /tournaments/{id}/bans requests.
func (h *TournamentsHandler) HandleDeleteBans(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "api.delete_bans", h.deps.DeleteBans)
}

func (h *TournamentsHandler) delete(w http.ResponseWriter, r *http.Request, op string,
	del func(ctx context.Context, id string) error,
) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := del(r.Context(), id); err != nil {
		writeFailure(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseNames decodes a JSON array of strings.
func parseNames(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrBadRequest)
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of names", ErrBadRequest)
	}
	names := make([]string, 0, len(doc.Array()))
	for _, v := range doc.Array() {
		if v.Type != gjson.String {
			return nil, fmt.Errorf("%w: names must be strings", ErrBadRequest)
		}
		names = append(names, v.String())
	}
	return names, nil
}
