package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/internal/domain/stats"
)

// StatsDependencies defines the interface for aggregated statistics.
type StatsDependencies interface {
	Stats(ctx context.Context, q stats.Query) (stats.Result, error)
}

// StatsHandler serves the entrant and trainer tables.
type StatsHandler struct {
	deps     StatsDependencies
	maxLimit int
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps StatsDependencies, maxLimit int) *StatsHandler {
	return &StatsHandler{deps: deps, maxLimit: maxLimit}
}

type entrantsResponse struct {
	Entrants       []stats.EntrantStats `json:"entrant_stats"`
	BanTournaments int                  `json:"ban_tournaments"`
}

type operatorsResponse struct {
	Operators []stats.OperatorStats `json:"operator_stats"`
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.get_stats", func(res stats.Result) any { return res })
}

// HandleEntrants handles GET /stats/entrants requests.
func (h *StatsHandler) HandleEntrants(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.get_entrants", func(res stats.Result) any {
		return entrantsResponse{Entrants: res.Entrants, BanTournaments: res.BanTournaments}
	})
}

// HandleOperators handles GET /stats/operators requests.
func (h *StatsHandler) HandleOperators(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.get_operators", func(res stats.Result) any {
		return operatorsResponse{Operators: res.Operators}
	})
}

func (h *StatsHandler) serve(w http.ResponseWriter, r *http.Request, op string, shape func(stats.Result) any) {
	q, err := parseQuery(r.URL.Query(), h.maxLimit)
	if err != nil {
		code := "bad_request"
		if errors.Is(err, errLimitExceeded) {
			code = "limit_exceeded"
		}
		writeError(w, http.StatusBadRequest, code, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Stats(r.Context(), q)
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, shape(res))
}

var errLimitExceeded = errors.New("limit exceeded")

// parseQuery reads the repeated tournament, trainer and entrant filters plus
// sort, order and limit. An absent limit means maxLimit.
func parseQuery(v url.Values, maxLimit int) (stats.Query, error) {
	q := stats.Query{
		Filter: model.Filter{
			Tournaments: values(v, "tournament"),
			Trainers:    values(v, "trainer"),
			Entrants:    values(v, "entrant"),
		},
		Sort:  strings.TrimSpace(v.Get("sort")),
		Limit: maxLimit,
	}

	order, err := stats.ParseOrder(v.Get("order"))
	if err != nil {
		return stats.Query{}, err
	}
	q.Order = order

	if raw := strings.TrimSpace(v.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return stats.Query{}, errors.New("limit must be a positive integer")
		}
		if maxLimit > 0 && n > maxLimit {
			return stats.Query{}, errLimitExceeded
		}
		q.Limit = n
	}
	return q, nil
}

// values returns the non-blank values of a repeated query parameter.
func values(v url.Values, key string) []string {
	var out []string
	for _, s := range v[key] {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
