package racefeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/okian/umastats/pkg/logger"
)

// ErrMismatch is returned when the aggregated stats disagree with what was fed.
var ErrMismatch = errors.New("stats mismatch")

// summary is what a /stats response says about the fed rows.
type summary struct {
	Picks          int
	Entries        int
	Entrants       int
	Operators      int
	BanTournaments int
}

// summarize reads the totals out of a GET /stats body.
func summarize(body []byte) (summary, error) {
	if !gjson.ValidBytes(body) {
		return summary{}, fmt.Errorf("invalid stats response: %.64s", body)
	}
	doc := gjson.ParseBytes(body)
	s := summary{
		Entrants:       int(doc.Get("entrant_stats.#").Int()),
		Operators:      int(doc.Get("operator_stats.#").Int()),
		BanTournaments: int(doc.Get("ban_tournaments").Int()),
	}
	for _, v := range doc.Get("entrant_stats.#.picks").Array() {
		s.Picks += int(v.Int())
	}
	for _, v := range doc.Get("operator_stats.#.entries").Array() {
		s.Entries += int(v.Int())
	}
	return s, nil
}

// awaitStats polls /stats until the aggregated picks reach want or the
// settle timeout expires, and returns the last summary.
func awaitStats(ctx context.Context, config *Config, want int) (summary, error) {
	client := newHTTPClient(config.Timeout)
	target := config.BaseURL + "/stats"

	deadline := time.NewTimer(config.SettleTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var last summary
	for {
		status, body, err := client.Get(ctx, target)
		if err != nil {
			return last, err
		}
		if status != StatusOK {
			return last, fmt.Errorf("GET /stats: status %d: %s", status, body)
		}
		if last, err = summarize(body); err != nil {
			return last, err
		}
		if last.Picks >= want {
			return last, nil
		}
		if config.Verbose {
			logger.Get().Debug(ctx, "waiting for rows to land",
				logger.Int("picks", last.Picks),
				logger.Int("want", want),
			)
		}

		select {
		case <-ctx.Done():
			return last, fmt.Errorf("waiting for stats: %w", ctx.Err())
		case <-deadline.C:
			return last, nil
		case <-ticker.C:
		}
	}
}

// verifyResults checks the service's view against the plan and the
// submission counters.
func verifyResults(ctx context.Context, plan *Plan, got summary, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results")

	stats.EntrantsSeen = got.Entrants
	stats.OperatorsSeen = got.Operators
	stats.PicksAggregated = got.Picks

	var errs []error
	if stats.RowsAccepted != len(plan.Rows) {
		errs = append(errs, fmt.Errorf("%w: accepted %d rows, generated %d", ErrMismatch, stats.RowsAccepted, len(plan.Rows)))
	}
	if got.Picks != stats.RowsAccepted {
		errs = append(errs, fmt.Errorf("%w: entrant picks sum to %d, accepted %d", ErrMismatch, got.Picks, stats.RowsAccepted))
	}
	if got.Entries != got.Picks {
		errs = append(errs, fmt.Errorf("%w: trainer entries sum to %d, entrant picks to %d", ErrMismatch, got.Entries, got.Picks))
	}
	if want := expectedBanTournaments(plan); got.BanTournaments != want {
		errs = append(errs, fmt.Errorf("%w: ban tournaments %d, want %d", ErrMismatch, got.BanTournaments, want))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	logger.Get().Info(ctx, "result verification completed",
		logger.Int("picks", got.Picks),
		logger.Int("entrants", got.Entrants),
		logger.Int("operators", got.Operators),
	)
	return nil
}
