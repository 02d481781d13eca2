package racefeed

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/umastats/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGeneratePlan(t *testing.T) {
	Convey("Given a small feed config", t, func() {
		config := &Config{NumRows: 40, NumEntrants: 5, NumTrainers: 3, NumTournaments: 4}
		stats := &Stats{}

		Convey("When generating a plan", func() {
			plan, err := generatePlan(context.Background(), config, stats)

			Convey("Then rows should be spread over every tournament with unique IDs", func() {
				So(err, ShouldBeNil)
				So(len(plan.Rows), ShouldEqual, 40)
				So(stats.RowsGenerated, ShouldEqual, 40)

				ids := map[string]struct{}{}
				perTournament := map[string]int{}
				for _, r := range plan.Rows {
					ids[r.ID] = struct{}{}
					perTournament[r.TournamentID]++
					So(r.Wins, ShouldBeBetweenOrEqual, 0, maxWinsPerRow)
					So(r.WinShare, ShouldBeGreaterThanOrEqualTo, 0)
					if r.Wins == 0 {
						So(r.WinShare, ShouldEqual, 0)
					}
				}
				So(len(ids), ShouldEqual, 40)
				So(len(perTournament), ShouldEqual, 4)
				So(perTournament["Open 1"], ShouldEqual, 10)
			})

			Convey("And every winner should have raced in its tournament", func() {
				So(len(plan.Winners), ShouldEqual, 4)
				for tournament, winners := range plan.Winners {
					raced := false
					for _, r := range plan.Rows {
						if r.TournamentID == tournament && r.Trainer == winners[0] {
							raced = true
						}
					}
					So(raced, ShouldBeTrue)
				}
			})

			Convey("And the unraced ban list should not count toward the denominator", func() {
				So(plan.Bans, ShouldContainKey, unraced)
				So(len(plan.Bans), ShouldEqual, 3)
				So(expectedBanTournaments(plan), ShouldEqual, 2)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := generatePlan(ctx, config, stats)

			Convey("Then generation should stop", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestRandomEntrantsAndDuplicates(t *testing.T) {
	Convey("Given a roster of one", t, func() {
		Convey("Then at most that one entrant should be banned", func() {
			So(randomEntrants(1), ShouldResemble, []string{"Uma 00"})
		})
	})

	Convey("Given generated rows", t, func() {
		rows := []Row{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}

		Convey("Then the duplicate share should be honoured", func() {
			So(len(duplicates(rows, 0)), ShouldEqual, 0)
			So(len(duplicates(rows, 0.5)), ShouldEqual, 2)
			So(len(duplicates(rows, 1)), ShouldEqual, 4)
		})
	})
}

func TestSummarize(t *testing.T) {
	Convey("Given a stats response", t, func() {
		body := []byte(`{
			"entrant_stats": [{"name":"A","picks":3},{"name":"B","picks":2},{"name":"C","picks":0}],
			"operator_stats": [{"name":"T1","entries":4},{"name":"T2","entries":1}],
			"ban_tournaments": 2
		}`)

		Convey("When summarizing it", func() {
			s, err := summarize(body)

			Convey("Then the totals should be summed", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, summary{Picks: 5, Entries: 5, Entrants: 3, Operators: 2, BanTournaments: 2})
			})
		})

		Convey("When the body is not JSON", func() {
			_, err := summarize([]byte("<html>"))

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given feed configs", t, func() {
		valid := Config{
			BaseURL: "http://x", NumRows: 1, NumEntrants: 1, NumTrainers: 1,
			NumTournaments: 1, BatchSize: 1, Workers: 1,
		}
		So(valid.Validate(), ShouldBeNil)

		broken := []func(c *Config){
			func(c *Config) { c.BaseURL = "" },
			func(c *Config) { c.NumRows = 0 },
			func(c *Config) { c.NumTrainers = 0 },
			func(c *Config) { c.DuplicateRatio = 1.5 },
			func(c *Config) { c.Workers = 0 },
		}
		for _, mutate := range broken {
			c := valid
			mutate(&c)
			So(errors.Is(c.Validate(), ErrInvalidConfig), ShouldBeTrue)
		}
	})
}
