package stats_test

import (
	"errors"
	"testing"

	"github.com/okian/umastats/internal/domain/stats"
	. "github.com/smartystreets/goconvey/convey"
)

func TestQueryApply(t *testing.T) {
	Convey("Given a result with three entrants and two trainers", t, func() {
		res := func() stats.Result {
			return stats.Result{
				Entrants: []stats.EntrantStats{
					{Name: "A", DisplayName: "A", Picks: 1, Bans: 2},
					{Name: "B", DisplayName: "B", Picks: 3},
					{Name: "C", DisplayName: "C", Picks: 2},
				},
				Operators: []stats.OperatorStats{
					{Name: "T1", DisplayName: "T1", Entries: 1},
					{Name: "T2", DisplayName: "T2", Entries: 5},
				},
			}
		}

		Convey("When sorting by picks with a limit", func() {
			r := res()
			err := stats.Query{Sort: stats.SortPicks, Limit: 2}.Apply(&r)

			Convey("Then both tables should be sorted and truncated", func() {
				So(err, ShouldBeNil)
				So(len(r.Entrants), ShouldEqual, 2)
				So(r.Entrants[0].Name, ShouldEqual, "B")
				So(r.Entrants[1].Name, ShouldEqual, "C")
				So(r.Operators[0].Name, ShouldEqual, "T2")
			})
		})

		Convey("When sorting by an entrant-only key", func() {
			r := res()
			err := stats.Query{Sort: stats.SortBans, Order: stats.Ascending}.Apply(&r)

			Convey("Then trainers should keep their order", func() {
				So(err, ShouldBeNil)
				So(r.Entrants[2].Name, ShouldEqual, "A")
				So(r.Operators[0].Name, ShouldEqual, "T1")
			})
		})

		Convey("When sorting by a key neither table knows", func() {
			r := res()
			err := stats.Query{Sort: "height"}.Apply(&r)

			Convey("Then it should fail with an unknown sort key error", func() {
				So(errors.Is(err, stats.ErrUnknownSortKey), ShouldBeTrue)
			})
		})

		Convey("When the query is empty", func() {
			r := res()
			So(stats.Query{}.Apply(&r), ShouldBeNil)

			Convey("Then nothing should change", func() {
				So(r.Entrants[0].Name, ShouldEqual, "A")
				So(len(r.Entrants), ShouldEqual, 3)
			})
		})
	})
}
