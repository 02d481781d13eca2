package stats_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/internal/domain/stats"
	"github.com/okian/umastats/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func row(name, trainer, tournament string, wins int, share float64) model.RaceRow {
	return model.RaceRow{UniqueName: name, Trainer: trainer, TournamentID: tournament, Wins: wins, WinShare: share}
}

func table(entries map[string][]string, order ...string) *types.Table {
	t := types.NewTable()
	for _, k := range order {
		t.Set(k, entries[k])
	}
	return t
}

func entrant(res stats.Result, name string) (stats.EntrantStats, bool) {
	for _, e := range res.Entrants {
		if e.Name == name {
			return e, true
		}
	}
	return stats.EntrantStats{}, false
}

func operator(res stats.Result, name string) (stats.OperatorStats, bool) {
	for _, op := range res.Operators {
		if op.Name == name {
			return op, true
		}
	}
	return stats.OperatorStats{}, false
}

func TestComputeScenarios(t *testing.T) {
	Convey("Given a single row and no reference tables", t, func() {
		res := stats.Compute([]model.RaceRow{row("A", "T1", "Open 1", 1, 0.5)}, nil, nil)

		Convey("Then the entrant should carry the raw sums", func() {
			a, ok := entrant(res, "A")
			So(ok, ShouldBeTrue)
			So(a.Picks, ShouldEqual, 1)
			So(a.Wins, ShouldEqual, 1)
			So(a.TotalShare, ShouldEqual, 0.5)
			So(a.TourneyWins, ShouldEqual, 0)
			So(a.Bans, ShouldEqual, 0)
			So(a.Dominance.String(), ShouldEqual, "50.0")
			So(a.TourneyWinRate.Display, ShouldEqual, "0.0")
			So(a.BanRate.Display, ShouldEqual, "0.0")
			So(a.BanRate.Fraction, ShouldEqual, 0)
		})

		Convey("And the trainer should mirror it", func() {
			t1, ok := operator(res, "T1")
			So(ok, ShouldBeTrue)
			So(t1.Entries, ShouldEqual, 1)
			So(t1.PlayedTournaments, ShouldResemble, []string{"Open 1"})
			So(t1.TournamentWins, ShouldEqual, 0)
			So(t1.TourneyWinRate.Display, ShouldEqual, "0.0")
			So(res.BanTournaments, ShouldEqual, 0)
		})
	})

	Convey("Given the same row and a winners table", t, func() {
		winners := table(map[string][]string{"Open 1": {"T1"}}, "Open 1")
		res := stats.Compute([]model.RaceRow{row("A", "T1", "Open 1", 1, 0.5)}, winners, nil)

		Convey("Then the entrant and trainer should both be credited", func() {
			a, _ := entrant(res, "A")
			So(a.TourneyWins, ShouldEqual, 1)
			So(a.TourneyWinRate, ShouldResemble, stats.Rate{Count: 1, Of: 1, Fraction: 1, Display: "100.0"})

			t1, _ := operator(res, "T1")
			So(t1.TournamentWins, ShouldEqual, 1)
			So(t1.TourneyWinRate, ShouldResemble, stats.Rate{Count: 1, Of: 1, Fraction: 1, Display: "100.0"})
		})
	})

	Convey("Given a bans table with one active and one inactive tournament", t, func() {
		bans := table(map[string][]string{"Open 1": {"B"}, "Open 2": {"C"}}, "Open 1", "Open 2")
		res := stats.Compute([]model.RaceRow{row("A", "T1", "Open 1", 1, 0.5)}, nil, bans)

		Convey("Then only the active tournament should count", func() {
			So(res.BanTournaments, ShouldEqual, 1)

			b, ok := entrant(res, "B")
			So(ok, ShouldBeTrue)
			So(b.Picks, ShouldEqual, 0)
			So(b.Bans, ShouldEqual, 1)
			So(b.BanRate.Display, ShouldEqual, "100.0")
			So(b.BanRate.Fraction, ShouldEqual, 1)
			So(b.Dominance.Defined(), ShouldBeFalse)

			_, ok = entrant(res, "C")
			So(ok, ShouldBeFalse)
		})

		Convey("And ban-only entrants should follow the row entrants", func() {
			So(len(res.Entrants), ShouldEqual, 2)
			So(res.Entrants[0].Name, ShouldEqual, "A")
			So(res.Entrants[1].Name, ShouldEqual, "B")
		})
	})

	Convey("Given a trainer whose most picked entrant never won", t, func() {
		rows := []model.RaceRow{
			row("X", "T1", "Open 1", 0, 0),
			row("X", "T1", "Open 1", 0, 0),
			row("Y", "T1", "Open 1", 2, 1),
			row("X", "T1", "Open 1", 0, 0),
		}
		t1, _ := operator(stats.Compute(rows, nil, nil), "T1")

		Convey("Then the favorite and the ace should differ", func() {
			So(t1.Favorite, ShouldNotBeNil)
			So(t1.Favorite.Name, ShouldEqual, "X")
			So(t1.Favorite.Picks, ShouldEqual, 3)
			So(t1.Ace, ShouldNotBeNil)
			So(t1.Ace.Name, ShouldEqual, "Y")
			So(t1.Ace.Wins, ShouldEqual, 2)
		})
	})

	Convey("Given a trainer with two entrants on equal wins", t, func() {
		rows := []model.RaceRow{
			row("X", "T1", "Open 1", 1, 0.5),
			row("X", "T1", "Open 1", 0, 0),
			row("Y", "T1", "Open 1", 1, 0.5),
		}
		t1, _ := operator(stats.Compute(rows, nil, nil), "T1")

		Convey("Then the ace should be the one with fewer picks", func() {
			So(t1.Ace.Name, ShouldEqual, "Y")
			So(t1.Favorite.Name, ShouldEqual, "X")
		})
	})

	Convey("Given a trainer whose entrants are tied on picks", t, func() {
		rows := []model.RaceRow{
			row("X", "T1", "Open 1", 0, 0),
			row("Y", "T1", "Open 1", 0, 0),
		}
		t1, _ := operator(stats.Compute(rows, nil, nil), "T1")

		Convey("Then the favorite should be the one picked first", func() {
			So(t1.Favorite, ShouldNotBeNil)
			So(t1.Favorite.Name, ShouldEqual, "X")
			So(t1.Ace, ShouldBeNil)
		})
	})

	Convey("Given a trainer whose entrants are tied on wins and picks", t, func() {
		rows := []model.RaceRow{
			row("X", "T1", "Open 1", 1, 0.5),
			row("Y", "T1", "Open 1", 1, 0.5),
		}
		t1, _ := operator(stats.Compute(rows, nil, nil), "T1")

		Convey("Then the ace should be the one picked first", func() {
			So(t1.Ace, ShouldNotBeNil)
			So(t1.Ace.Name, ShouldEqual, "X")
			So(t1.Favorite.Name, ShouldEqual, "X")
		})
	})
}

func TestComputeInvariants(t *testing.T) {
	rows := []model.RaceRow{
		row("Gold Ship", "Alice", "Open 1", 1, 0.5),
		row("Gold Ship", "Bob", "Open 1", 0, 0),
		row("Special Week", "Alice", "Open 2", 2, 1),
		row("Silence Suzuka", "Carol", "Open 2", 0, 0.25),
		row("Special Week", "Alice", "Open 2", 1, 0.5),
		row("Gold Ship", "Carol", "Open 3", 0, 0),
	}
	winners := table(map[string][]string{"Open 2": {"Alice"}, "Open 9": {"Bob"}}, "Open 2", "Open 9")
	bans := table(map[string][]string{
		"Open 9": {"Gold Ship"},
		"Open 2": {"Gold Ship", "Haru Urara"},
		"Open 3": {"Haru Urara"},
	}, "Open 9", "Open 2", "Open 3")

	Convey("Given a mixed set of rows and tables", t, func() {
		res := stats.Compute(rows, winners, bans)

		Convey("Then every name should appear exactly once", func() {
			seen := map[string]int{}
			for _, e := range res.Entrants {
				seen[e.Name]++
			}
			So(seen, ShouldResemble, map[string]int{"Gold Ship": 1, "Special Week": 1, "Silence Suzuka": 1, "Haru Urara": 1})

			ops := map[string]int{}
			for _, op := range res.Operators {
				ops[op.Name]++
			}
			So(ops, ShouldResemble, map[string]int{"Alice": 1, "Bob": 1, "Carol": 1})
		})

		Convey("Then picks should sum to the row count", func() {
			total := 0
			for _, e := range res.Entrants {
				total += e.Picks
			}
			So(total, ShouldEqual, len(rows))
		})

		Convey("Then each trainer's entries should equal its history picks", func() {
			for _, op := range res.Operators {
				sum := 0
				for _, h := range op.CharacterHistory {
					sum += h.Picks
				}
				So(op.Entries, ShouldEqual, sum)
			}
		})

		Convey("Then the ban denominator should only count active tournaments", func() {
			So(res.BanTournaments, ShouldEqual, 2)

			gs, _ := entrant(res, "Gold Ship")
			So(gs.Bans, ShouldEqual, 1)
			So(gs.BanRate.Display, ShouldEqual, "50.0")

			hu, _ := entrant(res, "Haru Urara")
			So(hu.Picks, ShouldEqual, 0)
			So(hu.Bans, ShouldEqual, 2)
			So(hu.BanRate.Display, ShouldEqual, "100.0")
		})

		Convey("Then entrant wins count per row and trainer wins per tournament", func() {
			sw, _ := entrant(res, "Special Week")
			So(sw.TourneyWins, ShouldEqual, 2)

			alice, _ := operator(res, "Alice")
			So(alice.TournamentWins, ShouldEqual, 1)
			So(alice.PlayedTournaments, ShouldResemble, []string{"Open 1", "Open 2"})
			So(alice.TourneyWinRate.Display, ShouldEqual, "50.0")

			bob, _ := operator(res, "Bob")
			So(bob.TournamentWins, ShouldEqual, 0)
			So(bob.Ace, ShouldBeNil)
		})

		Convey("Then a favorite tie should go to the first entrant picked", func() {
			carol, _ := operator(res, "Carol")
			So(carol.Favorite, ShouldNotBeNil)
			So(carol.Favorite.Name, ShouldEqual, "Silence Suzuka")
			So(carol.Favorite.Picks, ShouldEqual, 1)
			So(carol.Ace, ShouldBeNil)
		})

		Convey("Then the output should keep first-seen order", func() {
			names := make([]string, 0, len(res.Entrants))
			for _, e := range res.Entrants {
				names = append(names, e.Name)
			}
			So(names, ShouldResemble, []string{"Gold Ship", "Special Week", "Silence Suzuka", "Haru Urara"})
		})

		Convey("Then a second call should give an equal result", func() {
			So(stats.Compute(rows, winners, bans), ShouldResemble, res)
		})
	})

	Convey("Given no rows", t, func() {
		res := stats.Compute(nil, winners, bans)

		Convey("Then both tables should be empty", func() {
			So(res.Entrants, ShouldBeEmpty)
			So(res.Operators, ShouldBeEmpty)
			So(res.BanTournaments, ShouldEqual, 0)
		})

		Convey("And they should encode as empty arrays", func() {
			b, err := json.Marshal(res)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"entrant_stats":[],"operator_stats":[],"ban_tournaments":0}`)
		})
	})
}

func TestComputeJSON(t *testing.T) {
	Convey("Given an entrant with picks and one that was only banned", t, func() {
		bans := table(map[string][]string{"Open 1": {"B"}}, "Open 1")
		res := stats.Compute([]model.RaceRow{row("A", "T1", "Open 1", 0, 0.5)}, nil, bans)
		b, err := json.Marshal(res)
		So(err, ShouldBeNil)

		var decoded struct {
			Entrants []map[string]json.RawMessage `json:"entrant_stats"`
		}
		So(json.Unmarshal(b, &decoded), ShouldBeNil)

		Convey("Then dominance should be a string for A and the number 0 for B", func() {
			So(string(decoded.Entrants[0]["dominance"]), ShouldEqual, `"50.0"`)
			So(string(decoded.Entrants[1]["dominance"]), ShouldEqual, `0`)
		})

		Convey("And a trainer without wins should have a null ace", func() {
			So(strings.Contains(string(b), `"ace":null`), ShouldBeTrue)
		})

		Convey("And the result should decode back to equal values", func() {
			var back stats.Result
			So(json.Unmarshal(b, &back), ShouldBeNil)
			So(back.Entrants[0].Dominance.String(), ShouldEqual, "50.0")
			So(back.Entrants[1].Dominance.Defined(), ShouldBeFalse)
			So(back.Operators[0].Favorite.Name, ShouldEqual, "A")
		})
	})
}

func TestNameFormatting(t *testing.T) {
	Convey("Given an alias formatter", t, func() {
		format := stats.AliasFormatter(map[string]string{"gold_ship ": "Gold Ship", "blank": "  "})

		Convey("Then configured names should map to their display form", func() {
			So(format("gold_ship"), ShouldEqual, "Gold Ship")
			So(format(" other "), ShouldEqual, "other")
			So(format("blank"), ShouldEqual, "blank")
		})

		Convey("When passed to Compute", func() {
			res := stats.Compute([]model.RaceRow{row("gold_ship", "t1", "Open 1", 1, 1)}, nil, nil, stats.WithNameFormatter(format))

			Convey("Then display names should be formatted and raw names kept", func() {
				So(res.Entrants[0].Name, ShouldEqual, "gold_ship")
				So(res.Entrants[0].DisplayName, ShouldEqual, "Gold Ship")
				So(res.Operators[0].Favorite.DisplayName, ShouldEqual, "Gold Ship")
				So(res.Operators[0].Ace.DisplayName, ShouldEqual, "Gold Ship")
			})
		})
	})

	Convey("Given a nil formatter option", t, func() {
		res := stats.Compute([]model.RaceRow{row(" A ", "T1", "Open 1", 0, 0)}, nil, nil, stats.WithNameFormatter(nil))

		Convey("Then the plain formatter should be used", func() {
			So(res.Entrants[0].DisplayName, ShouldEqual, "A")
		})
	})
}
