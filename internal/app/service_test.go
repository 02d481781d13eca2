package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/umastats/internal/adapters/mq/queue"
	service "github.com/okian/umastats/internal/app"
	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/internal/domain/stats"
	"github.com/okian/umastats/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func row(id, entrant, trainer, tournament string, wins int, share float64) model.RaceRow {
	return model.RaceRow{
		ID:           id,
		UniqueName:   entrant,
		Trainer:      trainer,
		TournamentID: tournament,
		Wins:         wins,
		WinShare:     share,
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report itself stopped", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(3),
			service.WithQueueSize(50),
			service.WithDedupeSize(25),
			service.WithSnapshotInterval(10*time.Millisecond),
		)

		Convey("Then the options should be reflected in its status", func() {
			st := svc.GetStats()
			So(st["workerCount"], ShouldEqual, 3)
			So(st["queueSize"], ShouldEqual, 50)
			So(st["dedupeSize"], ShouldEqual, 25)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(1))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When operations are called before Start", func() {
			_, ingestErr := svc.Ingest(ctx, []model.RaceRow{row("a", "X", "T", "O", 0, 0)})
			_, statsErr := svc.Stats(ctx, stats.Query{})
			winnersErr := svc.SetWinners(ctx, "O", []string{"T"})

			Convey("Then they should fail with ErrNotStarted", func() {
				So(errors.Is(ingestErr, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(statsErr, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(winnersErr, service.ErrNotStarted), ShouldBeTrue)
				So(svc.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When starting and stopping the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(100))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When ingesting an invalid row", func() {
			_, err := svc.Ingest(ctx, []model.RaceRow{row("a", "", "T", "O", 0, 0)})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, stats.ErrInvalidRow), ShouldBeTrue)
			})
		})

		Convey("When ingesting rows with and without IDs", func() {
			res, err := svc.Ingest(ctx, []model.RaceRow{
				row("r-1", "Gold Ship", "Alice", "Open 1", 1, 0.5),
				row("", "Special Week", "Bob", "Open 1", 0, 0),
			})

			Convey("Then both should be accepted and the missing ID generated", func() {
				So(err, ShouldBeNil)
				So(res.Accepted, ShouldEqual, 2)
				So(res.Duplicates, ShouldEqual, 0)
				So(res.IDs[0], ShouldEqual, "r-1")
				So(res.IDs[1], ShouldNotBeEmpty)
			})

			Convey("And resubmitting the same ID should be reported as duplicate", func() {
				again, err := svc.Ingest(ctx, []model.RaceRow{row("r-1", "Gold Ship", "Alice", "Open 1", 1, 0.5)})
				So(err, ShouldBeNil)
				So(again.Accepted, ShouldEqual, 0)
				So(again.Duplicates, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a service whose queue is too small for a batch", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithQueueSize(1))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When ingesting more rows than fit", func() {
			batch := []model.RaceRow{
				row("q-1", "A", "T", "O", 0, 0),
				row("q-2", "B", "T", "O", 0, 0),
			}
			_, err := svc.Ingest(ctx, batch)

			Convey("Then the batch should be refused and its IDs forgotten", func() {
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
				res, err := svc.Ingest(ctx, batch[:1])
				So(err, ShouldBeNil)
				So(res.Accepted, ShouldEqual, 1)
			})
		})

		Convey("When concurrent batches share a row ID and none of them fit", func() {
			const callers = 16
			type outcome struct {
				duplicates int
				err        error
			}
			results := make([]outcome, callers)
			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					res, err := svc.Ingest(ctx, []model.RaceRow{
						row("shared", "A", "T", "O", 0, 0),
						row(fmt.Sprintf("own-%d", i), "B", "T", "O", 0, 0),
					})
					results[i] = outcome{duplicates: res.Duplicates, err: err}
				}(i)
			}
			wg.Wait()

			Convey("Then no caller should be told the shared row is a duplicate", func() {
				for _, r := range results {
					So(errors.Is(r.err, queue.ErrFull), ShouldBeTrue)
					So(r.duplicates, ShouldEqual, 0)
				}
				res, err := svc.Ingest(ctx, []model.RaceRow{row("shared", "A", "T", "O", 0, 0)})
				So(err, ShouldBeNil)
				So(res.Accepted, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Tables(t *testing.T) {
	Convey("Given a started service with rows and tables", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithSnapshotInterval(5*time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		_, err := svc.Ingest(ctx, []model.RaceRow{row("t-1", "Gold Ship", "Alice", "Open 1", 1, 0.5)})
		So(err, ShouldBeNil)
		So(svc.SetWinners(ctx, "Open 1", []string{"Alice"}), ShouldBeNil)
		So(svc.SetBans(ctx, "Open 1", []string{"Haru Urara"}), ShouldBeNil)
		So(svc.SetBans(ctx, "Open 9", []string{"Oguri Cap"}), ShouldBeNil)

		So(waitForCount(ctx, svc, 1), ShouldBeTrue)

		Convey("When listing tournaments", func() {
			list, err := svc.Tournaments(ctx)

			Convey("Then active tournaments should come first", func() {
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 2)
				So(list[0].ID, ShouldEqual, "Open 1")
				So(list[0].Active, ShouldBeTrue)
				So(list[0].Winners, ShouldResemble, []string{"Alice"})
				So(list[0].Bans, ShouldResemble, []string{"Haru Urara"})
				So(list[1].ID, ShouldEqual, "Open 9")
				So(list[1].Active, ShouldBeFalse)
				So(list[1].Winners, ShouldResemble, []string{})
			})
		})

		Convey("When deleting table entries", func() {
			So(svc.DeleteBans(ctx, "Open 9"), ShouldBeNil)
			So(svc.DeleteWinners(ctx, "Open 1"), ShouldBeNil)
			list, err := svc.Tournaments(ctx)

			Convey("Then table-only tournaments should disappear and active ones stay", func() {
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 1)
				So(list[0].ID, ShouldEqual, "Open 1")
				So(list[0].Winners, ShouldResemble, []string{})
				So(list[0].Bans, ShouldResemble, []string{"Haru Urara"})
			})

			Convey("And stats should stop crediting the removed winners", func() {
				res, err := svc.Stats(ctx, stats.Query{})
				So(err, ShouldBeNil)
				So(res.Entrants[0].TourneyWins, ShouldEqual, 0)
				So(res.Operators[0].TournamentWins, ShouldEqual, 0)
			})
		})

		Convey("When setting a table for a blank tournament", func() {
			err := svc.SetWinners(ctx, "", []string{"Alice"})

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestService_LoadFiles(t *testing.T) {
	Convey("Given rows, winners and bans files", t, func() {
		dir := t.TempDir()
		rowsPath := filepath.Join(dir, "rows.csv")
		winnersPath := filepath.Join(dir, "winners.json")
		bansPath := filepath.Join(dir, "bans.json")
		So(os.WriteFile(rowsPath, []byte("UniqueName,Trainer,RawLength,Wins,WinShare,ID\n"+
			"Gold Ship,Alice,Open 1,1,0.5,r1\n"+
			"Gold Ship,Alice,Open 1,1,0.5,r1\n"+
			"Special Week,Bob,Open 1,0,0,r2\n"), 0o600), ShouldBeNil)
		So(os.WriteFile(winnersPath, []byte(`{"Open 1": ["Alice"]}`), 0o600), ShouldBeNil)
		So(os.WriteFile(bansPath, []byte(`{"Open 1": ["Haru Urara"]}`), 0o600), ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When the service starts with them", func() {
			svc := service.New(
				service.WithWorkerCount(1),
				service.WithRowsFile(rowsPath),
				service.WithWinnersFile(winnersPath),
				service.WithBansFile(bansPath),
				service.WithDisplayNames(map[string]string{"Alice": "Trainer Alice"}),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			res, err := svc.Stats(ctx, stats.Query{Sort: stats.SortPicks})

			Convey("Then stats should reflect the deduplicated file contents", func() {
				So(err, ShouldBeNil)
				So(svc.Count(ctx), ShouldEqual, 2)
				So(res.BanTournaments, ShouldEqual, 1)
				So(len(res.Entrants), ShouldEqual, 3)
				So(res.Entrants[2].Name, ShouldEqual, "Haru Urara")
				So(res.Entrants[2].Bans, ShouldEqual, 1)
				So(res.Operators[0].DisplayName, ShouldEqual, "Trainer Alice")
				So(res.Operators[0].TournamentWins, ShouldEqual, 1)
			})
		})

		Convey("When a configured file is missing", func() {
			svc := service.New(service.WithRowsFile(filepath.Join(dir, "absent.csv")))
			err := svc.Start(ctx)

			Convey("Then Start should fail with ErrLoadData", func() {
				So(errors.Is(err, service.ErrLoadData), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

// waitForCount polls until the store holds n rows or ctx expires.
func waitForCount(ctx context.Context, svc *service.Service, n int) bool {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svc.Count(ctx) >= n {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
