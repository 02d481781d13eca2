package racefeed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/umastats/internal/adapters/http/api"
	service "github.com/okian/umastats/internal/app"
	"github.com/okian/umastats/internal/racefeed"
)

func TestRunAgainstService(t *testing.T) {
	Convey("Given a running service behind an HTTP server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(service.WithWorkerCount(2), service.WithSnapshotInterval(10*time.Millisecond))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, 1000).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When the feed runs with duplicates", func() {
			stats, err := racefeed.Run(ctx, &racefeed.Config{
				BaseURL:        srv.URL,
				NumRows:        300,
				NumEntrants:    8,
				NumTrainers:    5,
				NumTournaments: 3,
				DuplicateRatio: 0.2,
				BatchSize:      25,
				Workers:        4,
				Timeout:        5 * time.Second,
				SettleTimeout:  10 * time.Second,
			})

			Convey("Then every distinct row should be aggregated once", func() {
				So(err, ShouldBeNil)
				So(stats.RowsAccepted, ShouldEqual, 300)
				So(stats.RowsDuplicate, ShouldEqual, 60)
				So(stats.PicksAggregated, ShouldEqual, 300)
				So(stats.RowsFailed, ShouldEqual, 0)
				So(svc.Count(ctx), ShouldEqual, 300)
			})
		})

		Convey("When the service URL is wrong", func() {
			_, err := racefeed.Run(ctx, &racefeed.Config{
				BaseURL: srv.URL + "/nowhere", NumRows: 1, NumEntrants: 1, NumTrainers: 1,
				NumTournaments: 1, BatchSize: 1, Workers: 1, Timeout: time.Second,
			})

			Convey("Then the health check should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
