package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/umastats/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRowDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new row deduper", t, func() {
		d := dedupe.NewRowDeduper()

		Convey("When a row ID is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "row-1")

			Convey("Then it should be reported as new", func() {
				So(seen, ShouldBeFalse)
				So(d.Len(), ShouldEqual, 1)
			})

			Convey("And a second delivery should be reported as seen", func() {
				So(d.SeenAndRecord(ctx, "row-1"), ShouldBeTrue)
				So(d.Len(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded ID is forgotten", func() {
			d.SeenAndRecord(ctx, "row-1")
			d.Forget(ctx, "row-1")
			d.Forget(ctx, "missing")

			Convey("Then it should be accepted again", func() {
				So(d.Len(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "row-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a deduper with capacity 3", t, func() {
		d := dedupe.NewRowDeduper(dedupe.WithCapacity(3))
		for _, id := range []string{"row-1", "row-2", "row-3", "row-4"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("Then the oldest ID should have been evicted", func() {
			So(d.Len(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "row-4"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "row-3"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "row-2"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "row-1"), ShouldBeFalse)
		})

		Convey("When a middle ID is forgotten", func() {
			d.Forget(ctx, "row-3")

			Convey("Then eviction should still take the oldest live ID", func() {
				So(d.Len(), ShouldEqual, 2)
				So(d.SeenAndRecord(ctx, "row-5"), ShouldBeFalse)
				So(d.Len(), ShouldEqual, 2)
				So(d.SeenAndRecord(ctx, "row-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "row-2"), ShouldBeFalse)
				So(d.Len(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewRowDeduper(dedupe.WithCapacity(0))
		const n = 1000
		for i := 0; i < n; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("row-%d", i))
		}

		Convey("Then nothing should be evicted", func() {
			So(d.Len(), ShouldEqual, n)
			So(d.SeenAndRecord(ctx, "row-0"), ShouldBeTrue)
			d.Forget(ctx, "row-0")
			So(d.Len(), ShouldEqual, n-1)
		})
	})
}

func TestRowDeduperConcurrency(t *testing.T) {
	Convey("Given concurrent writers", t, func() {
		d := dedupe.NewRowDeduper(dedupe.WithCapacity(1000))
		const workers, perWorker = 10, 100

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					d.SeenAndRecord(context.Background(), fmt.Sprintf("row-%d-%d", w, j))
				}
			}(w)
		}
		wg.Wait()

		Convey("Then every ID should be recorded once", func() {
			So(d.Len(), ShouldEqual, workers*perWorker)
		})
	})
}
