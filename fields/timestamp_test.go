package fields

import (
	"math/rand"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func Test_Timestamp(t *testing.T) {
	Convey("timestamp generator", t, func() {
		rng := rand.New(rand.NewSource(42))

		Convey("rejects a bad strftime format", func() {
			_, err := newTimestamp(Params{"format": "%q"}, rng)
			So(err, ShouldNotBeNil)
		})

		Convey("rejects a bad timezone", func() {
			_, err := newTimestamp(Params{"tz": "Mars/Olympus_Mons"}, rng)
			So(err, ShouldNotBeNil)
		})

		Convey("rejects a bad start time", func() {
			_, err := newTimestamp(Params{"start": "yesterday"}, rng)
			So(err, ShouldNotBeNil)
		})

		Convey("emits the configured start first, then advances by step", func() {
			gen, err := newTimestamp(Params{
				"start": "2024-03-01T12:00:00Z",
				"step":  "2s",
			}, rng)
			So(err, ShouldBeNil)

			first, _ := gen.Generate(nil)
			second, _ := gen.Generate(nil)
			third, _ := gen.Generate(nil)

			So(first, ShouldEqual, "2024-03-01T12:00:00")
			So(second, ShouldEqual, "2024-03-01T12:00:02")
			So(third, ShouldEqual, "2024-03-01T12:00:04")
		})

		Convey("applies the strftime format and timezone", func() {
			gen, err := newTimestamp(Params{
				"start":  "2024-03-01T12:00:00Z",
				"format": "%d/%b/%Y %H:%M:%S",
				"tz":     "America/New_York",
			}, rng)
			So(err, ShouldBeNil)

			v, _ := gen.Generate(nil)
			So(v, ShouldEqual, "01/Mar/2024 07:00:00")
		})

		Convey("jitter stays within [-jitter, +jitter] of the step", func() {
			gen, err := newTimestamp(Params{
				"start":  "2024-03-01T12:00:00Z",
				"step":   "10s",
				"jitter": "2s",
			}, rng)
			So(err, ShouldBeNil)

			prev := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 50; i++ {
				_, _ = gen.Generate(nil)
				cursor := gen.(*timestampGen).cursor

				delta := cursor.Sub(prev)
				So(delta, ShouldBeBetweenOrEqual, 8*time.Second, 12*time.Second)
				prev = cursor
			}
		})

		Convey("Reset() rewinds the cursor", func() {
			gen, _ := newTimestamp(Params{
				"start": "2024-03-01T12:00:00Z",
				"step":  "1s",
			}, rng)

			first, _ := gen.Generate(nil)
			_, _ = gen.Generate(nil)
			gen.Reset()

			again, _ := gen.Generate(nil)
			So(again, ShouldEqual, first)
		})

		Convey("initializes from the wall clock when start is unset", func() {
			before := time.Now()
			gen, err := newTimestamp(Params{}, rng)
			So(err, ShouldBeNil)

			cursor := gen.(*timestampGen).cursor
			So(cursor, ShouldHappenOnOrBetween, before, time.Now())
		})
	})
}
