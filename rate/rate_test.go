package rate

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func Test_NewController(t *testing.T) {
	Convey("NewController()", t, func() {
		Convey("requires exactly one stop condition", func() {
			_, err := NewController(10, nil, 100, time.Minute)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "mutually exclusive")

			_, err = NewController(10, nil, 0, 0)
			So(err, ShouldNotBeNil)
		})

		Convey("requires a positive rate when not burst-scheduled", func() {
			_, err := NewController(0, nil, 100, 0)
			So(err, ShouldNotBeNil)

			_, err = NewController(-3, nil, 100, 0)
			So(err, ShouldNotBeNil)
		})

		Convey("validates burst segments", func() {
			_, err := NewController(0, Schedule{{Rate: 0, Duration: time.Second}}, 100, 0)
			So(err, ShouldNotBeNil)

			_, err = NewController(0, Schedule{{Rate: 10, Duration: 0}}, 100, 0)
			So(err, ShouldNotBeNil)

			_, err = NewController(0, Schedule{{Rate: 10, Duration: time.Second}}, 100, 0)
			So(err, ShouldBeNil)
		})

		Convey("allows fractional rates", func() {
			_, err := NewController(0.5, nil, 10, 0)
			So(err, ShouldBeNil)
		})
	})
}

func Test_Deadlines(t *testing.T) {
	Convey("anchored deadlines", t, func() {
		start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		Convey("are start + N/R, not chained sleeps", func() {
			ctrl, err := NewController(4, nil, 10, 0)
			So(err, ShouldBeNil)
			ctrl.Start(start)

			for n := 0; n < 10; n++ {
				deadline, ok := ctrl.Deadline()
				So(ok, ShouldBeTrue)
				So(deadline, ShouldResemble, start.Add(time.Duration(n)*250*time.Millisecond))
				ctrl.Incr()
			}
		})

		Convey("report complete once the count is reached", func() {
			ctrl, _ := NewController(100, nil, 3, 0)
			ctrl.Start(start)

			for n := 0; n < 3; n++ {
				_, ok := ctrl.Deadline()
				So(ok, ShouldBeTrue)
				ctrl.Incr()
			}

			_, ok := ctrl.Deadline()
			So(ok, ShouldBeFalse)
			So(ctrl.Emitted(), ShouldEqual, 3)
		})

		Convey("report complete once a deadline falls past the duration", func() {
			ctrl, _ := NewController(2, nil, 0, time.Second)
			ctrl.Start(start)

			// Deadlines at 0ms and 500ms fit; 1000ms does not
			for n := 0; n < 2; n++ {
				_, ok := ctrl.Deadline()
				So(ok, ShouldBeTrue)
				ctrl.Incr()
			}

			_, ok := ctrl.Deadline()
			So(ok, ShouldBeFalse)
		})

		Convey("fractional rates space deadlines out past a second", func() {
			ctrl, _ := NewController(0.5, nil, 2, 0)
			ctrl.Start(start)

			first, _ := ctrl.Deadline()
			ctrl.Incr()
			second, _ := ctrl.Deadline()

			So(second.Sub(first), ShouldEqual, 2*time.Second)
		})
	})
}

func Test_BurstSchedule(t *testing.T) {
	Convey("burst schedules", t, func() {
		schedule := Schedule{
			{Rate: 100, Duration: 5 * time.Second},
			{Rate: 10, Duration: 25 * time.Second},
		}

		Convey("RateAt() reports the active segment, wrapping cyclically", func() {
			So(schedule.RateAt(3*time.Second), ShouldEqual, 100)
			So(schedule.RateAt(20*time.Second), ShouldEqual, 10)
			So(schedule.RateAt(30*time.Second), ShouldEqual, 100)
			So(schedule.RateAt(35*time.Second), ShouldEqual, 10)
		})

		Convey("deadlines rebase on each anchored segment boundary", func() {
			start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

			ctrl, err := NewController(0, Schedule{
				{Rate: 2, Duration: time.Second},
				{Rate: 1, Duration: 2 * time.Second},
			}, 5, 0)
			So(err, ShouldBeNil)
			ctrl.Start(start)

			expected := []time.Duration{
				0,                      // segment 1 at 2/s
				500 * time.Millisecond, //
				time.Second,            // segment 2 starts at its boundary
				2 * time.Second,        // 1/s
				3 * time.Second,        // wrapped back to segment 1
			}

			for _, offset := range expected {
				deadline, ok := ctrl.Deadline()
				So(ok, ShouldBeTrue)
				So(deadline, ShouldResemble, start.Add(offset))
				ctrl.Incr()
			}
		})
	})
}

func Test_ParseBurst(t *testing.T) {
	Convey("ParseBurst()", t, func() {
		Convey("parses RATE:DURATION pairs", func() {
			schedule, err := ParseBurst("100:5s,10:25s")
			So(err, ShouldBeNil)
			So(schedule, ShouldResemble, Schedule{
				{Rate: 100, Duration: 5 * time.Second},
				{Rate: 10, Duration: 25 * time.Second},
			})
		})

		Convey("allows fractional rates and sub-second durations", func() {
			schedule, err := ParseBurst("0.5:250ms")
			So(err, ShouldBeNil)
			So(schedule[0].Rate, ShouldEqual, 0.5)
			So(schedule[0].Duration, ShouldEqual, 250*time.Millisecond)
		})

		Convey("rejects malformed patterns", func() {
			for _, bad := range []string{"100", "x:5s", "100:xyz", "100:5s,"} {
				_, err := ParseBurst(bad)
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func Test_Wait(t *testing.T) {
	Convey("Wait()", t, func() {
		ctrl, _ := NewController(10, nil, 1, 0)

		Convey("returns immediately for past deadlines", func() {
			begin := time.Now()
			err := ctrl.Wait(context.Background(), begin.Add(-time.Second))
			So(err, ShouldBeNil)
			So(time.Since(begin), ShouldBeLessThan, 50*time.Millisecond)
		})

		Convey("waits until the deadline", func() {
			begin := time.Now()
			err := ctrl.Wait(context.Background(), begin.Add(50*time.Millisecond))
			So(err, ShouldBeNil)
			So(time.Since(begin), ShouldBeGreaterThanOrEqualTo, 50*time.Millisecond)
		})

		Convey("wakes promptly on cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())

			begin := time.Now()
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			err := ctrl.Wait(ctx, begin.Add(10*time.Second))
			So(err, ShouldNotBeNil)
			So(time.Since(begin), ShouldBeLessThan, time.Second)
		})
	})
}
