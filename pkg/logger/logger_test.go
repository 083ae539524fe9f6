package logger_test

import (
	"context"
	"testing"

	"github.com/okian/forgeboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInitAndGet(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("Then Get returns a usable logger", func() {
			l := logger.Get()
			So(l, ShouldNotBeNil)
			// must not panic
			l.Info(context.Background(), "hello",
				logger.String("k", "v"),
				logger.Int("n", 1),
				logger.Uint64("u", 2),
			)
		})

		Convey("And Named returns a scoped logger", func() {
			So(logger.Named("sub"), ShouldNotBeNil)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("Then known levels parse", func() {
			for _, lvl := range []string{"debug", "info", "warn", "warning", "error", ""} {
				So(logger.SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("And unknown levels are rejected", func() {
			So(logger.SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}
