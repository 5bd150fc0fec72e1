package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given a fresh global logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { _ = Sync() }()

		Convey("Then Get returns a usable logger", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("scheduler"), ShouldNotBeNil)
		})

		Convey("And a nil writer is rejected", func() {
			So(InitWithWriter(nil), ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing into a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Named("referee").With(Uint64("seq", 42)).Info(ctx, "transition",
				String("command", "STOP"),
				Bool("manual", false),
				Duration("cooldown", 300*time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then the record carries the component, fields and caller", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "component=referee")
				So(out, ShouldContainSubstring, "seq=42")
				So(out, ShouldContainSubstring, "command=STOP")
				So(out, ShouldContainSubstring, "manual=false")
				So(out, ShouldContainSubstring, "error=boom")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then info records are dropped", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		So(Init(), ShouldBeNil)
		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "error", " DEBUG "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}
