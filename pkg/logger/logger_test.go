package logger

import (
	"bytes"
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging at info level", func() {
			Get().Info(ctx, "roster loaded", Int("students", 3), String("path", "q-fastapi.csv"))

			Convey("Then the record carries message, fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "roster loaded")
				So(out, ShouldContainSubstring, "students=3")
				So(out, ShouldContainSubstring, "path=q-fastapi.csv")
				So(out, ShouldContainSubstring, "source=")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the context carries a request id", func() {
			Get().Warn(WithRequestID(ctx, "req-42"), "bad payload")

			Convey("Then the id is attached", func() {
				So(buf.String(), ShouldContainSubstring, "request_id=req-42")
			})
		})

		Convey("When debug records are below the configured level", func() {
			Get().Debug(ctx, "hidden")

			Convey("Then nothing is written", func() {
				So(buf.String(), ShouldBeEmpty)
			})
		})

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			Named("stats").Debug(ctx, "visible")

			Convey("Then debug records appear with the logger name", func() {
				So(buf.String(), ShouldContainSubstring, "visible")
				So(buf.String(), ShouldContainSubstring, "logger=stats")
			})
		})

		Convey("When an unknown level is requested", func() {
			err := SetLevelString("loud")

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Reset(func() { _ = SetLevelString("info") })
	})
}

func TestRequestIDFromEmptyContext(t *testing.T) {
	Convey("Given a context without a request id", t, func() {
		Convey("Then RequestID returns an empty string", func() {
			So(RequestID(context.Background()), ShouldEqual, "")
		})
	})
}
