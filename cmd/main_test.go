package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/vantage/internal/config"
	"github.com/okian/vantage/pkg/logger"
	"github.com/okian/vantage/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const (
	testRoster  = "studentId,class\n1,1A\n2,1B\n3,2C\n4,1A\n"
	testDataset = `[
  {"region":"apac","service":"checkout","latency_ms":120,"uptime_pct":99,"timestamp":1},
  {"region":"apac","service":"catalog","latency_ms":200,"uptime_pct":98,"timestamp":2},
  {"region":"emea","service":"checkout","latency_ms":150,"uptime_pct":97.5,"timestamp":3}
]`
)

// writeFixtures creates the roster and fallback files and points the
// configuration at them.
func writeFixtures(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	roster := filepath.Join(dir, "q-fastapi.csv")
	dataset := filepath.Join(dir, "q-vercel-latency.json")
	if err := os.WriteFile(roster, []byte(testRoster), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dataset, []byte(testDataset), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VANTAGE_ROSTER_PATH", roster)
	t.Setenv("VANTAGE_FALLBACK_PATH", dataset)
	t.Setenv("VANTAGE_DOTENV", filepath.Join(dir, "absent.env"))
}

func TestMainWiring(t *testing.T) {
	convey.Convey("Given configuration pointing at fixture files", t, func() {
		writeFixtures(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := newMux(ctx, svc, cfg)

		convey.Convey("When posting without a body", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/latency", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.Convey("Then the fallback dataset is aggregated", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				var got map[string]map[string]float64
				convey.So(json.Unmarshal(w.Body.Bytes(), &got), convey.ShouldBeNil)
				convey.So(got, convey.ShouldContainKey, "apac")
				convey.So(got, convey.ShouldContainKey, "emea")
				convey.So(got["apac"]["avg_latency"], convey.ShouldEqual, 160.0)
				convey.So(got["apac"]["p95_latency"], convey.ShouldEqual, 196.0)
				convey.So(got["apac"]["breaches"], convey.ShouldEqual, 1.0)
			})
		})

		convey.Convey("When posting a grouped payload", func() {
			body := `{"regions":{"amer":[{"latency":90,"uptime_ms":99.9}]},"threshold_ms":80}`
			req := httptest.NewRequest(http.MethodPost, "/api/latency", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.Convey("Then only the payload is aggregated", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldEqual,
					`{"amer":{"avg_latency":90,"p95_latency":90,"avg_uptime":99.9,"breaches":1}}`+"\n")
			})
		})

		convey.Convey("When listing students of two classes", func() {
			req := httptest.NewRequest(http.MethodGet, "/api?class=1A&class=1B", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.Convey("Then matching rows come back in file order", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldEqual,
					`{"students":[{"studentId":1,"class":"1A"},{"studentId":2,"class":"1B"},{"studentId":4,"class":"1A"}]}`+"\n")
			})
		})

		convey.Convey("When the class parameter is empty", func() {
			req := httptest.NewRequest(http.MethodGet, "/api?class=", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.Convey("Then no student has an empty class", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldEqual, `{"students":[]}`+"\n")
			})
		})

		convey.Convey("When fetching the docs and landing page", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/healthz", "/stats", "/metrics"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestMainMetricsConfig(t *testing.T) {
	convey.Convey("Given a metrics namespace and refresh interval in the environment", t, func() {
		writeFixtures(t)
		t.Setenv("VANTAGE_METRICS_NAMESPACE", "edge")
		t.Setenv("VANTAGE_METRICS_REFRESH_INTERVAL", "250ms")
		ctx := context.Background()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		metrics.Configure(metricsOptions(cfg)...)
		convey.Reset(func() { metrics.Configure() })

		convey.Convey("Then the metrics manager follows the configuration", func() {
			convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 250*time.Millisecond)

			svc := newService(cfg, logger.Get())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()
			mux := newMux(ctx, svc, cfg)

			mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "edge_api_http_requests_total")
			convey.So(w.Body.String(), convey.ShouldNotContainSubstring, "vantage_api_http_requests_total")
		})
	})
}

func TestMainConfigErrors(t *testing.T) {
	convey.Convey("Given an invalid threshold in the environment", t, func() {
		t.Setenv("VANTAGE_DEFAULT_THRESHOLD_MS", "0")
		t.Setenv("VANTAGE_DOTENV", filepath.Join(t.TempDir(), "absent.env"))

		convey.Convey("Then run fails before serving", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := run(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "load config")
		})
	})
}

func TestMainRunShutdown(t *testing.T) {
	convey.Convey("Given a valid configuration on a free port", t, func() {
		writeFixtures(t)
		t.Setenv("VANTAGE_ADDR", "127.0.0.1:0")

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return after cancel")
				}
			})
		})
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("And the loop returns once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx, 10*time.Millisecond) }, convey.ShouldNotPanic)
		})
	})
}
