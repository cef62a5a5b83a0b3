package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/vantage/internal/adapters/http/api"
	"github.com/okian/vantage/internal/adapters/roster"
	service "github.com/okian/vantage/internal/app"
	"github.com/okian/vantage/internal/domain/model"
	"github.com/okian/vantage/internal/domain/stats"
	"github.com/okian/vantage/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:            baseURL,
		NumRecords:         60,
		BatchSize:          7,
		Regions:            []string{"apac", "emea", "amer", "latam"},
		Workers:            3,
		Timeout:            5 * time.Second,
		ThresholdMS:        150,
		DefaultThresholdMS: stats.DefaultThresholdMS,
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := roster.New([]model.Student{
		{StudentID: model.ParseStudentID("1"), Class: "1A"},
		{StudentID: model.ParseStudentID("2"), Class: "1B"},
		{StudentID: model.ParseStudentID("S3"), Class: "1A"},
	})
	svc := service.New(service.WithRoster(dir))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, 0).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateAndBatch(t *testing.T) {
	Convey("Given a probe configuration", t, func() {
		ctx := context.Background()
		cfg := testConfig("http://unused")
		runStats := &RunStats{}

		records, err := generateRecords(ctx, cfg, runStats)
		So(err, ShouldBeNil)

		Convey("Then records cover every region with plausible values", func() {
			So(records, ShouldHaveLength, 60)
			So(runStats.RecordsGenerated, ShouldEqual, 60)
			seen := map[string]bool{}
			for _, r := range records {
				seen[r.Region] = true
				So(r.ID, ShouldNotBeEmpty)
				So(r.LatencyMS, ShouldBeBetweenOrEqual, fastMin, spikeMin+spikeRange)
				So(r.UptimePct, ShouldBeBetweenOrEqual, uptimeMin, uptimeMin+uptimeRange)
			}
			So(seen, ShouldHaveLength, 4)
		})

		Convey("When the records are batched", func() {
			batches := buildBatches(cfg, records)

			Convey("Then batch sizes add up and shapes rotate", func() {
				So(batches, ShouldHaveLength, 9)
				total := 0
				for i, b := range batches {
					total += len(b.Records)
					So(b.Shape, ShouldEqual, Shape(i%int(shapeCount)))
					So(b.ID, ShouldNotBeEmpty)
				}
				So(total, ShouldEqual, 60)
				So(batches[8].Records, ShouldHaveLength, 4)
			})

			Convey("And flat batches expect the server default threshold", func() {
				flat := batches[0]
				So(flat.Expected, ShouldResemble, stats.Aggregate(groupByRegion(flat.Records), cfg.DefaultThresholdMS))
				grouped := batches[1]
				So(grouped.Expected, ShouldResemble, stats.Aggregate(groupByRegion(grouped.Records), cfg.ThresholdMS))
			})

			Convey("And grouped payloads carry the threshold", func() {
				raw, err := json.Marshal(batches[1].Payload)
				So(err, ShouldBeNil)
				So(string(raw), ShouldContainSubstring, `"threshold_ms":150`)
				So(string(raw), ShouldContainSubstring, `"regions":{`)
			})
		})
	})
}

func TestCompareMetrics(t *testing.T) {
	Convey("Given expected metrics", t, func() {
		expected := map[string]stats.Metrics{
			"apac": {AvgLatency: 160, P95Latency: 196, AvgUptime: 98.5, Breaches: 1},
		}

		Convey("Then identical metrics match", func() {
			So(compareMetrics(expected, map[string]stats.Metrics{"apac": expected["apac"]}), ShouldBeNil)
		})

		Convey("And a different breach count is reported", func() {
			got := map[string]stats.Metrics{"apac": {AvgLatency: 160, P95Latency: 196, AvgUptime: 98.5, Breaches: 2}}
			err := compareMetrics(expected, got)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "breaches")
		})

		Convey("And a missing region is reported", func() {
			err := compareMetrics(expected, map[string]stats.Metrics{"emea": {}})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, `"apac"`)
		})
	})
}

func TestValidateStudents(t *testing.T) {
	Convey("Given decoded roster entries", t, func() {
		var payload studentsPayload
		So(json.Unmarshal([]byte(`{"students":[{"studentId":1,"class":"1A"},{"studentId":"S2","class":"1A"},{"studentId":3,"class":"2B"}]}`), &payload), ShouldBeNil)

		Convey("Then classes are counted", func() {
			perClass, err := validateStudents(payload.Students)
			So(err, ShouldBeNil)
			So(perClass, ShouldResemble, map[string]int{"1A": 2, "2B": 1})
		})
	})

	Convey("Given an entry with an object id", t, func() {
		var payload studentsPayload
		So(json.Unmarshal([]byte(`{"students":[{"studentId":{"x":1},"class":"1A"}]}`), &payload), ShouldBeNil)

		Convey("Then it is rejected", func() {
			_, err := validateStudents(payload.Students)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRunAgainstServer(t *testing.T) {
	Convey("Given a running vantage server", t, func() {
		srv := newTestServer(t)
		cfg := testConfig(srv.URL)
		cfg.OutputFile = filepath.Join(t.TempDir(), "out", "dataset.json")

		Convey("When the probe runs", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			err := Run(ctx, cfg)

			Convey("Then every batch verifies", func() {
				So(err, ShouldBeNil)
			})

			Convey("And the dataset file is written", func() {
				data, err := os.ReadFile(cfg.OutputFile)
				So(err, ShouldBeNil)
				var records []Record
				So(json.Unmarshal(data, &records), ShouldBeNil)
				So(records, ShouldHaveLength, 60)
			})
		})

		Convey("When the server applies a different default threshold", func() {
			cfg.DefaultThresholdMS = 1
			cfg.Regions = []string{"apac"}
			cfg.BatchSize = 60

			Convey("Then the flat batch mismatches and the run fails", func() {
				err := Run(context.Background(), cfg)
				So(errors.Is(err, ErrVerification), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unreachable server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		cfg := testConfig(srv.URL)
		srv.Close()

		Convey("Then the health check fails", func() {
			err := Run(context.Background(), cfg)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}
