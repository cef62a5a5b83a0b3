package normalize_test

import (
	"errors"
	"testing"

	"github.com/okian/vantage/internal/domain/model"
	"github.com/okian/vantage/internal/domain/normalize"
	"github.com/okian/vantage/internal/domain/stats"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPayloadShapes(t *testing.T) {
	Convey("Given latency payloads", t, func() {
		Convey("When the body is a region mapping", func() {
			req, err := normalize.Payload([]byte(`{
				"regions": {
					"apac": [{"latency_ms": 120, "uptime_pct": 99}, {"latency_ms": 200, "uptime_pct": 98}],
					"emea": []
				},
				"threshold_ms": 150
			}`), 180)

			Convey("Then records are grouped and the threshold is read", func() {
				So(err, ShouldBeNil)
				So(req.ThresholdMS, ShouldEqual, 150.0)
				So(req.Regions, ShouldHaveLength, 2)
				So(req.Regions["apac"], ShouldResemble, []model.Record{
					{Region: "apac", LatencyMS: 120, Uptime: 99},
					{Region: "apac", LatencyMS: 200, Uptime: 98},
				})
				So(req.Regions["emea"], ShouldBeEmpty)
				So(req.Records(), ShouldEqual, 2)
			})
		})

		Convey("When the body is a flat list", func() {
			req, err := normalize.Payload([]byte(`[
				{"region": "apac", "latency_ms": 120, "uptime_pct": 99},
				{"region": "emea", "latency": 300, "uptime_ms": 97},
				{"region": "apac", "latency_ms": 200, "uptime_pct": 98},
				{"latency_ms": 999},
				{"region": "", "latency_ms": 999},
				{"region": 7, "latency_ms": 999},
				"junk"
			]`), 180)

			Convey("Then tagged records are grouped in list order", func() {
				So(err, ShouldBeNil)
				So(req.ThresholdMS, ShouldEqual, 180.0)
				So(req.Regions, ShouldHaveLength, 2)
				So(req.Regions["apac"][0].LatencyMS, ShouldEqual, 120.0)
				So(req.Regions["apac"][1].LatencyMS, ShouldEqual, 200.0)
				So(req.Regions["emea"][0], ShouldResemble, model.Record{Region: "emea", LatencyMS: 300, Uptime: 97})
			})
		})

		Convey("When regions holds a flat list", func() {
			req, err := normalize.Payload([]byte(`{"regions": [{"region": "amer", "latency_ms": 50}], "threshold_ms": 40}`), 180)

			Convey("Then it is grouped like a flat list and keeps the threshold", func() {
				So(err, ShouldBeNil)
				So(req.ThresholdMS, ShouldEqual, 40.0)
				So(req.Regions["amer"], ShouldHaveLength, 1)
			})
		})

		Convey("When flat list and mapping describe the same grouping", func() {
			flat, err1 := normalize.Payload([]byte(`[
				{"region": "apac", "latency_ms": 120, "uptime_pct": 99},
				{"region": "apac", "latency_ms": 200, "uptime_pct": 98},
				{"region": "emea", "latency_ms": 181, "uptime_pct": 95}
			]`), 180)
			mapped, err2 := normalize.Payload([]byte(`{"regions": {
				"apac": [{"latency_ms": 120, "uptime_pct": 99}, {"latency_ms": 200, "uptime_pct": 98}],
				"emea": [{"latency_ms": 181, "uptime_pct": 95}]
			}}`), 180)

			Convey("Then aggregation yields identical output", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(stats.Aggregate(flat.Regions, flat.ThresholdMS), ShouldResemble, stats.Aggregate(mapped.Regions, mapped.ThresholdMS))
			})
		})

		Convey("When the shape is not recognized", func() {
			for _, body := range []string{`{"data": []}`, `"text"`, `42`, `{"regions": "apac"}`, `{"regions": null}`} {
				_, err := normalize.Payload([]byte(body), 180)
				So(errors.Is(err, normalize.ErrUnexpectedShape), ShouldBeTrue)
			}
		})

		Convey("When the JSON is malformed", func() {
			_, err := normalize.Payload([]byte(`{"regions": `), 180)

			Convey("Then a malformed error is returned", func() {
				So(errors.Is(err, normalize.ErrMalformedJSON), ShouldBeTrue)
			})
		})
	})
}

func TestThreshold(t *testing.T) {
	Convey("Given object payloads with different thresholds", t, func() {
		cases := map[string]float64{
			`{"regions": {}}`:                       180,
			`{"regions": {}, "threshold_ms": null}`:  180,
			`{"regions": {}, "threshold_ms": 0}`:     180,
			`{"regions": {}, "threshold_ms": "abc"}`: 180,
			`{"regions": {}, "threshold_ms": "250"}`: 250,
			`{"regions": {}, "threshold_ms": 99.5}`:  99.5,
		}
		for body, want := range cases {
			req, err := normalize.Payload([]byte(body), 180)
			So(err, ShouldBeNil)
			So(req.ThresholdMS, ShouldEqual, want)
		}
	})
}

func TestFieldAliases(t *testing.T) {
	Convey("Given records using field variants", t, func() {
		req, err := normalize.Payload([]byte(`{"regions": {"r": [
			{"latency_ms": 10, "latency": 20, "uptime_ms": 1, "uptime_pct": 2},
			{"latency": 30, "uptime_pct": 3},
			{},
			{"latency_ms": null, "latency": 40},
			{"latency_ms": "55.5", "uptime_pct": true},
			{"latency_ms": {"nested": 1}, "uptime_pct": [1]},
			{"latency_ms": "NaN"},
			7
		]}}`), 180)
		So(err, ShouldBeNil)
		got := req.Regions["r"]

		Convey("Then the first present key wins and malformed values become zero", func() {
			So(got, ShouldHaveLength, 7)
			So(got[0].LatencyMS, ShouldEqual, 10.0)
			So(got[0].Uptime, ShouldEqual, 1.0)
			So(got[1].LatencyMS, ShouldEqual, 30.0)
			So(got[1].Uptime, ShouldEqual, 3.0)
			So(got[2], ShouldResemble, model.Record{Region: "r"})
			So(got[3].LatencyMS, ShouldEqual, 0.0)
			So(got[4].LatencyMS, ShouldEqual, 55.5)
			So(got[4].Uptime, ShouldEqual, 1.0)
			So(got[5].LatencyMS, ShouldEqual, 0.0)
			So(got[5].Uptime, ShouldEqual, 0.0)
			So(got[6].LatencyMS, ShouldEqual, 0.0)
		})
	})
}

func TestIsEmpty(t *testing.T) {
	Convey("Given candidate request bodies", t, func() {
		Convey("Then absent-like bodies count as empty", func() {
			for _, body := range []string{"", "   \n", "null", "{}", "[]", "not json", `""`, "0", "false"} {
				So(normalize.IsEmpty([]byte(body)), ShouldBeTrue)
			}
		})

		Convey("And bodies with content do not", func() {
			for _, body := range []string{`{"regions": {}}`, `[{"region": "apac"}]`, `{"other": 1}`, `"x"`, "3"} {
				So(normalize.IsEmpty([]byte(body)), ShouldBeFalse)
			}
		})
	})
}
