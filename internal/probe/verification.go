package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"

	"github.com/okian/vantage/internal/domain/stats"
	"github.com/okian/vantage/pkg/logger"
)

// studentEntry mirrors one element of GET /api.
type studentEntry struct {
	StudentID json.RawMessage `json:"studentId"`
	Class     *string         `json:"class"`
}

type studentsPayload struct {
	Students []studentEntry `json:"students"`
}

// compareMetrics reports the first difference between expected and got.
func compareMetrics(expected, got map[string]stats.Metrics) error {
	if len(expected) != len(got) {
		return fmt.Errorf("region count differs: expected %d, got %d (%v vs %v)",
			len(expected), len(got), regionNames(expected), regionNames(got))
	}
	for _, region := range regionNames(expected) {
		want := expected[region]
		have, ok := got[region]
		if !ok {
			return fmt.Errorf("region %q missing from response", region)
		}
		switch {
		case !closeEnough(want.AvgLatency, have.AvgLatency):
			return fmt.Errorf("region %q avg_latency: expected %.2f, got %.2f", region, want.AvgLatency, have.AvgLatency)
		case !closeEnough(want.P95Latency, have.P95Latency):
			return fmt.Errorf("region %q p95_latency: expected %.2f, got %.2f", region, want.P95Latency, have.P95Latency)
		case !closeEnough(want.AvgUptime, have.AvgUptime):
			return fmt.Errorf("region %q avg_uptime: expected %.2f, got %.2f", region, want.AvgUptime, have.AvgUptime)
		case want.Breaches != have.Breaches:
			return fmt.Errorf("region %q breaches: expected %d, got %d", region, want.Breaches, have.Breaches)
		}
	}
	return nil
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= metricTolerance
}

func regionNames(m map[string]stats.Metrics) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// validateStudents checks that every entry has a numeric or string id and
// a class, and returns the count per class.
func validateStudents(entries []studentEntry) (map[string]int, error) {
	perClass := make(map[string]int)
	for i, e := range entries {
		if len(e.StudentID) == 0 {
			return nil, fmt.Errorf("student %d has no studentId", i)
		}
		var id any
		if err := json.Unmarshal(e.StudentID, &id); err != nil {
			return nil, fmt.Errorf("student %d has unreadable studentId: %w", i, err)
		}
		switch id.(type) {
		case float64, string:
		default:
			return nil, fmt.Errorf("student %d studentId must be a number or string, got %s", i, e.StudentID)
		}
		if e.Class == nil {
			return nil, fmt.Errorf("student %d has no class", i)
		}
		perClass[*e.Class]++
	}
	return perClass, nil
}

// verifyStudents lists the roster, then filters by its first class and
// checks the filter returns exactly that class's rows.
func verifyStudents(ctx context.Context, config *Config, runStats *RunStats) error {
	log := logger.Get().Named("probe")
	client := newHTTPClient(config.Timeout)

	var all studentsPayload
	if err := client.getJSON(ctx, config.BaseURL+"/api", &all); err != nil {
		return fmt.Errorf("list students: %w", err)
	}
	perClass, err := validateStudents(all.Students)
	if err != nil {
		return err
	}
	runStats.StudentsListed = len(all.Students)
	log.Info(ctx, "students listed",
		logger.Int("students", len(all.Students)),
		logger.Int("classes", len(perClass)))

	if len(all.Students) == 0 || all.Students[0].Class == nil {
		return nil
	}
	class := *all.Students[0].Class

	var filtered studentsPayload
	if err := client.getJSON(ctx, config.BaseURL+"/api?class="+url.QueryEscape(class), &filtered); err != nil {
		return fmt.Errorf("filter students: %w", err)
	}
	if len(filtered.Students) != perClass[class] {
		return fmt.Errorf("class %q filter returned %d students, expected %d", class, len(filtered.Students), perClass[class])
	}
	for i, e := range filtered.Students {
		if e.Class == nil || *e.Class != class {
			return fmt.Errorf("class filter returned a student from another class at index %d", i)
		}
	}
	log.Info(ctx, "class filter verified", logger.String("class", class), logger.Int("students", len(filtered.Students)))
	return nil
}
