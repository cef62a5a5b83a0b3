package probe

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vantage/internal/domain/model"
	"github.com/okian/vantage/internal/domain/stats"
	"github.com/okian/vantage/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileDivisor     = 8
)

// Latency ranges in milliseconds per traffic profile.
const (
	fastMin      = 20.0
	fastRange    = 100.0
	typicalMin   = 100.0
	typicalRange = 100.0
	slowMin      = 180.0
	slowRange    = 220.0
	spikeMin     = 400.0
	spikeRange   = 800.0
	uptimeMin    = 95.0
	uptimeRange  = 5.0
)

// Constants for latency profile cases.
const (
	caseFast    = 0
	caseSpike   = 7
	caseSlowLow = 5
)

var services = []string{"checkout", "catalog", "search", "auth"} //nolint:gochecknoglobals // read-only fixture names

// Shape selects how a batch is encoded on the wire.
type Shape int

// Payload shapes accepted by POST /api/latency.
const (
	ShapeFlat Shape = iota
	ShapeGrouped
	ShapeRegionsList
	shapeCount
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeGrouped:
		return "grouped"
	case ShapeRegionsList:
		return "regions_list"
	default:
		return "unknown"
	}
}

// Batch is one request worth of records together with the metrics the
// server is expected to return for it.
type Batch struct {
	ID       string
	Shape    Shape
	Records  []Record
	Payload  any
	Expected map[string]stats.Metrics
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateRecords creates the configured number of records spread across regions.
func generateRecords(ctx context.Context, config *Config, runStats *RunStats) ([]Record, error) {
	regions := config.Regions
	if len(regions) == 0 {
		regions = DefaultRegions
	}
	logger.Get().Info(ctx, "generating latency records",
		logger.Int("numRecords", config.NumRecords),
		logger.Int("regions", len(regions)))

	now := time.Now().Unix()
	records := make([]Record, config.NumRecords)
	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during record generation: %w", err)
		}
		records[i] = Record{
			ID:        uuid.NewString(),
			Region:    regions[i%len(regions)],
			Service:   services[randomIndex(len(services))],
			LatencyMS: round2(generateLatency()),
			UptimePct: round2(uptimeMin + getRandomFloat()*uptimeRange),
			Timestamp: now + int64(i),
		}
	}

	runStats.RecordsGenerated = len(records)
	logger.Get().Info(ctx, "generated records successfully", logger.Int("count", len(records)))
	return records, nil
}

// generateLatency draws from a mix of fast, typical, slow and spike traffic.
func generateLatency() float64 {
	switch c := randomIndex(profileDivisor); {
	case c == caseFast:
		return fastMin + getRandomFloat()*fastRange
	case c == caseSpike:
		// Rare outliers well above any sane threshold
		return spikeMin + getRandomFloat()*spikeRange
	case c >= caseSlowLow:
		return slowMin + getRandomFloat()*slowRange
	default:
		return typicalMin + getRandomFloat()*typicalRange
	}
}

// buildBatches splits records into batches, rotating through every payload
// shape, and precomputes the expected metrics of each batch.
func buildBatches(config *Config, records []Record) []Batch {
	size := config.BatchSize
	if size <= 0 {
		size = len(records)
	}

	var batches []Batch
	for start := 0; start < len(records); start += size {
		end := minInt(start+size, len(records))
		chunk := records[start:end]
		shape := Shape(len(batches) % int(shapeCount))

		threshold := config.ThresholdMS
		if shape == ShapeFlat {
			threshold = config.DefaultThresholdMS
		}

		batches = append(batches, Batch{
			ID:       uuid.NewString(),
			Shape:    shape,
			Records:  chunk,
			Payload:  encodePayload(shape, chunk, config.ThresholdMS),
			Expected: stats.Aggregate(groupByRegion(chunk), threshold),
		})
	}
	return batches
}

func encodePayload(shape Shape, records []Record, threshold float64) any {
	switch shape {
	case ShapeGrouped:
		grouped := make(map[string][]Record)
		for _, r := range records {
			grouped[r.Region] = append(grouped[r.Region], r)
		}
		return map[string]any{"regions": grouped, "threshold_ms": threshold}
	case ShapeRegionsList:
		return map[string]any{"regions": records, "threshold_ms": threshold}
	default:
		return records
	}
}

func groupByRegion(records []Record) map[string][]model.Record {
	out := make(map[string][]model.Record)
	for _, r := range records {
		out[r.Region] = append(out[r.Region], model.Record{
			Region:    r.Region,
			LatencyMS: r.LatencyMS,
			Uptime:    r.UptimePct,
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
