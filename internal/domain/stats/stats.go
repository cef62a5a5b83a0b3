// Package stats summarizes latency records per region.
package stats

import (
	"math"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/okian/vantage/internal/domain/model"
)

// Aggregation constants.
const (
	DefaultThresholdMS = 180.0
	p95                = 95.0
	roundPlaces        = 2
	mantissaBits       = 53
)

// Metrics is the per-region summary returned to clients.
type Metrics struct {
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}

// Aggregate computes one Metrics per region. Regions with no records get
// zeroed metrics; every input key appears in the output.
// A record breaches when its latency is strictly above thresholdMS.
func Aggregate(regions map[string][]model.Record, thresholdMS float64) map[string]Metrics {
	out := make(map[string]Metrics, len(regions))
	for region, records := range regions {
		out[region] = Summarize(records, thresholdMS)
	}
	return out
}

// Summarize computes Metrics for a single region.
func Summarize(records []model.Record, thresholdMS float64) Metrics {
	if len(records) == 0 {
		return Metrics{}
	}

	latencies := make([]float64, len(records))
	uptimes := make([]float64, len(records))
	breaches := 0
	for i, r := range records {
		latencies[i] = r.LatencyMS
		uptimes[i] = r.Uptime
		if r.LatencyMS > thresholdMS {
			breaches++
		}
	}

	return Metrics{
		AvgLatency: Round(Mean(latencies)),
		P95Latency: Round(Percentile(latencies, p95)),
		AvgUptime:  Round(Mean(uptimes)),
		Breaches:   breaches,
	}
}

// Mean returns the arithmetic mean, or 0 for an empty sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percentile returns the p-th percentile (0..100) using linear
// interpolation between the two closest ranks, where the rank of p is
// (n-1)*p/100 over the sorted sample. The input slice is not modified.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p = math.Max(0, math.Min(100, p))
	rank := float64(n-1) * p / 100
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Round rounds to two decimal places, ties to even. The exact binary value
// of v is rounded, so 2.675 (stored as 2.67499...) becomes 2.67.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	d, err := exactDecimal(v)
	if err != nil {
		return 0
	}
	f, _ := d.RoundBank(roundPlaces).Float64()
	return f
}

// exactDecimal expands v into every decimal digit it holds. A float64 with
// binary exponent e has at most mantissaBits-e fractional digits.
func exactDecimal(v float64) (decimal.Decimal, error) {
	_, exp := math.Frexp(v)
	digits := max(0, mantissaBits-exp)
	return decimal.NewFromString(new(big.Float).SetFloat64(v).Text('f', digits))
}

// CountBreaches sums breach counts across regions.
func CountBreaches(metrics map[string]Metrics) int {
	total := 0
	for _, m := range metrics {
		total += m.Breaches
	}
	return total
}
