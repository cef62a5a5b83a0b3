package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL            string        // Base URL of the service
	NumRecords         int           // Number of latency records to generate
	BatchSize          int           // Records per POST /api/latency request
	Regions            []string      // Regions records are spread across
	Workers            int           // Number of concurrent workers
	Timeout            time.Duration // HTTP request timeout
	ThresholdMS        float64       // threshold_ms sent with object payloads
	DefaultThresholdMS float64       // Server default applied to flat-list payloads
	OutputFile         string        // Optional dataset file written from the generated records
	LogFile            string        // Log file for probe output
	Verbose            bool          // Enable verbose logging
}

// Record is one generated latency sample in the dataset file format.
type Record struct {
	ID        string  `json:"id"`
	Region    string  `json:"region"`
	Service   string  `json:"service"`
	LatencyMS float64 `json:"latency_ms"`
	UptimePct float64 `json:"uptime_pct"`
	Timestamp int64   `json:"timestamp"`
}

// RunStats holds probe statistics.
type RunStats struct {
	RecordsGenerated  int
	BatchesSubmitted  int
	BatchesVerified   int
	BatchesMismatched int
	BatchesFailed     int
	StudentsListed    int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
