package probe

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	ProgressInterval     = time.Second
)

// Comparison tolerance for metrics decoded from JSON.
const metricTolerance = 1e-9

// DefaultRegions are used when no regions are configured.
var DefaultRegions = []string{"apac", "emea", "amer"} //nolint:gochecknoglobals // read-only defaults
