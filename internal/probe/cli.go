package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/vantage/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends log output to both stdout and a file.
// If logFile is empty, a timestamped filename is generated. The returned
// closer releases the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "probe_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`Vantage Probe
=============

Generates synthetic latency records, posts them to /api/latency in batches
using every accepted payload shape, and checks each answer against metrics
computed locally. Finishes with a sanity check of the /api student roster.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -records int
        Number of latency records to generate (default 10000)
  -batch int
        Records per request (default 250)
  -regions string
        Comma separated regions (default "apac,emea,amer")
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -threshold float
        threshold_ms sent with object payloads (default 180)
  -default-threshold float
        Server default_threshold_ms, used for flat-list payloads (default 180)
  -output string
        Also write the records as a fallback dataset file
  -log string
        Log file for probe output (default: probe_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Probe a local server with default settings
  go run ./cmd/probe

  # Heavier run against another host
  go run ./cmd/probe -records 100000 -batch 1000 -workers 16 -url http://localhost:8080

  # Produce a dataset for the server's fallback file
  go run ./cmd/probe -records 500 -output q-vercel-latency.json
`)
}
