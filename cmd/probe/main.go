package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/vantage/internal/domain/stats"
	"github.com/okian/vantage/internal/probe"
)

// Default configuration constants.
const (
	defaultNumRecords   = 10000
	defaultBatchSize    = 250
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL          = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numRecords       = flag.Int("records", defaultNumRecords, "Number of latency records to generate")
		batchSize        = flag.Int("batch", defaultBatchSize, "Records per request")
		regions          = flag.String("regions", strings.Join(probe.DefaultRegions, ","), "Comma separated regions")
		workers          = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout          = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		threshold        = flag.Float64("threshold", stats.DefaultThresholdMS, "threshold_ms sent with object payloads")
		defaultThreshold = flag.Float64("default-threshold", stats.DefaultThresholdMS, "Server default_threshold_ms")
		outputFile       = flag.String("output", "", "Also write the records as a fallback dataset file")
		logFile          = flag.String("log", "", "Log file for probe output (default: probe_log_TIMESTAMP.log)")
		verbose          = flag.Bool("verbose", false, "Enable verbose logging")
		help             = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	closer, err := probe.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	config := &probe.Config{
		BaseURL:            strings.TrimRight(*baseURL, "/"),
		NumRecords:         *numRecords,
		BatchSize:          *batchSize,
		Regions:            splitRegions(*regions),
		Workers:            *workers,
		Timeout:            *timeout,
		ThresholdMS:        *threshold,
		DefaultThresholdMS: *defaultThreshold,
		OutputFile:         *outputFile,
		LogFile:            *logFile,
		Verbose:            *verbose,
	}

	if err := probe.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		cancel()
		stop()
		_ = closer.Close()
		os.Exit(1)
	}
}

func splitRegions(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
