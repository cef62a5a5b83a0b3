// Package probe drives a running vantage server with synthetic latency
// data and verifies its answers.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/vantage/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrVerification reports that at least one batch did not match.
var ErrVerification = errors.New("probe verification failed")

// Run executes the complete probe.
func Run(ctx context.Context, config *Config) error {
	runStats := &RunStats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting vantage probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("records", config.NumRecords),
		logger.Int("batchSize", config.BatchSize),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Float64("thresholdMS", config.ThresholdMS),
		logger.String("logFile", config.LogFile),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate records
	records, err := generateRecords(ctx, config, runStats)
	if err != nil {
		return fmt.Errorf("record generation failed: %w", err)
	}

	// Step 3: Optionally write them out as a fallback dataset
	if config.OutputFile != "" {
		if err := saveDataset(ctx, config.OutputFile, records); err != nil {
			logger.Get().Warn(ctx, "failed to save dataset", logger.Error(err))
		}
	}

	// Step 4: Submit and verify batches concurrently
	batches := buildBatches(config, records)
	if err := submitBatches(ctx, config, batches, runStats); err != nil {
		return fmt.Errorf("batch submission failed: %w", err)
	}

	// Step 5: Check the roster endpoint
	if err := verifyStudents(ctx, config, runStats); err != nil {
		return fmt.Errorf("student verification failed: %w", err)
	}

	runStats.EndTime = time.Now()
	runStats.Duration = runStats.EndTime.Sub(runStats.StartTime)

	displayFinalStats(runStats)

	if runStats.BatchesMismatched > 0 || runStats.BatchesFailed > 0 {
		return fmt.Errorf("%w: %d mismatched, %d failed of %d batches", ErrVerification,
			runStats.BatchesMismatched, runStats.BatchesFailed, runStats.BatchesSubmitted)
	}

	logger.Get().Info(ctx, "probe completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveDataset writes records as a JSON array usable as the server's
// fallback dataset.
func saveDataset(ctx context.Context, filename string, records []Record) error {
	if len(records) == 0 {
		return errors.New("no records to save")
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "dataset saved to file",
		logger.String("filename", filename),
		logger.Int("records", len(records)))
	return nil
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(runStats *RunStats) {
	var verifiedRate, batchesPerSecond float64

	if runStats.BatchesSubmitted > 0 {
		verifiedRate = float64(runStats.BatchesVerified) / float64(runStats.BatchesSubmitted) * PercentageMultiplier
	}

	if runStats.Duration > 0 {
		batchesPerSecond = float64(runStats.BatchesSubmitted) / runStats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("recordsGenerated", runStats.RecordsGenerated),
		logger.Int("batchesSubmitted", runStats.BatchesSubmitted),
		logger.Int("batchesVerified", runStats.BatchesVerified),
		logger.Int("batchesMismatched", runStats.BatchesMismatched),
		logger.Int("batchesFailed", runStats.BatchesFailed),
		logger.Int("studentsListed", runStats.StudentsListed),
		logger.String("duration", runStats.Duration.String()),
		logger.Float64("verifiedRate", verifiedRate),
		logger.Float64("batchesPerSecond", batchesPerSecond))
}
