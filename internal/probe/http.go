package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vantage/internal/domain/stats"
	"github.com/okian/vantage/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body, tagging it with requestID.
func (c *HTTPClient) Post(ctx context.Context, url, requestID string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	return c.client.Do(req)
}

// getJSON fetches url and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// batchOutcome classifies the result of one submitted batch.
type batchOutcome int

const (
	outcomeVerified batchOutcome = iota
	outcomeMismatch
	outcomeFailed
)

// submitBatches posts batches concurrently using a worker pool and verifies
// every answer against the precomputed metrics.
func submitBatches(ctx context.Context, config *Config, batches []Batch, runStats *RunStats) error {
	log := logger.Get().Named("probe")
	log.Info(ctx, "submitting batches",
		logger.Int("batches", len(batches)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/latency"

	var (
		submitted  int64
		verified   int64
		mismatched int64
		failed     int64
	)

	var (
		reportMu   sync.Mutex
		lastReport time.Time
	)

	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}
	batchChan := make(chan Batch, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for batch := range batchChan {
				if ctx.Err() != nil {
					return
				}
				switch submitSingleBatch(ctx, client, url, batch) {
				case outcomeVerified:
					atomic.AddInt64(&verified, 1)
				case outcomeMismatch:
					atomic.AddInt64(&mismatched, 1)
				case outcomeFailed:
					atomic.AddInt64(&failed, 1)
				}
				total := atomic.AddInt64(&submitted, 1)

				reportMu.Lock()
				if time.Since(lastReport) >= ProgressInterval {
					lastReport = time.Now()
					if config.Verbose {
						log.Info(ctx, "progress",
							logger.Int("submitted", int(total)),
							logger.Int("total", len(batches)),
							logger.Int("mismatched", int(atomic.LoadInt64(&mismatched))),
							logger.Int("failed", int(atomic.LoadInt64(&failed))))
					}
				}
				reportMu.Unlock()
			}
		}()
	}

	go func() {
		defer close(batchChan)
		for _, batch := range batches {
			select {
			case <-ctx.Done():
				return
			case batchChan <- batch:
			}
		}
	}()

	wg.Wait()

	runStats.BatchesSubmitted = int(atomic.LoadInt64(&submitted))
	runStats.BatchesVerified = int(atomic.LoadInt64(&verified))
	runStats.BatchesMismatched = int(atomic.LoadInt64(&mismatched))
	runStats.BatchesFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "batch submission completed",
		logger.Int("verified", runStats.BatchesVerified),
		logger.Int("mismatched", runStats.BatchesMismatched),
		logger.Int("failed", runStats.BatchesFailed))

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}

// submitSingleBatch posts one batch and compares the answer with its expectation.
func submitSingleBatch(ctx context.Context, client *HTTPClient, url string, batch Batch) batchOutcome {
	log := logger.Get().Named("probe")
	reqCtx := logger.WithRequestID(ctx, batch.ID)

	resp, err := client.Post(ctx, url, batch.ID, batch.Payload)
	if err != nil {
		log.Warn(reqCtx, "batch request failed", logger.Error(err))
		return outcomeFailed
	}
	body, err := readResponseBody(resp)
	if err != nil {
		log.Warn(reqCtx, "batch response unreadable", logger.Error(err))
		return outcomeFailed
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn(reqCtx, "batch rejected",
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(bytes.TrimSpace(body))))
		return outcomeFailed
	}

	var got map[string]stats.Metrics
	if err := json.Unmarshal(body, &got); err != nil {
		log.Warn(reqCtx, "batch response malformed", logger.Error(err))
		return outcomeFailed
	}
	if err := compareMetrics(batch.Expected, got); err != nil {
		log.Warn(reqCtx, "batch metrics mismatch",
			logger.String("shape", batch.Shape.String()),
			logger.Error(err))
		return outcomeMismatch
	}
	return outcomeVerified
}
