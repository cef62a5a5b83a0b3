// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/vantage/internal/adapters/dataset"
	"github.com/okian/vantage/internal/adapters/roster"
	"github.com/okian/vantage/internal/domain/model"
	"github.com/okian/vantage/internal/domain/normalize"
	"github.com/okian/vantage/internal/domain/stats"
	"github.com/okian/vantage/pkg/logger"
	"github.com/okian/vantage/pkg/metrics"
)

// Payload sources reported to metrics and logs.
const (
	SourceBody     = "body"
	SourceFallback = "fallback"
)

// Service answers latency and roster queries.
type Service struct {
	mu sync.RWMutex

	// Core components
	directory roster.Store
	fallback  dataset.Source

	// Configuration
	rosterPath       string
	fallbackPath     string
	defaultThreshold float64

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRosterPath sets the student roster file read by Start.
func WithRosterPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.rosterPath = path
		}
	}
}

// WithFallbackPath sets the dataset file used for empty latency requests.
func WithFallbackPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.fallbackPath = path
		}
	}
}

// WithFallbackSource replaces the file-backed fallback dataset.
func WithFallbackSource(src dataset.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.fallback = src
		}
	}
}

// WithRoster installs a preloaded directory; Start will not read a file.
func WithRoster(store roster.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.directory = store
		}
	}
}

// WithDefaultThreshold sets the breach threshold used when a payload has none.
func WithDefaultThreshold(ms float64) Option {
	return func(s *Service) {
		if ms > 0 {
			s.defaultThreshold = ms
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		rosterPath:       "q-fastapi.csv",
		fallbackPath:     dataset.DefaultFile,
		defaultThreshold: stats.DefaultThresholdMS,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.fallback == nil {
		s.fallback = dataset.NewFileSource(s.fallbackPath)
	}
	return s
}

// Start loads the roster. A missing roster file leaves the directory empty;
// a file that cannot be parsed fails start-up.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.directory == nil {
		dir, err := roster.Load(ctx, s.rosterPath)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		if dir.Count(ctx) == 0 {
			s.logger.Warn(ctx, "roster is empty or missing", logger.String("path", s.rosterPath))
		}
		s.directory = dir
		metrics.UpdateRosterSize(dir.Count(ctx), dir.LoadedAt())
	} else {
		metrics.UpdateRosterSize(s.directory.Count(ctx), time.Now())
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "vantage service started",
		logger.Int("students", s.directory.Count(ctx)),
		logger.String("rosterPath", s.rosterPath),
		logger.String("fallbackPath", s.fallbackPath),
		logger.Float64("defaultThresholdMS", s.defaultThreshold),
	)
	return nil
}

// Stop marks the service stopped. The roster stays readable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "vantage service stopped")
}

// Latency normalizes body (or the fallback dataset when body is absent) and
// returns per-region metrics. Errors carry the kinds of the normalize and
// dataset packages.
func (s *Service) Latency(ctx context.Context, body []byte) (map[string]stats.Metrics, error) {
	start := time.Now()
	source := SourceBody

	raw := body
	if normalize.IsEmpty(body) {
		source = SourceFallback
		data, err := s.fallback.Load(ctx)
		if err != nil {
			outcome := "error"
			if errors.Is(err, dataset.ErrNotFound) {
				outcome = "missing"
			}
			metrics.RecordFallbackLoad(outcome)
			s.log().Warn(ctx, "fallback dataset unavailable", logger.Error(err))
			return nil, err
		}
		metrics.RecordFallbackLoad("ok")
		raw = data
	}

	req, err := normalize.Payload(raw, s.defaultThreshold)
	if err != nil {
		if source == SourceFallback && errors.Is(err, normalize.ErrMalformedJSON) {
			// An unparseable bundled file is a server-side read failure.
			return nil, fmt.Errorf("%w: %w", dataset.ErrRead, err)
		}
		return nil, err
	}

	out := stats.Aggregate(req.Regions, req.ThresholdMS)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordAggregation(source, len(out), req.Records(), stats.CountBreaches(out), elapsed)

	s.log().Debug(ctx, "latency aggregated",
		logger.String("source", source),
		logger.Int("regions", len(out)),
		logger.Int("records", req.Records()),
		logger.Float64("thresholdMS", req.ThresholdMS),
	)
	return out, nil
}

// Students returns the roster, filtered to classes when any are given.
func (s *Service) Students(ctx context.Context, classes []string) []model.Student {
	s.mu.RLock()
	dir := s.directory
	s.mu.RUnlock()

	if dir == nil {
		return []model.Student{}
	}
	metrics.RecordRosterQuery(len(classes) > 0)
	if len(classes) == 0 {
		return dir.All(ctx)
	}
	return dir.ByClass(ctx, classes)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := map[string]interface{}{
		"started":            s.started,
		"rosterPath":         s.rosterPath,
		"fallbackPath":       s.fallbackPath,
		"defaultThresholdMS": s.defaultThreshold,
	}
	if s.directory != nil {
		st["students"] = s.directory.Count(context.Background())
	}
	if s.started {
		st["uptimeSeconds"] = time.Since(s.startedAt).Seconds()
	}
	return st
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Get()
	}
	return s.logger
}
