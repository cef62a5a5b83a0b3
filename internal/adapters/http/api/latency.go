package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/okian/vantage/internal/adapters/dataset"
	"github.com/okian/vantage/internal/domain/normalize"
	"github.com/okian/vantage/pkg/logger"
)

// Client-facing messages for latency failures.
const (
	msgFallbackMissing = "No JSON body provided and fallback file not found"
	msgFallbackRead    = "Failed to read fallback JSON file"
	msgUnexpectedShape = "Unexpected JSON structure. Expecting a list or object with 'regions' key."
	msgBodyTooLarge    = "Request body too large"
)

// LatencyHandler handles latency aggregation requests.
type LatencyHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewLatencyHandler creates a new latency handler.
func NewLatencyHandler(deps Dependencies, maxBodyBytes int64) *LatencyHandler {
	return &LatencyHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandlePostLatency handles POST /api/latency requests.
func (h *LatencyHandler) HandlePostLatency(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_latency"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, op, http.MethodPost, http.MethodOptions)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Get().Warn(r.Context(), "latency body rejected", logger.Error(WrapKind(op, ErrPayloadTooLarge, err)))
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		// A truncated body is treated like an absent one.
		body = nil
	}

	out, err := h.deps.Latency(r.Context(), body)
	if err != nil {
		status, msg := latencyStatus(err)
		kind := ErrBadRequest
		if status >= http.StatusInternalServerError {
			kind = ErrInternal
		}
		logger.Get().Warn(r.Context(), "latency request failed",
			logger.Int("status", status),
			logger.Error(WrapKind(op, kind, err)),
		)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func latencyStatus(err error) (int, string) {
	switch {
	case errors.Is(err, dataset.ErrNotFound):
		return http.StatusBadRequest, msgFallbackMissing
	case errors.Is(err, dataset.ErrRead):
		return http.StatusInternalServerError, msgFallbackRead
	case errors.Is(err, normalize.ErrUnexpectedShape), errors.Is(err, normalize.ErrMalformedJSON):
		return http.StatusBadRequest, msgUnexpectedShape
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}
