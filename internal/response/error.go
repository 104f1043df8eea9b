package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/GregMSThompson/chart-renderer/internal/errs"
)

// StatusClientClosedRequest is the non-standard status recorded when the
// client disconnected before the response was ready.
const StatusClientClosedRequest = 499

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *responseHandler) WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	}); err != nil {
		h.logger(r).Error("failed to encode error response", "error", err, "status", status, "code", code)
	}
}

func (h *responseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.logger(r)

	switch {
	case errors.Is(err, context.Canceled):
		log.Info("client closed request")
		h.WriteError(w, r, StatusClientClosedRequest, "client_closed_request", "Request cancelled")
		return
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request deadline exceeded")
		h.WriteError(w, r, http.StatusGatewayTimeout, "timeout", "Request timed out")
		return
	}

	switch e := err.(type) {
	case *errs.ThrottledError:
		log.Info("request throttled", "retry_after", e.RetryAfter)
		setRetryAfter(w, e.RetryAfter)
		h.WriteError(w, r, http.StatusTooManyRequests, "rate_limited", e.Message)

	case *errs.QueueFullError:
		log.Warn("render queue full")
		setRetryAfter(w, e.RetryAfter)
		h.WriteError(w, r, http.StatusServiceUnavailable, "service_busy", e.Message)

	case *errs.QueueTimeoutError:
		log.Warn("render queue wait exceeded")
		setRetryAfter(w, e.RetryAfter)
		h.WriteError(w, r, http.StatusServiceUnavailable, "service_busy", e.Message)

	case *errs.NotFoundError:
		log.Warn("resource not found", "error", e.Message)
		h.WriteError(w, r, http.StatusNotFound, "not_found", e.Message)

	case *errs.ValidationError:
		log.Warn("validation failed", "error", e.Message)
		h.WriteError(w, r, http.StatusBadRequest, "invalid_input", e.Message)

	case *errs.StorageError:
		log.Error("cache storage error",
			"operation", e.Operation,
			"error", e.Message)
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An error occurred")

	case *errs.ExternalServiceError:
		level := slog.LevelError
		if e.Transient {
			level = slog.LevelWarn
		}
		log.Log(r.Context(), level, "external service error",
			"service", e.Service,
			"transient", e.Transient,
			"error", e.Message)

		status := http.StatusBadGateway
		if e.Transient {
			status = http.StatusServiceUnavailable
		}
		h.WriteError(w, r, status, "service_unavailable",
			"Service temporarily unavailable")

	default:
		log.Error("unexpected error",
			"error", err,
			"type", fmt.Sprintf("%T", err))
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An unexpected error occurred")
	}
}

// setRetryAfter writes d as whole seconds, rounding up, never below one.
func setRetryAfter(w http.ResponseWriter, d time.Duration) {
	secs := int(math.Ceil(d.Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
}
