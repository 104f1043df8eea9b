package response

import (
	"log/slog"
	"net/http"

	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

// ResponseHandler writes every response the chart API sends: JSON envelopes
// for state and cache admin, PNG bodies for charts, and the error mapping.
type ResponseHandler interface {
	WriteSuccess(w http.ResponseWriter, r *http.Request, status int, data any)
	WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string)
	WriteImage(w http.ResponseWriter, r *http.Request, img dto.ChartImage)
	HandleError(w http.ResponseWriter, r *http.Request, err error)
}

type responseHandler struct {
	log *slog.Logger
}

// New returns a ResponseHandler. log is used for requests that carry no
// request-scoped logger.
func New(log *slog.Logger) *responseHandler {
	return &responseHandler{log: log}
}

func (h *responseHandler) logger(r *http.Request) *slog.Logger {
	return logger.FromContextOr(r.Context(), h.log)
}
