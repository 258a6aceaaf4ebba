package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/generate"
	"github.com/sells-group/meetingintel/internal/identity"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest    = "bad_request"
	CodeInvalidInput  = "invalid_input"
	CodeUnauthorized  = "unauthorized"
	CodeNotFound      = "not_found"
	CodeQuotaExceeded = "quota_exceeded"
	CodeUpstream      = "upstream_error"
	CodeTimeout       = "timeout"
	CodeUnavailable   = "unavailable"
	CodeInternal      = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// handleError maps pipeline errors to status codes. Internal details are
// logged, never returned.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := zap.L().With(zap.String("request_id", chiMiddleware.GetReqID(r.Context())))

	var te *generate.TransportError
	switch {
	case identity.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, CodeInvalidInput, inputMessage(err))

	case isQuota(err):
		qe, _ := generate.AsQuotaExceeded(err)
		secs := qe.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Code:              CodeQuotaExceeded,
			Message:           "generation quota exceeded, retry later",
			RetryAfterSeconds: secs,
		})

	case errors.As(err, &te):
		log.Warn("api: upstream failure", zap.String("provider", te.Provider), zap.Error(err))
		writeError(w, http.StatusBadGateway, CodeUpstream, "generation provider unavailable")

	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, CodeTimeout, "request timed out")

	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; nothing useful can be written.
		log.Debug("api: request cancelled")

	case errors.Is(err, context.Canceled):
		log.Warn("api: work cancelled under a live request", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "request aborted, retry")

	default:
		log.Error("api: request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func isQuota(err error) bool {
	_, ok := generate.AsQuotaExceeded(err)
	return ok
}

// inputMessage returns the sentinel text without the package prefix.
func inputMessage(err error) string {
	for _, target := range []error{
		identity.ErrEmptyInput,
		identity.ErrInvalidEmail,
		identity.ErrMissingName,
		identity.ErrMissingCompany,
		identity.ErrUnsupportedSocial,
	} {
		if errors.Is(err, target) {
			return strings.TrimPrefix(target.Error(), "identity: ")
		}
	}
	return "invalid input"
}
