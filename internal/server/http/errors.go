package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/calorie-tracker/internal/errs"
)

const msgUnknown = "unknown error"

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// statusOf maps sentinel errors to an HTTP status and a client-safe message.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		var ie *errs.InputError
		if errors.As(err, &ie) {
			return http.StatusBadRequest, ie.Msg
		}
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "too many attempts, try again later"
	default:
		return http.StatusInternalServerError, msgUnknown
	}
}

// writeError writes the JSON error for err. A non-empty conflict message
// replaces the generic text on 409. Server-side failures are logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, conflict ...string) {
	code, msg := statusOf(err)
	if code == http.StatusConflict && len(conflict) > 0 && conflict[0] != "" {
		msg = conflict[0]
	}
	if code >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromCtx(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, code, errorBody{Error: msg})
}
