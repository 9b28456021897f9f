package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/logging"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError maps err to the spec.md §7 status code via the apperrors
// taxonomy and writes {"error": "<message>"}; a *apperrors.ValidationError
// with recorded fields also carries a "fieldErrors" map.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperrors.Kind(err)
	status := apperrors.HTTPStatus(kind)

	var vErr *apperrors.ValidationError
	if errors.As(err, &vErr) && vErr.HasErrors() {
		r.loggerFor(ctx).WarnContext(ctx, "request validation failed", "fields", vErr.FieldErrors)
		r.writeJSON(ctx, w, status, validationErrorResponse{Error: "validation failed", FieldErrors: vErr.FieldErrors})
		return
	}

	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", kind)
	} else {
		r.loggerFor(ctx).InfoContext(ctx, "request rejected", "error", err, "error_kind", kind)
	}
	r.writeJSON(ctx, w, status, errorResponse{Error: err.Error()})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type validationErrorResponse struct {
	Error       string            `json:"error"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}
