package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/gophtodo/internal/apperr"
)

type errorBody struct {
	Error string `json:"error"`
}

// Status maps an error kind to the HTTP status reported to the client.
// Unclassified errors are server errors.
func Status(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrBlobStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Responder turns errors into JSON responses and logs each one once.
type Responder struct {
	logger *slog.Logger
	// exposeInternal keeps 5xx error details in the response body.
	exposeInternal bool
}

// NewResponder creates a Responder. Server error details reach the client
// only when exposeInternal is set.
func NewResponder(logger *slog.Logger, exposeInternal bool) Responder {
	return Responder{logger: logger, exposeInternal: exposeInternal}
}

// Error builds the response for err.
func (r Responder) Error(ctx context.Context, req events.APIGatewayProxyRequest, err error) events.APIGatewayProxyResponse {
	status := Status(err)
	msg := err.Error()

	attrs := []any{"method", req.HTTPMethod, "path", req.Path, "status", status, "error", msg}
	if status >= http.StatusInternalServerError {
		r.logger.ErrorContext(ctx, "request failed", attrs...)
		if !r.exposeInternal {
			msg = http.StatusText(status)
		}
	} else {
		r.logger.WarnContext(ctx, "request rejected", attrs...)
	}
	return jsonResponse(status, errorBody{Error: msg})
}
