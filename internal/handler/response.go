package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/darelhouma/api/internal/domain"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Message string              `json:"message,omitempty"`
	Path    string              `json:"path,omitempty"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// HTTPErrorHandler is the global error handler for echo.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := mapError(err)
	if status == http.StatusNotFound && body.Code == "route_not_found" {
		body.Path = c.Request().URL.Path
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Error("failed to send error response", "error", err)
	}
}

func mapError(err error) (int, ErrorBody) {
	// Handle echo's own HTTP errors (404, 405, etc.)
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		if echoErr.Code == http.StatusNotFound {
			return http.StatusNotFound, ErrorBody{Error: "route not found", Code: "route_not_found"}
		}
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, ErrorBody{Error: msg, Code: codeFor(echoErr.Code)}
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, ErrorBody{
			Error:   "validation failed",
			Code:    "validation_error",
			Details: validationErr.Fields,
		}
	}

	if errors.Is(err, domain.ErrUpstream) {
		return http.StatusInternalServerError, ErrorBody{
			Error: "authentication service unavailable",
			Code:  "upstream_error",
		}
	}

	var status int
	var body ErrorBody
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, body = http.StatusNotFound, ErrorBody{Error: "resource not found", Code: "not_found"}
	case errors.Is(err, domain.ErrUnauthorized):
		status, body = http.StatusUnauthorized, ErrorBody{Error: "unauthorized", Code: "unauthorized"}
	case errors.Is(err, domain.ErrForbidden):
		status, body = http.StatusForbidden, ErrorBody{Error: "forbidden", Code: "forbidden"}
	case errors.Is(err, domain.ErrInvalidInput):
		status, body = http.StatusBadRequest, ErrorBody{Error: "invalid input", Code: "invalid_input"}
	case errors.Is(err, domain.ErrConflict):
		status, body = http.StatusConflict, ErrorBody{Error: "resource conflict", Code: "conflict"}
	case errors.Is(err, domain.ErrInternal):
		status, body = http.StatusInternalServerError, ErrorBody{Error: "internal server error", Code: "internal_error"}
	default:
		return http.StatusInternalServerError, ErrorBody{
			Error:   "internal server error",
			Code:    "internal_error",
			Message: err.Error(),
		}
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		body.Error = domainErr.Message
	}
	return status, body
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "error"
}
