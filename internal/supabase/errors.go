package supabase

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrUnavailable reports that the provider could not be reached: a transport
// failure, an elapsed deadline or an open circuit breaker.
var ErrUnavailable = errors.New("supabase unavailable")

// APIError is an error response returned by the provider.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return "supabase: " + e.Code + ": " + e.Message
	}
	return "supabase: " + e.Message
}

// AsRejection reports whether err is a 4xx provider response, i.e. the
// provider understood the request and refused it.
func AsRejection(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
		return apiErr, true
	}
	return nil, false
}

// GoTrue and PostgREST disagree on error shapes; this covers both.
type errorBody struct {
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Message = firstNonEmpty(eb.Msg, eb.ErrorDescription, eb.Message, eb.Error)

		var code string
		if json.Unmarshal(eb.Code, &code) != nil {
			code = ""
		}
		apiErr.Code = firstNonEmpty(eb.ErrorCode, code, eb.Error)
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
