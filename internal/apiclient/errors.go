package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the billing API
type APIError struct {
	StatusCode int
	// Message is the server supplied message, empty when the body carried none.
	Message string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return fmt.Sprintf("api error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// AsAPIError unwraps err into an APIError, or returns nil
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsUnauthorized reports whether the server rejected the session
func IsUnauthorized(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}

// MessageOr maps any error to the text shown next to the form: the server's message
// when it sent one, the fallback otherwise.
func MessageOr(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if apiErr := AsAPIError(err); apiErr != nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: msg}
		}
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: msg}
		}
	}
	return &APIError{StatusCode: resp.StatusCode}
}
