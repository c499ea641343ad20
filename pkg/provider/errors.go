package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AuthError indicates that the backend rejected the credential. Retrying
// without new credentials will not help.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("authorization failed: [%d] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("authorization failed: %s", e.Message)
}

// RateLimitError indicates backend throttling (a 429-class response).
// Recoverable after backoff.
type RateLimitError struct {
	Status  int
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: [%d] %s", e.Status, e.Message)
}

// ProviderError covers transport failures, non-2xx responses and malformed
// payloads. Status is zero when the failure happened before a response
// arrived.
type ProviderError struct {
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("provider error: [%d] %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Err)
	default:
		return fmt.Sprintf("provider error: %s", e.Message)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// apiError is the error payload GigaChat returns on 401 responses.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// authErrorFromBody builds an AuthError from a 401 response body, falling
// back to the raw body when it is not the documented JSON shape.
func authErrorFromBody(body []byte) *AuthError {
	var payload apiError
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &AuthError{Code: payload.Code, Message: payload.Message}
	}
	return &AuthError{Message: strings.TrimSpace(string(body))}
}

// statusError maps a non-2xx response to the error taxonomy shared by both
// GigaChat endpoints.
func statusError(status int, body []byte) error {
	reason := strings.TrimSpace(string(body))
	switch status {
	case 401:
		return authErrorFromBody(body)
	case 429:
		return &RateLimitError{Status: status, Message: "too many requests"}
	case 404:
		return &ProviderError{Status: status, Message: "no such model"}
	case 422:
		var payload apiError
		if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
			reason = payload.Message
		}
		return &ProviderError{Status: status, Message: "validation error: " + reason}
	default:
		return &ProviderError{Status: status, Message: reason}
	}
}
