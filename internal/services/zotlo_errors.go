package services

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ProviderError is returned by every ZotloService call that did not succeed.
// Payload is always masked. HTTPStatus is 0 when the provider was unreachable.
type ProviderError struct {
	Operation  string
	Payload    map[string]any
	Response   json.RawMessage
	HTTPStatus int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("zotlo %s failed: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("zotlo %s failed with status %d: %s", e.Operation, e.HTTPStatus, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StatusCode is the HTTP status a caller should answer with.
func (e *ProviderError) StatusCode() int {
	if e.HTTPStatus >= 400 && e.HTTPStatus <= 599 {
		return e.HTTPStatus
	}
	return http.StatusBadGateway
}

// Details is the client-facing error payload.
func (e *ProviderError) Details() map[string]any {
	details := map[string]any{
		"operation": e.Operation,
		"payload":   e.Payload,
	}
	if len(e.Response) > 0 && json.Valid(e.Response) {
		details["response"] = e.Response
	}
	return details
}
