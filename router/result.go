package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Response is the terminal response of an invocation.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
}

// FunctionError is returned by block bodies to end the invocation with a
// specific status. Message is sent as is when it is a string and as JSON
// otherwise.
type FunctionError struct {
	StatusCode int
	Message    any
}

// NewFunctionError is a convenience constructor for FunctionError.
func NewFunctionError(statusCode int, message any) *FunctionError {
	return &FunctionError{StatusCode: statusCode, Message: message}
}

func (e *FunctionError) Error() string {
	if s, ok := e.Message.(string); ok {
		return fmt.Sprintf("function error %d: %s", e.StatusCode, s)
	}
	return fmt.Sprintf("function error %d: %v", e.StatusCode, e.Message)
}

func (e *FunctionError) response() Response {
	return Response{StatusCode: e.StatusCode, Body: encodeBody(e.Message)}
}

// errorResponse is the generic server error response.
func errorResponse(err error) Response {
	body, _ := json.Marshal(map[string]string{"error": err.Error()})
	return Response{StatusCode: http.StatusInternalServerError, Body: string(body)}
}

// results accumulates response payloads. It is safe for concurrent use; the
// order of concurrently added payloads is not defined.
type results struct {
	mu         sync.Mutex
	payloads   []any
	statusCode int
}

// add records a payload. The first non-zero status code wins.
func (r *results) add(payload any, statusCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	if r.statusCode == 0 && statusCode != 0 {
		r.statusCode = statusCode
	}
}

// value is nil, the single payload, or all payloads as a list.
func (r *results) value() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch len(r.payloads) {
	case 0:
		return nil
	case 1:
		return r.payloads[0]
	default:
		return append([]any(nil), r.payloads...)
	}
}

func (r *results) response() Response {
	resp := Response{StatusCode: http.StatusOK}
	r.mu.Lock()
	if r.statusCode != 0 {
		resp.StatusCode = r.statusCode
	}
	r.mu.Unlock()
	resp.Body = encodeBody(r.value())
	return resp
}

func encodeBody(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
