// Package apierrors defines the proxy's error taxonomy and serializes it
// into each family's own error envelope shape: a small struct carrying
// enough context to report upstream failures without losing their cause.
package apierrors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
)

// Kind classifies a proxy-visible error independent of which family raised
// or will receive it.
type Kind string

const (
	KindInvalidRequest         Kind = "invalid_request"
	KindUnauthorized           Kind = "unauthorized"
	KindNotFound               Kind = "not_found"
	KindRateLimited            Kind = "rate_limited"
	KindUpstreamError          Kind = "upstream_error"
	KindUpstreamTimeout        Kind = "upstream_timeout"
	KindTranslationUnsupported Kind = "translation_unsupported"
	KindInternal               Kind = "internal"
)

// Error is a proxy-level error with enough structure to pick an HTTP status
// and an envelope shape for the client's family.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error whose StatusCode is derived from Kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: statusFor(kind)}
}

// Wrap builds an Error around an upstream cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: statusFor(kind), Cause: cause}
}

func statusFor(kind Kind) int {
	switch kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamError:
		return http.StatusBadGateway
	case KindTranslationUnsupported:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type openAIEnvelope struct {
	Error openAIErrorBody `json:"error"`
}

type openAIErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type anthropicEnvelope struct {
	Type  string              `json:"type"`
	Error anthropicErrorBody `json:"error"`
}

type anthropicErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type geminiEnvelope struct {
	Error geminiErrorBody `json:"error"`
}

type geminiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Encode serializes e into f's error envelope shape.
func (e *Error) Encode(f family.Family) []byte {
	var body []byte
	switch f {
	case family.Anthropic:
		body, _ = json.Marshal(anthropicEnvelope{
			Type: "error",
			Error: anthropicErrorBody{
				Type:    string(e.Kind),
				Message: e.Message,
			},
		})
	case family.Gemini:
		body, _ = json.Marshal(geminiEnvelope{
			Error: geminiErrorBody{
				Code:    e.StatusCode,
				Message: e.Message,
				Status:  googleStatus(e.Kind),
			},
		})
	default:
		body, _ = json.Marshal(openAIEnvelope{
			Error: openAIErrorBody{
				Message: e.Message,
				Type:    string(e.Kind),
				Code:    string(e.Kind),
			},
		})
	}
	return body
}

func googleStatus(kind Kind) string {
	switch kind {
	case KindInvalidRequest:
		return "INVALID_ARGUMENT"
	case KindUnauthorized:
		return "UNAUTHENTICATED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindRateLimited:
		return "RESOURCE_EXHAUSTED"
	case KindUpstreamTimeout:
		return "DEADLINE_EXCEEDED"
	default:
		return "INTERNAL"
	}
}

// WriteHTTP writes e to w as an HTTP response in f's error envelope shape.
func (e *Error) WriteHTTP(w http.ResponseWriter, f family.Family) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_, _ = w.Write(e.Encode(f))
}
