// Package ingress classifies an inbound request by path and method into a
// wire family and operation, then routes it through channel resolution,
// translation, dispatch, and back.
package ingress

import (
	"strings"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
)

// Operation identifies what an inbound request asked the proxy to do.
type Operation string

const (
	OpChatCompletion Operation = "chat_completion"
	OpListModels     Operation = "list_models"
)

// Classify inspects a request path (with the leading {customKey} segment
// already stripped) and reports which family's wire shape a chat-completion
// request is written in. Model listing has no family-distinguishing path
// (every family exposes some variant of GET .../models) so it is not
// classified here: the router reshapes a list response using the resolved
// channel's own family instead.
func Classify(path string) (family.Family, Operation, bool) {
	switch {
	case path == "/v1/chat/completions":
		return family.OpenAI, OpChatCompletion, true
	case path == "/v1/messages":
		return family.Anthropic, OpChatCompletion, true
	case strings.HasPrefix(path, "/v1beta/models/") && (strings.HasSuffix(path, ":generateContent") || strings.HasSuffix(path, ":streamGenerateContent")):
		return family.Gemini, OpChatCompletion, true
	default:
		return "", "", false
	}
}

// IsModelListPath reports whether path names a model-listing endpoint for
// any known family.
func IsModelListPath(path string) bool {
	switch path {
	case "/v1/models", "/v1beta/models":
		return true
	}
	return false
}

// GeminiModelFromPath extracts the {model} segment from a Gemini
// generateContent-style path, and whether the request asked for the
// streaming variant.
func GeminiModelFromPath(path string) (model string, streaming bool) {
	const prefix = "/v1beta/models/"
	rest := strings.TrimPrefix(path, prefix)
	if strings.HasSuffix(rest, ":streamGenerateContent") {
		return strings.TrimSuffix(rest, ":streamGenerateContent"), true
	}
	return strings.TrimSuffix(rest, ":generateContent"), false
}
