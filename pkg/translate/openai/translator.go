// Package openai translates between the OpenAI chat-completions wire format
// (family F-O) and the neutral model.
package openai

import (
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
)

// DefaultReasoningMaxTokens is the max_completion_tokens value sent upstream
// when a request carries reasoning and names no max-tokens of its own.
const DefaultReasoningMaxTokens = 32000

// Translator implements family.Translator for the OpenAI chat-completions
// wire format.
type Translator struct {
	reasoningMaxTokens int
}

// New returns a Translator for the OpenAI family using
// DefaultReasoningMaxTokens.
func New() *Translator {
	return NewWithReasoningMaxTokens(DefaultReasoningMaxTokens)
}

// NewWithReasoningMaxTokens returns a Translator whose reasoning requests
// default max_completion_tokens to reasoningMaxTokens when the client sets
// none of its own.
func NewWithReasoningMaxTokens(reasoningMaxTokens int) *Translator {
	if reasoningMaxTokens <= 0 {
		reasoningMaxTokens = DefaultReasoningMaxTokens
	}
	return &Translator{reasoningMaxTokens: reasoningMaxTokens}
}

// Family implements family.Translator.
func (t *Translator) Family() family.Family { return family.OpenAI }

// AuthHeader implements family.Translator.
func (t *Translator) AuthHeader(credential string) (string, string) {
	return "Authorization", "Bearer " + credential
}

// ModelListPath implements family.Translator.
func (t *Translator) ModelListPath() string {
	return "/v1/models"
}
