// Package anthropic translates between the Anthropic /v1/messages wire
// format (family F-A) and the neutral model.
package anthropic

import (
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
)

// DefaultMaxTokens is the max_tokens value sent upstream when a request
// names none of its own.
const DefaultMaxTokens = 32000

// Translator implements family.Translator for the Anthropic messages API.
type Translator struct {
	maxTokens int
}

// New returns a Translator for the Anthropic family using DefaultMaxTokens.
func New() *Translator {
	return NewWithMaxTokens(DefaultMaxTokens)
}

// NewWithMaxTokens returns a Translator that defaults max_tokens to
// maxTokens for requests that don't specify their own.
func NewWithMaxTokens(maxTokens int) *Translator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Translator{maxTokens: maxTokens}
}

// Family implements family.Translator.
func (t *Translator) Family() family.Family { return family.Anthropic }

// AuthHeader implements family.Translator.
func (t *Translator) AuthHeader(credential string) (string, string) {
	return "x-api-key", credential
}

// ModelListPath implements family.Translator.
func (t *Translator) ModelListPath() string {
	return "/v1/models"
}
