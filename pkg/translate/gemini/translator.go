// Package gemini translates between the Gemini generateContent wire format
// (family F-G) and the neutral model.
package gemini

import (
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
)

// Translator implements family.Translator for the Gemini generateContent API.
type Translator struct{}

// New returns a Translator for the Gemini family.
func New() *Translator {
	return &Translator{}
}

// Family implements family.Translator.
func (t *Translator) Family() family.Family { return family.Gemini }

// AuthHeader implements family.Translator.
func (t *Translator) AuthHeader(credential string) (string, string) {
	return "x-goog-api-key", credential
}

// ModelListPath implements family.Translator.
func (t *Translator) ModelListPath() string {
	return "/v1beta/models"
}
