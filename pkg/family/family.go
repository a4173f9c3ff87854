// Package family identifies the three supported wire protocol families and
// defines the Translator contract each one implements.
package family

import (
	"io"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
)

// Family identifies one of the three supported upstream/downstream wire
// protocols.
type Family string

const (
	OpenAI    Family = "openai"
	Anthropic Family = "anthropic"
	Gemini    Family = "gemini"
)

// String implements fmt.Stringer.
func (f Family) String() string { return string(f) }

// Valid reports whether f is one of the known families.
func (f Family) Valid() bool {
	switch f {
	case OpenAI, Anthropic, Gemini:
		return true
	}
	return false
}

// Translator converts between a family's wire format and the neutral model,
// in both directions. A channel's family determines which Translator the
// dispatcher uses to speak to the upstream; the ingress classifier's family
// determines which Translator the router uses to speak to the client. The
// same Translator instance serves both roles.
type Translator interface {
	Family() Family

	// DecodeRequest parses a wire-format request body into the neutral model.
	DecodeRequest(body []byte) (*neutral.Request, error)

	// EncodeRequest serializes a neutral request into this family's wire
	// format, ready to send to an upstream of this family.
	EncodeRequest(req *neutral.Request) ([]byte, error)

	// DecodeResponse parses a non-streaming wire response body into the
	// neutral model.
	DecodeResponse(body []byte) (*neutral.Response, error)

	// EncodeResponse serializes a neutral response into this family's
	// non-streaming wire response shape.
	EncodeResponse(resp *neutral.Response) ([]byte, error)

	// DecodeStream adapts an upstream SSE body of this family into a
	// sequence of neutral stream events, delivered via the yield callback.
	// DecodeStream returns when the upstream stream ends or yield returns
	// an error, whichever comes first.
	DecodeStream(r io.Reader, yield func(neutral.StreamEvent) error) error

	// NewStreamEncoder returns a fresh encoder for one outbound stream. A
	// new encoder must be created per stream: Gemini's encoder buffers
	// tool-call arguments across events (Gemini has no incremental
	// function-argument delta), so sharing one across concurrent streams
	// would interleave unrelated calls' arguments.
	NewStreamEncoder() StreamEncoder

	// AuthHeader returns the header name and value to set on an outbound
	// request carrying credential for a channel of this family.
	AuthHeader(credential string) (name, value string)

	// ModelListPath returns the upstream path used to list models.
	ModelListPath() string

	// EncodeModelList reshapes a set of model IDs into this family's
	// model-list response body.
	EncodeModelList(ids []string) ([]byte, error)
}

// StreamEncoder writes neutral stream events to a client in one family's
// wire shape, for the lifetime of a single outbound stream.
type StreamEncoder interface {
	Encode(w io.Writer, ev neutral.StreamEvent) error
}
