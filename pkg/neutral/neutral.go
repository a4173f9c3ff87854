// Package neutral defines the intermediate wire model that every family
// translator reads from and writes to. A request or response never moves
// directly between two families; it always passes through these types.
package neutral

// Role identifies who produced a Turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentPart is one piece of a Turn's content. The concrete type is one of
// TextPart, ImagePart, ToolCallPart, ToolResultPart, or ThinkingPart.
type ContentPart interface {
	contentPart()
}

// TextPart is plain text content.
type TextPart struct {
	Text string
}

func (TextPart) contentPart() {}

// ImagePart is inline image bytes or a remote image URL, never both.
type ImagePart struct {
	MimeType string
	Data     []byte
	URL      string
}

func (ImagePart) contentPart() {}

// ToolCallPart is a model-issued request to invoke a tool. Arguments is kept
// as raw JSON because streaming decoders build it incrementally and a
// premature unmarshal would discard malformed-but-forwardable fragments.
type ToolCallPart struct {
	ID        string
	Name      string
	Arguments []byte
}

func (ToolCallPart) contentPart() {}

// ToolResultPart carries the caller-supplied result of a prior ToolCallPart
// back to the model, addressed by the originating call's ID.
type ToolResultPart struct {
	ToolCallID string
	Content    string
	IsError    bool
}

func (ToolResultPart) contentPart() {}

// ThinkingPart is a model's own reasoning content, carried through a Turn's
// history unchanged. Signature holds an opaque provider-issued value (e.g.
// Anthropic's thinking signature) that round-trips back to the same family
// unmodified; it is empty when the part did not originate from a family
// that signs its thinking blocks, or when it is being forwarded cross-family.
type ThinkingPart struct {
	Text      string
	Signature string
}

func (ThinkingPart) contentPart() {}

// Turn is one entry in a conversation, the neutral analogue of a chat message.
type Turn struct {
	Role    Role
	Content []ContentPart
}

// ToolDecl is a tool made available to the model for this request.
type ToolDecl struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolChoiceMode selects how the model should use the declared tools.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceNamed    ToolChoiceMode = "named"
)

// ToolChoice constrains tool usage; Name is only meaningful when Mode is
// ToolChoiceNamed.
type ToolChoice struct {
	Mode ToolChoiceMode
	Name string
}

// ThinkingEffort is a coarse reasoning-effort level carried in a neutral
// Request, mapped to each family's own notion of a thinking budget at
// dispatch time.
type ThinkingEffort string

const (
	ThinkingNone   ThinkingEffort = ""
	ThinkingLow    ThinkingEffort = "low"
	ThinkingMedium ThinkingEffort = "medium"
	ThinkingHigh   ThinkingEffort = "high"
)

// ThinkingSpec describes the caller's requested reasoning depth. Either
// Effort or BudgetTokens may be set by the originating family; the thinking
// mapper reconciles the two into a concrete per-family budget.
type ThinkingSpec struct {
	Effort       ThinkingEffort
	BudgetTokens int
}

// Request is the neutral form of an inbound chat-completion request, built
// by a family's DecodeRequest and consumed by another family's EncodeRequest.
type Request struct {
	Model         string
	Turns         []Turn
	System        string
	Tools         []ToolDecl
	ToolChoice    ToolChoice
	Temperature   *float64
	TopP          *float64
	TopK          *int
	MaxTokens     *int
	StopSequences []string
	Stream        bool
	Thinking      *ThinkingSpec
}

// Usage is token accounting carried through in both directions.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// FinishReason is the neutral normalization of why generation stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishError         FinishReason = "error"
	FinishOther         FinishReason = "other"
)

// Response is the neutral form of a completed (non-streaming) generation.
type Response struct {
	ID           string
	Model        string
	Content      []ContentPart
	FinishReason FinishReason
	Usage        Usage
}
