package neutral

// EventKind identifies the shape of a StreamEvent.
type EventKind string

const (
	EventMessageStart      EventKind = "message_start"
	EventContentBlockStart EventKind = "content_block_start"
	EventContentBlockDelta EventKind = "content_block_delta"
	EventContentBlockStop  EventKind = "content_block_stop"
	EventMessageDelta      EventKind = "message_delta"
	EventMessageStop       EventKind = "message_stop"
)

// BlockKind identifies what a content block at a given index will contain.
// It is fixed for the lifetime of the block: a text block only ever carries
// TextDelta, a tool-call block only ever carries ToolArgsDelta.
type BlockKind string

const (
	BlockText     BlockKind = "text"
	BlockToolCall BlockKind = "tool_call"
	BlockThinking BlockKind = "thinking"
)

// StreamEvent is one event of a neutral streamed generation. Exactly one of
// the embedded per-kind payloads is populated, matching Kind. Index
// addresses a content block; blocks at distinct indices may be interleaved
// only insofar as each index's own events (Start, Delta*, Stop) stay in
// order relative to each other.
type StreamEvent struct {
	Kind  EventKind
	Index int

	// MessageStart
	ID    string
	Model string

	// ContentBlockStart
	BlockKind BlockKind
	ToolID    string
	ToolName  string

	// ContentBlockDelta
	TextDelta     string
	ToolArgsDelta string
	ThinkingDelta string
	Signature     string

	// MessageDelta / MessageStop
	FinishReason FinishReason
	Usage        Usage
}
