package anthropic

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/providerutils/streaming"
)

type wireStreamEnvelope struct {
	Type         string           `json:"type"`
	Message      *wireStreamMsg   `json:"message,omitempty"`
	Index        int              `json:"index"`
	ContentBlock *wireBlock       `json:"content_block,omitempty"`
	Delta        *wireStreamDelta `json:"delta,omitempty"`
	Usage        *wireUsage       `json:"usage,omitempty"`
}

type wireStreamMsg struct {
	ID    string    `json:"id"`
	Model string    `json:"model"`
	Usage wireUsage `json:"usage"`
}

type wireStreamDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	Signature   string `json:"signature,omitempty"`
}

// DecodeStream implements family.Translator. Anthropic SSE events carry
// their own "type" discriminator on each line, independent of the SSE
// "event:" field.
func (t *Translator) DecodeStream(r io.Reader, yield func(neutral.StreamEvent) error) error {
	parser := streaming.NewSSEParser(r)
	blockKind := map[int]neutral.BlockKind{}

	for {
		event, err := parser.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("anthropic: stream read: %w", err)
		}
		if event.Data == "" {
			continue
		}

		var env wireStreamEnvelope
		if err := json.Unmarshal([]byte(event.Data), &env); err != nil {
			return fmt.Errorf("anthropic: decode stream event: %w", err)
		}

		switch env.Type {
		case "message_start":
			if env.Message == nil {
				continue
			}
			if err := yield(neutral.StreamEvent{Kind: neutral.EventMessageStart, ID: env.Message.ID, Model: env.Message.Model}); err != nil {
				return err
			}
		case "content_block_start":
			if env.ContentBlock == nil {
				continue
			}
			ev := neutral.StreamEvent{Kind: neutral.EventContentBlockStart, Index: env.Index}
			switch env.ContentBlock.Type {
			case "tool_use":
				ev.BlockKind = neutral.BlockToolCall
				ev.ToolID = env.ContentBlock.ID
				ev.ToolName = env.ContentBlock.Name
			case "thinking":
				ev.BlockKind = neutral.BlockThinking
			default:
				ev.BlockKind = neutral.BlockText
			}
			blockKind[env.Index] = ev.BlockKind
			if err := yield(ev); err != nil {
				return err
			}
		case "content_block_delta":
			if env.Delta == nil {
				continue
			}
			ev := neutral.StreamEvent{Kind: neutral.EventContentBlockDelta, Index: env.Index}
			switch env.Delta.Type {
			case "text_delta":
				ev.TextDelta = env.Delta.Text
			case "input_json_delta":
				ev.ToolArgsDelta = env.Delta.PartialJSON
			case "thinking_delta":
				ev.ThinkingDelta = env.Delta.Thinking
			case "signature_delta":
				ev.Signature = env.Delta.Signature
			default:
				continue
			}
			if err := yield(ev); err != nil {
				return err
			}
		case "content_block_stop":
			if err := yield(neutral.StreamEvent{Kind: neutral.EventContentBlockStop, Index: env.Index}); err != nil {
				return err
			}
		case "message_delta":
			usage := neutral.Usage{}
			if env.Usage != nil {
				usage.OutputTokens = env.Usage.OutputTokens
			}
			var fr neutral.FinishReason
			if env.Delta != nil {
				fr = mapFinishReasonIn(env.Delta.StopReason)
			}
			if err := yield(neutral.StreamEvent{Kind: neutral.EventMessageDelta, FinishReason: fr, Usage: usage}); err != nil {
				return err
			}
		case "message_stop":
			if err := yield(neutral.StreamEvent{Kind: neutral.EventMessageStop}); err != nil {
				return err
			}
		case "ping", "":
			continue
		}
	}
}

// streamEncoder implements family.StreamEncoder for Anthropic SSE events.
// Anthropic's input_json_delta is itself an incremental fragment, so no
// buffering is needed here either.
type streamEncoder struct{}

// NewStreamEncoder implements family.Translator.
func (t *Translator) NewStreamEncoder() family.StreamEncoder {
	return &streamEncoder{}
}

// Encode implements family.StreamEncoder.
func (e *streamEncoder) Encode(w io.Writer, ev neutral.StreamEvent) error {
	sw := streaming.NewSSEWriter(w)

	switch ev.Kind {
	case neutral.EventMessageStart:
		return writeNamed(sw, "message_start", wireStreamEnvelope{
			Type: "message_start",
			Message: &wireStreamMsg{ID: ev.ID, Model: ev.Model},
		})
	case neutral.EventContentBlockStart:
		block := &wireBlock{Type: "text", Text: ""}
		switch ev.BlockKind {
		case neutral.BlockToolCall:
			block = &wireBlock{Type: "tool_use", ID: ev.ToolID, Name: ev.ToolName, Input: map[string]interface{}{}}
		case neutral.BlockThinking:
			block = &wireBlock{Type: "thinking", Thinking: ""}
		}
		return writeNamed(sw, "content_block_start", wireStreamEnvelope{
			Type: "content_block_start", Index: ev.Index, ContentBlock: block,
		})
	case neutral.EventContentBlockDelta:
		var delta *wireStreamDelta
		switch {
		case ev.ToolArgsDelta != "":
			delta = &wireStreamDelta{Type: "input_json_delta", PartialJSON: ev.ToolArgsDelta}
		case ev.ThinkingDelta != "":
			delta = &wireStreamDelta{Type: "thinking_delta", Thinking: ev.ThinkingDelta}
		case ev.Signature != "":
			delta = &wireStreamDelta{Type: "signature_delta", Signature: ev.Signature}
		default:
			delta = &wireStreamDelta{Type: "text_delta", Text: ev.TextDelta}
		}
		return writeNamed(sw, "content_block_delta", wireStreamEnvelope{
			Type: "content_block_delta", Index: ev.Index, Delta: delta,
		})
	case neutral.EventContentBlockStop:
		return writeNamed(sw, "content_block_stop", wireStreamEnvelope{Type: "content_block_stop", Index: ev.Index})
	case neutral.EventMessageDelta:
		return writeNamed(sw, "message_delta", wireStreamEnvelope{
			Type:  "message_delta",
			Delta: &wireStreamDelta{StopReason: mapFinishReasonOut(ev.FinishReason)},
			Usage: &wireUsage{OutputTokens: ev.Usage.OutputTokens},
		})
	case neutral.EventMessageStop:
		return writeNamed(sw, "message_stop", wireStreamEnvelope{Type: "message_stop"})
	}
	return nil
}

func writeNamed(sw *streaming.SSEWriter, eventName string, env wireStreamEnvelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return sw.WriteNamedEvent(eventName, string(b))
}
