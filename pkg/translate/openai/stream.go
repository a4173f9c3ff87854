package openai

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/providerutils/streaming"
)

type wireStreamChunk struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []wireStreamChoice `json:"choices"`
	Usage   *wireUsage         `json:"usage,omitempty"`
}

type wireStreamChoice struct {
	Index        int            `json:"index"`
	Delta        wireStreamDelta `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

type wireStreamDelta struct {
	Role      string               `json:"role,omitempty"`
	Content   string               `json:"content,omitempty"`
	ToolCalls []wireStreamToolCall `json:"tool_calls,omitempty"`
}

type wireStreamToolCall struct {
	Index    int            `json:"index"`
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Function wireToolCallFn `json:"function"`
}

// openAIBlockIndex is 0 for the running text block and 1+toolCallIndex for
// tool-call blocks, so a text block and any number of tool-call blocks can
// coexist without colliding on neutral block index.
func openAIBlockIndex(toolIndex int) int {
	return 1 + toolIndex
}

// DecodeStream implements family.Translator. OpenAI chunks never reuse a
// content-block index across a text delta and a tool-call delta, so each
// first-seen index opens a new neutral block.
func (t *Translator) DecodeStream(r io.Reader, yield func(neutral.StreamEvent) error) error {
	parser := streaming.NewSSEParser(r)
	started := false
	textOpen := false
	toolOpen := map[int]bool{}

	emit := func(ev neutral.StreamEvent) error { return yield(ev) }

	for {
		event, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("openai: stream read: %w", err)
		}
		if event.Data == "" || event.Data == "[DONE]" {
			continue
		}

		var chunk wireStreamChunk
		if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
			return fmt.Errorf("openai: decode stream chunk: %w", err)
		}

		if !started {
			started = true
			if err := emit(neutral.StreamEvent{Kind: neutral.EventMessageStart, ID: chunk.ID, Model: chunk.Model}); err != nil {
				return err
			}
		}

		if len(chunk.Choices) == 0 {
			if chunk.Usage != nil {
				if err := emit(neutral.StreamEvent{
					Kind: neutral.EventMessageDelta,
					Usage: neutral.Usage{
						InputTokens:  chunk.Usage.PromptTokens,
						OutputTokens: chunk.Usage.CompletionTokens,
						TotalTokens:  chunk.Usage.TotalTokens,
					},
				}); err != nil {
					return err
				}
			}
			continue
		}

		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			if !textOpen {
				textOpen = true
				if err := emit(neutral.StreamEvent{Kind: neutral.EventContentBlockStart, Index: 0, BlockKind: neutral.BlockText}); err != nil {
					return err
				}
			}
			if err := emit(neutral.StreamEvent{Kind: neutral.EventContentBlockDelta, Index: 0, TextDelta: choice.Delta.Content}); err != nil {
				return err
			}
		}

		for _, tc := range choice.Delta.ToolCalls {
			idx := openAIBlockIndex(tc.Index)
			if !toolOpen[idx] {
				toolOpen[idx] = true
				if err := emit(neutral.StreamEvent{
					Kind:      neutral.EventContentBlockStart,
					Index:     idx,
					BlockKind: neutral.BlockToolCall,
					ToolID:    tc.ID,
					ToolName:  tc.Function.Name,
				}); err != nil {
					return err
				}
			}
			if tc.Function.Arguments != "" {
				if err := emit(neutral.StreamEvent{Kind: neutral.EventContentBlockDelta, Index: idx, ToolArgsDelta: tc.Function.Arguments}); err != nil {
					return err
				}
			}
		}

		if choice.FinishReason != nil {
			if textOpen {
				if err := emit(neutral.StreamEvent{Kind: neutral.EventContentBlockStop, Index: 0}); err != nil {
					return err
				}
				textOpen = false
			}
			for idx := range toolOpen {
				if err := emit(neutral.StreamEvent{Kind: neutral.EventContentBlockStop, Index: idx}); err != nil {
					return err
				}
			}
			toolOpen = map[int]bool{}

			fr := mapFinishReasonIn(*choice.FinishReason)
			if err := emit(neutral.StreamEvent{Kind: neutral.EventMessageDelta, FinishReason: fr}); err != nil {
				return err
			}
			if err := emit(neutral.StreamEvent{Kind: neutral.EventMessageStop}); err != nil {
				return err
			}
		}
	}

	return nil
}

// streamEncoder implements family.StreamEncoder for OpenAI chunks. It holds
// no state across events: every delta OpenAI emits is already a directly
// forwardable fragment.
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
		return nil // OpenAI has no distinct message-start chunk; role is implied on first delta.
	case neutral.EventContentBlockStart:
		switch ev.BlockKind {
		case neutral.BlockText:
			return writeChunk(sw, wireStreamChunk{
				ID: ev.ID,
				Choices: []wireStreamChoice{{
					Delta: wireStreamDelta{Role: "assistant"},
				}},
			})
		case neutral.BlockThinking:
			// No reasoning-content wire slot on this family's chunk shape;
			// a model's own thinking is dropped on cross-family passthrough.
			return nil
		}
		return writeChunk(sw, wireStreamChunk{
			Choices: []wireStreamChoice{{
				Delta: wireStreamDelta{
					ToolCalls: []wireStreamToolCall{{
						Index:    ev.Index - 1,
						ID:       ev.ToolID,
						Type:     "function",
						Function: wireToolCallFn{Name: ev.ToolName},
					}},
				},
			}},
		})
	case neutral.EventContentBlockDelta:
		if ev.ThinkingDelta != "" || ev.Signature != "" {
			return nil
		}
		if ev.TextDelta != "" {
			return writeChunk(sw, wireStreamChunk{
				Choices: []wireStreamChoice{{Delta: wireStreamDelta{Content: ev.TextDelta}}},
			})
		}
		return writeChunk(sw, wireStreamChunk{
			Choices: []wireStreamChoice{{
				Delta: wireStreamDelta{
					ToolCalls: []wireStreamToolCall{{
						Index:    ev.Index - 1,
						Function: wireToolCallFn{Arguments: ev.ToolArgsDelta},
					}},
				},
			}},
		})
	case neutral.EventContentBlockStop:
		return nil
	case neutral.EventMessageDelta:
		reason := mapFinishReasonOut(ev.FinishReason)
		return writeChunk(sw, wireStreamChunk{
			Choices: []wireStreamChoice{{FinishReason: &reason}},
		})
	case neutral.EventMessageStop:
		return sw.WriteRawDone()
	}
	return nil
}

func writeChunk(sw *streaming.SSEWriter, chunk wireStreamChunk) error {
	chunk.Choices[0].Index = 0
	b, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	return sw.WriteData(string(b))
}
