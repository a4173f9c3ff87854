package openai

import (
	"encoding/json"
	"fmt"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
)

type wireResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Object  string       `json:"object"`
	Choices []wireChoice `json:"choices"`
	Usage   *wireUsage   `json:"usage,omitempty"`
}

type wireChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// mapFinishReasonIn normalizes an OpenAI finish_reason into the neutral
// taxonomy. Handles both current ("tool_calls") and legacy ("function_call")
// values.
func mapFinishReasonIn(reason string) neutral.FinishReason {
	switch reason {
	case "stop":
		return neutral.FinishStop
	case "length":
		return neutral.FinishLength
	case "tool_calls", "function_call":
		return neutral.FinishToolCalls
	case "content_filter":
		return neutral.FinishContentFilter
	default:
		return neutral.FinishOther
	}
}

func mapFinishReasonOut(reason neutral.FinishReason) string {
	switch reason {
	case neutral.FinishStop:
		return "stop"
	case neutral.FinishLength:
		return "length"
	case neutral.FinishToolCalls:
		return "tool_calls"
	case neutral.FinishContentFilter:
		return "content_filter"
	default:
		return "stop"
	}
}

// DecodeResponse implements family.Translator.
func (t *Translator) DecodeResponse(body []byte) (*neutral.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(wr.Choices) == 0 {
		return nil, fmt.Errorf("openai: response has no choices")
	}
	choice := wr.Choices[0]

	turn, err := decodeMessage(choice.Message)
	if err != nil {
		return nil, err
	}

	resp := &neutral.Response{
		ID:           wr.ID,
		Model:        wr.Model,
		Content:      turn.Content,
		FinishReason: mapFinishReasonIn(choice.FinishReason),
	}
	if wr.Usage != nil {
		resp.Usage = neutral.Usage{
			InputTokens:  wr.Usage.PromptTokens,
			OutputTokens: wr.Usage.CompletionTokens,
			TotalTokens:  wr.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// EncodeResponse implements family.Translator.
func (t *Translator) EncodeResponse(resp *neutral.Response) ([]byte, error) {
	msgs, err := encodeTurn(neutral.Turn{Role: neutral.RoleAssistant, Content: resp.Content})
	if err != nil {
		return nil, err
	}
	msg := wireMessage{Role: "assistant"}
	if len(msgs) > 0 {
		msg = msgs[0]
		// Any trailing tool-result messages (shouldn't occur in an
		// assistant-authored response) are dropped; only the first message
		// is the assistant's own content/tool_calls.
	}

	wr := wireResponse{
		ID:     resp.ID,
		Model:  resp.Model,
		Object: "chat.completion",
		Choices: []wireChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: mapFinishReasonOut(resp.FinishReason),
		}},
		Usage: &wireUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	return json.Marshal(wr)
}
