package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
)

type wireResponse struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Role       string      `json:"role"`
	Model      string      `json:"model"`
	Content    []wireBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
	Usage      wireUsage   `json:"usage"`
}

type wireUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func mapFinishReasonIn(reason string) neutral.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return neutral.FinishStop
	case "max_tokens":
		return neutral.FinishLength
	case "tool_use":
		return neutral.FinishToolCalls
	case "refusal":
		return neutral.FinishContentFilter
	default:
		return neutral.FinishOther
	}
}

func mapFinishReasonOut(reason neutral.FinishReason) string {
	switch reason {
	case neutral.FinishStop:
		return "end_turn"
	case neutral.FinishLength:
		return "max_tokens"
	case neutral.FinishToolCalls:
		return "tool_use"
	case neutral.FinishContentFilter:
		return "refusal"
	default:
		return "end_turn"
	}
}

// DecodeResponse implements family.Translator.
func (t *Translator) DecodeResponse(body []byte) (*neutral.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}

	turn, err := decodeMessage(wireMessage{Role: "assistant", Content: wr.Content})
	if err != nil {
		return nil, err
	}

	return &neutral.Response{
		ID:           wr.ID,
		Model:        wr.Model,
		Content:      turn.Content,
		FinishReason: mapFinishReasonIn(wr.StopReason),
		Usage: neutral.Usage{
			InputTokens:  wr.Usage.InputTokens,
			OutputTokens: wr.Usage.OutputTokens,
			TotalTokens:  wr.Usage.InputTokens + wr.Usage.OutputTokens,
		},
	}, nil
}

// EncodeResponse implements family.Translator.
func (t *Translator) EncodeResponse(resp *neutral.Response) ([]byte, error) {
	msg := encodeTurn(neutral.Turn{Role: neutral.RoleAssistant, Content: resp.Content})

	wr := wireResponse{
		ID:         resp.ID,
		Type:       "message",
		Role:       "assistant",
		Model:      resp.Model,
		Content:    msg.Content,
		StopReason: mapFinishReasonOut(resp.FinishReason),
		Usage: wireUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	return json.Marshal(wr)
}
