package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
)

type wireResponse struct {
	Candidates    []wireCandidate `json:"candidates"`
	UsageMetadata *wireUsage      `json:"usageMetadata,omitempty"`
	ModelVersion  string          `json:"modelVersion,omitempty"`
}

type wireCandidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason"`
}

type wireUsage struct {
	PromptTokenCount     int64 `json:"promptTokenCount"`
	CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	TotalTokenCount      int64 `json:"totalTokenCount"`
}

func mapFinishReasonIn(reason string) neutral.FinishReason {
	switch reason {
	case "STOP":
		return neutral.FinishStop
	case "MAX_TOKENS":
		return neutral.FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return neutral.FinishContentFilter
	default:
		return neutral.FinishOther
	}
}

func mapFinishReasonOut(reason neutral.FinishReason) string {
	switch reason {
	case neutral.FinishStop:
		return "STOP"
	case neutral.FinishLength:
		return "MAX_TOKENS"
	case neutral.FinishContentFilter:
		return "SAFETY"
	case neutral.FinishToolCalls:
		return "STOP"
	default:
		return "OTHER"
	}
}

// DecodeResponse implements family.Translator.
func (t *Translator) DecodeResponse(body []byte) (*neutral.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(wr.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: response has no candidates")
	}
	cand := wr.Candidates[0]
	turn := decodeContent(cand.Content)

	resp := &neutral.Response{
		// Gemini's wire format carries no response ID; synthesize one so
		// callers that key on Response.ID (logging, client-facing envelopes
		// that require one, e.g. OpenAI's) always get a stable value.
		ID:           uuid.NewString(),
		Model:        wr.ModelVersion,
		Content:      turn.Content,
		FinishReason: mapFinishReasonIn(cand.FinishReason),
	}
	if wr.UsageMetadata != nil {
		resp.Usage = neutral.Usage{
			InputTokens:  wr.UsageMetadata.PromptTokenCount,
			OutputTokens: wr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  wr.UsageMetadata.TotalTokenCount,
		}
	}
	return resp, nil
}

// EncodeResponse implements family.Translator.
func (t *Translator) EncodeResponse(resp *neutral.Response) ([]byte, error) {
	content := encodeTurn(neutral.Turn{Role: neutral.RoleAssistant, Content: resp.Content}, nil)

	wr := wireResponse{
		ModelVersion: resp.Model,
		Candidates: []wireCandidate{{
			Content:      content,
			FinishReason: mapFinishReasonOut(resp.FinishReason),
		}},
		UsageMetadata: &wireUsage{
			PromptTokenCount:     resp.Usage.InputTokens,
			CandidatesTokenCount: resp.Usage.OutputTokens,
			TotalTokenCount:      resp.Usage.TotalTokens,
		},
	}
	return json.Marshal(wr)
}
