package openai

import (
	"encoding/json"
	"fmt"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/translate/common"
)

// wireRequest is the OpenAI /v1/chat/completions request body.
type wireRequest struct {
	Model               string        `json:"model"`
	Messages            []wireMessage `json:"messages"`
	Temperature         *float64      `json:"temperature,omitempty"`
	TopP                *float64      `json:"top_p,omitempty"`
	MaxTokens           *int          `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int          `json:"max_completion_tokens,omitempty"`
	Stop                []string      `json:"stop,omitempty"`
	Stream              bool          `json:"stream,omitempty"`
	Tools               []wireTool    `json:"tools,omitempty"`
	ToolChoice          interface{}   `json:"tool_choice,omitempty"`
	ReasoningEffort     string        `json:"reasoning_effort,omitempty"`
}

type wireMessage struct {
	Role       string          `json:"role"`
	Content    interface{}     `json:"content,omitempty"`
	ToolCalls  []wireToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

type wireContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *wireImageURL   `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type wireToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function wireToolCallFn  `json:"function"`
}

type wireToolCallFn struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// DecodeRequest implements family.Translator.
func (t *Translator) DecodeRequest(body []byte) (*neutral.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("openai: decode request: %w", err)
	}

	req := &neutral.Request{
		Model:         wr.Model,
		Temperature:   wr.Temperature,
		TopP:          wr.TopP,
		MaxTokens:     wr.MaxTokens,
		StopSequences: wr.Stop,
		Stream:        wr.Stream,
	}

	for _, m := range wr.Messages {
		if m.Role == "system" {
			if s, ok := m.Content.(string); ok {
				req.System = s
				continue
			}
		}
		turn, err := decodeMessage(m)
		if err != nil {
			return nil, err
		}
		req.Turns = append(req.Turns, turn)
	}

	for _, wt := range wr.Tools {
		req.Tools = append(req.Tools, neutral.ToolDecl{
			Name:        wt.Function.Name,
			Description: wt.Function.Description,
			Parameters:  wt.Function.Parameters,
		})
	}
	req.ToolChoice = decodeToolChoice(wr.ToolChoice)

	if wr.ReasoningEffort != "" {
		req.Thinking = &neutral.ThinkingSpec{Effort: neutral.ThinkingEffort(wr.ReasoningEffort)}
	}

	return req, nil
}

func decodeMessage(m wireMessage) (neutral.Turn, error) {
	role := neutral.RoleUser
	switch m.Role {
	case "assistant":
		role = neutral.RoleAssistant
	case "tool":
		// Tool results are folded into a user turn carrying a ToolResultPart,
		// since the neutral model has no separate tool role.
		role = neutral.RoleUser
	}

	turn := neutral.Turn{Role: role}

	if m.Role == "tool" {
		text, _ := m.Content.(string)
		turn.Content = append(turn.Content, neutral.ToolResultPart{
			ToolCallID: m.ToolCallID,
			Content:    text,
		})
		return turn, nil
	}

	switch c := m.Content.(type) {
	case string:
		if c != "" {
			turn.Content = append(turn.Content, neutral.TextPart{Text: c})
		}
	case []interface{}:
		for _, raw := range c {
			b, err := json.Marshal(raw)
			if err != nil {
				return turn, err
			}
			var part wireContentPart
			if err := json.Unmarshal(b, &part); err != nil {
				return turn, err
			}
			switch part.Type {
			case "text":
				turn.Content = append(turn.Content, neutral.TextPart{Text: part.Text})
			case "image_url":
				if part.ImageURL != nil {
					turn.Content = append(turn.Content, neutral.ImagePart{URL: part.ImageURL.URL})
				}
			}
		}
	}

	for _, tc := range m.ToolCalls {
		turn.Content = append(turn.Content, neutral.ToolCallPart{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		})
	}

	return turn, nil
}

func decodeToolChoice(v interface{}) neutral.ToolChoice {
	switch c := v.(type) {
	case string:
		switch c {
		case "none":
			return neutral.ToolChoice{Mode: neutral.ToolChoiceNone}
		case "required":
			return neutral.ToolChoice{Mode: neutral.ToolChoiceRequired}
		default:
			return neutral.ToolChoice{Mode: neutral.ToolChoiceAuto}
		}
	case map[string]interface{}:
		if fn, ok := c["function"].(map[string]interface{}); ok {
			if name, ok := fn["name"].(string); ok {
				return neutral.ToolChoice{Mode: neutral.ToolChoiceNamed, Name: name}
			}
		}
	}
	return neutral.ToolChoice{Mode: neutral.ToolChoiceAuto}
}

// EncodeRequest implements family.Translator.
func (t *Translator) EncodeRequest(req *neutral.Request) ([]byte, error) {
	wr := wireRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.StopSequences,
		Stream:      req.Stream,
	}

	if req.System != "" {
		wr.Messages = append(wr.Messages, wireMessage{Role: "system", Content: req.System})
	}

	for _, turn := range req.Turns {
		msgs, err := encodeTurn(turn)
		if err != nil {
			return nil, err
		}
		wr.Messages = append(wr.Messages, msgs...)
	}

	for _, td := range req.Tools {
		wr.Tools = append(wr.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.Parameters,
			},
		})
	}
	wr.ToolChoice = encodeToolChoice(req.ToolChoice)

	if req.Thinking != nil && req.Thinking.Effort != neutral.ThinkingNone {
		wr.ReasoningEffort = string(req.Thinking.Effort)

		// A reasoning request must carry its token ceiling as
		// max_completion_tokens rather than max_tokens.
		maxTokens := t.reasoningMaxTokens
		if req.MaxTokens != nil {
			maxTokens = *req.MaxTokens
		}
		wr.MaxCompletionTokens = &maxTokens
		wr.MaxTokens = nil
	}

	return json.Marshal(wr)
}

func encodeTurn(turn neutral.Turn) ([]wireMessage, error) {
	role := "user"
	if turn.Role == neutral.RoleAssistant {
		role = "assistant"
	}

	var msgs []wireMessage
	msg := wireMessage{Role: role}
	var parts []wireContentPart

	for _, cp := range turn.Content {
		switch p := cp.(type) {
		case neutral.TextPart:
			parts = append(parts, wireContentPart{Type: "text", Text: p.Text})
		case neutral.ImagePart:
			url := p.URL
			if url == "" && len(p.Data) > 0 {
				url = common.DataURL(p.MimeType, p.Data)
			}
			parts = append(parts, wireContentPart{Type: "image_url", ImageURL: &wireImageURL{URL: url}})
		case neutral.ToolCallPart:
			msg.ToolCalls = append(msg.ToolCalls, wireToolCall{
				ID:   p.ID,
				Type: "function",
				Function: wireToolCallFn{
					Name:      p.Name,
					Arguments: string(p.Arguments),
				},
			})
		case neutral.ToolResultPart:
			// A tool result must be its own message with role "tool"; flush
			// any buffered content first.
			if len(parts) > 0 || len(msg.ToolCalls) > 0 {
				msg.Content = collapseParts(parts)
				msgs = append(msgs, msg)
				msg = wireMessage{Role: role}
				parts = nil
			}
			msgs = append(msgs, wireMessage{
				Role:       "tool",
				Content:    p.Content,
				ToolCallID: p.ToolCallID,
			})
		}
	}

	if len(parts) > 0 || len(msg.ToolCalls) > 0 || len(msgs) == 0 {
		msg.Content = collapseParts(parts)
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

// collapseParts returns a bare string when content is a single text part,
// matching how most OpenAI-compatible clients emit simple messages, and
// falls back to the structured array form otherwise.
func collapseParts(parts []wireContentPart) interface{} {
	if len(parts) == 1 && parts[0].Type == "text" {
		return parts[0].Text
	}
	if len(parts) == 0 {
		return ""
	}
	return parts
}

func encodeToolChoice(tc neutral.ToolChoice) interface{} {
	switch tc.Mode {
	case neutral.ToolChoiceNone:
		return "none"
	case neutral.ToolChoiceRequired:
		return "required"
	case neutral.ToolChoiceNamed:
		return map[string]interface{}{
			"type":     "function",
			"function": map[string]interface{}{"name": tc.Name},
		}
	default:
		return nil
	}
}
