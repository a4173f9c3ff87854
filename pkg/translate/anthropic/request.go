package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/translate/common"
)

type wireRequest struct {
	Model         string          `json:"model"`
	MaxTokens     int             `json:"max_tokens"`
	System        string          `json:"system,omitempty"`
	Messages      []wireMessage   `json:"messages"`
	Tools         []wireTool      `json:"tools,omitempty"`
	ToolChoice    *wireToolChoice `json:"tool_choice,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int            `json:"top_k,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Thinking      *wireThinking   `json:"thinking,omitempty"`
}

type wireThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

type wireBlock struct {
	Type        string      `json:"type"`
	Text        string      `json:"text,omitempty"`
	Source      *wireSource `json:"source,omitempty"`
	ID          string      `json:"id,omitempty"`
	Name        string      `json:"name,omitempty"`
	Input       interface{} `json:"input,omitempty"`
	ToolUseID   string      `json:"tool_use_id,omitempty"`
	Content     interface{} `json:"content,omitempty"`
	IsError     bool        `json:"is_error,omitempty"`
	PartialJSON string      `json:"partial_json,omitempty"`
	Thinking    string      `json:"thinking,omitempty"`
	Signature   string      `json:"signature,omitempty"`
}

type wireSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type wireTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type wireToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// DecodeRequest implements family.Translator.
func (t *Translator) DecodeRequest(body []byte) (*neutral.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("anthropic: decode request: %w", err)
	}

	req := &neutral.Request{
		Model:         wr.Model,
		System:        wr.System,
		Temperature:   wr.Temperature,
		TopP:          wr.TopP,
		TopK:          wr.TopK,
		StopSequences: wr.StopSequences,
		Stream:        wr.Stream,
	}
	if wr.MaxTokens > 0 {
		mt := wr.MaxTokens
		req.MaxTokens = &mt
	}

	for _, m := range wr.Messages {
		turn, err := decodeMessage(m)
		if err != nil {
			return nil, err
		}
		req.Turns = append(req.Turns, turn)
	}

	for _, wt := range wr.Tools {
		req.Tools = append(req.Tools, neutral.ToolDecl{
			Name:        wt.Name,
			Description: wt.Description,
			Parameters:  wt.InputSchema,
		})
	}
	req.ToolChoice = decodeToolChoice(wr.ToolChoice)

	if wr.Thinking != nil && wr.Thinking.Type == "enabled" {
		req.Thinking = &neutral.ThinkingSpec{BudgetTokens: wr.Thinking.BudgetTokens}
	}

	return req, nil
}

func decodeMessage(m wireMessage) (neutral.Turn, error) {
	role := neutral.RoleUser
	if m.Role == "assistant" {
		role = neutral.RoleAssistant
	}
	turn := neutral.Turn{Role: role}

	for _, b := range m.Content {
		switch b.Type {
		case "text":
			turn.Content = append(turn.Content, neutral.TextPart{Text: b.Text})
		case "image":
			if b.Source != nil {
				if b.Source.Type == "url" {
					turn.Content = append(turn.Content, neutral.ImagePart{URL: b.Source.URL})
				} else {
					data, _ := decodeBase64(b.Source.Data)
					turn.Content = append(turn.Content, neutral.ImagePart{MimeType: b.Source.MediaType, Data: data})
				}
			}
		case "tool_use":
			args, err := json.Marshal(b.Input)
			if err != nil {
				return turn, err
			}
			turn.Content = append(turn.Content, neutral.ToolCallPart{ID: b.ID, Name: b.Name, Arguments: args})
		case "tool_result":
			text := stringifyToolResultContent(b.Content)
			turn.Content = append(turn.Content, neutral.ToolResultPart{
				ToolCallID: b.ToolUseID,
				Content:    text,
				IsError:    b.IsError,
			})
		case "thinking":
			turn.Content = append(turn.Content, neutral.ThinkingPart{Text: b.Thinking, Signature: b.Signature})
		}
	}
	return turn, nil
}

func stringifyToolResultContent(v interface{}) string {
	switch c := v.(type) {
	case string:
		return c
	case []interface{}:
		var out string
		for _, raw := range c {
			if m, ok := raw.(map[string]interface{}); ok {
				if text, ok := m["text"].(string); ok {
					out += text
				}
			}
		}
		return out
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func decodeBase64(s string) ([]byte, error) {
	_, data, ok := common.SplitDataURL("data:;base64," + s)
	if !ok {
		return nil, fmt.Errorf("anthropic: invalid base64 image source")
	}
	return data, nil
}

func decodeToolChoice(tc *wireToolChoice) neutral.ToolChoice {
	if tc == nil {
		return neutral.ToolChoice{Mode: neutral.ToolChoiceAuto}
	}
	switch tc.Type {
	case "any":
		return neutral.ToolChoice{Mode: neutral.ToolChoiceRequired}
	case "tool":
		return neutral.ToolChoice{Mode: neutral.ToolChoiceNamed, Name: tc.Name}
	default:
		return neutral.ToolChoice{Mode: neutral.ToolChoiceAuto}
	}
}

// EncodeRequest implements family.Translator.
func (t *Translator) EncodeRequest(req *neutral.Request) ([]byte, error) {
	wr := wireRequest{
		Model:         req.Model,
		System:        req.System,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		StopSequences: req.StopSequences,
		Stream:        req.Stream,
		MaxTokens:     t.maxTokens,
	}
	if req.MaxTokens != nil {
		wr.MaxTokens = *req.MaxTokens
	}

	for _, turn := range req.Turns {
		msg := encodeTurn(turn)
		// Anthropic rejects back-to-back messages of the same role; the
		// neutral model folds tool results into a user turn, which can
		// follow another user turn, so adjacent same-role turns are merged
		// into one message rather than sent as two.
		if n := len(wr.Messages); n > 0 && wr.Messages[n-1].Role == msg.Role {
			wr.Messages[n-1].Content = append(wr.Messages[n-1].Content, msg.Content...)
			continue
		}
		wr.Messages = append(wr.Messages, msg)
	}

	for _, td := range req.Tools {
		wr.Tools = append(wr.Tools, wireTool{
			Name:        td.Name,
			Description: td.Description,
			InputSchema: td.Parameters,
		})
	}
	wr.ToolChoice = encodeToolChoice(req.ToolChoice)

	if req.Thinking != nil && req.Thinking.BudgetTokens > 0 {
		wr.Thinking = &wireThinking{Type: "enabled", BudgetTokens: req.Thinking.BudgetTokens}
	}

	return json.Marshal(wr)
}

func encodeTurn(turn neutral.Turn) wireMessage {
	role := "user"
	if turn.Role == neutral.RoleAssistant {
		role = "assistant"
	}
	msg := wireMessage{Role: role}

	for _, cp := range turn.Content {
		switch p := cp.(type) {
		case neutral.TextPart:
			msg.Content = append(msg.Content, wireBlock{Type: "text", Text: p.Text})
		case neutral.ImagePart:
			if p.URL != "" {
				if mt, data, ok := common.SplitDataURL(p.URL); ok {
					msg.Content = append(msg.Content, wireBlock{Type: "image", Source: &wireSource{
						Type: "base64", MediaType: mt, Data: encodeBase64(data),
					}})
				} else {
					msg.Content = append(msg.Content, wireBlock{Type: "image", Source: &wireSource{Type: "url", URL: p.URL}})
				}
			} else {
				msg.Content = append(msg.Content, wireBlock{Type: "image", Source: &wireSource{
					Type: "base64", MediaType: p.MimeType, Data: encodeBase64(p.Data),
				}})
			}
		case neutral.ToolCallPart:
			var input interface{}
			_ = json.Unmarshal(p.Arguments, &input)
			msg.Content = append(msg.Content, wireBlock{Type: "tool_use", ID: p.ID, Name: p.Name, Input: input})
		case neutral.ToolResultPart:
			msg.Content = append(msg.Content, wireBlock{
				Type:      "tool_result",
				ToolUseID: p.ToolCallID,
				Content:   p.Content,
				IsError:   p.IsError,
			})
		case neutral.ThinkingPart:
			// Anthropic rejects a thinking block whose signature was not
			// issued by itself, so only echo one back when it carries one.
			if p.Signature != "" {
				msg.Content = append(msg.Content, wireBlock{Type: "thinking", Thinking: p.Text, Signature: p.Signature})
			}
		}
	}
	return msg
}

func encodeBase64(data []byte) string {
	return common.EncodeBase64(data)
}

func encodeToolChoice(tc neutral.ToolChoice) *wireToolChoice {
	switch tc.Mode {
	case neutral.ToolChoiceNone:
		return nil
	case neutral.ToolChoiceRequired:
		return &wireToolChoice{Type: "any"}
	case neutral.ToolChoiceNamed:
		return &wireToolChoice{Type: "tool", Name: tc.Name}
	default:
		return &wireToolChoice{Type: "auto"}
	}
}
