package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/translate/common"
)

type wireRequest struct {
	Contents          []wireContent      `json:"contents"`
	SystemInstruction *wireContent       `json:"systemInstruction,omitempty"`
	Tools             []wireToolGroup    `json:"tools,omitempty"`
	ToolConfig        *wireToolConfig    `json:"toolConfig,omitempty"`
	GenerationConfig  *wireGenConfig     `json:"generationConfig,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text             string              `json:"text,omitempty"`
	InlineData       *wireBlob           `json:"inlineData,omitempty"`
	FunctionCall     *wireFunctionCall   `json:"functionCall,omitempty"`
	FunctionResponse *wireFunctionResult `json:"functionResponse,omitempty"`
	Thought          bool                `json:"thought,omitempty"`
	ThoughtSignature string              `json:"thoughtSignature,omitempty"`
}

type wireBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wireFunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type wireFunctionResult struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

type wireToolGroup struct {
	FunctionDeclarations []wireFunctionDecl `json:"functionDeclarations"`
}

type wireFunctionDecl struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type wireToolConfig struct {
	FunctionCallingConfig wireFunctionCallingConfig `json:"functionCallingConfig"`
}

type wireFunctionCallingConfig struct {
	Mode                 string   `json:"mode"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

type wireGenConfig struct {
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"topP,omitempty"`
	TopK             *int            `json:"topK,omitempty"`
	MaxOutputTokens  *int            `json:"maxOutputTokens,omitempty"`
	StopSequences    []string        `json:"stopSequences,omitempty"`
	ThinkingConfig   *wireThinking   `json:"thinkingConfig,omitempty"`
}

type wireThinking struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

// DecodeRequest implements family.Translator.
func (t *Translator) DecodeRequest(body []byte) (*neutral.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("gemini: decode request: %w", err)
	}

	req := &neutral.Request{}

	if wr.SystemInstruction != nil {
		for _, p := range wr.SystemInstruction.Parts {
			req.System += p.Text
		}
	}

	for _, c := range wr.Contents {
		req.Turns = append(req.Turns, decodeContent(c))
	}

	for _, group := range wr.Tools {
		for _, fd := range group.FunctionDeclarations {
			req.Tools = append(req.Tools, neutral.ToolDecl{
				Name:        fd.Name,
				Description: fd.Description,
				Parameters:  fd.Parameters,
			})
		}
	}
	req.ToolChoice = decodeToolChoice(wr.ToolConfig)

	if wr.GenerationConfig != nil {
		gc := wr.GenerationConfig
		req.Temperature = gc.Temperature
		req.TopP = gc.TopP
		req.TopK = gc.TopK
		req.MaxTokens = gc.MaxOutputTokens
		req.StopSequences = gc.StopSequences
		if gc.ThinkingConfig != nil {
			req.Thinking = &neutral.ThinkingSpec{BudgetTokens: gc.ThinkingConfig.ThinkingBudget}
		}
	}

	return req, nil
}

func decodeContent(c wireContent) neutral.Turn {
	role := neutral.RoleUser
	if c.Role == "model" {
		role = neutral.RoleAssistant
	}
	turn := neutral.Turn{Role: role}

	for _, p := range c.Parts {
		switch {
		case p.Thought:
			turn.Content = append(turn.Content, neutral.ThinkingPart{Text: p.Text, Signature: p.ThoughtSignature})
		case p.Text != "":
			turn.Content = append(turn.Content, neutral.TextPart{Text: p.Text})
		case p.InlineData != nil:
			data, _ := decodeInline(p.InlineData.Data)
			turn.Content = append(turn.Content, neutral.ImagePart{MimeType: p.InlineData.MimeType, Data: data})
		case p.FunctionCall != nil:
			args, _ := json.Marshal(p.FunctionCall.Args)
			// Gemini function calls carry no ID; the function name doubles
			// as the neutral ToolCallID so a later functionResponse part
			// (addressed by name, not ID) can be matched back to it.
			turn.Content = append(turn.Content, neutral.ToolCallPart{
				ID:        p.FunctionCall.Name,
				Name:      p.FunctionCall.Name,
				Arguments: args,
			})
		case p.FunctionResponse != nil:
			respBytes, _ := json.Marshal(p.FunctionResponse.Response)
			turn.Content = append(turn.Content, neutral.ToolResultPart{
				ToolCallID: p.FunctionResponse.Name,
				Content:    string(respBytes),
			})
		}
	}
	return turn
}

func decodeInline(b64 string) ([]byte, error) {
	_, data, ok := common.SplitDataURL("data:;base64," + b64)
	if !ok {
		return nil, fmt.Errorf("gemini: invalid inline data")
	}
	return data, nil
}

func decodeToolChoice(tc *wireToolConfig) neutral.ToolChoice {
	if tc == nil {
		return neutral.ToolChoice{Mode: neutral.ToolChoiceAuto}
	}
	switch tc.FunctionCallingConfig.Mode {
	case "NONE":
		return neutral.ToolChoice{Mode: neutral.ToolChoiceNone}
	case "ANY":
		if len(tc.FunctionCallingConfig.AllowedFunctionNames) == 1 {
			return neutral.ToolChoice{Mode: neutral.ToolChoiceNamed, Name: tc.FunctionCallingConfig.AllowedFunctionNames[0]}
		}
		return neutral.ToolChoice{Mode: neutral.ToolChoiceRequired}
	default:
		return neutral.ToolChoice{Mode: neutral.ToolChoiceAuto}
	}
}

// EncodeRequest implements family.Translator.
func (t *Translator) EncodeRequest(req *neutral.Request) ([]byte, error) {
	wr := wireRequest{}

	if req.System != "" {
		wr.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.System}}}
	}

	idToName := map[string]string{}
	for _, turn := range req.Turns {
		for _, cp := range turn.Content {
			if tc, ok := cp.(neutral.ToolCallPart); ok {
				idToName[tc.ID] = tc.Name
			}
		}
	}

	for _, turn := range req.Turns {
		wr.Contents = append(wr.Contents, encodeTurn(turn, idToName))
	}

	if len(req.Tools) > 0 {
		var decls []wireFunctionDecl
		for _, td := range req.Tools {
			decls = append(decls, wireFunctionDecl{Name: td.Name, Description: td.Description, Parameters: td.Parameters})
		}
		wr.Tools = []wireToolGroup{{FunctionDeclarations: decls}}
	}
	if tc := encodeToolChoice(req.ToolChoice); tc != nil {
		wr.ToolConfig = tc
	}

	gc := &wireGenConfig{
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		TopK:            req.TopK,
		MaxOutputTokens: req.MaxTokens,
		StopSequences:   req.StopSequences,
	}
	if req.Thinking != nil && req.Thinking.BudgetTokens > 0 {
		gc.ThinkingConfig = &wireThinking{ThinkingBudget: req.Thinking.BudgetTokens}
	}
	wr.GenerationConfig = gc

	return json.Marshal(wr)
}

func encodeTurn(turn neutral.Turn, idToName map[string]string) wireContent {
	role := "user"
	if turn.Role == neutral.RoleAssistant {
		role = "model"
	}
	content := wireContent{Role: role}

	for _, cp := range turn.Content {
		switch p := cp.(type) {
		case neutral.TextPart:
			content.Parts = append(content.Parts, wirePart{Text: p.Text})
		case neutral.ImagePart:
			data := p.Data
			mt := p.MimeType
			if p.URL != "" {
				if u, d, ok := common.SplitDataURL(p.URL); ok {
					mt, data = u, d
				}
			}
			content.Parts = append(content.Parts, wirePart{InlineData: &wireBlob{MimeType: mt, Data: common.EncodeBase64(data)}})
		case neutral.ToolCallPart:
			var args map[string]interface{}
			_ = json.Unmarshal(p.Arguments, &args)
			content.Parts = append(content.Parts, wirePart{FunctionCall: &wireFunctionCall{Name: p.Name, Args: args}})
		case neutral.ToolResultPart:
			name := idToName[p.ToolCallID]
			if name == "" {
				name = p.ToolCallID
			}
			var resp map[string]interface{}
			if err := json.Unmarshal([]byte(p.Content), &resp); err != nil {
				resp = map[string]interface{}{"result": p.Content}
			}
			content.Parts = append(content.Parts, wirePart{FunctionResponse: &wireFunctionResult{Name: name, Response: resp}})
		case neutral.ThinkingPart:
			// Gemini only accepts a thought part back with the signature it
			// originally issued; drop unsigned (e.g. cross-family) thoughts.
			if p.Signature != "" {
				content.Parts = append(content.Parts, wirePart{Text: p.Text, Thought: true, ThoughtSignature: p.Signature})
			}
		}
	}
	return content
}

func encodeToolChoice(tc neutral.ToolChoice) *wireToolConfig {
	switch tc.Mode {
	case neutral.ToolChoiceNone:
		return &wireToolConfig{FunctionCallingConfig: wireFunctionCallingConfig{Mode: "NONE"}}
	case neutral.ToolChoiceRequired:
		return &wireToolConfig{FunctionCallingConfig: wireFunctionCallingConfig{Mode: "ANY"}}
	case neutral.ToolChoiceNamed:
		return &wireToolConfig{FunctionCallingConfig: wireFunctionCallingConfig{Mode: "ANY", AllowedFunctionNames: []string{tc.Name}}}
	default:
		return nil
	}
}
