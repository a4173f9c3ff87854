package openai

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
)

func TestFamily(t *testing.T) {
	t.Parallel()
	assert.Equal(t, family.OpenAI, New().Family())
}

func TestAuthHeader(t *testing.T) {
	t.Parallel()
	name, value := New().AuthHeader("sk-test")
	assert.Equal(t, "Authorization", name)
	assert.Equal(t, "Bearer sk-test", value)
}

func TestDecodeRequest_SimpleText(t *testing.T) {
	t.Parallel()
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [
			{"role": "system", "content": "be terse"},
			{"role": "user", "content": "hi there"}
		],
		"temperature": 0.5
	}`)

	req, err := New().DecodeRequest(body)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, "be terse", req.System)
	require.Len(t, req.Turns, 1)
	require.Len(t, req.Turns[0].Content, 1)
	text, ok := req.Turns[0].Content[0].(neutral.TextPart)
	require.True(t, ok)
	assert.Equal(t, "hi there", text.Text)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.5, *req.Temperature)
}

func TestDecodeRequest_ToolCallAndResult(t *testing.T) {
	t.Parallel()
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [
			{"role": "user", "content": "what's the weather"},
			{"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"nyc\"}"}}
			]},
			{"role": "tool", "tool_call_id": "call_1", "content": "72F and sunny"}
		]
	}`)

	req, err := New().DecodeRequest(body)
	require.NoError(t, err)
	require.Len(t, req.Turns, 3)

	assistantTurn := req.Turns[1]
	require.Len(t, assistantTurn.Content, 1)
	tc, ok := assistantTurn.Content[0].(neutral.ToolCallPart)
	require.True(t, ok)
	assert.Equal(t, "call_1", tc.ID)
	assert.Equal(t, "get_weather", tc.Name)
	assert.JSONEq(t, `{"city":"nyc"}`, string(tc.Arguments))

	toolTurn := req.Turns[2]
	require.Len(t, toolTurn.Content, 1)
	tr, ok := toolTurn.Content[0].(neutral.ToolResultPart)
	require.True(t, ok)
	assert.Equal(t, "call_1", tr.ToolCallID)
	assert.Equal(t, "72F and sunny", tr.Content)
}

func TestDecodeRequest_ToolChoice(t *testing.T) {
	t.Parallel()
	cases := map[string]neutral.ToolChoice{
		`"none"`:     {Mode: neutral.ToolChoiceNone},
		`"required"`: {Mode: neutral.ToolChoiceRequired},
		`"auto"`:     {Mode: neutral.ToolChoiceAuto},
	}
	for raw, want := range cases {
		body := []byte(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"tool_choice":` + raw + `}`)
		req, err := New().DecodeRequest(body)
		require.NoError(t, err)
		assert.Equal(t, want, req.ToolChoice)
	}

	named := []byte(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"tool_choice":{"type":"function","function":{"name":"lookup"}}}`)
	req, err := New().DecodeRequest(named)
	require.NoError(t, err)
	assert.Equal(t, neutral.ToolChoice{Mode: neutral.ToolChoiceNamed, Name: "lookup"}, req.ToolChoice)
}

func TestEncodeRequest_RoundTripsSimpleText(t *testing.T) {
	t.Parallel()
	req := &neutral.Request{
		Model:  "gpt-4o",
		System: "be terse",
		Turns: []neutral.Turn{
			{Role: neutral.RoleUser, Content: []neutral.ContentPart{neutral.TextPart{Text: "hi there"}}},
		},
	}

	body, err := New().EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := New().DecodeRequest(body)
	require.NoError(t, err)
	assert.Equal(t, req.Model, decoded.Model)
	assert.Equal(t, req.System, decoded.System)
	require.Len(t, decoded.Turns, 1)
	assert.Equal(t, req.Turns[0].Content, decoded.Turns[0].Content)
}

func TestEncodeRequest_ReasoningSendsMaxCompletionTokens(t *testing.T) {
	t.Parallel()
	req := &neutral.Request{
		Model: "gpt-5",
		Turns: []neutral.Turn{
			{Role: neutral.RoleUser, Content: []neutral.ContentPart{neutral.TextPart{Text: "hi"}}},
		},
		Thinking: &neutral.ThinkingSpec{Effort: neutral.ThinkingMedium},
	}

	body, err := New().EncodeRequest(req)
	require.NoError(t, err)

	var wr wireRequest
	require.NoError(t, json.Unmarshal(body, &wr))
	assert.Equal(t, "medium", wr.ReasoningEffort)
	require.NotNil(t, wr.MaxCompletionTokens)
	assert.Equal(t, DefaultReasoningMaxTokens, *wr.MaxCompletionTokens)
	assert.Nil(t, wr.MaxTokens, "max_tokens must not be sent alongside a reasoning request")
}

func TestEncodeRequest_ReasoningHonorsExplicitMaxTokens(t *testing.T) {
	t.Parallel()
	req := &neutral.Request{
		Model:     "gpt-5",
		MaxTokens: intPtr(4096),
		Turns: []neutral.Turn{
			{Role: neutral.RoleUser, Content: []neutral.ContentPart{neutral.TextPart{Text: "hi"}}},
		},
		Thinking: &neutral.ThinkingSpec{Effort: neutral.ThinkingHigh},
	}

	body, err := NewWithReasoningMaxTokens(32000).EncodeRequest(req)
	require.NoError(t, err)

	var wr wireRequest
	require.NoError(t, json.Unmarshal(body, &wr))
	require.NotNil(t, wr.MaxCompletionTokens)
	assert.Equal(t, 4096, *wr.MaxCompletionTokens)
}

func intPtr(v int) *int { return &v }

func TestEncodeRequest_ToolDeclAndChoice(t *testing.T) {
	t.Parallel()
	req := &neutral.Request{
		Model: "gpt-4o",
		Turns: []neutral.Turn{
			{Role: neutral.RoleUser, Content: []neutral.ContentPart{neutral.TextPart{Text: "hi"}}},
		},
		Tools: []neutral.ToolDecl{
			{Name: "get_weather", Description: "fetch weather", Parameters: map[string]interface{}{"type": "object"}},
		},
		ToolChoice: neutral.ToolChoice{Mode: neutral.ToolChoiceNamed, Name: "get_weather"},
	}

	body, err := New().EncodeRequest(req)
	require.NoError(t, err)

	var wr wireRequest
	require.NoError(t, json.Unmarshal(body, &wr))
	require.Len(t, wr.Tools, 1)
	assert.Equal(t, "get_weather", wr.Tools[0].Function.Name)

	choiceMap, ok := wr.ToolChoice.(map[string]interface{})
	require.True(t, ok)
	fn, ok := choiceMap["function"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "get_weather", fn["name"])
}

func TestDecodeResponse(t *testing.T) {
	t.Parallel()
	body := []byte(`{
		"id": "chatcmpl-1",
		"model": "gpt-4o",
		"object": "chat.completion",
		"choices": [{"index":0, "message": {"role":"assistant","content":"hello"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`)

	resp, err := New().DecodeResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, neutral.FinishStop, resp.FinishReason)
	assert.Equal(t, int64(15), resp.Usage.TotalTokens)
	require.Len(t, resp.Content, 1)
	text, ok := resp.Content[0].(neutral.TextPart)
	require.True(t, ok)
	assert.Equal(t, "hello", text.Text)
}

func TestEncodeResponse(t *testing.T) {
	t.Parallel()
	resp := &neutral.Response{
		ID:           "chatcmpl-2",
		Model:        "gpt-4o",
		Content:      []neutral.ContentPart{neutral.TextPart{Text: "hi back"}},
		FinishReason: neutral.FinishStop,
		Usage:        neutral.Usage{InputTokens: 3, OutputTokens: 4, TotalTokens: 7},
	}

	body, err := New().EncodeResponse(resp)
	require.NoError(t, err)

	var wr wireResponse
	require.NoError(t, json.Unmarshal(body, &wr))
	assert.Equal(t, "chatcmpl-2", wr.ID)
	assert.Equal(t, "stop", wr.Choices[0].FinishReason)
	assert.Equal(t, int64(7), wr.Usage.TotalTokens)
}

func TestDecodeStream_TextAndToolCall(t *testing.T) {
	t.Parallel()
	sseBody := strings.Join([]string{
		`data: {"id":"c1","model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`,
		``,
		`data: {"id":"c1","choices":[{"index":0,"delta":{"content":"Hel"},"finish_reason":null}]}`,
		``,
		`data: {"id":"c1","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":null}]}`,
		``,
		`data: {"id":"c1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"get_weather","arguments":""}}]},"finish_reason":null}]}`,
		``,
		`data: {"id":"c1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\":"}}]},"finish_reason":null}]}`,
		``,
		`data: {"id":"c1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"nyc\"}"}}]},"finish_reason":null}]}`,
		``,
		`data: {"id":"c1","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")

	var events []neutral.StreamEvent
	err := New().DecodeStream(strings.NewReader(sseBody), func(ev neutral.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	assert.Equal(t, neutral.EventMessageStart, events[0].Kind)

	var textDeltas []string
	var toolArgs string
	var sawToolStart, sawStop bool
	for _, ev := range events {
		switch ev.Kind {
		case neutral.EventContentBlockDelta:
			if ev.TextDelta != "" {
				textDeltas = append(textDeltas, ev.TextDelta)
			}
			toolArgs += ev.ToolArgsDelta
		case neutral.EventContentBlockStart:
			if ev.BlockKind == neutral.BlockToolCall {
				sawToolStart = true
				assert.Equal(t, "get_weather", ev.ToolName)
			}
		case neutral.EventMessageStop:
			sawStop = true
		}
	}
	assert.Equal(t, "Hello", strings.Join(textDeltas, ""))
	assert.JSONEq(t, `{"city":"nyc"}`, toolArgs)
	assert.True(t, sawToolStart)
	assert.True(t, sawStop)
}

func TestStreamEncoder_TextAndDone(t *testing.T) {
	t.Parallel()
	enc := New().NewStreamEncoder()
	var buf bytes.Buffer

	require.NoError(t, enc.Encode(&buf, neutral.StreamEvent{Kind: neutral.EventContentBlockStart, Index: 0, BlockKind: neutral.BlockText}))
	require.NoError(t, enc.Encode(&buf, neutral.StreamEvent{Kind: neutral.EventContentBlockDelta, Index: 0, TextDelta: "hi"}))
	require.NoError(t, enc.Encode(&buf, neutral.StreamEvent{Kind: neutral.EventMessageStop}))

	out := buf.String()
	assert.Contains(t, out, `"content":"hi"`)
	assert.Contains(t, out, "[DONE]")
}

func TestStreamEncoder_ThinkingBlockDroppedSilently(t *testing.T) {
	t.Parallel()
	enc := New().NewStreamEncoder()
	var buf bytes.Buffer

	require.NoError(t, enc.Encode(&buf, neutral.StreamEvent{Kind: neutral.EventContentBlockStart, Index: 0, BlockKind: neutral.BlockThinking}))
	require.NoError(t, enc.Encode(&buf, neutral.StreamEvent{Kind: neutral.EventContentBlockDelta, Index: 0, ThinkingDelta: "reasoning..."}))
	require.NoError(t, enc.Encode(&buf, neutral.StreamEvent{Kind: neutral.EventContentBlockStop, Index: 0}))

	assert.Empty(t, buf.String(), "a family with no reasoning-content wire slot must drop thinking events, not error")
}

func TestEncodeRequest_ThinkingPartInHistoryIsDropped(t *testing.T) {
	t.Parallel()
	req := &neutral.Request{
		Turns: []neutral.Turn{{
			Role: neutral.RoleAssistant,
			Content: []neutral.ContentPart{
				neutral.ThinkingPart{Text: "reasoning", Signature: "sig-1"},
				neutral.TextPart{Text: "answer"},
			},
		}},
	}

	body, err := New().EncodeRequest(req)
	require.NoError(t, err)

	var wr wireRequest
	require.NoError(t, json.Unmarshal(body, &wr))
	require.Len(t, wr.Messages, 1)
	assert.Equal(t, "answer", wr.Messages[0].Content, "the dropped thinking part must leave only the surviving text content")
}

func TestEncodeModelList(t *testing.T) {
	t.Parallel()
	body, err := New().EncodeModelList([]string{"gpt-4o", "gpt-4o-mini"})
	require.NoError(t, err)

	var list wireModelList
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, "list", list.Object)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "gpt-4o", list.Data[0].ID)
}
