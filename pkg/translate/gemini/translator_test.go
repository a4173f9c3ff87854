package gemini

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
	assert.Equal(t, family.Gemini, New().Family())
}

func TestAuthHeader(t *testing.T) {
	t.Parallel()
	name, value := New().AuthHeader("goog-test")
	assert.Equal(t, "x-goog-api-key", name)
	assert.Equal(t, "goog-test", value)
}

func TestDecodeRequest_SystemAndText(t *testing.T) {
	t.Parallel()
	body := []byte(`{
		"systemInstruction": {"parts":[{"text":"be terse"}]},
		"contents": [{"role":"user","parts":[{"text":"hi there"}]}],
		"generationConfig": {"temperature": 0.3, "thinkingConfig": {"thinkingBudget": 2048}}
	}`)

	req, err := New().DecodeRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "be terse", req.System)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.3, *req.Temperature)
	require.NotNil(t, req.Thinking)
	assert.Equal(t, 2048, req.Thinking.BudgetTokens)
	require.Len(t, req.Turns, 1)
	text, ok := req.Turns[0].Content[0].(neutral.TextPart)
	require.True(t, ok)
	assert.Equal(t, "hi there", text.Text)
}

func TestDecodeRequest_FunctionCallSynthesizesIDFromName(t *testing.T) {
	t.Parallel()
	body := []byte(`{
		"contents": [
			{"role":"user","parts":[{"text":"weather?"}]},
			{"role":"model","parts":[{"functionCall":{"name":"get_weather","args":{"city":"nyc"}}}]},
			{"role":"user","parts":[{"functionResponse":{"name":"get_weather","response":{"temp":"72F"}}}]}
		]
	}`)

	req, err := New().DecodeRequest(body)
	require.NoError(t, err)
	require.Len(t, req.Turns, 3)

	tc, ok := req.Turns[1].Content[0].(neutral.ToolCallPart)
	require.True(t, ok)
	assert.Equal(t, "get_weather", tc.ID, "Gemini has no call ID, so the function name is synthesized as the ID")
	assert.Equal(t, "get_weather", tc.Name)

	tr, ok := req.Turns[2].Content[0].(neutral.ToolResultPart)
	require.True(t, ok)
	assert.Equal(t, "get_weather", tr.ToolCallID)
}

func TestEncodeRequest_ToolResultRecoversNameFromIDMap(t *testing.T) {
	t.Parallel()
	req := &neutral.Request{
		Turns: []neutral.Turn{
			{Role: neutral.RoleUser, Content: []neutral.ContentPart{neutral.TextPart{Text: "weather?"}}},
			{Role: neutral.RoleAssistant, Content: []neutral.ContentPart{
				neutral.ToolCallPart{ID: "call_1", Name: "get_weather", Arguments: []byte(`{"city":"nyc"}`)},
			}},
			{Role: neutral.RoleUser, Content: []neutral.ContentPart{
				neutral.ToolResultPart{ToolCallID: "call_1", Content: `{"temp":"72F"}`},
			}},
		},
	}

	body, err := New().EncodeRequest(req)
	require.NoError(t, err)

	var wr wireRequest
	require.NoError(t, json.Unmarshal(body, &wr))
	require.Len(t, wr.Contents, 3)

	functionResponsePart := wr.Contents[2].Parts[0]
	require.NotNil(t, functionResponsePart.FunctionResponse)
	// call_1 is an opaque ID from another family; idToName must translate
	// it back to the function name Gemini's functionResponse needs.
	assert.Equal(t, "get_weather", functionResponsePart.FunctionResponse.Name)
}

func TestEncodeRequest_ToolChoice(t *testing.T) {
	t.Parallel()
	req := &neutral.Request{
		Turns:      []neutral.Turn{{Role: neutral.RoleUser, Content: []neutral.ContentPart{neutral.TextPart{Text: "hi"}}}},
		ToolChoice: neutral.ToolChoice{Mode: neutral.ToolChoiceNamed, Name: "get_weather"},
	}
	body, err := New().EncodeRequest(req)
	require.NoError(t, err)

	var wr wireRequest
	require.NoError(t, json.Unmarshal(body, &wr))
	require.NotNil(t, wr.ToolConfig)
	assert.Equal(t, "ANY", wr.ToolConfig.FunctionCallingConfig.Mode)
	assert.Equal(t, []string{"get_weather"}, wr.ToolConfig.FunctionCallingConfig.AllowedFunctionNames)
}

func TestDecodeResponse_SynthesizesID(t *testing.T) {
	t.Parallel()
	body := []byte(`{
		"candidates": [{"content":{"role":"model","parts":[{"text":"hello"}]},"finishReason":"STOP"}],
		"usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 2, "totalTokenCount": 5},
		"modelVersion": "gemini-2.5-pro"
	}`)

	resp, err := New().DecodeResponse(body)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, neutral.FinishStop, resp.FinishReason)
	assert.Equal(t, int64(5), resp.Usage.TotalTokens)
}

func TestDecodeResponse_NoCandidatesErrors(t *testing.T) {
	t.Parallel()
	_, err := New().DecodeResponse([]byte(`{"candidates":[]}`))
	assert.Error(t, err)
}

func TestDecodeStream_SynthesizesTripleForFunctionCall(t *testing.T) {
	t.Parallel()
	sseBody := strings.Join([]string{
		`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"thinking..."}]}}],"modelVersion":"gemini-2.5-pro"}`,
		``,
		`data: {"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"get_weather","args":{"city":"nyc"}}}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`,
		``,
	}, "\n")

	var events []neutral.StreamEvent
	err := New().DecodeStream(strings.NewReader(sseBody), func(ev neutral.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	var sawToolStart, sawToolDelta, sawToolStop, sawMessageStop bool
	for _, ev := range events {
		switch ev.Kind {
		case neutral.EventContentBlockStart:
			if ev.BlockKind == neutral.BlockToolCall {
				sawToolStart = true
				assert.Equal(t, "get_weather", ev.ToolName)
			}
		case neutral.EventContentBlockDelta:
			if ev.ToolArgsDelta != "" {
				sawToolDelta = true
				assert.JSONEq(t, `{"city":"nyc"}`, ev.ToolArgsDelta)
			}
		case neutral.EventContentBlockStop:
			if ev.Index != 0 {
				sawToolStop = true
			}
		case neutral.EventMessageStop:
			sawMessageStop = true
		}
	}
	assert.True(t, sawToolStart)
	assert.True(t, sawToolDelta)
	assert.True(t, sawToolStop)
	assert.True(t, sawMessageStop)
}

func TestStreamEncoder_BuffersToolArgsAcrossEventsUntilStop(t *testing.T) {
	t.Parallel()
	enc := New().NewStreamEncoder()
	var buf bytes.Buffer

	require.NoError(t, enc.Encode(&buf, neutral.StreamEvent{Kind: neutral.EventContentBlockStart, Index: 1, BlockKind: neutral.BlockToolCall, ToolName: "get_weather"}))
	require.NoError(t, enc.Encode(&buf, neutral.StreamEvent{Kind: neutral.EventContentBlockDelta, Index: 1, ToolArgsDelta: `{"city":`}))
	// No chunk should be written yet: Gemini has no incremental function-arg delta.
	assert.Empty(t, buf.String())

	require.NoError(t, enc.Encode(&buf, neutral.StreamEvent{Kind: neutral.EventContentBlockDelta, Index: 1, ToolArgsDelta: `"nyc"}`}))
	assert.Empty(t, buf.String())

	require.NoError(t, enc.Encode(&buf, neutral.StreamEvent{Kind: neutral.EventContentBlockStop, Index: 1}))

	var chunk wireResponse
	require.NoError(t, json.Unmarshal(extractData(t, buf.String()), &chunk))
	require.Len(t, chunk.Candidates, 1)
	part := chunk.Candidates[0].Content.Parts[0]
	require.NotNil(t, part.FunctionCall)
	assert.Equal(t, "get_weather", part.FunctionCall.Name)
	assert.Equal(t, "nyc", part.FunctionCall.Args["city"])
}

func extractData(t *testing.T, sse string) []byte {
	t.Helper()
	for _, line := range strings.Split(sse, "\n") {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: "))
		}
	}
	t.Fatal("no data line found in SSE output")
	return nil
}

func TestDecodeRequest_ThoughtPartInHistory(t *testing.T) {
	t.Parallel()
	body := []byte(`{
		"contents": [{"role": "model", "parts": [
			{"text": "reasoning here", "thought": true, "thoughtSignature": "sig-1"},
			{"text": "final answer"}
		]}]
	}`)

	req, err := New().DecodeRequest(body)
	require.NoError(t, err)
	require.Len(t, req.Turns[0].Content, 2)

	thought, ok := req.Turns[0].Content[0].(neutral.ThinkingPart)
	require.True(t, ok)
	assert.Equal(t, "reasoning here", thought.Text)
	assert.Equal(t, "sig-1", thought.Signature)
}

func TestEncodeRequest_UnsignedThoughtIsDropped(t *testing.T) {
	t.Parallel()
	req := &neutral.Request{
		Turns: []neutral.Turn{{
			Role: neutral.RoleAssistant,
			Content: []neutral.ContentPart{
				neutral.ThinkingPart{Text: "no signature"},
				neutral.TextPart{Text: "answer"},
			},
		}},
	}

	body, err := New().EncodeRequest(req)
	require.NoError(t, err)

	var wr wireRequest
	require.NoError(t, json.Unmarshal(body, &wr))
	require.Len(t, wr.Contents[0].Parts, 1)
	assert.Equal(t, "answer", wr.Contents[0].Parts[0].Text)
}

func TestDecodeStream_SynthesizesThoughtBlock(t *testing.T) {
	t.Parallel()
	raw := "data: " + `{"candidates":[{"content":{"role":"model","parts":[{"text":"thinking...","thought":true,"thoughtSignature":"sig-1"}]}}]}` + "\n\n" +
		"data: " + `{"candidates":[{"content":{"role":"model","parts":[{"text":"answer"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":1,"candidatesTokenCount":1,"totalTokenCount":2}}` + "\n\n"

	var events []neutral.StreamEvent
	err := New().DecodeStream(strings.NewReader(raw), func(ev neutral.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	var thoughtStart, thoughtDelta, thoughtStop bool
	for _, ev := range events {
		switch {
		case ev.Kind == neutral.EventContentBlockStart && ev.BlockKind == neutral.BlockThinking:
			thoughtStart = true
		case ev.Kind == neutral.EventContentBlockDelta && ev.ThinkingDelta == "thinking...":
			thoughtDelta = true
			assert.Equal(t, "sig-1", ev.Signature)
		case ev.Kind == neutral.EventContentBlockStop && thoughtStart && !thoughtStop:
			thoughtStop = true
		}
	}
	assert.True(t, thoughtStart, "expected a thinking content-block-start event")
	assert.True(t, thoughtDelta, "expected a thinking delta event")
	assert.True(t, thoughtStop, "expected the thinking block to close")
}

func TestEncodeModelList(t *testing.T) {
	t.Parallel()
	body, err := New().EncodeModelList([]string{"gemini-2.5-pro"})
	require.NoError(t, err)

	var list wireModelList
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Models, 1)
	assert.Equal(t, "models/gemini-2.5-pro", list.Models[0].Name)
}
