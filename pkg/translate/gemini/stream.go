package gemini

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/neutral"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/providerutils/streaming"
)

// DecodeStream implements family.Translator. Gemini's streamGenerateContent
// (queried with alt=sse) emits whole-candidate chunks rather than the
// fine-grained per-block deltas the other families use: a function call
// always arrives complete in one chunk, never assembled from partial JSON
// fragments. The decoder synthesizes the start/delta/stop triple other
// families express natively so downstream consumers see one shape.
func (t *Translator) DecodeStream(r io.Reader, yield func(neutral.StreamEvent) error) error {
	parser := streaming.NewSSEParser(r)
	started := false
	textOpen := false
	thoughtOpen := false
	const thoughtIndex = -1
	nextToolIndex := 1

	for {
		event, err := parser.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini: stream read: %w", err)
		}
		if event.Data == "" {
			continue
		}

		var chunk wireResponse
		if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
			return fmt.Errorf("gemini: decode stream chunk: %w", err)
		}

		if !started {
			started = true
			if err := yield(neutral.StreamEvent{Kind: neutral.EventMessageStart, Model: chunk.ModelVersion}); err != nil {
				return err
			}
		}

		if len(chunk.Candidates) == 0 {
			continue
		}
		cand := chunk.Candidates[0]

		for _, part := range cand.Content.Parts {
			switch {
			case part.Thought:
				if !thoughtOpen {
					thoughtOpen = true
					if err := yield(neutral.StreamEvent{Kind: neutral.EventContentBlockStart, Index: thoughtIndex, BlockKind: neutral.BlockThinking}); err != nil {
						return err
					}
				}
				if err := yield(neutral.StreamEvent{Kind: neutral.EventContentBlockDelta, Index: thoughtIndex, ThinkingDelta: part.Text, Signature: part.ThoughtSignature}); err != nil {
					return err
				}
			case part.Text != "":
				if !textOpen {
					textOpen = true
					if err := yield(neutral.StreamEvent{Kind: neutral.EventContentBlockStart, Index: 0, BlockKind: neutral.BlockText}); err != nil {
						return err
					}
				}
				if err := yield(neutral.StreamEvent{Kind: neutral.EventContentBlockDelta, Index: 0, TextDelta: part.Text}); err != nil {
					return err
				}
			case part.FunctionCall != nil:
				idx := nextToolIndex
				nextToolIndex++
				args, _ := json.Marshal(part.FunctionCall.Args)
				if err := yield(neutral.StreamEvent{
					Kind: neutral.EventContentBlockStart, Index: idx, BlockKind: neutral.BlockToolCall,
					ToolID: part.FunctionCall.Name, ToolName: part.FunctionCall.Name,
				}); err != nil {
					return err
				}
				if err := yield(neutral.StreamEvent{Kind: neutral.EventContentBlockDelta, Index: idx, ToolArgsDelta: string(args)}); err != nil {
					return err
				}
				if err := yield(neutral.StreamEvent{Kind: neutral.EventContentBlockStop, Index: idx}); err != nil {
					return err
				}
			}
		}

		if cand.FinishReason != "" {
			if thoughtOpen {
				if err := yield(neutral.StreamEvent{Kind: neutral.EventContentBlockStop, Index: thoughtIndex}); err != nil {
					return err
				}
				thoughtOpen = false
			}
			if textOpen {
				if err := yield(neutral.StreamEvent{Kind: neutral.EventContentBlockStop, Index: 0}); err != nil {
					return err
				}
				textOpen = false
			}
			usage := neutral.Usage{}
			if chunk.UsageMetadata != nil {
				usage = neutral.Usage{
					InputTokens:  chunk.UsageMetadata.PromptTokenCount,
					OutputTokens: chunk.UsageMetadata.CandidatesTokenCount,
					TotalTokens:  chunk.UsageMetadata.TotalTokenCount,
				}
			}
			fr := mapFinishReasonIn(cand.FinishReason)
			if err := yield(neutral.StreamEvent{Kind: neutral.EventMessageDelta, FinishReason: fr, Usage: usage}); err != nil {
				return err
			}
			if err := yield(neutral.StreamEvent{Kind: neutral.EventMessageStop}); err != nil {
				return err
			}
		}
	}
}

// streamEncoder implements family.StreamEncoder for Gemini. Gemini has no
// incremental function-argument delta, so tool-call argument fragments are
// buffered per block index and flushed as one complete functionCall part
// when the block closes.
type streamEncoder struct {
	toolName map[int]string
	toolArgs map[int]string
}

// NewStreamEncoder implements family.Translator.
func (t *Translator) NewStreamEncoder() family.StreamEncoder {
	return &streamEncoder{toolName: map[int]string{}, toolArgs: map[int]string{}}
}

// Encode implements family.StreamEncoder.
func (e *streamEncoder) Encode(w io.Writer, ev neutral.StreamEvent) error {
	sw := streaming.NewSSEWriter(w)

	switch ev.Kind {
	case neutral.EventMessageStart:
		return nil
	case neutral.EventContentBlockStart:
		if ev.BlockKind == neutral.BlockToolCall {
			e.toolName[ev.Index] = ev.ToolName
			e.toolArgs[ev.Index] = ""
		}
		return nil
	case neutral.EventContentBlockDelta:
		if ev.ThinkingDelta != "" || ev.Signature != "" {
			return writeChunk(sw, wireResponse{Candidates: []wireCandidate{{
				Content: wireContent{Role: "model", Parts: []wirePart{{
					Text: ev.ThinkingDelta, Thought: true, ThoughtSignature: ev.Signature,
				}}},
			}}})
		}
		if ev.TextDelta != "" {
			return writeChunk(sw, wireResponse{Candidates: []wireCandidate{{
				Content: wireContent{Role: "model", Parts: []wirePart{{Text: ev.TextDelta}}},
			}}})
		}
		if ev.ToolArgsDelta != "" {
			e.toolArgs[ev.Index] += ev.ToolArgsDelta
		}
		return nil
	case neutral.EventContentBlockStop:
		name, isTool := e.toolName[ev.Index]
		if !isTool {
			return nil
		}
		var args map[string]interface{}
		_ = json.Unmarshal([]byte(e.toolArgs[ev.Index]), &args)
		delete(e.toolName, ev.Index)
		delete(e.toolArgs, ev.Index)
		return writeChunk(sw, wireResponse{Candidates: []wireCandidate{{
			Content: wireContent{Role: "model", Parts: []wirePart{{FunctionCall: &wireFunctionCall{Name: name, Args: args}}}},
		}}})
	case neutral.EventMessageDelta:
		return writeChunk(sw, wireResponse{
			Candidates: []wireCandidate{{FinishReason: mapFinishReasonOut(ev.FinishReason)}},
			UsageMetadata: &wireUsage{
				PromptTokenCount:     ev.Usage.InputTokens,
				CandidatesTokenCount: ev.Usage.OutputTokens,
				TotalTokenCount:      ev.Usage.TotalTokens,
			},
		})
	case neutral.EventMessageStop:
		return nil
	}
	return nil
}

func writeChunk(sw *streaming.SSEWriter, chunk wireResponse) error {
	b, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	return sw.WriteData(string(b))
}
