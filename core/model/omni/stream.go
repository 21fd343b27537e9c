package omni

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/eidolonlabs/eidolon-core/core/model"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// sseStream decodes one server-sent-events response into typed chunks. The
// wire protocol has no per-call completion event; the terminal tool_calls
// finish reason is the authoritative signal, so the stream synthesizes one
// done chunk per observed call at that point.
type sseStream struct {
	body io.ReadCloser
	span trace.Span

	callIDs   map[int]string
	callOrder []string
	seqs      map[string]int

	closeOnce sync.Once
}

func newSSEStream(body io.ReadCloser, span trace.Span) *sseStream {
	return &sseStream{
		body:    body,
		span:    span,
		callIDs: map[int]string{},
		seqs:    map[string]int{},
	}
}

func (s *sseStream) Chunks(ctx context.Context) iter.Seq2[model.Chunk, error] {
	return func(yield func(model.Chunk, error) bool) {
		defer s.Close()

		scanner := bufio.NewScanner(s.body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}

			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return
			}

			var chunk wireChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				s.span.RecordError(err)
				s.span.SetStatus(codes.Error, err.Error())
				yield(nil, fmt.Errorf("failed to decode stream chunk: %w", err))
				return
			}

			for _, decoded := range s.decode(chunk) {
				if !yield(decoded, nil) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
			yield(nil, fmt.Errorf("stream read failed: %w", err))
		}
	}
}

func (s *sseStream) decode(chunk wireChunk) []model.Chunk {
	if len(chunk.Choices) == 0 {
		return nil
	}
	choice := chunk.Choices[0]

	var decoded []model.Chunk
	if choice.Delta.Content != "" {
		decoded = append(decoded, contentChunk{text: choice.Delta.Content})
	}

	if choice.Delta.Audio != nil {
		if choice.Delta.Audio.Data != "" {
			pcm, err := base64.StdEncoding.DecodeString(choice.Delta.Audio.Data)
			if err == nil {
				decoded = append(decoded, audioChunk{pcm: pcm})
			} else {
				logger.Warn("failed to decode audio delta", "error", err)
			}
		}
		if choice.Delta.Audio.Transcript != "" {
			decoded = append(decoded, audioTranscriptChunk{text: choice.Delta.Audio.Transcript})
		}
	}

	for _, call := range choice.Delta.ToolCalls {
		id := call.ID
		if id == "" {
			id = s.callIDs[call.Index]
		} else if _, known := s.callIDs[call.Index]; !known {
			s.callIDs[call.Index] = id
			s.callOrder = append(s.callOrder, id)
		}
		if id == "" {
			continue
		}

		seq := s.seqs[id]
		s.seqs[id] = seq + 1
		decoded = append(decoded, toolCallChunk{delta: model.ToolCallDelta{
			ID:                id,
			Name:              call.Function.Name,
			ArgumentsFragment: call.Function.Arguments,
			Seq:               seq,
		}})
	}

	if choice.FinishReason != nil {
		if *choice.FinishReason == "tool_calls" {
			for _, id := range s.callOrder {
				decoded = append(decoded, toolCallDoneChunk{id: id})
			}
		}
		decoded = append(decoded, finishChunk{reason: choice.FinishReason})
	}
	return decoded
}

func (s *sseStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
		s.span.End()
	})
	return err
}

type contentChunk struct{ text string }

func (c contentChunk) FinishReason() *string { return nil }
func (c contentChunk) Content() string       { return c.text }

type audioChunk struct{ pcm []byte }

func (c audioChunk) FinishReason() *string { return nil }
func (c audioChunk) Audio() []byte         { return c.pcm }

type audioTranscriptChunk struct{ text string }

func (c audioTranscriptChunk) FinishReason() *string { return nil }
func (c audioTranscriptChunk) Transcript() string    { return c.text }

type toolCallChunk struct{ delta model.ToolCallDelta }

func (c toolCallChunk) FinishReason() *string         { return nil }
func (c toolCallChunk) ToolCall() model.ToolCallDelta { return c.delta }

type toolCallDoneChunk struct{ id string }

func (c toolCallDoneChunk) FinishReason() *string { return nil }
func (c toolCallDoneChunk) CallID() string        { return c.id }

type finishChunk struct{ reason *string }

func (c finishChunk) FinishReason() *string { return c.reason }
