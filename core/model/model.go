// Package model defines the contract between the orchestration core and a
// streaming multimodal model adapter. The core treats an adapter purely as an
// event source/sink; the wire protocol is the adapter's concern.
package model

import (
	"context"
	"encoding/json"
	"iter"
)

// Modality selects the output channels requested for one turn-scoped stream.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// Role describes who a history message is from.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single item of turn-scoped message history.
type Message struct {
	Role    Role
	Content string

	// ToolCalls holds completed calls issued by the assistant in this
	// message, if any.
	ToolCalls []ToolCall
	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string
}

// ToolCall is a completed call as it appears in message history.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolSpec describes one callable tool offered to the model. Parameters is a
// JSON schema document.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Request is one turn-scoped streaming request.
type Request struct {
	Instructions string
	Modalities   []Modality
	Messages     []Message
	Tools        []ToolSpec
	Voice        string
}

// Adapter opens turn-scoped streams against a model endpoint.
type Adapter interface {
	Stream(ctx context.Context, request Request) (Stream, error)
}

// Stream is a single in-flight model response. Chunks yields until the
// stream finishes or fails; Close releases the underlying transport and is
// safe to call concurrently with iteration.
type Stream interface {
	Chunks(ctx context.Context) iter.Seq2[Chunk, error]
	Close() error
}

// Chunk is one decoded stream element. Concrete chunks additionally satisfy
// one of the typed chunk interfaces below.
type Chunk interface {
	// FinishReason is non-nil on the terminal chunk of a choice.
	FinishReason() *string
}

// ContentChunk carries a streamed response text segment.
type ContentChunk interface {
	Chunk
	Content() string
}

// AudioChunk carries one decoded audio delta in arrival order.
type AudioChunk interface {
	Chunk
	Audio() []byte
}

// AudioTranscriptChunk carries the transcript text paired with synthesized
// audio.
type AudioTranscriptChunk interface {
	Chunk
	Transcript() string
}

// ToolCallChunk carries one streamed tool-call fragment.
type ToolCallChunk interface {
	Chunk
	ToolCall() ToolCallDelta
}

// ToolCallDoneChunk signals that the argument stream for a call is complete.
// It is the authoritative completion signal; a buffer that parses early is
// not complete without it.
type ToolCallDoneChunk interface {
	Chunk
	CallID() string
}

// ToolCallDelta is one fragment of a streamed tool call. Name may be empty
// on all fragments except the one that first carries it. Seq increases
// monotonically per call id.
type ToolCallDelta struct {
	ID                string
	Name              string
	ArgumentsFragment string
	Seq               int
}
