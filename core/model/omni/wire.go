package omni

import (
	"encoding/json"

	"github.com/eidolonlabs/eidolon-core/core/model"
)

type wireRequest struct {
	Model      string           `json:"model"`
	Messages   []wireMessage    `json:"messages"`
	Modalities []string         `json:"modalities,omitempty"`
	Audio      *wireAudioConfig `json:"audio,omitempty"`
	Tools      []wireTool       `json:"tools,omitempty"`
	Stream     bool             `json:"stream"`
}

type wireAudioConfig struct {
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func wireMessageFrom(message model.Message) wireMessage {
	wire := wireMessage{
		Role:       string(message.Role),
		Content:    message.Content,
		ToolCallID: message.ToolCallID,
	}
	for _, call := range message.ToolCalls {
		wire.ToolCalls = append(wire.ToolCalls, wireToolCall{
			ID:   call.ID,
			Type: "function",
			Function: wireToolFunction{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}
	return wire
}

// wireChunk is one decoded chat.completion.chunk payload.
type wireChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
			Audio *struct {
				Data       string `json:"data"`
				Transcript string `json:"transcript"`
			} `json:"audio"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}
