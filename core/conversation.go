package orchestration

import (
	"sync"

	"github.com/eidolonlabs/eidolon-core/core/model"
	"github.com/eidolonlabs/eidolon-core/core/tools"
)

// conversation is the working message history shared across turns. It is
// mutated only at UPDATE, when a finished turn folds into it; everything
// else reads snapshots.
type conversation struct {
	mu       sync.Mutex
	messages []model.Message

	maxMessages int
}

func newConversation(maxMessages int) *conversation {
	return &conversation{maxMessages: maxMessages}
}

// history returns a snapshot safe to hand to a model request.
func (c *conversation) history() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]model.Message, len(c.messages))
	copy(messages, c.messages)
	return messages
}

// fold appends one finished turn: the user prompt, the assistant plan with
// its tool calls, each tool result, and the spoken response.
func (c *conversation) fold(t *turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, turnMessages(t)...)
	c.trimLocked()
}

// trimLocked drops the oldest messages once the history outgrows its bound,
// keeping tool-result messages adjacent to the call that produced them.
func (c *conversation) trimLocked() {
	if c.maxMessages <= 0 || len(c.messages) <= c.maxMessages {
		return
	}
	cut := len(c.messages) - c.maxMessages
	for cut < len(c.messages) && c.messages[cut].Role == model.RoleTool {
		cut++
	}
	c.messages = c.messages[cut:]
}

// turnMessages renders a turn as model message history. Used both by fold
// and by the SPEAK request, which needs the in-progress turn as context.
func turnMessages(t *turn) []model.Message {
	messages := []model.Message{{Role: model.RoleUser, Content: t.prompt}}

	if len(t.invocations) > 0 {
		assistant := model.Message{Role: model.RoleAssistant, Content: t.planText}
		for _, invocation := range t.invocations {
			assistant.ToolCalls = append(assistant.ToolCalls, model.ToolCall{
				ID:        invocation.ID,
				Name:      invocation.Name,
				Arguments: invocation.Raw,
			})
		}
		messages = append(messages, assistant)

		for _, result := range t.results {
			messages = append(messages, model.Message{
				Role:       model.RoleTool,
				ToolCallID: result.ID,
				Content:    resultContent(result),
			})
		}
	} else if t.planText != "" {
		messages = append(messages, model.Message{Role: model.RoleAssistant, Content: t.planText})
	}

	if t.speechText != "" {
		messages = append(messages, model.Message{Role: model.RoleAssistant, Content: t.speechText})
	}
	return messages
}

// resultContent renders a tool result so the model sees failures as context
// instead of the orchestrator halting on them.
func resultContent(result tools.Result) string {
	if result.OK() {
		return result.Content
	}
	return "tool call failed (" + string(result.Outcome) + "): " + result.Error
}
