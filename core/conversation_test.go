package orchestration

import (
	"testing"

	"github.com/eidolonlabs/eidolon-core/core/model"
	"github.com/eidolonlabs/eidolon-core/core/tools"
)

func foldedTurn(prompt string) *turn {
	t := newTurn("session-1", prompt)
	t.planText = "I will wave."
	t.speechText = "There you go."
	t.invocations = []tools.Invocation{
		{ID: "c1", Name: "perform_gesture", Raw: `{"name":"wave"}`},
	}
	t.results = []tools.Result{
		{ID: "c1", Name: "perform_gesture", Outcome: tools.OutcomeOK, Content: "done"},
	}
	return t
}

func TestConversationFoldShapesMessages(t *testing.T) {
	conv := newConversation(0)
	conv.fold(foldedTurn("wave at me"))

	history := conv.history()
	if len(history) != 4 {
		t.Fatalf("expected 4 messages, got %d: %+v", len(history), history)
	}

	if history[0].Role != model.RoleUser || history[0].Content != "wave at me" {
		t.Errorf("first message must be the prompt, got %+v", history[0])
	}
	if history[1].Role != model.RoleAssistant || len(history[1].ToolCalls) != 1 {
		t.Errorf("second message must carry the tool calls, got %+v", history[1])
	}
	if history[1].ToolCalls[0].Arguments != `{"name":"wave"}` {
		t.Errorf("tool call must carry raw arguments, got %+v", history[1].ToolCalls[0])
	}
	if history[2].Role != model.RoleTool || history[2].ToolCallID != "c1" || history[2].Content != "done" {
		t.Errorf("third message must be the tool result, got %+v", history[2])
	}
	if history[3].Role != model.RoleAssistant || history[3].Content != "There you go." {
		t.Errorf("last message must be the spoken text, got %+v", history[3])
	}
}

func TestConversationFoldRendersFailuresAsContext(t *testing.T) {
	conv := newConversation(0)
	failed := foldedTurn("wave")
	failed.results = []tools.Result{
		tools.Failure(failed.invocations[0], tools.OutcomeTimeout, "tool call timed out"),
	}
	conv.fold(failed)

	history := conv.history()
	result := history[2]
	if result.Role != model.RoleTool {
		t.Fatalf("expected tool message, got %+v", result)
	}
	if result.Content != "tool call failed (timeout): tool call timed out" {
		t.Errorf("failure must render as model-visible context, got %q", result.Content)
	}
}

func TestConversationTrimKeepsToolResultsWithTheirCall(t *testing.T) {
	conv := newConversation(3)
	conv.fold(foldedTurn("first"))
	conv.fold(foldedTurn("second"))

	history := conv.history()
	if len(history) > 4 {
		t.Fatalf("history must be trimmed near its bound, got %d messages", len(history))
	}
	if history[0].Role == model.RoleTool {
		t.Errorf("trim must never leave an orphaned tool result at the head, got %+v", history[0])
	}
}

func TestConversationHistoryIsASnapshot(t *testing.T) {
	conv := newConversation(0)
	conv.fold(foldedTurn("wave"))

	snapshot := conv.history()
	snapshot[0].Content = "mutated"

	if conv.history()[0].Content != "wave" {
		t.Error("mutating a snapshot must not affect the conversation")
	}
}
