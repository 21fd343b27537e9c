package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/eidolonlabs/eidolon-core/core/events"
	"github.com/eidolonlabs/eidolon-core/core/model"
	"github.com/eidolonlabs/eidolon-core/core/tools"
)

func promptOnlyAdapter() *scriptedAdapter {
	return &scriptedAdapter{
		plan: append(
			[]model.Chunk{contentChunk{text: "checking"}},
			callChunks("c1", "lookup_fact", `{"topic":"doors"}`)...,
		),
		speak: []model.Chunk{
			contentChunk{text: "Doors open."},
			audioChunk{pcm: []byte{1, 2, 3, 4}},
		},
	}
}

func lookupTestTool() tools.Tool {
	return tools.NewTool(
		"lookup_fact",
		"Look up a fact",
		map[string]tools.ParameterBase{
			"topic": {Type: "string", Description: "Topic to look up"},
		},
		func(args struct {
			Topic string `json:"topic"`
		}) (string, error) {
			return "facts about " + args.Topic, nil
		},
	)
}

func TestOrchestratorRunsTurnFromTypedPrompt(t *testing.T) {
	orchestrator := NewOrchestrator(
		WithModelAdapter(promptOnlyAdapter()),
		WithTools(lookupTestTool()),
		WithInstructions("be helpful"),
	)
	defer orchestrator.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	turnDone := make(chan struct{}, 1)
	var completedTool string
	err := orchestrator.Orchestrate(ctx,
		WithToolCallCompletedCallback(func(id, name, response string) {
			completedTool = name + "=" + response
		}),
		WithTurnEndCallback(func() {
			turnDone <- struct{}{}
		}),
	)
	if err != nil {
		t.Fatalf("orchestrate failed: %v", err)
	}

	orchestrator.SendPrompt("what do doors do")

	select {
	case <-turnDone:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not complete")
	}

	if completedTool != "lookup_fact=facts about doors" {
		t.Errorf("unexpected tool completion %q", completedTool)
	}

	history := orchestrator.History()
	if len(history) == 0 || history[0].Content != "what do doors do" {
		t.Fatalf("prompt must fold into history, got %+v", history)
	}
	last := history[len(history)-1]
	if last.Role != model.RoleAssistant || last.Content != "Doors open." {
		t.Errorf("spoken text must fold into history, got %+v", last)
	}
}

func TestOrchestratorRunsQueuedTurnsSerially(t *testing.T) {
	orchestrator := NewOrchestrator(
		WithModelAdapter(promptOnlyAdapter()),
		WithTools(lookupTestTool()),
	)
	defer orchestrator.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	turnDone := make(chan struct{}, 4)
	if err := orchestrator.Orchestrate(ctx, WithTurnEndCallback(func() {
		turnDone <- struct{}{}
	})); err != nil {
		t.Fatalf("orchestrate failed: %v", err)
	}

	orchestrator.SendPrompt("first")
	orchestrator.SendPrompt("second")

	for range 2 {
		select {
		case <-turnDone:
		case <-time.After(2 * time.Second):
			t.Fatal("queued turn did not complete")
		}
	}

	history := orchestrator.History()
	var prompts []string
	for _, message := range history {
		if message.Role == model.RoleUser {
			prompts = append(prompts, message.Content)
		}
	}
	if len(prompts) != 2 || prompts[0] != "first" || prompts[1] != "second" {
		t.Fatalf("turns must fold in trigger order, got %v", prompts)
	}
}

func TestOrchestratorStartsOnlyOnce(t *testing.T) {
	orchestrator := NewOrchestrator(WithModelAdapter(promptOnlyAdapter()))
	defer orchestrator.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orchestrator.Orchestrate(ctx); err != nil {
		t.Fatalf("first orchestrate failed: %v", err)
	}
	if err := orchestrator.Orchestrate(ctx); err == nil {
		t.Fatal("second orchestrate must fail")
	}
}

func TestOrchestratorFatalSessionErrorStopsTurnIntake(t *testing.T) {
	orchestrator := NewOrchestrator(WithModelAdapter(promptOnlyAdapter()))
	defer orchestrator.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fatalSeen string
	turnRan := make(chan struct{}, 1)
	err := orchestrator.Orchestrate(ctx,
		WithErrorCallback(func(message string, fatal bool) {
			if fatal {
				fatalSeen = message
			}
		}),
		WithTurnEndCallback(func() {
			turnRan <- struct{}{}
		}),
	)
	if err != nil {
		t.Fatalf("orchestrate failed: %v", err)
	}

	orchestrator.mu.Lock()
	emit := orchestrator.emitAll
	orchestrator.mu.Unlock()
	emit(events.NewSessionError("reconnect budget exhausted", true))

	if fatalSeen != "reconnect budget exhausted" {
		t.Fatalf("fatal error must reach the error callback, got %q", fatalSeen)
	}
	if orchestrator.triggers.Send("too late") {
		t.Fatal("trigger queue must refuse prompts after a fatal session error")
	}

	orchestrator.SendPrompt("still there?")
	select {
	case <-turnRan:
		t.Fatal("no turn may start after a fatal session error")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOrchestratorKillSwitchToggle(t *testing.T) {
	orchestrator := NewOrchestrator(WithModelAdapter(promptOnlyAdapter()), WithKillSwitch(true))
	defer orchestrator.Close()

	if !orchestrator.KillSwitch() {
		t.Fatal("kill switch must start in the configured position")
	}
	orchestrator.SetKillSwitch(false)
	if orchestrator.KillSwitch() {
		t.Fatal("kill switch must toggle off")
	}
}
