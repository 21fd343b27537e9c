package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eidolonlabs/eidolon-core/core/events"
	"github.com/eidolonlabs/eidolon-core/core/model"
	"github.com/eidolonlabs/eidolon-core/core/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// turnMachine drives one LISTEN→PLAN→ACT→SPEAK→UPDATE cycle at a time. It
// is event-driven off the upstream transcript stream and owns the turn
// record exclusively; the accumulator, gate and governor are its
// subordinates.
type turnMachine struct {
	adapter      model.Adapter
	bridge       *audioBridge
	governor     *toolGovernor
	conversation *conversation

	instructions string
	toolSpecs    []model.ToolSpec
	classify     func(name string) bool

	config turnMachineConfig
	emit   eventEmitter
}

type turnMachineConfig struct {
	// CallCap bounds dispatched tool calls per turn; calls past it are
	// rejected immediately, not queued. Zero means uncapped.
	CallCap int

	PlanTimeout     time.Duration
	ActTimeout      time.Duration
	SpeakTimeout    time.Duration
	FragmentTimeout time.Duration

	Voice string
}

func newTurnMachine(
	adapter model.Adapter,
	bridge *audioBridge,
	governor *toolGovernor,
	conversation *conversation,
	instructions string,
	toolSpecs []model.ToolSpec,
	classifyHeavy func(name string) bool,
	config turnMachineConfig,
	emit eventEmitter,
) *turnMachine {
	if config.PlanTimeout <= 0 {
		config.PlanTimeout = 60 * time.Second
	}
	if config.ActTimeout <= 0 {
		config.ActTimeout = 30 * time.Second
	}
	if config.SpeakTimeout <= 0 {
		config.SpeakTimeout = 120 * time.Second
	}
	if config.FragmentTimeout <= 0 {
		config.FragmentTimeout = 5 * time.Second
	}
	if classifyHeavy == nil {
		classifyHeavy = func(string) bool { return false }
	}
	if emit == nil {
		emit = noopEventEmitter
	}

	return &turnMachine{
		adapter:      adapter,
		bridge:       bridge,
		governor:     governor,
		conversation: conversation,
		instructions: instructions,
		toolSpecs:    toolSpecs,
		classify:     classifyHeavy,
		config:       config,
		emit:         emit,
	}
}

// RunTurn executes one full turn triggered by a final transcript or an
// explicit prompt. It always returns the machine to a state from which the
// next turn can start; an error means the turn aborted, not that the
// orchestrator should stop.
func (m *turnMachine) RunTurn(ctx context.Context, sessionID, prompt string) error {
	t := newTurn(sessionID, prompt)

	ctx, span := tracer.Start(ctx, "turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("turn.id", t.id),
		attribute.String("session.id", t.sessionID),
	)

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.emit(events.NewTurnStarted(events.ForTurn(t.id), events.ForSession(t.sessionID)))

	err := m.run(turnCtx, t)
	span.SetAttributes(attribute.String("turn.state", string(t.state)))
	if err != nil {
		t.state = turnStateAborted
		m.cleanup(cancel, t)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.Canceled) {
			m.emit(events.NewTurnCancelled(events.ForTurn(t.id), events.ForSession(t.sessionID)))
		} else {
			m.emit(events.NewTurnFailed(err.Error(), events.ForTurn(t.id), events.ForSession(t.sessionID)))
		}
		return err
	}
	return nil
}

func (m *turnMachine) run(ctx context.Context, t *turn) error {
	t.state = turnStatePlan
	invocations, err := m.plan(ctx, t)
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}
	t.invocations = invocations

	results := make(chan tools.Result, len(invocations)+1)
	release := func(invocation tools.Invocation) {
		go func() {
			select {
			case results <- m.governor.Execute(ctx, invocation):
			case <-ctx.Done():
			}
		}()
	}
	t.gate = newSpeakGate(release)

	// The gate opens on the first rendered model audio frame of this turn,
	// not on mere intent to speak.
	m.bridge.ArmTurn(t.id, t.gate.Open)
	defer m.bridge.DisarmTurn()

	dispatched := 0
	lights := 0
	if len(invocations) > 0 {
		t.state = turnStateAct
		for i, invocation := range invocations {
			if m.config.CallCap > 0 && i >= m.config.CallCap {
				t.results = append(t.results, tools.Failure(invocation, tools.OutcomeCapExceeded, "per-turn call cap reached"))
				m.emit(events.NewToolCallFailed(invocation.ID, invocation.Name, "per-turn call cap reached", events.ForTurn(t.id)))
				continue
			}
			t.executed++
			dispatched++
			if !invocation.Heavy {
				lights++
			}
			t.gate.Submit(invocation)
		}

		// Heavy calls cannot finish before speech begins; only wait for
		// what the gate has already released.
		dispatched -= m.collect(ctx, t, results, lights, m.config.ActTimeout)
	}

	t.state = turnStateSpeak
	if err := m.speak(ctx, t); err != nil {
		return fmt.Errorf("speak failed: %w", err)
	}

	// A turn that produced no audio never opened the gate; its queued heavy
	// calls are skipped, not executed.
	for _, skipped := range t.gate.Discard() {
		t.results = append(t.results, tools.Failure(skipped, tools.OutcomeSkipped, "turn ended before speech began"))
		m.emit(events.NewToolCallFailed(skipped.ID, skipped.Name, "turn ended before speech began", events.ForTurn(t.id)))
		dispatched--
	}
	m.collect(ctx, t, results, dispatched, m.config.ActTimeout)

	t.state = turnStateUpdate
	m.conversation.fold(t)
	m.emit(events.NewTurnCompleted(events.ForTurn(t.id), events.ForSession(t.sessionID)))
	t.state = turnStateListen
	return nil
}

// plan issues the text-only planning request and reassembles streamed tool
// calls. Per-call failures become failed results; only a stream-level error
// aborts the turn.
func (m *turnMachine) plan(ctx context.Context, t *turn) ([]tools.Invocation, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.PlanTimeout)
	defer cancel()

	stream, err := m.adapter.Stream(ctx, model.Request{
		Instructions: m.instructions,
		Modalities:   []model.Modality{model.ModalityText},
		Messages:     append(m.conversation.history(), model.Message{Role: model.RoleUser, Content: t.prompt}),
		Tools:        m.toolSpecs,
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	accumulator := newToolCallAccumulator(m.config.FragmentTimeout, m.classify)
	failed := map[string]bool{}
	var invocations []tools.Invocation

	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			return nil, err
		}

		switch typed := chunk.(type) {
		case model.ContentChunk:
			t.planText += typed.Content()
		case model.ToolCallChunk:
			delta := typed.ToolCall()
			m.emit(events.NewToolCallDelta(delta.ID, delta.Name, delta.ArgumentsFragment, delta.Seq, events.ForTurn(t.id)))
			if err := accumulator.AddDelta(events.ToolCallDelta{
				ID: delta.ID, Name: delta.Name,
				ArgumentsFragment: delta.ArgumentsFragment, Seq: delta.Seq,
			}); err != nil && !failed[delta.ID] {
				failed[delta.ID] = true
				t.results = append(t.results, tools.Failure(
					tools.Invocation{ID: delta.ID, Name: delta.Name},
					tools.OutcomeInvalidArguments, err.Error(),
				))
			}
		case model.ToolCallDoneChunk:
			id := typed.CallID()
			m.emit(events.NewToolCallArgumentsDone(id, events.ForTurn(t.id)))
			if failed[id] {
				continue
			}
			invocation, err := accumulator.Complete(id)
			if err != nil {
				t.results = append(t.results, tools.Failure(
					tools.Invocation{ID: id},
					tools.OutcomeInvalidArguments, err.Error(),
				))
				continue
			}
			invocations = append(invocations, invocation)
		}
	}
	return invocations, nil
}

// speak issues the text+audio request; audio flows through the bridge and
// the transcript is kept for the conversation fold.
func (m *turnMachine) speak(ctx context.Context, t *turn) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.SpeakTimeout)
	defer cancel()

	stream, err := m.adapter.Stream(ctx, model.Request{
		Instructions: m.instructions,
		Modalities:   []model.Modality{model.ModalityText, model.ModalityAudio},
		Messages:     append(m.conversation.history(), turnMessages(t)...),
		Voice:        m.config.Voice,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			return err
		}

		switch typed := chunk.(type) {
		case model.AudioChunk:
			m.bridge.PlayModelAudio(typed.Audio())
			m.emit(events.NewAssistantAudioDelta(typed.Audio(), events.ForTurn(t.id)))
		case model.AudioTranscriptChunk:
			t.speechText += typed.Transcript()
			m.emit(events.NewAssistantResponseSegment(typed.Transcript(), events.ForTurn(t.id)))
		case model.ContentChunk:
			t.speechText += typed.Content()
			m.emit(events.NewAssistantResponseSegment(typed.Content(), events.ForTurn(t.id)))
		}
	}

	m.emit(events.NewAssistantSpeechFinal(events.ForTurn(t.id)))
	m.emit(events.NewAssistantResponseFinal(t.speechText, events.ForTurn(t.id)))
	return nil
}

// collect drains up to want results into the turn, bounded by timeout so a
// slow tool can never hang the turn. Returns how many results it gathered.
func (m *turnMachine) collect(ctx context.Context, t *turn, results <-chan tools.Result, want int, timeout time.Duration) int {
	if want <= 0 {
		return 0
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	collected := 0
	for range want {
		select {
		case result := <-results:
			t.results = append(t.results, result)
			collected++
		case <-timer.C:
			return collected
		case <-ctx.Done():
			return collected
		}
	}
	return collected
}

// cleanup performs best-effort teardown for an aborted turn: cancel
// in-flight governor calls, discard queued heavy calls as skipped, and
// clear the first-audio latch.
func (m *turnMachine) cleanup(cancel context.CancelFunc, t *turn) {
	cancel()
	m.bridge.DisarmTurn()
	if t.gate == nil {
		return
	}
	for _, skipped := range t.gate.Discard() {
		t.results = append(t.results, tools.Failure(skipped, tools.OutcomeSkipped, "turn aborted"))
		m.emit(events.NewToolCallFailed(skipped.ID, skipped.Name, "turn aborted", events.ForTurn(t.id)))
	}
}
