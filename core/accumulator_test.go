package orchestration

import (
	"errors"
	"testing"
	"time"

	"github.com/eidolonlabs/eidolon-core/core/events"
)

func TestAccumulatorConcatenatesFragmentsInSequenceOrder(t *testing.T) {
	acc := newToolCallAccumulator(time.Second, nil)

	for seq, fragment := range []string{`{"gest`, `ure":"wa`, `ve"}`} {
		name := ""
		if seq == 0 {
			name = "play_gesture"
		}
		if err := acc.AddDelta(events.NewToolCallDelta("call-1", name, fragment, seq)); err != nil {
			t.Fatalf("unexpected error on fragment %d: %v", seq, err)
		}
	}

	invocation, err := acc.Complete("call-1")
	if err != nil {
		t.Fatalf("unexpected completion error: %v", err)
	}
	if invocation.Raw != `{"gesture":"wave"}` {
		t.Fatalf("expected concatenated arguments, got %q", invocation.Raw)
	}
	if invocation.Arguments["gesture"] != "wave" {
		t.Fatalf("expected parsed gesture, got %v", invocation.Arguments)
	}
}

func TestAccumulatorReordersOutOfSequenceFragments(t *testing.T) {
	acc := newToolCallAccumulator(time.Second, nil)

	_ = acc.AddDelta(events.NewToolCallDelta("call-1", "move_to", `{"x":`, 0))
	_ = acc.AddDelta(events.NewToolCallDelta("call-1", "", `2}`, 2))
	_ = acc.AddDelta(events.NewToolCallDelta("call-1", "", `1,"y":`, 1))

	invocation, err := acc.Complete("call-1")
	if err != nil {
		t.Fatalf("unexpected completion error: %v", err)
	}
	if invocation.Raw != `{"x":1,"y":2}` {
		t.Fatalf("expected reordered concatenation, got %q", invocation.Raw)
	}
}

func TestAccumulatorEarlyParseableBufferIsNotComplete(t *testing.T) {
	acc := newToolCallAccumulator(time.Second, nil)

	// "{}" parses on its own but the stream is still going.
	_ = acc.AddDelta(events.NewToolCallDelta("call-1", "say", `{}`, 0))
	if acc.Pending() != 1 {
		t.Fatal("call must stay pending until the arguments-done signal")
	}
}

func TestAccumulatorGapOutlivingTimeoutFailsThatCall(t *testing.T) {
	acc := newToolCallAccumulator(50*time.Millisecond, nil)
	now := time.Now()
	acc.now = func() time.Time { return now }

	_ = acc.AddDelta(events.NewToolCallDelta("call-1", "move_to", `{"x":`, 0))
	_ = acc.AddDelta(events.NewToolCallDelta("call-1", "", `2}`, 2))

	now = now.Add(100 * time.Millisecond)
	err := acc.AddDelta(events.NewToolCallDelta("call-1", "", "", 3))
	if !errors.Is(err, ErrFragmentGap) {
		t.Fatalf("expected ErrFragmentGap, got %v", err)
	}

	if _, err := acc.Complete("call-1"); !errors.Is(err, ErrFragmentGap) {
		t.Fatalf("expected failed call to stay failed, got %v", err)
	}
}

func TestAccumulatorMalformedFinalPayloadFailsOnlyThatCall(t *testing.T) {
	acc := newToolCallAccumulator(time.Second, nil)

	_ = acc.AddDelta(events.NewToolCallDelta("bad", "say", `{"text": broken`, 0))
	_ = acc.AddDelta(events.NewToolCallDelta("good", "say", `{"text":"hi"}`, 0))

	if _, err := acc.Complete("bad"); err == nil {
		t.Fatal("expected parse failure for malformed payload")
	}

	invocation, err := acc.Complete("good")
	if err != nil {
		t.Fatalf("sibling call must not be affected: %v", err)
	}
	if invocation.Arguments["text"] != "hi" {
		t.Fatalf("unexpected sibling arguments: %v", invocation.Arguments)
	}
}

func TestAccumulatorCompleteUnknownCall(t *testing.T) {
	acc := newToolCallAccumulator(time.Second, nil)
	if _, err := acc.Complete("nope"); !errors.Is(err, ErrUnknownCall) {
		t.Fatalf("expected ErrUnknownCall, got %v", err)
	}
}

func TestAccumulatorClassifiesHeavyCalls(t *testing.T) {
	acc := newToolCallAccumulator(time.Second, func(name string) bool { return name == "move_to" })

	_ = acc.AddDelta(events.NewToolCallDelta("call-1", "move_to", `{}`, 0))
	_ = acc.AddDelta(events.NewToolCallDelta("call-2", "say", `{}`, 0))

	heavy, err := acc.Complete("call-1")
	if err != nil || !heavy.Heavy {
		t.Fatalf("expected heavy invocation, err=%v heavy=%t", err, heavy.Heavy)
	}
	light, err := acc.Complete("call-2")
	if err != nil || light.Heavy {
		t.Fatalf("expected light invocation, err=%v heavy=%t", err, light.Heavy)
	}
}
