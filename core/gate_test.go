package orchestration

import (
	"testing"

	"github.com/eidolonlabs/eidolon-core/core/tools"
)

func TestGateLightInvocationsBypass(t *testing.T) {
	var released []string
	gate := newSpeakGate(func(inv tools.Invocation) { released = append(released, inv.ID) })

	gate.Submit(tools.Invocation{ID: "light-1", Heavy: false})
	if len(released) != 1 || released[0] != "light-1" {
		t.Fatalf("light invocation must bypass the gate, released=%v", released)
	}
}

func TestGateQueuesHeavyUntilOpenPreservingOrder(t *testing.T) {
	var released []string
	gate := newSpeakGate(func(inv tools.Invocation) { released = append(released, inv.ID) })

	gate.Submit(tools.Invocation{ID: "heavy-1", Heavy: true})
	gate.Submit(tools.Invocation{ID: "heavy-2", Heavy: true})
	gate.Submit(tools.Invocation{ID: "light-1", Heavy: false})

	if len(released) != 1 {
		t.Fatalf("only the light call may run before open, released=%v", released)
	}

	gate.Open()
	if len(released) != 3 {
		t.Fatalf("expected queued heavy calls released on open, released=%v", released)
	}
	if released[1] != "heavy-1" || released[2] != "heavy-2" {
		t.Fatalf("heavy calls must release in arrival order, released=%v", released)
	}
}

func TestGateOpenIsIdempotent(t *testing.T) {
	var released []string
	gate := newSpeakGate(func(inv tools.Invocation) { released = append(released, inv.ID) })

	gate.Submit(tools.Invocation{ID: "heavy-1", Heavy: true})
	gate.Open()
	gate.Open()

	if len(released) != 1 {
		t.Fatalf("repeated open must not re-release, released=%v", released)
	}
}

func TestGateHeavyAfterOpenReleasesImmediately(t *testing.T) {
	var released []string
	gate := newSpeakGate(func(inv tools.Invocation) { released = append(released, inv.ID) })

	gate.Open()
	gate.Submit(tools.Invocation{ID: "heavy-1", Heavy: true})

	if len(released) != 1 {
		t.Fatalf("heavy call after open must release immediately, released=%v", released)
	}
}

func TestGateDiscardReturnsQueuedWithoutExecuting(t *testing.T) {
	var released []string
	gate := newSpeakGate(func(inv tools.Invocation) { released = append(released, inv.ID) })

	gate.Submit(tools.Invocation{ID: "heavy-1", Heavy: true})
	gate.Submit(tools.Invocation{ID: "heavy-2", Heavy: true})

	skipped := gate.Discard()
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped invocations, got %d", len(skipped))
	}
	if len(released) != 0 {
		t.Fatalf("discarded invocations must never execute, released=%v", released)
	}

	// Late submissions and opens on a discarded gate do nothing.
	gate.Submit(tools.Invocation{ID: "heavy-3", Heavy: true})
	gate.Open()
	if len(released) != 0 {
		t.Fatalf("discarded gate must stay inert, released=%v", released)
	}
}
