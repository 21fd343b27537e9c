package orchestration

import (
	"sync"

	"github.com/eidolonlabs/eidolon-core/core/tools"
)

// speakGate enforces the invariant that no heavy tool executes before the
// agent's own speech has begun for the turn. One instance per turn. The
// closed→open transition happens exactly once, on the first rendered model
// audio frame, and is monotonic for the life of the turn.
type speakGate struct {
	mu        sync.Mutex
	open      bool
	discarded bool
	queued    []tools.Invocation

	release func(tools.Invocation)
}

// newSpeakGate builds a closed gate. release receives invocations that may
// proceed to the governor, in submission order for queued heavy calls.
func newSpeakGate(release func(tools.Invocation)) *speakGate {
	return &speakGate{release: release}
}

// Submit routes an invocation. Light calls bypass the gate entirely; heavy
// calls queue until the gate opens.
func (g *speakGate) Submit(invocation tools.Invocation) {
	if !invocation.Heavy {
		g.release(invocation)
		return
	}

	g.mu.Lock()
	if !g.open && !g.discarded {
		g.queued = append(g.queued, invocation)
		g.mu.Unlock()
		return
	}
	discarded := g.discarded
	g.mu.Unlock()

	if !discarded {
		g.release(invocation)
	}
}

// Open releases queued heavy invocations in arrival order. Calling it again
// is a no-op; the gate never re-closes within a turn.
func (g *speakGate) Open() {
	g.mu.Lock()
	if g.open || g.discarded {
		g.mu.Unlock()
		return
	}
	g.open = true
	queued := g.queued
	g.queued = nil
	g.mu.Unlock()

	for _, invocation := range queued {
		g.release(invocation)
	}
}

// Discard drops queued heavy invocations when the turn ends with the gate
// still closed, returning them so they can be reported as skipped rather
// than executed.
func (g *speakGate) Discard() []tools.Invocation {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.open || g.discarded {
		g.discarded = true
		return nil
	}
	g.discarded = true
	queued := g.queued
	g.queued = nil
	return queued
}

// IsOpen reports the gate state.
func (g *speakGate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}
