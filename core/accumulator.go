package orchestration

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eidolonlabs/eidolon-core/core/events"
	"github.com/eidolonlabs/eidolon-core/core/tools"
)

var (
	// ErrFragmentGap marks a call whose fragment stream had a sequence gap
	// that outlived the reorder timeout.
	ErrFragmentGap = errors.New("tool call fragment gap exceeded reorder timeout")
	// ErrUnknownCall marks a completion signal for a call id that was never
	// opened by a fragment.
	ErrUnknownCall = errors.New("unknown tool call id")
)

// pendingToolCall reassembles one call's argument stream. Fragments append
// in sequence order; out-of-sequence arrivals park until their predecessors
// land. Mutated only by the accumulator.
type pendingToolCall struct {
	id   string
	name string

	arguments string
	nextSeq   int
	parked    map[int]string
	gapSince  time.Time

	lastParseError string
	failed         bool
}

// toolCallAccumulator turns arbitrarily fragmented tool-call deltas into
// atomic invocations. A buffer that happens to parse early is never treated
// as complete; only the upstream arguments-done signal promotes a call.
type toolCallAccumulator struct {
	mu    sync.Mutex
	calls map[string]*pendingToolCall

	gapTimeout time.Duration
	classify   func(name string) bool
	now        func() time.Time
}

func newToolCallAccumulator(gapTimeout time.Duration, classifyHeavy func(name string) bool) *toolCallAccumulator {
	if classifyHeavy == nil {
		classifyHeavy = func(string) bool { return false }
	}
	return &toolCallAccumulator{
		calls:      map[string]*pendingToolCall{},
		gapTimeout: gapTimeout,
		classify:   classifyHeavy,
		now:        time.Now,
	}
}

// AddDelta folds one fragment in. It never interprets a fragment as a
// complete value; it only appends and probes parseability for diagnostics.
func (a *toolCallAccumulator) AddDelta(delta events.ToolCallDelta) error {
	if delta.ID == "" {
		// Without an id there is nothing to accumulate under.
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	call, ok := a.calls[delta.ID]
	if !ok {
		call = &pendingToolCall{id: delta.ID, parked: map[int]string{}}
		a.calls[delta.ID] = call
	}
	if call.failed {
		return nil
	}
	if delta.Name != "" {
		call.name = delta.Name
	}

	switch {
	case delta.Seq == call.nextSeq:
		call.arguments += delta.ArgumentsFragment
		call.nextSeq++
		a.drainParkedLocked(call)
	case delta.Seq > call.nextSeq:
		if len(call.parked) == 0 {
			call.gapSince = a.now()
		}
		call.parked[delta.Seq] = delta.ArgumentsFragment
	default:
		// Duplicate of an already-applied fragment; drop it.
	}

	if len(call.parked) > 0 && a.now().Sub(call.gapSince) > a.gapTimeout {
		call.failed = true
		return fmt.Errorf("%w: call %s waiting for fragment %d", ErrFragmentGap, call.id, call.nextSeq)
	}

	a.probeParseLocked(call)
	return nil
}

func (a *toolCallAccumulator) drainParkedLocked(call *pendingToolCall) {
	for {
		fragment, ok := call.parked[call.nextSeq]
		if !ok {
			break
		}
		delete(call.parked, call.nextSeq)
		call.arguments += fragment
		call.nextSeq++
	}
	if len(call.parked) > 0 {
		call.gapSince = a.now()
	}
}

// probeParseLocked records parseability after each append. The result is
// diagnostic only; it never drives completion.
func (a *toolCallAccumulator) probeParseLocked(call *pendingToolCall) {
	if call.arguments == "" {
		return
	}
	if json.Valid([]byte(call.arguments)) {
		call.lastParseError = ""
		return
	}
	call.lastParseError = "arguments not yet parseable"
}

// Complete promotes a pending call on the authoritative arguments-done
// signal. The final parse must succeed; a failure here fails this call only.
func (a *toolCallAccumulator) Complete(id string) (tools.Invocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	call, ok := a.calls[id]
	if !ok {
		return tools.Invocation{}, fmt.Errorf("%w: %s", ErrUnknownCall, id)
	}
	delete(a.calls, id)

	if call.failed {
		return tools.Invocation{}, fmt.Errorf("%w: call %s", ErrFragmentGap, id)
	}
	if len(call.parked) > 0 {
		return tools.Invocation{}, fmt.Errorf("%w: call %s completed while waiting for fragment %d", ErrFragmentGap, id, call.nextSeq)
	}
	if call.name == "" {
		return tools.Invocation{}, fmt.Errorf("tool call %s completed without a name", id)
	}

	arguments := map[string]any{}
	if call.arguments != "" {
		if err := json.Unmarshal([]byte(call.arguments), &arguments); err != nil {
			return tools.Invocation{}, fmt.Errorf("tool call %s arguments are not a valid object: %w", id, err)
		}
	}

	return tools.Invocation{
		ID:        call.id,
		Name:      call.name,
		Arguments: arguments,
		Raw:       call.arguments,
		Heavy:     a.classify(call.name),
	}, nil
}

// Reset drops all pending state, used on turn abort.
func (a *toolCallAccumulator) Reset() {
	a.mu.Lock()
	a.calls = map[string]*pendingToolCall{}
	a.mu.Unlock()
}

// Pending reports how many calls are still accumulating.
func (a *toolCallAccumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}
