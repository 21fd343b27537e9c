package orchestration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eidolonlabs/eidolon-core/core/tools"
)

type fakeTransport struct {
	mu       sync.Mutex
	calls    []string
	response string
	err      error
	delay    time.Duration
}

func (t *fakeTransport) Execute(ctx context.Context, name string, arguments map[string]any) (string, error) {
	t.mu.Lock()
	t.calls = append(t.calls, name)
	t.mu.Unlock()

	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return t.response, t.err
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

func newTestGovernor(t *testing.T, controls *GovernorControls, transport tools.Transport, config toolGovernorConfig) *toolGovernor {
	t.Helper()
	if controls == nil {
		controls = NewGovernorControls(false, nil)
	}
	return newToolGovernor(controls, tools.NewRegistry(), transport, config, nil)
}

func TestGovernorKillSwitchShortCircuitsWithoutTransportCall(t *testing.T) {
	transport := &fakeTransport{response: "done"}
	controls := NewGovernorControls(true, nil)
	governor := newTestGovernor(t, controls, transport, toolGovernorConfig{})

	for range 5 {
		result := governor.Execute(context.Background(), tools.Invocation{ID: "c", Name: "move_to"})
		if result.Outcome != tools.OutcomeKilled {
			t.Fatalf("expected killed outcome, got %s", result.Outcome)
		}
	}
	if transport.callCount() != 0 {
		t.Fatalf("kill switch must prevent transport calls, got %d", transport.callCount())
	}
}

func TestGovernorPolicyDenyAlwaysWins(t *testing.T) {
	transport := &fakeTransport{response: "done"}
	governor := newTestGovernor(t, nil, transport, toolGovernorConfig{
		Policy: ToolPolicy{Allow: []string{"move_to"}, Deny: []string{"move_to"}},
	})

	result := governor.Execute(context.Background(), tools.Invocation{ID: "c", Name: "move_to"})
	if result.Outcome != tools.OutcomePolicyDenied {
		t.Fatalf("expected policy denied, got %s", result.Outcome)
	}
}

func TestGovernorEmptyAllowListAllowsAll(t *testing.T) {
	transport := &fakeTransport{response: "done"}
	governor := newTestGovernor(t, nil, transport, toolGovernorConfig{})

	result := governor.Execute(context.Background(), tools.Invocation{ID: "c", Name: "anything"})
	if result.Outcome != tools.OutcomeOK {
		t.Fatalf("expected ok, got %s (%s)", result.Outcome, result.Error)
	}
}

func TestGovernorNonEmptyAllowListRestricts(t *testing.T) {
	transport := &fakeTransport{response: "done"}
	governor := newTestGovernor(t, nil, transport, toolGovernorConfig{
		Policy: ToolPolicy{Allow: []string{"say"}},
	})

	if result := governor.Execute(context.Background(), tools.Invocation{ID: "c", Name: "say"}); result.Outcome != tools.OutcomeOK {
		t.Fatalf("expected allowed tool to run, got %s", result.Outcome)
	}
	if result := governor.Execute(context.Background(), tools.Invocation{ID: "c", Name: "move_to"}); result.Outcome != tools.OutcomePolicyDenied {
		t.Fatalf("expected unlisted tool denied, got %s", result.Outcome)
	}
}

func TestGovernorRateLimitNPlusOneCalls(t *testing.T) {
	const limit = 3
	transport := &fakeTransport{response: "done"}
	controls := NewGovernorControls(false, map[string]RateLimit{
		"move_to": {PerSecond: 0.001, Burst: limit},
	})
	governor := newTestGovernor(t, controls, transport, toolGovernorConfig{})

	var limited int
	for range limit + 1 {
		result := governor.Execute(context.Background(), tools.Invocation{ID: "c", Name: "move_to"})
		if result.Outcome == tools.OutcomeRateLimited {
			limited++
		}
	}

	if limited != 1 {
		t.Fatalf("expected exactly 1 rate-limited outcome, got %d", limited)
	}
	if transport.callCount() != limit {
		t.Fatalf("expected %d dispatches, got %d", limit, transport.callCount())
	}
}

func TestGovernorClampsOutOfRangeArguments(t *testing.T) {
	transport := &fakeTransport{response: "done"}
	controls := NewGovernorControls(false, nil)

	var seen map[string]any
	capture := transportFunc(func(ctx context.Context, name string, arguments map[string]any) (string, error) {
		seen = arguments
		return "done", nil
	})
	_ = transport

	registry := tools.NewRegistry(gestureTestTool())
	governor := newToolGovernor(controls, registry, capture, toolGovernorConfig{}, nil)

	result := governor.Execute(context.Background(), tools.Invocation{
		ID: "c", Name: "play_gesture",
		Arguments: map[string]any{"gesture": "wave", "intensity": 9.0},
	})
	if result.Outcome != tools.OutcomeOK {
		t.Fatalf("expected ok after clamping, got %s (%s)", result.Outcome, result.Error)
	}
	if seen["intensity"].(float64) != 1.0 {
		t.Fatalf("expected clamped intensity 1.0, got %v", seen["intensity"])
	}
}

func TestGovernorValidationFailureWhenClampCannotFix(t *testing.T) {
	controls := NewGovernorControls(false, nil)
	registry := tools.NewRegistry(gestureTestTool())
	transport := &fakeTransport{response: "done"}
	governor := newToolGovernor(controls, registry, transport, toolGovernorConfig{}, nil)

	result := governor.Execute(context.Background(), tools.Invocation{
		ID: "c", Name: "play_gesture",
		Arguments: map[string]any{"gesture": 42, "intensity": 0.5},
	})
	if result.Outcome != tools.OutcomeInvalidArguments {
		t.Fatalf("expected invalid arguments, got %s", result.Outcome)
	}
	if transport.callCount() != 0 {
		t.Fatal("invalid call must not reach the transport")
	}
}

func TestGovernorTimeoutProducesTimeoutOutcome(t *testing.T) {
	transport := &fakeTransport{response: "done", delay: time.Second}
	governor := newTestGovernor(t, nil, transport, toolGovernorConfig{CallTimeout: 20 * time.Millisecond})

	result := governor.Execute(context.Background(), tools.Invocation{ID: "c", Name: "slow"})
	if result.Outcome != tools.OutcomeTimeout {
		t.Fatalf("expected timeout outcome, got %s", result.Outcome)
	}
}

func TestGovernorCancelledContextReportsSkipped(t *testing.T) {
	transport := &fakeTransport{response: "done", delay: time.Second}
	governor := newTestGovernor(t, nil, transport, toolGovernorConfig{CallTimeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := governor.Execute(ctx, tools.Invocation{ID: "c", Name: "slow"})
	if result.Outcome != tools.OutcomeSkipped {
		t.Fatalf("expected skipped outcome on cancellation, got %s", result.Outcome)
	}
}

func TestGovernorBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64
	transport := transportFunc(func(ctx context.Context, name string, arguments map[string]any) (string, error) {
		current := inFlight.Add(1)
		for {
			observed := peak.Load()
			if current <= observed || peak.CompareAndSwap(observed, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return "done", nil
	})
	governor := newTestGovernor(t, nil, transport, toolGovernorConfig{MaxConcurrency: 2, CallTimeout: 5 * time.Second})

	var wg sync.WaitGroup
	for i := range 6 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			governor.Execute(context.Background(), tools.Invocation{ID: "c", Name: "slow"})
		}(i)
	}
	wg.Wait()

	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent executions, observed %d", peak.Load())
	}
}

func TestGovernorRemoteErrorNormalized(t *testing.T) {
	transport := &fakeTransport{err: errors.New("osc endpoint unreachable")}
	governor := newTestGovernor(t, nil, transport, toolGovernorConfig{})

	result := governor.Execute(context.Background(), tools.Invocation{ID: "c", Name: "move_to"})
	if result.Outcome != tools.OutcomeRemoteError {
		t.Fatalf("expected remote error outcome, got %s", result.Outcome)
	}
	if result.Error == "" {
		t.Fatal("expected error detail preserved")
	}
}

type transportFunc func(ctx context.Context, name string, arguments map[string]any) (string, error)

func (f transportFunc) Execute(ctx context.Context, name string, arguments map[string]any) (string, error) {
	return f(ctx, name, arguments)
}

func gestureTestTool() tools.Tool {
	minimum, maximum := 0.0, 1.0
	return tools.NewTool("play_gesture", "Play a named avatar gesture",
		map[string]tools.ParameterBase{
			"gesture":   {Type: "string", Description: "Gesture name"},
			"intensity": {Type: "number", Description: "Gesture intensity", Minimum: &minimum, Maximum: &maximum},
		},
		func(parameters struct {
			Gesture   string  `json:"gesture"`
			Intensity float64 `json:"intensity"`
		}) (string, error) {
			return "played " + parameters.Gesture, nil
		},
		tools.WithHeavy())
}
