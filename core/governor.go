package orchestration

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/eidolonlabs/eidolon-core/core/events"
	"github.com/eidolonlabs/eidolon-core/core/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
)

// ToolPolicy is the allow/deny configuration. An empty allow list means
// "allow all"; an explicit deny entry always wins.
type ToolPolicy struct {
	Allow []string
	Deny  []string
}

func (p ToolPolicy) permits(name string) bool {
	if slices.Contains(p.Deny, name) {
		return false
	}
	if len(p.Allow) == 0 {
		return true
	}
	return slices.Contains(p.Allow, name)
}

// toolGovernor is the outermost safety boundary for side-effecting calls.
// Every path through Execute normalizes into a tools.Result; nothing
// propagates past this boundary as an error, and no outcome aborts sibling
// calls.
type toolGovernor struct {
	controls  *GovernorControls
	policy    ToolPolicy
	registry  *tools.Registry
	transport tools.Transport

	sem     *semaphore.Weighted
	timeout time.Duration

	emit eventEmitter
}

type toolGovernorConfig struct {
	Policy         ToolPolicy
	MaxConcurrency int
	CallTimeout    time.Duration
}

func newToolGovernor(controls *GovernorControls, registry *tools.Registry, transport tools.Transport, config toolGovernorConfig, emit eventEmitter) *toolGovernor {
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 1
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 30 * time.Second
	}
	if emit == nil {
		emit = noopEventEmitter
	}

	return &toolGovernor{
		controls:  controls,
		policy:    config.Policy,
		registry:  registry,
		transport: transport,
		sem:       semaphore.NewWeighted(int64(config.MaxConcurrency)),
		timeout:   config.CallTimeout,
		emit:      emit,
	}
}

// Execute runs one invocation under the full governance chain: kill switch,
// policy, rate limit, validation/clamping, bounded concurrency, timeout.
func (g *toolGovernor) Execute(ctx context.Context, invocation tools.Invocation) tools.Result {
	ctx, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.name", invocation.Name),
		attribute.String("tool.call_id", invocation.ID),
		attribute.Bool("tool.heavy", invocation.Heavy),
	)

	result := g.govern(ctx, invocation)

	span.SetAttributes(attribute.String("tool.outcome", string(result.Outcome)))
	if result.OK() {
		g.emit(events.NewToolCallCompleted(invocation.ID, invocation.Name, result.Content))
	} else {
		span.SetStatus(codes.Error, result.Error)
		g.emit(events.NewToolCallFailed(invocation.ID, invocation.Name, result.Error))
	}
	return result
}

func (g *toolGovernor) govern(ctx context.Context, invocation tools.Invocation) tools.Result {
	if g.controls.KillSwitch() {
		return tools.Failure(invocation, tools.OutcomeKilled, "tool execution disabled by kill switch")
	}

	if !g.policy.permits(invocation.Name) {
		return tools.Failure(invocation, tools.OutcomePolicyDenied, "tool not permitted by policy")
	}

	if !g.controls.allowRate(invocation.Name) {
		return tools.Failure(invocation, tools.OutcomeRateLimited, "tool rate limit exceeded")
	}

	arguments := invocation.Arguments
	if tool, ok := g.registry.Lookup(invocation.Name); ok {
		arguments = tools.ClampArguments(tool, arguments)
		if err := tools.ValidateArguments(tool, arguments); err != nil {
			return tools.Failure(invocation, tools.OutcomeInvalidArguments, err.Error())
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return g.failureFromContext(invocation, err)
	}
	defer g.sem.Release(1)

	g.emit(events.NewToolCallStarted(invocation.ID, invocation.Name, invocation.Raw))

	started := time.Now()
	response, err := g.transport.Execute(ctx, invocation.Name, arguments)
	latency := time.Since(started)

	if err != nil {
		result := g.failureFromContext(invocation, err)
		result.Latency = latency
		return result
	}

	return tools.Result{
		ID:      invocation.ID,
		Name:    invocation.Name,
		Outcome: tools.OutcomeOK,
		Content: response,
		Latency: latency,
	}
}

func (g *toolGovernor) failureFromContext(invocation tools.Invocation, err error) tools.Result {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return tools.Failure(invocation, tools.OutcomeTimeout, "tool call timed out")
	case errors.Is(err, context.Canceled):
		return tools.Failure(invocation, tools.OutcomeSkipped, "tool call cancelled")
	default:
		return tools.Failure(invocation, tools.OutcomeRemoteError, err.Error())
	}
}
