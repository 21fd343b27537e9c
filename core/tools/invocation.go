package tools

import "time"

// Invocation is a fully reassembled, parsed tool call. It is immutable once
// constructed; only complete argument mappings ever reach this type.
type Invocation struct {
	ID        string
	Name      string
	Arguments map[string]any
	Raw       string
	Heavy     bool
}

// Outcome classifies a tool execution result. Governance refusals are
// expected outcomes, not errors.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeKilled           Outcome = "killed"
	OutcomePolicyDenied     Outcome = "policy_denied"
	OutcomeRateLimited      Outcome = "rate_limited"
	OutcomeInvalidArguments Outcome = "invalid_arguments"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeRemoteError      Outcome = "remote_error"
	OutcomeCapExceeded      Outcome = "cap_exceeded"
	OutcomeSkipped          Outcome = "skipped"
)

// Result is the single shape every execution path normalizes into. It never
// escapes the governor as an error.
type Result struct {
	ID      string
	Name    string
	Outcome Outcome
	Content string
	Error   string
	Latency time.Duration
}

// OK reports whether the call executed successfully.
func (r Result) OK() bool { return r.Outcome == OutcomeOK }

// Failure builds a non-ok result for the invocation.
func Failure(invocation Invocation, outcome Outcome, message string) Result {
	return Result{ID: invocation.ID, Name: invocation.Name, Outcome: outcome, Error: message}
}
