package events

const (
	// KindTurnStarted identifies the start of a turn.
	KindTurnStarted Kind = "turn_state.started"
	// KindTurnCompleted identifies model-signalled turn completion.
	KindTurnCompleted Kind = "turn_state.completed"
	// KindTurnFailed identifies turn failure.
	KindTurnFailed Kind = "turn_state.failed"
	// KindTurnCancelled identifies turn cancellation.
	KindTurnCancelled Kind = "turn_state.cancelled"
)

// TurnStarted marks the start of a new turn.
type TurnStarted struct{ Base }

// NewTurnStarted creates a turn started event.
func NewTurnStarted(opts ...BaseOption) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted, opts...)}
}

// TurnCompleted marks model-signalled completion of the current turn.
type TurnCompleted struct{ Base }

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted(opts ...BaseOption) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted, opts...)}
}

// TurnFailed marks failure of the current turn.
type TurnFailed struct {
	Base
	Error string
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(err string, opts ...BaseOption) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed, opts...), Error: err}
}

// TurnCancelled marks cancellation of the current turn.
type TurnCancelled struct{ Base }

// NewTurnCancelled creates a turn cancelled event.
func NewTurnCancelled(opts ...BaseOption) TurnCancelled {
	return TurnCancelled{Base: NewBase(KindTurnCancelled, opts...)}
}
