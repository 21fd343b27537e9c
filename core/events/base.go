package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the common event fields plus the turn/session correlation
// ids. Domain-ordered consumers key their handling off TurnID; events from
// the audio domain and the turn domain are not globally ordered relative to
// each other.
type Base struct {
	kind      Kind
	timestamp time.Time

	sessionID string
	turnID    string
}

func NewBase(kind Kind, opts ...BaseOption) Base {
	base := Base{kind: kind, timestamp: time.Now()}
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

func (b Base) SessionID() string { return b.sessionID }
func (b Base) TurnID() string    { return b.turnID }

type BaseOption func(*Base)

// ForSession stamps the event with the duplex session it originated from.
func ForSession(sessionID string) BaseOption {
	return func(b *Base) { b.sessionID = sessionID }
}

// ForTurn stamps the event with the turn it belongs to.
func ForTurn(turnID string) BaseOption {
	return func(b *Base) { b.turnID = turnID }
}
