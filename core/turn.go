package orchestration

import (
	"time"

	"github.com/eidolonlabs/eidolon-core/core/tools"
	"github.com/google/uuid"
)

type turnState string

const (
	turnStateListen  turnState = "listen"
	turnStatePlan    turnState = "plan"
	turnStateAct     turnState = "act"
	turnStateSpeak   turnState = "speak"
	turnStateUpdate  turnState = "update"
	turnStateAborted turnState = "aborted"
)

// turn is one planning-to-speaking cycle. It is owned exclusively by the
// turn machine goroutine and destroyed after UPDATE folds it into the
// conversation.
type turn struct {
	id        string
	sessionID string
	state     turnState
	createdAt time.Time

	prompt string

	// planText accumulates PLAN-phase assistant text; speechText is the
	// transcript of what was actually spoken.
	planText   string
	speechText string

	invocations []tools.Invocation
	results     []tools.Result
	executed    int

	gate *speakGate
}

func newTurn(sessionID, prompt string) *turn {
	return &turn{
		id:        uuid.NewString(),
		sessionID: sessionID,
		state:     turnStateListen,
		createdAt: time.Now(),
		prompt:    prompt,
	}
}
