package events

const (
	// KindToolCallDelta identifies a streamed tool-call argument fragment.
	KindToolCallDelta Kind = "tool_call.delta"
	// KindToolCallArgumentsDone identifies the upstream arguments-complete signal.
	KindToolCallArgumentsDone Kind = "tool_call.arguments_done"
	// KindToolCallStarted identifies tool call execution start.
	KindToolCallStarted Kind = "tool_call.started"
	// KindToolCallCompleted identifies successful tool call completion.
	KindToolCallCompleted Kind = "tool_call.completed"
	// KindToolCallFailed identifies tool call failure.
	KindToolCallFailed Kind = "tool_call.failed"
)

// ToolCallDelta is one streamed fragment of a tool invocation. Name may be
// empty on every fragment but the one that first carries it. Seq increases
// monotonically per call id; fragments may arrive out of order.
type ToolCallDelta struct {
	Base
	ID                string
	Name              string
	ArgumentsFragment string
	Seq               int
}

// NewToolCallDelta creates a tool call fragment event.
func NewToolCallDelta(id, name, fragment string, seq int, opts ...BaseOption) ToolCallDelta {
	return ToolCallDelta{Base: NewBase(KindToolCallDelta, opts...), ID: id, Name: name, ArgumentsFragment: fragment, Seq: seq}
}

// ToolCallArgumentsDone is the authoritative completion signal for a call's
// argument stream. An accumulated buffer that happens to parse early is not
// complete until this arrives.
type ToolCallArgumentsDone struct {
	Base
	ID string
}

// NewToolCallArgumentsDone creates an arguments-complete event.
func NewToolCallArgumentsDone(id string, opts ...BaseOption) ToolCallArgumentsDone {
	return ToolCallArgumentsDone{Base: NewBase(KindToolCallArgumentsDone, opts...), ID: id}
}

// ToolCallStarted marks start of tool execution.
type ToolCallStarted struct {
	Base
	ID        string
	Name      string
	Arguments string
}

// NewToolCallStarted creates a tool call started event.
func NewToolCallStarted(id, name, arguments string, opts ...BaseOption) ToolCallStarted {
	return ToolCallStarted{Base: NewBase(KindToolCallStarted, opts...), ID: id, Name: name, Arguments: arguments}
}

// ToolCallCompleted marks successful tool execution.
type ToolCallCompleted struct {
	Base
	ID       string
	Name     string
	Response string
}

// NewToolCallCompleted creates a tool call completed event.
func NewToolCallCompleted(id, name, response string, opts ...BaseOption) ToolCallCompleted {
	return ToolCallCompleted{Base: NewBase(KindToolCallCompleted, opts...), ID: id, Name: name, Response: response}
}

// ToolCallFailed marks failed tool execution.
type ToolCallFailed struct {
	Base
	ID    string
	Name  string
	Error string
}

// NewToolCallFailed creates a tool call failed event.
func NewToolCallFailed(id, name, err string, opts ...BaseOption) ToolCallFailed {
	return ToolCallFailed{Base: NewBase(KindToolCallFailed, opts...), ID: id, Name: name, Error: err}
}
