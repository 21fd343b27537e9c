package events

const (
	// KindAssistantResponseSegment identifies a streamed response text segment.
	KindAssistantResponseSegment Kind = "assistant_response.segment"
	// KindAssistantResponseFinal identifies the end of the response text stream.
	KindAssistantResponseFinal Kind = "assistant_response.final"
)

// AssistantResponseSegment is an append-only streamed text segment.
type AssistantResponseSegment struct {
	Base
	Segment string
}

func NewAssistantResponseSegment(segment string, opts ...BaseOption) AssistantResponseSegment {
	return AssistantResponseSegment{Base: NewBase(KindAssistantResponseSegment, opts...), Segment: segment}
}

// AssistantResponseFinal carries the assembled response text once the stream
// is complete.
type AssistantResponseFinal struct {
	Base
	Response string
}

func NewAssistantResponseFinal(response string, opts ...BaseOption) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal, opts...), Response: response}
}
