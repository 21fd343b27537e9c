package events

const (
	// KindAssistantSpeechStarted identifies the first rendered model audio
	// frame for the current turn.
	KindAssistantSpeechStarted Kind = "assistant_speech.started"
	// KindAssistantAudioDelta identifies a synthesized speech audio frame.
	KindAssistantAudioDelta Kind = "assistant_speech.frame"
	// KindAssistantSpeechFinal identifies the end of speech synthesis.
	KindAssistantSpeechFinal Kind = "assistant_speech.final"
)

// AssistantSpeechStarted is emitted when the first model-originated audio
// frame is written to the render channel for the current turn. It opens the
// speak-before-act gate.
type AssistantSpeechStarted struct{ Base }

func NewAssistantSpeechStarted(opts ...BaseOption) AssistantSpeechStarted {
	return AssistantSpeechStarted{Base: NewBase(KindAssistantSpeechStarted, opts...)}
}

// AssistantAudioDelta carries one synthesized audio frame in arrival order.
type AssistantAudioDelta struct {
	Base
	Audio []byte
}

func NewAssistantAudioDelta(audio []byte, opts ...BaseOption) AssistantAudioDelta {
	return AssistantAudioDelta{Base: NewBase(KindAssistantAudioDelta, opts...), Audio: audio}
}

type AssistantSpeechFinal struct{ Base }

func NewAssistantSpeechFinal(opts ...BaseOption) AssistantSpeechFinal {
	return AssistantSpeechFinal{Base: NewBase(KindAssistantSpeechFinal, opts...)}
}
