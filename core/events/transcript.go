package events

const (
	// KindUserSpeechStarted identifies the start of user speech activity.
	KindUserSpeechStarted Kind = "user_input.speech_started"
	// KindUserSpeechEnded identifies the end of user speech activity.
	KindUserSpeechEnded Kind = "user_input.speech_ended"
	// KindUserTranscriptInterim identifies a mutable interim transcript snapshot.
	KindUserTranscriptInterim Kind = "user_input.transcript_interim"
	// KindUserTranscriptFinal identifies the terminal transcript for an utterance.
	KindUserTranscriptFinal Kind = "user_input.transcript_final"
)

type UserSpeechStarted struct{ Base }

func NewUserSpeechStarted(opts ...BaseOption) UserSpeechStarted {
	return UserSpeechStarted{Base: NewBase(KindUserSpeechStarted, opts...)}
}

type UserSpeechEnded struct{ Base }

func NewUserSpeechEnded(opts ...BaseOption) UserSpeechEnded {
	return UserSpeechEnded{Base: NewBase(KindUserSpeechEnded, opts...)}
}

type UserTranscriptInterim struct {
	Base
	Transcript string
}

func NewUserTranscriptInterim(transcript string, opts ...BaseOption) UserTranscriptInterim {
	return UserTranscriptInterim{Base: NewBase(KindUserTranscriptInterim, opts...), Transcript: transcript}
}

// UserTranscriptFinal is the terminal transcript for the utterance. The turn
// machine treats it as the LISTEN exit trigger.
type UserTranscriptFinal struct {
	Base
	Transcript string
}

func NewUserTranscriptFinal(transcript string, opts ...BaseOption) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal, opts...), Transcript: transcript}
}

func (t UserTranscriptFinal) String() string { return t.Transcript }
