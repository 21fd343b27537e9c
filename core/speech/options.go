// Package speech defines the duplex speech-channel contract shared by the
// orchestration core and concrete session adapters.
package speech

import (
	"time"

	"github.com/eidolonlabs/eidolon-core/core/audio"
)

type ListenOptions struct {
	InterimTranscriptionCallback func(transcript string)
	TranscriptionCallback        func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// AudioCallback receives decoded model audio deltas in arrival order.
	AudioCallback func(audio []byte)

	SessionExpiringCallback func(deadline time.Time)
	SessionRotatedCallback  func(replacedSessionID string)
	// ErrorCallback reports transport failures; fatal is set only once the
	// adapter has exhausted its reconnect budget.
	ErrorCallback func(err error, fatal bool)

	EncodingInfo audio.EncodingInfo
}

type ListenOption func(*ListenOptions)

func WithInterimTranscriptionCallback(callback func(transcript string)) ListenOption {
	return func(o *ListenOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithTranscriptionCallback(callback func(transcript string)) ListenOption {
	return func(o *ListenOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) ListenOption {
	return func(o *ListenOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) ListenOption {
	return func(o *ListenOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithAudioCallback(callback func(audio []byte)) ListenOption {
	return func(o *ListenOptions) {
		o.AudioCallback = callback
	}
}

func WithSessionExpiringCallback(callback func(deadline time.Time)) ListenOption {
	return func(o *ListenOptions) {
		o.SessionExpiringCallback = callback
	}
}

func WithSessionRotatedCallback(callback func(replacedSessionID string)) ListenOption {
	return func(o *ListenOptions) {
		o.SessionRotatedCallback = callback
	}
}

func WithErrorCallback(callback func(err error, fatal bool)) ListenOption {
	return func(o *ListenOptions) {
		o.ErrorCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) ListenOption {
	return func(o *ListenOptions) {
		o.EncodingInfo = encodingInfo
	}
}

func (o *ListenOptions) Defaults() *ListenOptions {
	if o.InterimTranscriptionCallback == nil {
		o.InterimTranscriptionCallback = func(string) {}
	}
	if o.TranscriptionCallback == nil {
		o.TranscriptionCallback = func(string) {}
	}
	if o.SpeechStartedCallback == nil {
		o.SpeechStartedCallback = func() {}
	}
	if o.SpeechEndedCallback == nil {
		o.SpeechEndedCallback = func() {}
	}
	if o.AudioCallback == nil {
		o.AudioCallback = func([]byte) {}
	}
	if o.SessionExpiringCallback == nil {
		o.SessionExpiringCallback = func(time.Time) {}
	}
	if o.SessionRotatedCallback == nil {
		o.SessionRotatedCallback = func(string) {}
	}
	if o.ErrorCallback == nil {
		o.ErrorCallback = func(error, bool) {}
	}
	if o.EncodingInfo.IsZero() {
		o.EncodingInfo = audio.GetDefaultEncodingInfo()
	}
	return o
}
