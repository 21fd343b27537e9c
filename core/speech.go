package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/eidolonlabs/eidolon-core/core/events"
	"github.com/eidolonlabs/eidolon-core/core/speech"
)

// SpeechChannel is a duplex realtime speech session: captured audio goes in,
// transcripts and model audio come out.
type SpeechChannel interface {
	Listen(ctx context.Context, opts ...speech.ListenOption) error
	SendAudio(pcm []byte) error
	Close() error
}

// speechChannel is the facade that normalizes optional client wiring and
// translates adapter callbacks into bus events and bridge writes.
type speechChannel struct {
	client SpeechChannel

	emitEvent eventEmitter
}

func newSpeechChannel(client SpeechChannel) *speechChannel {
	return &speechChannel{client: client, emitEvent: noopEventEmitter}
}

func (s *speechChannel) set(client SpeechChannel) {
	if s != nil {
		s.client = client
	}
}

func (s *speechChannel) SetEventEmitter(emitEvent eventEmitter) {
	if s != nil {
		if emitEvent != nil {
			s.emitEvent = emitEvent
		} else {
			s.emitEvent = noopEventEmitter
		}
	}
}

func (s *speechChannel) isConfigured() bool {
	return s != nil && s.client != nil
}

// Start opens the duplex session. Model audio deltas flow straight into the
// bridge's outbound channel in arrival order; everything else becomes bus
// events.
func (s *speechChannel) Start(ctx context.Context, bridge *audioBridge) error {
	if !s.isConfigured() {
		return nil
	}

	listenOptions := []speech.ListenOption{
		speech.WithSpeechStartedCallback(func() {
			s.emitEvent(events.NewUserSpeechStarted())
		}),
		speech.WithSpeechEndedCallback(func() {
			s.emitEvent(events.NewUserSpeechEnded())
		}),
		speech.WithInterimTranscriptionCallback(func(transcript string) {
			s.emitEvent(events.NewUserTranscriptInterim(transcript))
		}),
		speech.WithTranscriptionCallback(func(transcript string) {
			s.emitEvent(events.NewUserTranscriptFinal(transcript))
		}),
		speech.WithAudioCallback(func(pcm []byte) {
			bridge.PlayModelAudio(pcm)
		}),
		speech.WithSessionExpiringCallback(func(deadline time.Time) {
			s.emitEvent(events.NewSessionExpiring(deadline))
		}),
		speech.WithSessionRotatedCallback(func(replacedSessionID string) {
			s.emitEvent(events.NewSessionRotated(replacedSessionID))
		}),
		speech.WithErrorCallback(func(err error, fatal bool) {
			s.emitEvent(events.NewSessionError(err.Error(), fatal))
		}),
		speech.WithEncodingInfo(bridge.EncodingInfo()),
	}

	if err := s.client.Listen(ctx, listenOptions...); err != nil {
		return fmt.Errorf("failed to open speech channel: %w", err)
	}
	return nil
}

func (s *speechChannel) SendAudio(pcm []byte) error {
	if !s.isConfigured() {
		return nil
	}
	return s.client.SendAudio(pcm)
}

func (s *speechChannel) Close() error {
	if !s.isConfigured() {
		return nil
	}
	return s.client.Close()
}
