package orchestration

import events "github.com/eidolonlabs/eidolon-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.UserSpeechStarted:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(true)
			}
		case events.UserSpeechEnded:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.UserTranscriptInterim:
			if opts.onInterimTranscription != nil {
				opts.onInterimTranscription(typedEvent.Transcript)
			}
		case events.UserTranscriptFinal:
			if opts.onTranscription != nil {
				opts.onTranscription(typedEvent.Transcript)
			}
		case events.AssistantResponseSegment:
			if opts.onResponse != nil {
				opts.onResponse(typedEvent.Segment)
			}
		case events.AssistantResponseFinal:
			if opts.onResponseEnd != nil {
				opts.onResponseEnd(typedEvent.Response)
			}
		case events.AssistantSpeechStarted:
			if opts.onSpeechStarted != nil {
				opts.onSpeechStarted()
			}
		case events.AssistantAudioDelta:
			if opts.onAudio != nil {
				opts.onAudio(typedEvent.Audio)
			}
		case events.AssistantSpeechFinal:
			if opts.onSpeechEnded != nil {
				opts.onSpeechEnded()
			}
		case events.ToolCallStarted:
			if opts.onToolCallStarted != nil {
				opts.onToolCallStarted(typedEvent.ID, typedEvent.Name)
			}
		case events.ToolCallCompleted:
			if opts.onToolCallCompleted != nil {
				opts.onToolCallCompleted(typedEvent.ID, typedEvent.Name, typedEvent.Response)
			}
		case events.ToolCallFailed:
			if opts.onToolCallFailed != nil {
				opts.onToolCallFailed(typedEvent.ID, typedEvent.Name, typedEvent.Error)
			}
		case events.TurnCompleted:
			if opts.onTurnEnd != nil {
				opts.onTurnEnd()
			}
		case events.TurnCancelled:
			if opts.onCancellation != nil {
				opts.onCancellation()
			}
		case events.SessionRotated:
			if opts.onSessionRotated != nil {
				opts.onSessionRotated(typedEvent.ReplacedSessionID)
			}
		case events.SessionError:
			if opts.onError != nil {
				opts.onError(typedEvent.Error, typedEvent.Fatal)
			}
		case events.DeviceError:
			if opts.onError != nil {
				opts.onError(typedEvent.Device+": "+typedEvent.Error, false)
			}
		}
	}
}
