package orchestration

import (
	"time"

	"github.com/eidolonlabs/eidolon-core/core/audio"
	"github.com/eidolonlabs/eidolon-core/core/events"
	"github.com/eidolonlabs/eidolon-core/core/model"
	"github.com/eidolonlabs/eidolon-core/core/tools"
)

type OrchestratorOption func(*Orchestrator)

// AudioDevice is a duplex capture/render device. Start installs the two
// real-time callbacks; they run on device threads and must never block.
type AudioDevice interface {
	Start(capture func(pcm []byte), render func(out []byte)) error
	Stop() error
	Close() error
	EncodingInfo() audio.EncodingInfo
}

func WithModelAdapter(adapter model.Adapter) OrchestratorOption {
	return func(o *Orchestrator) { o.adapter = adapter }
}

func WithSpeechChannel(client SpeechChannel) OrchestratorOption {
	return func(o *Orchestrator) { o.speech.set(client) }
}

func WithAudioDevice(device AudioDevice) OrchestratorOption {
	return func(o *Orchestrator) { o.device = device }
}

func WithTools(toolList ...tools.Tool) OrchestratorOption {
	return func(o *Orchestrator) {
		for _, tool := range toolList {
			o.registry.Register(tool)
		}
	}
}

// WithToolTransport replaces the in-process registry transport with a remote
// one. The registry still provides schemas, clamping bounds and the
// heavy/light classification.
func WithToolTransport(transport tools.Transport) OrchestratorOption {
	return func(o *Orchestrator) { o.transport = transport }
}

func WithToolPolicy(policy ToolPolicy) OrchestratorOption {
	return func(o *Orchestrator) { o.config.governor.Policy = policy }
}

func WithRateLimits(limits map[string]RateLimit) OrchestratorOption {
	return func(o *Orchestrator) { o.config.rateLimits = limits }
}

// WithKillSwitch sets the initial kill switch position. It can be flipped at
// runtime through [Orchestrator.SetKillSwitch].
func WithKillSwitch(on bool) OrchestratorOption {
	return func(o *Orchestrator) { o.config.killSwitch = on }
}

func WithToolConcurrency(max int) OrchestratorOption {
	return func(o *Orchestrator) { o.config.governor.MaxConcurrency = max }
}

func WithToolCallTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.governor.CallTimeout = timeout }
}

// WithCallCap bounds tool calls dispatched per turn. Zero removes the cap.
func WithCallCap(limit int) OrchestratorOption {
	return func(o *Orchestrator) { o.config.machine.CallCap = limit }
}

func WithInstructions(instructions string) OrchestratorOption {
	return func(o *Orchestrator) { o.config.instructions = instructions }
}

func WithVoice(voice string) OrchestratorOption {
	return func(o *Orchestrator) { o.config.machine.Voice = voice }
}

func WithHistoryLimit(messages int) OrchestratorOption {
	return func(o *Orchestrator) { o.config.historyLimit = messages }
}

func WithTurnTimeouts(plan, act, speak time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.config.machine.PlanTimeout = plan
		o.config.machine.ActTimeout = act
		o.config.machine.SpeakTimeout = speak
	}
}

func WithFragmentTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.machine.FragmentTimeout = timeout }
}

// WithCaptureChannel sizes the capture-side handoff. Capture drops oldest by
// default so the freshest audio always reaches transcription.
func WithCaptureChannel(capacity int, policy OverflowPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.config.bridge.InboundCap = capacity
		o.config.bridge.InboundPolicy = policy
	}
}

// WithRenderChannel sizes the render-side handoff. Render drops newest by
// default so queued speech keeps its order under backpressure.
func WithRenderChannel(capacity int, policy OverflowPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.config.bridge.OutboundCap = capacity
		o.config.bridge.OutboundPolicy = policy
	}
}

func WithTriggerQueueCapacity(capacity int) OrchestratorOption {
	return func(o *Orchestrator) { o.config.triggerCap = capacity }
}

type OrchestrateOptions struct {
	onEvent func(event events.Event)

	onSpeakingStateChanged func(isSpeaking bool)
	onInterimTranscription func(transcript string)
	onTranscription        func(transcript string)

	onResponse      func(response string)
	onResponseEnd   func(response string)
	onSpeechStarted func()
	onAudio         func(audio []byte)
	onSpeechEnded   func()

	onToolCallStarted   func(id, name string)
	onToolCallCompleted func(id, name, response string)
	onToolCallFailed    func(id, name, reason string)

	onTurnEnd      func()
	onCancellation func()

	onSessionRotated func(replacedSessionID string)
	onError          func(message string, fatal bool)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithEventCallback registers a raw tap on the event bus. It fires before the
// typed callbacks and sees every event, including ones no typed callback
// covers.
func WithEventCallback(callback func(event events.Event)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onEvent = callback
	}
}

// WithSpeakingStateChangedCallback registers a callback for voice-activity
// changes reported by the speech channel.
func WithSpeakingStateChangedCallback(callback func(isSpeaking bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSpeakingStateChanged = callback
	}
}

// WithInterimTranscriptionCallback registers a callback for interim
// transcriptions. Interim text is advisory and never triggers a turn.
func WithInterimTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onInterimTranscription = callback
	}
}

// WithTranscriptionCallback registers a callback for final transcriptions.
//
// Prompts submitted through [Orchestrator.SendPrompt] do not trigger this
// callback.
func WithTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTranscription = callback
	}
}

func WithResponseCallback(callback func(response string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onResponse = callback
	}
}

func WithResponseEndCallback(callback func(response string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onResponseEnd = callback
	}
}

// WithSpeechStartedCallback registers a callback for the first rendered
// model audio frame of a turn.
func WithSpeechStartedCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSpeechStarted = callback
	}
}

func WithAudioCallback(callback func(audio []byte)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onAudio = callback
	}
}

func WithSpeechEndedCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSpeechEnded = callback
	}
}

func WithToolCallStartedCallback(callback func(id, name string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onToolCallStarted = callback
	}
}

func WithToolCallCompletedCallback(callback func(id, name, response string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onToolCallCompleted = callback
	}
}

// WithToolCallFailedCallback registers a callback for every non-OK tool
// outcome, including calls skipped or rejected before dispatch.
func WithToolCallFailedCallback(callback func(id, name, reason string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onToolCallFailed = callback
	}
}

func WithTurnEndCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTurnEnd = callback
	}
}

func WithCancellationCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onCancellation = callback
	}
}

func WithSessionRotatedCallback(callback func(replacedSessionID string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSessionRotated = callback
	}
}

// WithErrorCallback registers a callback for session and device errors. A
// fatal error means the speech channel gave up reconnecting; non-fatal
// errors are recovered from internally.
func WithErrorCallback(callback func(message string, fatal bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onError = callback
	}
}
