package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eidolonlabs/eidolon-core/core/events"
	"github.com/eidolonlabs/eidolon-core/core/model"
	"github.com/eidolonlabs/eidolon-core/core/tools"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Orchestrator wires the speech channel, the audio bridge, the model adapter
// and the tool governor into a serial turn loop. One orchestrator drives one
// avatar; turns never overlap.
type Orchestrator struct {
	adapter   model.Adapter
	speech    *speechChannel
	device    AudioDevice
	registry  *tools.Registry
	transport tools.Transport

	controls     *GovernorControls
	conversation *conversation

	config orchestratorConfig

	bridge   *audioBridge
	machine  *turnMachine
	triggers *bounded[string]

	sessionID string
	started   atomic.Bool

	mu         sync.Mutex
	emitAll    eventEmitter
	cancelTurn context.CancelFunc

	cancel    context.CancelFunc
	closeOnce sync.Once
}

type orchestratorConfig struct {
	bridge   audioBridgeConfig
	governor toolGovernorConfig
	machine  turnMachineConfig

	rateLimits map[string]RateLimit
	killSwitch bool

	instructions string
	historyLimit int
	triggerCap   int
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		speech:   newSpeechChannel(nil),
		registry: tools.NewRegistry(),
		config: orchestratorConfig{
			bridge: audioBridgeConfig{
				InboundCap:     64,
				InboundPolicy:  DropOldest,
				OutboundCap:    256,
				OutboundPolicy: DropNewest,
			},
			governor:     toolGovernorConfig{MaxConcurrency: 4},
			machine:      turnMachineConfig{CallCap: 8},
			historyLimit: 64,
			triggerCap:   8,
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.transport == nil {
		o.transport = o.registry
	}
	if o.config.bridge.Encoding.IsZero() && o.device != nil {
		o.config.bridge.Encoding = o.device.EncodingInfo()
	}

	o.controls = NewGovernorControls(o.config.killSwitch, o.config.rateLimits)
	o.conversation = newConversation(o.config.historyLimit)
	// Triggers queued while a turn runs stay queued; overflow drops the
	// newest so the turn in flight keeps its conversational context.
	o.triggers = newBounded[string](o.config.triggerCap, DropNewest)
	return o
}

// Orchestrate starts the session: the speech channel, the audio device and
// the turn loop. It returns once everything is running; the loop stops when
// ctx is cancelled or the orchestrator is closed.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) error {
	if !o.started.CompareAndSwap(false, true) {
		return errors.New("orchestrator already started")
	}

	options := OrchestrateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	emit := o.dispatchingEmitter(newCallbackEventEmitter(options))
	o.mu.Lock()
	o.emitAll = emit
	o.mu.Unlock()

	o.sessionID = uuid.NewString()
	o.bridge = newAudioBridge(o.config.bridge, emit)
	governor := newToolGovernor(o.controls, o.registry, o.transport, o.config.governor, emit)
	o.machine = newTurnMachine(
		o.adapter, o.bridge, governor, o.conversation,
		o.config.instructions, o.toolSpecs(), o.classifyHeavy,
		o.config.machine, emit,
	)

	o.speech.SetEventEmitter(emit)
	if err := o.speech.Start(ctx, o.bridge); err != nil {
		cancel()
		return err
	}

	if o.device != nil {
		if err := o.device.Start(o.bridge.CaptureCallback, o.bridge.RenderCallback); err != nil {
			cancel()
			return fmt.Errorf("failed to start audio device: %w", err)
		}
	}

	go o.pumpCapturedAudio(ctx)
	go o.turnLoop(ctx)
	return nil
}

// dispatchingEmitter taps the event stream for turn triggers. Final
// transcripts and explicit prompts enter the bounded trigger queue; the
// serial turn loop consumes them one at a time.
func (o *Orchestrator) dispatchingEmitter(emit eventEmitter) eventEmitter {
	return func(event events.Event) {
		emit(event)

		switch typed := event.(type) {
		case events.UserTranscriptFinal:
			if !o.triggers.Send(typed.Transcript) {
				logger.Warn("trigger queue full, transcript dropped")
			}
		case events.UserPrompt:
			if !o.triggers.Send(typed.Prompt) {
				logger.Warn("trigger queue full, prompt dropped")
			}
		case events.SessionError:
			// A fatal session error means the speech channel exhausted its
			// reconnect budget; transcription is gone for good. Abort the
			// turn in flight and stop taking new triggers instead of
			// running on silently.
			if typed.Fatal {
				logger.Error("speech session unrecoverable, stopping turn intake", "error", typed.Error)
				o.CancelTurn()
				o.triggers.Close()
			}
		}
	}
}

// pumpCapturedAudio moves captured frames from the bridge to the speech
// channel. This is the cooperative half of the capture path; the real-time
// half never touches the network.
func (o *Orchestrator) pumpCapturedAudio(ctx context.Context) {
	for {
		frame, ok := o.bridge.NextCapturedFrame(ctx)
		if !ok {
			return
		}
		if err := o.speech.SendAudio(frame.PCM); err != nil {
			logger.Warn("failed to forward captured audio", "error", err)
		}
	}
}

// turnLoop runs turns strictly serially. A trigger arriving mid-turn waits
// in the queue; an aborted turn never takes the loop down.
func (o *Orchestrator) turnLoop(ctx context.Context) {
	for {
		prompt, ok := o.triggers.Receive(ctx)
		if !ok {
			return
		}

		turnCtx, cancelTurn := context.WithCancel(ctx)
		o.mu.Lock()
		o.cancelTurn = cancelTurn
		o.mu.Unlock()

		if err := o.machine.RunTurn(turnCtx, o.sessionID, prompt); err != nil {
			logger.Warn("turn aborted", "error", err)
		}

		o.mu.Lock()
		o.cancelTurn = nil
		o.mu.Unlock()
		cancelTurn()

		turnCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("session.id", o.sessionID)))
	}
}

// SendPrompt injects a typed prompt as if it were a final transcript.
func (o *Orchestrator) SendPrompt(prompt string) {
	o.mu.Lock()
	emit := o.emitAll
	o.mu.Unlock()

	if emit != nil {
		emit(events.NewUserPrompt(prompt))
		return
	}
	o.triggers.Send(prompt)
}

// CancelTurn aborts the turn in flight, if any. Queued triggers are kept.
func (o *Orchestrator) CancelTurn() {
	o.mu.Lock()
	cancelTurn := o.cancelTurn
	o.mu.Unlock()

	if cancelTurn != nil {
		cancelTurn()
	}
}

// SetKillSwitch flips the tool-execution kill switch at runtime. It takes
// effect on the next governed call; turns keep running and speech is
// unaffected.
func (o *Orchestrator) SetKillSwitch(on bool) { o.controls.SetKillSwitch(on) }

// KillSwitch reports the current kill switch position.
func (o *Orchestrator) KillSwitch() bool { return o.controls.KillSwitch() }

// History returns a snapshot of the folded conversation.
func (o *Orchestrator) History() []model.Message { return o.conversation.history() }

func (o *Orchestrator) Close() error {
	var err error
	o.closeOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		o.triggers.Close()

		var errs []error
		if o.device != nil {
			errs = append(errs, o.device.Stop(), o.device.Close())
		}
		errs = append(errs, o.speech.Close())
		if o.bridge != nil {
			o.bridge.Close()
		}
		err = errors.Join(errs...)
	})
	return err
}

func (o *Orchestrator) toolSpecs() []model.ToolSpec {
	var specs []model.ToolSpec
	for _, tool := range o.registry.Tools() {
		specs = append(specs, model.ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.SchemaJSON(),
		})
	}
	return specs
}

func (o *Orchestrator) classifyHeavy(name string) bool {
	tool, ok := o.registry.Lookup(name)
	return ok && tool.Heavy
}
