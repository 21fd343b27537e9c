// Command eidolon runs the conversational avatar orchestrator behind a
// terminal interface: live transcripts, turn progress, tool outcomes, typed
// prompt injection and a kill switch toggle.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/eidolonlabs/eidolon-core/config"
	orchestration "github.com/eidolonlabs/eidolon-core/core"
	"github.com/eidolonlabs/eidolon-core/core/audio/miniaudio"
	"github.com/eidolonlabs/eidolon-core/core/audio/portaudio"
	"github.com/eidolonlabs/eidolon-core/core/events"
	modelomni "github.com/eidolonlabs/eidolon-core/core/model/omni"
	speechomni "github.com/eidolonlabs/eidolon-core/core/speech/omni"
)

func main() {
	configPath := flag.String("config", "eidolon.yaml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "eidolon:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	device, err := newAudioDevice(cfg.Audio)
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	adapter := modelomni.NewClient(cfg.Model.Endpoint, cfg.Model.APIKey,
		modelomni.WithModel(cfg.Model.Name),
	)
	speechClient := speechomni.NewClient(cfg.Speech.Endpoint, cfg.Speech.APIKey,
		speechomni.WithModel(cfg.Speech.Model),
		speechomni.WithSessionLifetime(cfg.Speech.SessionLifetime, cfg.Speech.SessionHeadroom),
		speechomni.WithReconnectPolicy(
			cfg.Speech.Reconnect.InitialBackoff,
			cfg.Speech.Reconnect.MaxBackoff,
			cfg.Speech.Reconnect.MaxAttempts,
		),
	)

	orchestrator := orchestration.NewOrchestrator(
		orchestration.WithModelAdapter(adapter),
		orchestration.WithSpeechChannel(speechClient),
		orchestration.WithAudioDevice(device),
		orchestration.WithTools(builtinTools()...),
		orchestration.WithInstructions(cfg.Instructions),
		orchestration.WithVoice(cfg.Voice),
		orchestration.WithHistoryLimit(cfg.HistoryLimit),
		orchestration.WithToolPolicy(orchestration.ToolPolicy{Allow: cfg.Tools.Allow, Deny: cfg.Tools.Deny}),
		orchestration.WithRateLimits(rateLimits(cfg.Tools.RateLimits)),
		orchestration.WithKillSwitch(cfg.Tools.KillSwitch),
		orchestration.WithCallCap(cfg.Tools.CallCap),
		orchestration.WithToolConcurrency(cfg.Tools.Concurrency),
		orchestration.WithToolCallTimeout(cfg.Tools.CallTimeout),
		orchestration.WithTurnTimeouts(cfg.Turn.PlanTimeout, cfg.Turn.ActTimeout, cfg.Turn.SpeakTimeout),
		orchestration.WithFragmentTimeout(cfg.Turn.FragmentTimeout),
		orchestration.WithTriggerQueueCapacity(cfg.Turn.TriggerQueue),
		orchestration.WithCaptureChannel(cfg.Audio.Capture.Capacity, overflowPolicy(cfg.Audio.Capture.Policy)),
		orchestration.WithRenderChannel(cfg.Audio.Render.Capacity, overflowPolicy(cfg.Audio.Render.Policy)),
	)
	defer orchestrator.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The TUI drains this channel; a full buffer drops display events, never
	// orchestration ones.
	eventCh := make(chan events.Event, 256)
	err = orchestrator.Orchestrate(ctx, orchestration.WithEventCallback(func(event events.Event) {
		select {
		case eventCh <- event:
		default:
		}
	}))
	if err != nil {
		return err
	}

	program := tea.NewProgram(newUIModel(orchestrator, eventCh), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("interface failed: %w", err)
	}
	return nil
}

func newAudioDevice(cfg config.Audio) (orchestration.AudioDevice, error) {
	switch cfg.Backend {
	case config.BackendPortaudio:
		return portaudio.NewClient(0)
	default:
		return miniaudio.NewClient()
	}
}

func overflowPolicy(policy string) orchestration.OverflowPolicy {
	if policy == config.PolicyDropNewest {
		return orchestration.DropNewest
	}
	return orchestration.DropOldest
}

func rateLimits(limits map[string]config.RateLimit) map[string]orchestration.RateLimit {
	converted := make(map[string]orchestration.RateLimit, len(limits))
	for name, limit := range limits {
		converted[name] = orchestration.RateLimit{PerSecond: limit.PerSecond, Burst: limit.Burst}
	}
	return converted
}
