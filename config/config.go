// Package config loads orchestrator configuration from YAML. Values of the
// form ${VAR} are expanded from the environment before decoding, so secrets
// stay out of the file itself.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Instructions string `yaml:"instructions"`
	Voice        string `yaml:"voice"`
	HistoryLimit int    `yaml:"history_limit"`

	Model  Model  `yaml:"model"`
	Speech Speech `yaml:"speech"`
	Audio  Audio  `yaml:"audio"`
	Tools  Tools  `yaml:"tools"`
	Turn   Turn   `yaml:"turn"`
}

// Model configures the streaming completions endpoint used for planning and
// speech generation.
type Model struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Name     string `yaml:"name"`
}

// Speech configures the realtime duplex transcription session.
type Speech struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`

	SessionLifetime time.Duration `yaml:"session_lifetime"`
	SessionHeadroom time.Duration `yaml:"session_headroom"`

	Reconnect Reconnect `yaml:"reconnect"`
}

type Reconnect struct {
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	MaxAttempts    int           `yaml:"max_attempts"`
}

// Audio selects the device backend and sizes the real-time handoff channels.
type Audio struct {
	Backend string  `yaml:"backend"`
	Capture Channel `yaml:"capture"`
	Render  Channel `yaml:"render"`
}

type Channel struct {
	Capacity int    `yaml:"capacity"`
	Policy   string `yaml:"policy"`
}

// Tools configures the execution governor.
type Tools struct {
	KillSwitch  bool          `yaml:"kill_switch"`
	CallCap     int           `yaml:"call_cap"`
	Concurrency int           `yaml:"concurrency"`
	CallTimeout time.Duration `yaml:"call_timeout"`

	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`

	RateLimits map[string]RateLimit `yaml:"rate_limits"`
}

type RateLimit struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Turn bounds the phases of a single turn.
type Turn struct {
	PlanTimeout     time.Duration `yaml:"plan_timeout"`
	ActTimeout      time.Duration `yaml:"act_timeout"`
	SpeakTimeout    time.Duration `yaml:"speak_timeout"`
	FragmentTimeout time.Duration `yaml:"fragment_timeout"`

	TriggerQueue int `yaml:"trigger_queue"`
}

const (
	BackendMiniaudio = "miniaudio"
	BackendPortaudio = "portaudio"

	PolicyDropOldest = "drop_oldest"
	PolicyDropNewest = "drop_newest"
)

// Default returns the configuration used when a field is absent from the
// file. Load starts from it, so a minimal file only needs endpoints and
// keys.
func Default() Config {
	return Config{
		HistoryLimit: 64,
		Model: Model{
			Name: "qwen-omni-turbo",
		},
		Speech: Speech{
			Model:           "qwen-omni-turbo-realtime",
			SessionLifetime: 25 * time.Minute,
			SessionHeadroom: 30 * time.Second,
			Reconnect: Reconnect{
				InitialBackoff: 250 * time.Millisecond,
				MaxBackoff:     5 * time.Second,
				MaxAttempts:    5,
			},
		},
		Audio: Audio{
			Backend: BackendMiniaudio,
			Capture: Channel{Capacity: 64, Policy: PolicyDropOldest},
			Render:  Channel{Capacity: 256, Policy: PolicyDropNewest},
		},
		Tools: Tools{
			CallCap:     8,
			Concurrency: 4,
			CallTimeout: 30 * time.Second,
		},
		Turn: Turn{
			PlanTimeout:     60 * time.Second,
			ActTimeout:      30 * time.Second,
			SpeakTimeout:    120 * time.Second,
			FragmentTimeout: 5 * time.Second,
			TriggerQueue:    8,
		},
	}
}

// Load reads path, expands ${VAR} references from the environment, decodes
// the YAML over the defaults and validates the result.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse decodes an already-expanded YAML document over the defaults.
func Parse(raw []byte) (Config, error) {
	config := Default()
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	if c.Speech.Endpoint == "" {
		return fmt.Errorf("speech.endpoint is required")
	}
	if c.Speech.SessionHeadroom >= c.Speech.SessionLifetime {
		return fmt.Errorf("speech.session_headroom must be shorter than speech.session_lifetime")
	}
	if c.Speech.Reconnect.MaxAttempts < 1 {
		return fmt.Errorf("speech.reconnect.max_attempts must be at least 1")
	}

	if c.Audio.Backend != BackendMiniaudio && c.Audio.Backend != BackendPortaudio {
		return fmt.Errorf("audio.backend must be %q or %q, got %q", BackendMiniaudio, BackendPortaudio, c.Audio.Backend)
	}
	for name, channel := range map[string]Channel{"audio.capture": c.Audio.Capture, "audio.render": c.Audio.Render} {
		if channel.Capacity < 1 {
			return fmt.Errorf("%s.capacity must be at least 1", name)
		}
		if channel.Policy != PolicyDropOldest && channel.Policy != PolicyDropNewest {
			return fmt.Errorf("%s.policy must be %q or %q, got %q", name, PolicyDropOldest, PolicyDropNewest, channel.Policy)
		}
	}

	if c.Tools.CallCap < 0 {
		return fmt.Errorf("tools.call_cap must not be negative")
	}
	if c.Tools.Concurrency < 1 {
		return fmt.Errorf("tools.concurrency must be at least 1")
	}
	for name, limit := range c.Tools.RateLimits {
		if limit.PerSecond <= 0 {
			return fmt.Errorf("tools.rate_limits.%s.per_second must be positive", name)
		}
	}

	for name, timeout := range map[string]time.Duration{
		"turn.plan_timeout":     c.Turn.PlanTimeout,
		"turn.act_timeout":      c.Turn.ActTimeout,
		"turn.speak_timeout":    c.Turn.SpeakTimeout,
		"turn.fragment_timeout": c.Turn.FragmentTimeout,
	} {
		if timeout <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
