package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalConfig = `
model:
  endpoint: https://example.com/v1
speech:
  endpoint: wss://example.com/realtime
`

func TestParseAppliesDefaults(t *testing.T) {
	config, err := Parse([]byte(minimalConfig))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if config.Model.Name != "qwen-omni-turbo" {
		t.Errorf("unexpected default model name %q", config.Model.Name)
	}
	if config.Speech.SessionLifetime != 25*time.Minute {
		t.Errorf("unexpected default session lifetime %v", config.Speech.SessionLifetime)
	}
	if config.Audio.Backend != BackendMiniaudio {
		t.Errorf("unexpected default audio backend %q", config.Audio.Backend)
	}
	if config.Audio.Capture.Policy != PolicyDropOldest || config.Audio.Render.Policy != PolicyDropNewest {
		t.Errorf("unexpected default channel policies %+v", config.Audio)
	}
	if config.Tools.CallCap != 8 || config.Tools.Concurrency != 4 {
		t.Errorf("unexpected default tool bounds %+v", config.Tools)
	}
}

func TestLoadExpandsEnvironmentReferences(t *testing.T) {
	t.Setenv("TEST_MODEL_KEY", "sk-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := minimalConfig + "  api_key: ${TEST_MODEL_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if config.Speech.APIKey != "sk-secret" {
		t.Errorf("expected expanded api key, got %q", config.Speech.APIKey)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	config, err := Parse([]byte(minimalConfig + `
tools:
  kill_switch: true
  call_cap: 3
  deny: [self_destruct]
  rate_limits:
    wave:
      per_second: 2
      burst: 4
turn:
  plan_timeout: 10s
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if !config.Tools.KillSwitch || config.Tools.CallCap != 3 {
		t.Errorf("tool overrides not applied: %+v", config.Tools)
	}
	if config.Tools.RateLimits["wave"].PerSecond != 2 {
		t.Errorf("rate limit not decoded: %+v", config.Tools.RateLimits)
	}
	if config.Turn.PlanTimeout != 10*time.Second {
		t.Errorf("turn override not applied: %v", config.Turn.PlanTimeout)
	}
	if config.Turn.ActTimeout != 30*time.Second {
		t.Errorf("untouched defaults must survive overrides: %v", config.Turn.ActTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing model endpoint",
			mutate:  func(c *Config) { c.Model.Endpoint = "" },
			wantErr: "model.endpoint",
		},
		{
			name:    "headroom exceeds lifetime",
			mutate:  func(c *Config) { c.Speech.SessionHeadroom = c.Speech.SessionLifetime },
			wantErr: "session_headroom",
		},
		{
			name:    "unknown audio backend",
			mutate:  func(c *Config) { c.Audio.Backend = "alsa" },
			wantErr: "audio.backend",
		},
		{
			name:    "unknown overflow policy",
			mutate:  func(c *Config) { c.Audio.Capture.Policy = "block" },
			wantErr: "policy",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Tools.Concurrency = 0 },
			wantErr: "concurrency",
		},
		{
			name:    "non-positive rate limit",
			mutate:  func(c *Config) { c.Tools.RateLimits = map[string]RateLimit{"wave": {PerSecond: 0}} },
			wantErr: "per_second",
		},
		{
			name:    "zero fragment timeout",
			mutate:  func(c *Config) { c.Turn.FragmentTimeout = 0 },
			wantErr: "fragment_timeout",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := Default()
			config.Model.Endpoint = "https://example.com/v1"
			config.Speech.Endpoint = "wss://example.com/realtime"
			tc.mutate(&config)

			err := config.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}
