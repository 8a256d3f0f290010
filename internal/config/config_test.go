package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.IdleThreshold != 4 {
		t.Fatalf("IdleThreshold = %d, want 4", cfg.IdleThreshold)
	}
	if cfg.IdlePollInterval != time.Second {
		t.Fatalf("IdlePollInterval = %v, want 1s", cfg.IdlePollInterval)
	}
	if cfg.RealtimeVoice != "echo" {
		t.Fatalf("RealtimeVoice = %q, want %q", cfg.RealtimeVoice, "echo")
	}
	if cfg.TurnDetectionMode != "semantic_vad" {
		t.Fatalf("TurnDetectionMode = %q, want %q", cfg.TurnDetectionMode, "semantic_vad")
	}
	if !cfg.TurnCreateResponse || !cfg.TurnInterruptResponse {
		t.Fatalf("turn detection booleans should default to true")
	}
	if cfg.OpenAIAPIKey != "" {
		t.Fatalf("OpenAIAPIKey = %q, want empty default", cfg.OpenAIAPIKey)
	}
	if cfg.DevMode {
		t.Fatalf("DevMode should default to false")
	}
}

func TestLoadDerivesManagementURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("SIGNAL_URL", "wss://rtc.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ManagementURL != "https://rtc.example.com" {
		t.Fatalf("ManagementURL = %q, want %q", cfg.ManagementURL, "https://rtc.example.com")
	}
}

func TestLoadKeepsExplicitManagementURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MANAGEMENT_URL", "http://localhost:7880")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ManagementURL != "http://localhost:7880" {
		t.Fatalf("ManagementURL = %q, want explicit value", cfg.ManagementURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero idle threshold", key: "IDLE_THRESHOLD", value: "0"},
		{name: "tiny poll interval", key: "IDLE_POLL_INTERVAL", value: "10ms"},
		{name: "temperature out of range", key: "REALTIME_TEMPERATURE", value: "3.5"},
		{name: "non-numeric threshold", key: "IDLE_THRESHOLD", value: "four"},
		{name: "bad bool", key: "REALTIME_TURN_CREATE_RESPONSE", value: "maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() should reject %s=%q", tc.key, tc.value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_DEV_MODE",
		"LOG_LEVEL",
		"SIGNAL_URL",
		"MANAGEMENT_URL",
		"SIGNAL_API_KEY",
		"SIGNAL_API_SECRET",
		"ROOM_NAME",
		"AGENT_IDENTITY",
		"AGENT_INSTRUCTIONS",
		"AVATAR_SERVICE_URL",
		"AVATAR_API_KEY",
		"AVATAR_REPLICA_ID",
		"AVATAR_PERSONA_ID",
		"OPENAI_API_KEY",
		"REALTIME_BASE_URL",
		"REALTIME_MODEL",
		"REALTIME_VOICE",
		"REALTIME_TRANSCRIPTION_MODEL",
		"REALTIME_TRANSCRIPTION_LANGUAGE",
		"REALTIME_TRANSCRIPTION_PROMPT",
		"REALTIME_TEMPERATURE",
		"REALTIME_TURN_DETECTION",
		"REALTIME_TURN_EAGERNESS",
		"REALTIME_TURN_CREATE_RESPONSE",
		"REALTIME_TURN_INTERRUPT_RESPONSE",
		"IDLE_POLL_INTERVAL",
		"IDLE_THRESHOLD",
		"TOKEN_TTL",
		"DATABASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
