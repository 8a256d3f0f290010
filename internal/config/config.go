package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the avatar agent and token service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	LogLevel         string
	MetricsNamespace string

	AllowAnyOrigin bool

	// DevMode substitutes local fakes for the avatar and model backends
	// when their credentials are absent. Off by default: in production a
	// missing credential is a misconfiguration, not a downgrade.
	DevMode bool

	// Room signaling platform credentials.
	SignalURL     string
	ManagementURL string
	APIKey        string
	APISecret     string

	// Room join settings for the agent worker.
	RoomName          string
	AgentIdentity     string
	AgentInstructions string

	// Avatar rendering service.
	AvatarServiceURL string
	AvatarAPIKey     string
	AvatarReplicaID  string
	AvatarPersonaID  string

	// Realtime conversational model.
	OpenAIAPIKey          string
	RealtimeBaseURL       string
	RealtimeModel         string
	RealtimeVoice         string
	TranscriptionModel    string
	TranscriptionLanguage string
	TranscriptionPrompt   string
	Temperature           float64

	// Turn detection policy, passed through to the model verbatim.
	TurnDetectionMode      string
	TurnDetectionEagerness string
	TurnCreateResponse     bool
	TurnInterruptResponse  bool

	// Idle monitor: teardown after IdleThreshold consecutive empty polls.
	IdlePollInterval time.Duration
	IdleThreshold    int

	TokenTTL    time.Duration
	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "avatard"),
		AllowAnyOrigin:   true,

		SignalURL:     envOrDefault("SIGNAL_URL", "wss://cloud.example-rtc.io"),
		ManagementURL: trimmedEnv("MANAGEMENT_URL"),
		APIKey:        trimmedEnv("SIGNAL_API_KEY"),
		APISecret:     trimmedEnv("SIGNAL_API_SECRET"),

		RoomName:      trimmedEnv("ROOM_NAME"),
		AgentIdentity: envOrDefault("AGENT_IDENTITY", "avatar-agent"),
		AgentInstructions: envOrDefault("AGENT_INSTRUCTIONS",
			"You are a helpful AI assistant with a visual avatar. Be friendly and conversational."),

		AvatarServiceURL: envOrDefault("AVATAR_SERVICE_URL", "https://api.avatarhost.io/v2"),
		AvatarAPIKey:     trimmedEnv("AVATAR_API_KEY"),
		AvatarReplicaID:  trimmedEnv("AVATAR_REPLICA_ID"),
		AvatarPersonaID:  trimmedEnv("AVATAR_PERSONA_ID"),

		OpenAIAPIKey:          trimmedEnv("OPENAI_API_KEY"),
		RealtimeBaseURL:       envOrDefault("REALTIME_BASE_URL", "wss://api.openai.com/v1/realtime"),
		RealtimeModel:         envOrDefault("REALTIME_MODEL", "gpt-4o-realtime-preview-2024-12-17"),
		RealtimeVoice:         envOrDefault("REALTIME_VOICE", "echo"),
		TranscriptionModel:    envOrDefault("REALTIME_TRANSCRIPTION_MODEL", "gpt-4o-transcribe"),
		TranscriptionLanguage: envOrDefault("REALTIME_TRANSCRIPTION_LANGUAGE", "en"),
		TranscriptionPrompt:   envOrDefault("REALTIME_TRANSCRIPTION_PROMPT", "expect informal conversational speech"),
		Temperature:           1.0,

		TurnDetectionMode:      envOrDefault("REALTIME_TURN_DETECTION", "semantic_vad"),
		TurnDetectionEagerness: envOrDefault("REALTIME_TURN_EAGERNESS", "auto"),
		TurnCreateResponse:     true,
		TurnInterruptResponse:  true,

		IdlePollInterval: time.Second,
		IdleThreshold:    4,

		TokenTTL:        24 * time.Hour,
		ShutdownTimeout: 15 * time.Second,
		DatabaseURL:     trimmedEnv("DATABASE_URL"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.IdlePollInterval, err = durationFromEnv("IDLE_POLL_INTERVAL", cfg.IdlePollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.IdleThreshold, err = intFromEnv("IDLE_THRESHOLD", cfg.IdleThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.TokenTTL, err = durationFromEnv("TOKEN_TTL", cfg.TokenTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.Temperature, err = floatFromEnv("REALTIME_TEMPERATURE", cfg.Temperature)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.DevMode, err = boolFromEnv("APP_DEV_MODE", false)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnCreateResponse, err = boolFromEnv("REALTIME_TURN_CREATE_RESPONSE", cfg.TurnCreateResponse)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnInterruptResponse, err = boolFromEnv("REALTIME_TURN_INTERRUPT_RESPONSE", cfg.TurnInterruptResponse)
	if err != nil {
		return Config{}, err
	}

	if cfg.ManagementURL == "" {
		cfg.ManagementURL = deriveManagementURL(cfg.SignalURL)
	}
	if cfg.IdleThreshold < 1 {
		return Config{}, fmt.Errorf("IDLE_THRESHOLD must be at least 1")
	}
	if cfg.IdlePollInterval < 100*time.Millisecond {
		return Config{}, fmt.Errorf("IDLE_POLL_INTERVAL must be at least 100ms")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return Config{}, fmt.Errorf("REALTIME_TEMPERATURE must be within [0, 2]")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive")
	}

	return cfg, nil
}

// deriveManagementURL maps a signaling websocket URL to its HTTP management
// endpoint when MANAGEMENT_URL is not set explicitly.
func deriveManagementURL(signalURL string) string {
	u := strings.TrimSpace(signalURL)
	switch {
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	default:
		return u
	}
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
