// Package app wires configuration into runnable components for the agent
// worker and the token service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jurepetric/avatard/internal/agent"
	"github.com/jurepetric/avatard/internal/avatar"
	"github.com/jurepetric/avatard/internal/config"
	"github.com/jurepetric/avatard/internal/httpapi"
	"github.com/jurepetric/avatard/internal/issuance"
	"github.com/jurepetric/avatard/internal/observability"
	"github.com/jurepetric/avatard/internal/realtime"
	"github.com/jurepetric/avatard/internal/room"
	"github.com/jurepetric/avatard/internal/token"
)

// AgentResult is one fully wired room session, ready to run.
type AgentResult struct {
	Config       config.Config
	Orchestrator *agent.Orchestrator
	Metrics      *observability.Metrics

	// Cleanup releases resources not owned by the orchestrator itself.
	Cleanup func() error
}

// BuildAgent assembles the orchestrator for one room. Avatar and model
// credentials are required; in dev mode a missing credential degrades to a
// local fake so the session protocol still runs end to end.
func BuildAgent(cfg config.Config, logger *slog.Logger, metrics *observability.Metrics) (*AgentResult, error) {
	if strings.TrimSpace(cfg.RoomName) == "" {
		return nil, fmt.Errorf("ROOM_NAME is required for the agent worker")
	}

	minter, err := token.NewMinter(cfg.APIKey, cfg.APISecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token minter init failed: %w", err)
	}

	connector, err := room.NewWSConnector(room.WSConnectorConfig{
		SignalURL: cfg.SignalURL,
		RoomName:  cfg.RoomName,
		Identity:  cfg.AgentIdentity,
		Minter:    minter,
	})
	if err != nil {
		return nil, fmt.Errorf("room connector init failed: %w", err)
	}

	newBridge := bridgeFactory(cfg, logger, minter)
	newAdapter := adapterFactory(cfg, logger)

	management := room.NewManagementClient(cfg.ManagementURL, cfg.APIKey, cfg.APISecret)

	orch, err := agent.NewOrchestrator(agent.Options{
		RoomName:      cfg.RoomName,
		Connector:     connector,
		NewBridge:     newBridge,
		NewAdapter:    newAdapter,
		Deleter:       management,
		Agent:         agent.NewAgent(cfg.AgentInstructions),
		Logger:        logger,
		Metrics:       metrics,
		PollInterval:  cfg.IdlePollInterval,
		IdleThreshold: cfg.IdleThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator init failed: %w", err)
	}

	return &AgentResult{
		Config:       cfg,
		Orchestrator: orch,
		Metrics:      metrics,
		Cleanup:      func() error { return nil },
	}, nil
}

// bridgeFactory selects the avatar bridge. Missing avatar identity is a hard
// error: only dev mode substitutes the fake, so a typo'd env var cannot yield
// a session that looks healthy but has no avatar.
func bridgeFactory(cfg config.Config, logger *slog.Logger, minter *token.Minter) func() (avatar.Bridge, error) {
	return func() (avatar.Bridge, error) {
		if cfg.AvatarReplicaID == "" || cfg.AvatarPersonaID == "" {
			if cfg.DevMode {
				logger.Warn("dev mode: avatar identity not configured, using fake bridge",
					"replica_set", cfg.AvatarReplicaID != "",
					"persona_set", cfg.AvatarPersonaID != "")
				return avatar.NewFakeBridge(), nil
			}
			return nil, fmt.Errorf("AVATAR_REPLICA_ID and AVATAR_PERSONA_ID are required (set APP_DEV_MODE=true to run with a fake bridge)")
		}
		return avatar.NewHTTPBridge(avatar.HTTPBridgeConfig{
			BaseURL:   cfg.AvatarServiceURL,
			APIKey:    cfg.AvatarAPIKey,
			ReplicaID: cfg.AvatarReplicaID,
			PersonaID: cfg.AvatarPersonaID,
			SignalURL: cfg.SignalURL,
			Minter:    minter,
		})
	}
}

// adapterFactory selects the conversational backend, same policy as
// bridgeFactory: a missing credential fails the session unless dev mode asked
// for the mock.
func adapterFactory(cfg config.Config, logger *slog.Logger) func(ctx context.Context) (realtime.Adapter, error) {
	return func(ctx context.Context) (realtime.Adapter, error) {
		if cfg.OpenAIAPIKey == "" {
			if cfg.DevMode {
				logger.Warn("dev mode: OPENAI_API_KEY not set, using mock conversational adapter")
				return realtime.NewMockAdapter(), nil
			}
			return nil, fmt.Errorf("OPENAI_API_KEY is required (set APP_DEV_MODE=true to run with the mock adapter)")
		}
		return realtime.NewOpenAIAdapter(ctx, cfg.OpenAIAPIKey, realtime.Config{
			Model:        cfg.RealtimeModel,
			Voice:        cfg.RealtimeVoice,
			Instructions: cfg.AgentInstructions,
			Temperature:  cfg.Temperature,
			Transcription: realtime.TranscriptionConfig{
				Model:    cfg.TranscriptionModel,
				Language: cfg.TranscriptionLanguage,
				Prompt:   cfg.TranscriptionPrompt,
			},
			TurnDetection: realtime.TurnDetectionConfig{
				Mode:              cfg.TurnDetectionMode,
				Eagerness:         cfg.TurnDetectionEagerness,
				CreateResponse:    cfg.TurnCreateResponse,
				InterruptResponse: cfg.TurnInterruptResponse,
			},
		}, realtime.WithBaseURL(cfg.RealtimeBaseURL))
	}
}

// TokenServiceResult is the wired token-issuance HTTP service.
type TokenServiceResult struct {
	Config  config.Config
	API     *httpapi.Server
	Store   issuance.Store
	Metrics *observability.Metrics

	Cleanup func() error
}

// BuildTokenService assembles the token service: minter, issuance store, and
// the HTTP API with its optional management-backed /rooms endpoint.
func BuildTokenService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*TokenServiceResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	minter, err := token.NewMinter(cfg.APIKey, cfg.APISecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token minter init failed: %w", err)
	}

	store, err := issuance.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("issuance store init failed: %w", err)
	}

	var lister httpapi.RoomLister
	if cfg.ManagementURL != "" {
		lister = room.NewManagementClient(cfg.ManagementURL, cfg.APIKey, cfg.APISecret)
	}

	api := httpapi.New(cfg, minter, store, lister, logger, metrics)

	cleanup := func() error {
		if err := store.Close(); err != nil {
			return fmt.Errorf("issuance store close: %w", err)
		}
		return nil
	}

	return &TokenServiceResult{
		Config:  cfg,
		API:     api,
		Store:   store,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}
