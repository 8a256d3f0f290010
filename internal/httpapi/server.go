// Package httpapi serves the token-issuance endpoints: credential minting for
// room access plus small status and ops surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jurepetric/avatard/internal/config"
	"github.com/jurepetric/avatard/internal/issuance"
	"github.com/jurepetric/avatard/internal/observability"
	"github.com/jurepetric/avatard/internal/room"
	"github.com/jurepetric/avatard/internal/token"
)

// RoomLister is the slice of the management API the status endpoints need.
type RoomLister interface {
	ListRooms(ctx context.Context) ([]room.RoomInfo, error)
}

type Server struct {
	cfg     config.Config
	minter  *token.Minter
	store   issuance.Store
	rooms   RoomLister
	logger  *slog.Logger
	metrics *observability.Metrics
}

func New(cfg config.Config, minter *token.Minter, store issuance.Store, rooms RoomLister, logger *slog.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		minter:  minter,
		store:   store,
		rooms:   rooms,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.cors)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/token", s.handleToken)
	r.Get("/rooms", s.handleRooms)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AllowAnyOrigin {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "avatard token service",
		"endpoints": map[string]string{
			"/token":   "Mint a room access token",
			"/health":  "Service health",
			"/rooms":   "List active rooms",
			"/metrics": "Prometheus metrics",
		},
		"usage": "GET /token?identity=your-name&room=your-room",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"signal_url": s.cfg.SignalURL,
	})
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	URL         string `json:"url"`
	Room        string `json:"room"`
	Identity    string `json:"identity"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// handleToken mints a room access token. Identity and room default to
// counter-derived names so a bare GET /token always yields a working pair.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.URL.Query().Get("identity"))
	roomName := strings.TrimSpace(r.URL.Query().Get("room"))

	if identity == "" || roomName == "" {
		n, err := s.store.NextCounter(r.Context())
		if err != nil {
			s.logger.Error("issuance counter failed", "error", err)
			respondError(w, http.StatusInternalServerError, "counter_failed", "could not derive default names")
			return
		}
		if identity == "" {
			identity = fmt.Sprintf("avatar-user-%d", n)
		}
		if roomName == "" {
			roomName = fmt.Sprintf("avatar-room-%d", n)
		}
	}

	accessToken, err := s.minter.Mint(identity, "User-"+identity, roomName, "")
	if err != nil {
		s.logger.Error("token mint failed", "identity", identity, "room", roomName, "error", err)
		respondError(w, http.StatusInternalServerError, "mint_failed", err.Error())
		return
	}

	expiresIn := int64(s.minter.TTL().Seconds())
	record := issuance.Record{
		Identity:  identity,
		Room:      roomName,
		ExpiresAt: time.Now().UTC().Add(s.minter.TTL()),
	}
	if err := s.store.SaveRecord(r.Context(), record); err != nil {
		// Audit trail is best effort; the token is already minted.
		s.logger.Warn("issuance record save failed", "error", err)
	}

	if s.metrics != nil {
		s.metrics.TokensIssued.Inc()
	}
	s.logger.Info("token issued", "identity", identity, "room", roomName)

	respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: accessToken,
		URL:         s.cfg.SignalURL,
		Room:        roomName,
		Identity:    identity,
		ExpiresIn:   expiresIn,
	})
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	if s.rooms == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "management api not configured")
		return
	}

	rooms, err := s.rooms.ListRooms(r.Context())
	if err != nil {
		s.logger.Error("room listing failed", "error", err)
		respondError(w, http.StatusBadGateway, "list_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rooms": rooms,
		"total": len(rooms),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
