package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Grants describes what the holder may do inside a room.
type Grants struct {
	RoomJoin       bool   `json:"roomJoin"`
	Room           string `json:"room"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublish     bool   `json:"canPublish"`
	CanPublishData bool   `json:"canPublishData"`
}

// Claims is the signed payload of a room access token.
type Claims struct {
	jwt.RegisteredClaims
	Name     string `json:"name,omitempty"`
	Video    Grants `json:"video"`
	Metadata string `json:"metadata,omitempty"`
}

var ErrInvalidToken = errors.New("invalid access token")

// Minter signs room access tokens with the signaling platform API secret.
type Minter struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

func NewMinter(apiKey, apiSecret string, ttl time.Duration) (*Minter, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(apiSecret) == "" {
		return nil, errors.New("api key and secret are required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Minter{apiKey: apiKey, apiSecret: apiSecret, ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (m *Minter) TTL() time.Duration { return m.ttl }

// Mint issues a join token for identity in room. The grants allow subscribing
// to the avatar's media, publishing the participant's own audio, and using the
// data channel.
func (m *Minter) Mint(identity, displayName, room, metadata string) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", errors.New("identity is required")
	}
	if strings.TrimSpace(room) == "" {
		return "", errors.New("room is required")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.apiKey,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Name: displayName,
		Video: Grants{
			RoomJoin:       true,
			Room:           room,
			CanSubscribe:   true,
			CanPublish:     true,
			CanPublishData: true,
		},
		Metadata: metadata,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.apiSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token minted with the same secret.
func (m *Minter) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(m.apiSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
