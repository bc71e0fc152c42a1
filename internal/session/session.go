package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is the caller's own authenticated, anonymous identity handle.
// It is passed explicitly to every component that needs it; there is no
// ambient current-user state.
type Session struct {
	UID      string
	Token    string
	IssuedAt time.Time
}

// Claims are the JWT claims embedded in a session token.
type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// Config holds token signing configuration.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Service issues anonymous sessions. One session is minted per service
// instance; repeated calls return the same identity.
type Service struct {
	cfg *Config

	mu      sync.Mutex
	current *Session
}

// NewService creates a session service.
func NewService(cfg *Config) *Service {
	return &Service{cfg: cfg}
}

// EnsureAnonymous returns the current session, minting an anonymous one on
// first call. Idempotent.
func (s *Service) EnsureAnonymous(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return s.current, nil
	}

	now := time.Now()
	uid := uuid.NewString()
	token, err := generateToken(s.cfg, uid, now)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	s.current = &Session{UID: uid, Token: token, IssuedAt: now}
	return s.current, nil
}

// Current returns the session, or nil if none has been established yet.
func (s *Service) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ValidateToken parses and validates a session token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.cfg, tokenString)
}

func generateToken(cfg *Config, uid string, now time.Time) (string, error) {
	claims := Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT session token.
func ValidateToken(cfg *Config, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UID == "" {
		return nil, fmt.Errorf("token has no session uid")
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	if cfg.Audience != "" {
		validAudience := false
		for _, aud := range claims.Audience {
			if aud == cfg.Audience {
				validAudience = true
				break
			}
		}
		if !validAudience {
			return nil, fmt.Errorf("invalid audience")
		}
	}

	return claims, nil
}
