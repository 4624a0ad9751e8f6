package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	"stablecore/internal/core"
	"stablecore/pkg/domain"
)

// jwtEnv holds raw env values before post-parse validation.
type jwtEnv struct {
	Issuer   string `env:"STABLECORE_AUTH_JWT_ISSUER"`
	Audience string `env:"STABLECORE_AUTH_JWT_AUDIENCE"`
	Secret   string `env:"STABLECORE_AUTH_JWT_SECRET"`
}

// JWTConfig defines how caller tokens are verified.
type JWTConfig struct {
	Issuer   string
	Audience string
	Secret   []byte
	Now      func() time.Time
}

// LoadJWTConfigFromEnv reads token verification configuration.
func LoadJWTConfigFromEnv(now func() time.Time) (JWTConfig, error) {
	var raw jwtEnv
	if err := env.Parse(&raw); err != nil {
		return JWTConfig{}, fmt.Errorf("parse auth env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	secret := strings.TrimSpace(raw.Secret)
	if issuer == "" {
		return JWTConfig{}, fmt.Errorf("STABLECORE_AUTH_JWT_ISSUER is required")
	}
	if audience == "" {
		return JWTConfig{}, fmt.Errorf("STABLECORE_AUTH_JWT_AUDIENCE is required")
	}
	if secret == "" {
		return JWTConfig{}, fmt.Errorf("STABLECORE_AUTH_JWT_SECRET is required")
	}
	if now == nil {
		now = time.Now
	}
	return JWTConfig{Issuer: issuer, Audience: audience, Secret: []byte(secret), Now: now}, nil
}

// JWT verifies HS256 bearer tokens and resolves the subject claim to the
// caller account.
type JWT struct {
	cfg JWTConfig
}

// NewJWT creates a JWT authenticator from cfg.
func NewJWT(cfg JWTConfig) (*JWT, error) {
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Secret) == 0 {
		return nil, errors.New("jwt authenticator is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWT{cfg: cfg}, nil
}

// Authenticate parses and verifies cred as a signed token and returns its
// subject as the account identity.
func (a *JWT) Authenticate(_ context.Context, cred core.Credential) (domain.AccountID, error) {
	token := strings.TrimSpace(string(cred))
	if token == "" {
		return "", errors.New("empty credential")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", errors.New("token signature is invalid")
		}
		return "", errors.New("token is invalid")
	}
	if claims.Issuer != a.cfg.Issuer {
		return "", errors.New("token issuer mismatch")
	}
	if !audienceContains(claims.Audience, a.cfg.Audience) {
		return "", errors.New("token audience mismatch")
	}
	if claims.ExpiresAt == nil {
		return "", errors.New("token exp is required")
	}
	now := a.cfg.Now().UTC()
	if !claims.ExpiresAt.Time.UTC().After(now) {
		return "", errors.New("token is expired")
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time.UTC()) {
		return "", errors.New("token not active yet")
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	return domain.AccountID(subject), nil
}

// IssueToken signs a token for account, valid for ttl. Intended for tests
// and local tooling.
func (a *JWT) IssueToken(account domain.AccountID, ttl time.Duration) (core.Credential, error) {
	now := a.cfg.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    a.cfg.Issuer,
		Audience:  jwt.ClaimStrings{a.cfg.Audience},
		Subject:   string(account),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return core.Credential(signed), nil
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
