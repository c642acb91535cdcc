// Package adminauth issues and verifies the single bearer token the
// dispatcher's admin surface requires (spec section 6's admin-auth
// column), following this codebase's existing JWT-session pattern but
// collapsed to one static operator credential pair instead of a user
// table (spec section 2: single-tenant deployment, one operator).
package adminauth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/forgeq/dispatcher/internal/pkg/errors"
)

// Claims is the JWT payload minted for the operator on login.
type Claims struct {
	jwt.RegisteredClaims
}

// Config carries the JWT_SECRET/ISS/AUD/EXP_MIN parameters spec
// section 6 documents, plus the operator credential pair itself.
type Config struct {
	Secret        string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	AdminUsername string
	AdminPassword string
}

// Service mints and verifies the admin bearer token. There is exactly
// one operator identity per deployment; Login checks it against the
// configured credential pair rather than a user table.
type Service struct {
	cfg Config
}

func New(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// Login verifies the operator credential pair and, on success, mints a
// signed access token plus the username it was issued for.
func (s *Service) Login(username, password string) (token string, user string, err error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", "", fmt.Errorf("username and password are required")
	}
	if username != s.cfg.AdminUsername || password != s.cfg.AdminPassword {
		return "", "", pkgerrors.ErrUnauthorized
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}
	signed := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok, err := signed.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", "", fmt.Errorf("sign admin token: %w", err)
	}
	return tok, username, nil
}

// VerifyToken parses and validates tokenString, returning the operator
// subject it was issued for.
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", pkgerrors.ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer))
	if err != nil {
		return "", fmt.Errorf("%w: %v", pkgerrors.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", pkgerrors.ErrUnauthorized
	}
	return claims.Subject, nil
}
