// Package token issues and verifies the HS256 access and refresh tokens.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/config"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var ErrInvalid = errors.New("invalid token")

type Claims struct {
	Staff bool   `json:"staff,omitempty"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (snowflake.ID, error) {
	return snowflake.ParseString(c.Subject)
}

type Manager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

func NewManager(cfg config.Config, clk clock.Clock) *Manager {
	m := &Manager{
		secret:     []byte(cfg.AuthJWTSecret),
		issuer:     strings.TrimSpace(cfg.AuthJWTIssuer),
		accessTTL:  cfg.AuthAccessTokenTTL,
		refreshTTL: cfg.AuthRefreshTokenTTL,
		clock:      clk,
	}
	if m.accessTTL <= 0 {
		m.accessTTL = defaultAccessTTL
	}
	if m.refreshTTL <= 0 {
		m.refreshTTL = defaultRefreshTTL
	}
	return m
}

func (m *Manager) IssueAccess(userID snowflake.ID, staff bool) (string, time.Time, error) {
	now := m.clock.Now()
	expires := now.Add(m.accessTTL)
	claims := Claims{
		Staff: staff,
		Type:  TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	return signed, expires, err
}

// IssueRefresh returns the signed token and its jti, which the caller persists.
func (m *Manager) IssueRefresh(userID snowflake.ID) (signed, jti string, expires time.Time, err error) {
	now := m.clock.Now()
	expires = now.Add(m.refreshTTL)
	jti = ulid.Make().String()
	claims := Claims{
		Type: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    m.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	return signed, jti, expires, err
}

// Parse verifies signature, expiry, issuer and the typ claim.
func (m *Manager) Parse(raw, wantType string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalid
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.Type != wantType || claims.Subject == "" {
		return nil, ErrInvalid
	}
	if wantType == TypeRefresh && claims.ID == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}
