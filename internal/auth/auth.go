// Package auth implements the admin console login: a single administrator
// configured through the environment, bcrypt-checked credentials and HS256
// bearer tokens.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/config"
)

const (
	// TokenTTL is how long an admin token stays valid
	TokenTTL = 24 * time.Hour

	issuer        = "connection-broker"
	adminAudience = "admin"
	blacklistKey  = "jwt:blacklist:"
)

// TokenStore records revoked tokens. *redis.Client satisfies it.
type TokenStore interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Session struct {
	Username  string
	ExpiresAt time.Time
}

type Auth struct {
	username     string
	passwordHash []byte
	jwtSecret    []byte
	revoked      TokenStore
	now          func() time.Time
}

type sessionKey struct{}

// New hashes the configured admin password. revoked may be nil, in which
// case Logout is a no-op and tokens live until they expire.
func New(cfg *config.Config, revoked TokenStore) (*Auth, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.ConfigError("JWT secret is required")
	}
	if cfg.AdminPassword == "" {
		return nil, errors.ConfigError("admin password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.InternalError("failed to hash admin password", err)
	}

	return &Auth{
		username:     cfg.AdminUsername,
		passwordHash: hash,
		jwtSecret:    []byte(cfg.JWTSecret),
		revoked:      revoked,
		now:          time.Now,
	}, nil
}

// Login checks the credentials and issues a token
func (a *Auth) Login(username, password string) (string, *Session, error) {
	if username != a.username || bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) != nil {
		return "", nil, errors.AuthError("invalid credentials")
	}

	expiresAt := a.now().Add(TokenTTL)
	token, err := a.GenerateJWT(username, expiresAt)
	if err != nil {
		return "", nil, err
	}
	return token, &Session{Username: username, ExpiresAt: expiresAt}, nil
}

func (a *Auth) GenerateJWT(username string, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			Audience:  jwt.ClaimStrings{adminAudience},
			IssuedAt:  jwt.NewNumericDate(a.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
	if err != nil {
		return "", errors.InternalError("failed to sign token", err)
	}
	return signed, nil
}

// ValidateJWT parses and verifies an admin token, rejecting revoked ones
func (a *Auth) ValidateJWT(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(adminAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return nil, errors.AuthError("invalid token")
	}

	if a.revoked != nil {
		if v, err := a.revoked.Get(ctx, blacklistKey+tokenString); err == nil && v != "" {
			return nil, errors.AuthError("token revoked")
		}
	}

	return claims, nil
}

// Logout revokes the token until its natural expiry
func (a *Auth) Logout(ctx context.Context, tokenString string) error {
	if a.revoked == nil {
		return nil
	}

	claims, err := a.ValidateJWT(ctx, tokenString)
	if err != nil {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(a.now())
	if ttl <= 0 {
		return nil
	}
	if _, err := a.revoked.SetNX(ctx, blacklistKey+tokenString, "1", ttl); err != nil {
		return errors.InternalError("failed to revoke token", err)
	}
	return nil
}

// RequireAuth rejects requests without a valid bearer token
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			unauthorized(w)
			return
		}

		claims, err := a.ValidateJWT(r.Context(), token)
		if err != nil {
			unauthorized(w)
			return
		}

		session := &Session{Username: claims.Username, ExpiresAt: claims.ExpiresAt.Time}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

// SessionFromContext returns the session attached by RequireAuth
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*Session)
	return session, ok
}

// BearerToken extracts the token from an Authorization header
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"message":"Authentication required"}`))
}
