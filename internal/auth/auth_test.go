package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connection-broker/internal/auth"
	"connection-broker/internal/common/errors"
	"connection-broker/internal/config"
	"connection-broker/internal/redis"
)

const testSecret = "test-secret-key-that-is-long-enough"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:     testSecret,
		AdminUsername: "admin",
		AdminPassword: "correct horse",
	}
}

func newAuth(t *testing.T, store auth.TokenStore) *auth.Auth {
	t.Helper()
	a, err := auth.New(testConfig(), store)
	require.NoError(t, err)
	return a
}

func TestNew(t *testing.T) {
	_, err := auth.New(&config.Config{AdminPassword: "x"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	_, err = auth.New(&config.Config{JWTSecret: testSecret}, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestLogin(t *testing.T) {
	a := newAuth(t, nil)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"valid credentials", "admin", "correct horse", false},
		{"wrong password", "admin", "battery staple", true},
		{"wrong username", "root", "correct horse", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, session, err := a.Login(tt.username, tt.password)
			if tt.wantErr {
				assert.True(t, errors.IsType(err, errors.ErrTypeAuth))
				assert.Empty(t, token)
				assert.Nil(t, session)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.Equal(t, "admin", session.Username)
			assert.WithinDuration(t, time.Now().Add(auth.TokenTTL), session.ExpiresAt, time.Minute)

			claims, err := a.ValidateJWT(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, "admin", claims.Username)
			assert.Equal(t, "connection-broker", claims.Issuer)
		})
	}
}

func TestValidateJWT(t *testing.T) {
	a := newAuth(t, nil)
	ctx := context.Background()

	valid, err := a.GenerateJWT("admin", time.Now().Add(time.Hour))
	require.NoError(t, err)

	expired, err := a.GenerateJWT("admin", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.JWTSecret = "different-secret-key-that-is-wrong"
	other, err := auth.New(otherCfg, nil)
	require.NoError(t, err)
	wrongSecret, err := other.GenerateJWT("admin", time.Now().Add(time.Hour))
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "connection-broker",
		Subject:   "conn-1",
		Audience:  jwt.ClaimStrings{"bitrix-oauth-state"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", valid, false},
		{"expired", expired, true},
		{"wrong secret", wrongSecret, true},
		{"oauth state token", wrongAudience, true},
		{"garbage", "not-a-token", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.ValidateJWT(ctx, tt.token)
			if tt.wantErr {
				assert.True(t, errors.IsType(err, errors.ErrTypeAuth))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&redis.Config{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	a := newAuth(t, client)
	ctx := context.Background()

	token, _, err := a.Login("admin", "correct horse")
	require.NoError(t, err)
	_, err = a.ValidateJWT(ctx, token)
	require.NoError(t, err)

	require.NoError(t, a.Logout(ctx, token))

	_, err = a.ValidateJWT(ctx, token)
	assert.True(t, errors.IsType(err, errors.ErrTypeAuth))
	assert.True(t, mr.Exists("jwt:blacklist:"+token))
}

func TestLogout_NoStore(t *testing.T) {
	a := newAuth(t, nil)
	token, _, err := a.Login("admin", "correct horse")
	require.NoError(t, err)

	assert.NoError(t, a.Logout(context.Background(), token))
	_, err = a.ValidateJWT(context.Background(), token)
	assert.NoError(t, err)
}

func TestRequireAuth(t *testing.T) {
	a := newAuth(t, nil)
	token, _, err := a.Login("admin", "correct horse")
	require.NoError(t, err)

	protected := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := auth.SessionFromContext(r.Context())
		require.True(t, ok)
		fmt.Fprint(w, session.Username)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid bearer", "Bearer " + token, http.StatusOK, "admin"},
		{"lowercase scheme", "bearer " + token, http.StatusOK, "admin"},
		{"missing header", "", http.StatusUnauthorized, `{"message":"Authentication required"}`},
		{"basic scheme", "Basic YWRtaW46eA==", http.StatusUnauthorized, `{"message":"Authentication required"}`},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, `{"message":"Authentication required"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/connections", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}
