package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"connection-broker/internal/common/errors"
	commonhttp "connection-broker/internal/common/http"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/locks"
	"connection-broker/internal/models"
)

const testRedirectURI = "https://broker.example.com/api/bitrix/oauth/callback"

type fakeTokenWriter struct {
	mu    sync.Mutex
	saved []models.OAuthTokens
	err   error
}

func (f *fakeTokenWriter) SaveCrmTokens(ctx context.Context, connectionID string, tokens models.OAuthTokens) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, tokens)
	return nil
}

func (f *fakeTokenWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(writer TokenWriter, opts ...Option) *Manager {
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(logging.NewNopLogger()),
	}, opts...)
	return NewManager(commonhttp.NewClient(commonhttp.WithTimeout(2*time.Second)), writer, testRedirectURI, opts...)
}

func oauthConn(domain string) *models.CrmConnection {
	return &models.CrmConnection{
		ID:           "conn-1",
		Domain:       domain,
		AuthMode:     models.AuthModeOAuth,
		ClientID:     "local.abc",
		ClientSecret: "client-secret-value",
	}
}

func TestBuildAuthorizationURL(t *testing.T) {
	m := newTestManager(&fakeTokenWriter{})
	conn := oauthConn("acme.bitrix24.com/")

	raw := m.BuildAuthorizationURL(conn, "state-value")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid URL: %v", err)
	}
	if u.Scheme != "https" || u.Host != "acme.bitrix24.com" || u.Path != "/oauth/authorize/" {
		t.Errorf("unexpected URL %s", raw)
	}
	q := u.Query()
	expected := map[string]string{
		"client_id":     "local.abc",
		"response_type": "code",
		"redirect_uri":  testRedirectURI,
		"state":         "state-value",
	}
	for k, v := range expected {
		if q.Get(k) != v {
			t.Errorf("query %s = %q, want %q", k, q.Get(k), v)
		}
	}
	if strings.Contains(raw, "client-secret-value") {
		t.Error("authorization URL must not contain the client secret")
	}
}

func TestExchangeAuthorizationCode_Success(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token/" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		r.ParseForm()
		form = r.PostForm
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    1800,
		})
	}))
	defer server.Close()

	writer := &fakeTokenWriter{}
	m := newTestManager(writer)
	conn := oauthConn(server.URL)

	if err := m.ExchangeAuthorizationCode(context.Background(), conn, "auth-code"); err != nil {
		t.Fatalf("ExchangeAuthorizationCode() error = %v", err)
	}

	if form.Get("grant_type") != "authorization_code" || form.Get("code") != "auth-code" ||
		form.Get("client_secret") != "client-secret-value" || form.Get("redirect_uri") != testRedirectURI {
		t.Errorf("unexpected form %v", form)
	}
	if writer.count() != 1 {
		t.Fatalf("expected one write, got %d", writer.count())
	}
	if conn.AccessToken != "new-access" || conn.RefreshToken != "new-refresh" {
		t.Errorf("connection not updated: %+v", conn)
	}
	if want := fixedNow.Add(1800 * time.Second); !conn.TokenExpiresAt.Equal(want) {
		t.Errorf("TokenExpiresAt = %v, want %v", conn.TokenExpiresAt, want)
	}
}

func TestExchangeAuthorizationCode_DefaultExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"a","refresh_token":"r"}`)
	}))
	defer server.Close()

	m := newTestManager(&fakeTokenWriter{})
	conn := oauthConn(server.URL)

	if err := m.ExchangeAuthorizationCode(context.Background(), conn, "code"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fixedNow.Add(time.Hour); !conn.TokenExpiresAt.Equal(want) {
		t.Errorf("TokenExpiresAt = %v, want %v", conn.TokenExpiresAt, want)
	}
}

func TestExchangeAuthorizationCode_NoPartialWriteOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"code auth-code is invalid"}`)
	}))
	defer server.Close()

	writer := &fakeTokenWriter{}
	m := newTestManager(writer)
	conn := oauthConn(server.URL)
	conn.AccessToken = "old-access"
	conn.RefreshToken = "old-refresh"

	err := m.ExchangeAuthorizationCode(context.Background(), conn, "auth-code")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsType(err, errors.ErrTypeProtocol) {
		t.Errorf("expected protocol error, got %v", err)
	}
	if strings.Contains(err.Error(), "auth-code") || strings.Contains(err.Error(), "client-secret-value") {
		t.Errorf("error leaks a secret: %v", err)
	}
	if writer.count() != 0 {
		t.Errorf("expected no writes, got %d", writer.count())
	}
	if conn.AccessToken != "old-access" || conn.RefreshToken != "old-refresh" || conn.TokenExpiresAt != nil {
		t.Errorf("token fields changed: %+v", conn)
	}
}

func TestExchangeAuthorizationCode_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	domain := server.URL
	server.Close()

	writer := &fakeTokenWriter{}
	m := newTestManager(writer)

	err := m.ExchangeAuthorizationCode(context.Background(), oauthConn(domain), "code")
	if !errors.IsType(err, errors.ErrTypeTransport) {
		t.Errorf("expected transport error, got %v", err)
	}
	if writer.count() != 0 {
		t.Errorf("expected no writes, got %d", writer.count())
	}
}

func TestRefreshAccessToken(t *testing.T) {
	t.Run("no refresh token", func(t *testing.T) {
		writer := &fakeTokenWriter{}
		m := newTestManager(writer)

		err := m.RefreshAccessToken(context.Background(), oauthConn("https://unused.invalid"))
		if !errors.IsType(err, errors.ErrTypeConfig) {
			t.Errorf("expected configuration error, got %v", err)
		}
		if writer.count() != 0 {
			t.Error("expected no writes")
		}
	})

	t.Run("success", func(t *testing.T) {
		var form url.Values
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			form = r.PostForm
			fmt.Fprint(w, `{"access_token":"fresh","refresh_token":"rotated","expires_in":3600}`)
		}))
		defer server.Close()

		writer := &fakeTokenWriter{}
		m := newTestManager(writer, WithLocker(locks.NewLocalLocker()))
		conn := oauthConn(server.URL)
		conn.RefreshToken = "old-refresh"

		if err := m.RefreshAccessToken(context.Background(), conn); err != nil {
			t.Fatalf("RefreshAccessToken() error = %v", err)
		}
		if form.Get("grant_type") != "refresh_token" || form.Get("refresh_token") != "old-refresh" {
			t.Errorf("unexpected form %v", form)
		}
		if conn.AccessToken != "fresh" || conn.RefreshToken != "rotated" {
			t.Errorf("connection not updated: %+v", conn)
		}
	})

	t.Run("keeps refresh token when omitted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"access_token":"fresh"}`)
		}))
		defer server.Close()

		m := newTestManager(&fakeTokenWriter{})
		conn := oauthConn(server.URL)
		conn.RefreshToken = "old-refresh"

		if err := m.RefreshAccessToken(context.Background(), conn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conn.RefreshToken != "old-refresh" {
			t.Errorf("RefreshToken = %q, want old-refresh", conn.RefreshToken)
		}
	})

	t.Run("rejected grant writes nothing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"expired_token"}`)
		}))
		defer server.Close()

		writer := &fakeTokenWriter{}
		m := newTestManager(writer)
		conn := oauthConn(server.URL)
		conn.RefreshToken = "old-refresh"

		err := m.RefreshAccessToken(context.Background(), conn)
		if err == nil {
			t.Fatal("expected error")
		}
		var appErr *errors.AppError
		if !errors.As(err, &appErr) || appErr.Code != "expired_token" {
			t.Errorf("expected code expired_token, got %v", err)
		}
		if writer.count() != 0 || conn.AccessToken != "" {
			t.Error("expected no writes")
		}
	})

	t.Run("persist failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"access_token":"fresh","refresh_token":"rotated"}`)
		}))
		defer server.Close()

		m := newTestManager(&fakeTokenWriter{err: fmt.Errorf("db down")})
		conn := oauthConn(server.URL)
		conn.RefreshToken = "old-refresh"

		if err := m.RefreshAccessToken(context.Background(), conn); err == nil {
			t.Fatal("expected error")
		}
		if conn.AccessToken != "" {
			t.Error("in-memory record changed although the write failed")
		}
	})
}

func TestIsExpiredOrExpiringSoon(t *testing.T) {
	m := newTestManager(&fakeTokenWriter{})

	at := func(d time.Duration) *time.Time {
		ts := fixedNow.Add(d)
		return &ts
	}

	tests := []struct {
		name    string
		expires *time.Time
		want    bool
	}{
		{"no expiry recorded", nil, true},
		{"exactly at margin", at(ExpiryMargin), true},
		{"one second before margin", at(ExpiryMargin + time.Second), false},
		{"inside margin", at(2 * time.Minute), true},
		{"already expired", at(-time.Hour), true},
		{"fresh", at(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &models.CrmConnection{TokenExpiresAt: tt.expires}
			if got := m.IsExpiredOrExpiringSoon(conn); got != tt.want {
				t.Errorf("IsExpiredOrExpiringSoon() = %v, want %v", got, tt.want)
			}
		})
	}
}

// tokenStore keeps one connection's tokens and serves both sides of the manager
type tokenStore struct {
	mu   sync.Mutex
	conn models.CrmConnection
}

func (s *tokenStore) SaveCrmTokens(ctx context.Context, connectionID string, tokens models.OAuthTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.ApplyTokens(tokens)
	return nil
}

func (s *tokenStore) GetCrmConnection(ctx context.Context, id string) (*models.CrmConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := s.conn
	return &copied, nil
}

// rotatingTokenServer issues a new refresh token per grant and rejects any
// refresh token that was already spent.
func rotatingTokenServer(t *testing.T) (*httptest.Server, func(token string) int) {
	var mu sync.Mutex
	posted := map[string]int{}
	next := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		token := r.PostForm.Get("refresh_token")

		mu.Lock()
		posted[token]++
		spent := posted[token] > 1
		next++
		issued := next
		mu.Unlock()

		if spent {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant","error_description":"refresh token already used"}`)
			return
		}
		fmt.Fprintf(w, `{"access_token":"access-%d","refresh_token":"r%d","expires_in":3600}`, issued, issued)
	}))
	t.Cleanup(server.Close)

	return server, func(token string) int {
		mu.Lock()
		defer mu.Unlock()
		return posted[token]
	}
}

func TestRefreshAccessToken_ConcurrentHoldersSpendTokenOnce(t *testing.T) {
	server, postedCount := rotatingTokenServer(t)

	stale := fixedNow.Add(-time.Minute)
	store := &tokenStore{conn: *oauthConn(server.URL)}
	store.conn.AccessToken = "access-0"
	store.conn.RefreshToken = "r0"
	store.conn.TokenExpiresAt = &stale

	m := newTestManager(store, WithLocker(locks.NewLocalLocker()), WithTokenReader(store))

	var wg sync.WaitGroup
	conns := make([]*models.CrmConnection, 2)
	errs := make([]error, 2)
	for i := range conns {
		copied := store.conn
		conns[i] = &copied
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.RefreshAccessToken(context.Background(), conns[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: RefreshAccessToken() error = %v", i, err)
		}
	}
	if n := postedCount("r0"); n != 1 {
		t.Errorf("refresh token r0 posted %d times, want 1", n)
	}
	for i, conn := range conns {
		if conn.AccessToken != "access-1" || conn.RefreshToken != "r1" {
			t.Errorf("caller %d holds %s/%s, want access-1/r1", i, conn.AccessToken, conn.RefreshToken)
		}
	}
}

func TestRefreshAccessToken_UsesRotatedStoredToken(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = r.PostForm
		fmt.Fprint(w, `{"access_token":"fresh","refresh_token":"r2","expires_in":3600}`)
	}))
	defer server.Close()

	stale := fixedNow.Add(-time.Hour)
	store := &tokenStore{conn: *oauthConn(server.URL)}
	store.conn.RefreshToken = "r1"
	store.conn.TokenExpiresAt = &stale

	m := newTestManager(store, WithLocker(locks.NewLocalLocker()), WithTokenReader(store))
	conn := oauthConn(server.URL)
	conn.RefreshToken = "r0"

	if err := m.RefreshAccessToken(context.Background(), conn); err != nil {
		t.Fatalf("RefreshAccessToken() error = %v", err)
	}
	if got := form.Get("refresh_token"); got != "r1" {
		t.Errorf("posted refresh_token %q, want the stored r1", got)
	}
	if conn.RefreshToken != "r2" {
		t.Errorf("RefreshToken = %q, want r2", conn.RefreshToken)
	}
}

func TestRefreshAccessToken_FreshStoredTokensSkipGrant(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	fresh := fixedNow.Add(time.Hour)
	store := &tokenStore{conn: *oauthConn(server.URL)}
	store.conn.AccessToken = "stored-access"
	store.conn.RefreshToken = "r1"
	store.conn.TokenExpiresAt = &fresh

	m := newTestManager(store, WithLocker(locks.NewLocalLocker()), WithTokenReader(store))
	conn := oauthConn(server.URL)
	conn.RefreshToken = "r0"

	if err := m.RefreshAccessToken(context.Background(), conn); err != nil {
		t.Fatalf("RefreshAccessToken() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("token endpoint called %d times, want 0", calls)
	}
	if conn.AccessToken != "stored-access" || conn.RefreshToken != "r1" {
		t.Errorf("connection not updated from store: %+v", conn)
	}
}
