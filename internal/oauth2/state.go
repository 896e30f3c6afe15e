package oauth2

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/redis"
)

const (
	// DefaultStateTTL bounds how long a user has to complete the consent screen
	DefaultStateTTL = 10 * time.Minute

	stateAudience  = "bitrix-oauth-state"
	nonceKeyPrefix = "oauth2:state:"
)

// NonceStore remembers issued state nonces until they are consumed once or expire.
type NonceStore interface {
	Put(ctx context.Context, nonce string, ttl time.Duration) error
	// Consume removes nonce and reports whether it was present and unexpired.
	Consume(ctx context.Context, nonce string) (bool, error)
}

// StateManager issues and verifies the OAuth state parameter.
//
// A state is an HS256 JWT naming the connection (sub) and a random nonce
// (jti). Verification checks the signature, expiry and audience, then consumes
// the nonce, so each state is accepted at most once.
type StateManager struct {
	secret []byte
	ttl    time.Duration
	store  NonceStore
	now    func() time.Time
}

// NewStateManager creates a StateManager. A ttl <= 0 uses DefaultStateTTL.
func NewStateManager(secret string, ttl time.Duration, store NonceStore) *StateManager {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateManager{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		now:    time.Now,
	}
}

// Issue returns a fresh state value for connectionID
func (s *StateManager) Issue(ctx context.Context, connectionID string) (string, error) {
	nonce := uuid.NewString()
	now := s.now()

	claims := jwt.RegisteredClaims{
		Subject:   connectionID,
		ID:        nonce,
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.InternalError("failed to sign OAuth state", err)
	}

	if err := s.store.Put(ctx, nonce, s.ttl); err != nil {
		return "", errors.InternalError("failed to store OAuth state", err)
	}

	return signed, nil
}

// Verify validates state and returns the connection id it was issued for.
func (s *StateManager) Verify(ctx context.Context, state string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", errors.ValidationError("invalid OAuth state")
	}
	if claims.Subject == "" || claims.ID == "" {
		return "", errors.ValidationError("invalid OAuth state")
	}

	ok, err := s.store.Consume(ctx, claims.ID)
	if err != nil {
		return "", errors.InternalError("failed to verify OAuth state", err)
	}
	if !ok {
		return "", errors.ValidationError("OAuth state already used or expired")
	}

	return claims.Subject, nil
}

// MemoryNonceStore keeps nonces in process memory
type MemoryNonceStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryNonceStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.entries {
		if !now.Before(exp) {
			delete(m.entries, k)
		}
	}
	m.entries[nonce] = now.Add(ttl)
	return nil
}

func (m *MemoryNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[nonce]
	if !ok {
		return false, nil
	}
	delete(m.entries, nonce)
	return m.now().Before(exp), nil
}

// RedisNonceStore keeps nonces in Redis so any instance can complete a flow
// started on another.
type RedisNonceStore struct {
	client *redis.Client
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func (r *RedisNonceStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, nonceKeyPrefix+nonce, "1", ttl)
	if err != nil {
		return err
	}
	if !ok {
		return errors.InternalError("duplicate OAuth state nonce", nil)
	}
	return nil
}

func (r *RedisNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	_, err := r.client.GetDel(ctx, nonceKeyPrefix+nonce)
	if stderrors.Is(err, redis.ErrNil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
