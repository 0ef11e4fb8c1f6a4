package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/enums"
	redisclient "github.com/loomline/storefront-backend/pkg/redis"
)

const sessionIDBytes = 32

// ErrNotFound signals a missing or expired session record.
var ErrNotFound = errors.New("session not found")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Record is the session payload kept in Redis. Every browser session owns a
// cart id from the moment it is issued; UserID and Role are set only after
// login. The record never leaves the server, browsers hold the opaque id.
type Record struct {
	CartID   uuid.UUID       `json:"cart_id"`
	UserID   *uuid.UUID      `json:"user_id,omitempty"`
	Role     *enums.UserRole `json:"role,omitempty"`
	IssuedAt time.Time       `json:"issued_at"`
}

// Authenticated reports whether the session is bound to a user.
func (r *Record) Authenticated() bool {
	return r != nil && r.UserID != nil
}

// Resolver exposes the read surface needed by middleware.
type Resolver interface {
	Resolve(ctx context.Context, sessionID string) (*Record, error)
}

// Manager creates, resolves, rotates and destroys Redis-backed sessions.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.SessionConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{
		store: client,
		keyer: client,
		ttl:   cfg.TTL,
	}, nil
}

// Start issues a fresh anonymous session with its own cart id.
func (m *Manager) Start(ctx context.Context) (string, *Record, error) {
	id, err := NewSessionID()
	if err != nil {
		return "", nil, err
	}
	record := &Record{
		CartID:   uuid.New(),
		IssuedAt: time.Now().UTC(),
	}
	if err := m.save(ctx, id, record); err != nil {
		return "", nil, err
	}
	return id, record, nil
}

// Resolve loads the record for a session id and refreshes its TTL so active
// sessions slide instead of expiring mid-visit.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (*Record, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrNotFound
	}
	key := m.keyer.SessionKey(sessionID)
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	record := &Record{}
	if err := json.Unmarshal([]byte(raw), record); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}

	if err := m.store.Expire(ctx, key, m.ttl); err != nil {
		return nil, err
	}
	return record, nil
}

// Authenticate rotates the session id after a successful login, binding the
// user while carrying the current cart forward. The old id is deleted so a
// pre-login cookie can never reach the authenticated session.
func (m *Manager) Authenticate(ctx context.Context, currentID string, userID uuid.UUID, role enums.UserRole) (string, *Record, error) {
	cartID := uuid.New()
	if strings.TrimSpace(currentID) != "" {
		if prior, err := m.Resolve(ctx, currentID); err == nil {
			cartID = prior.CartID
		} else if !errors.Is(err, ErrNotFound) {
			return "", nil, err
		}
	}

	id, err := NewSessionID()
	if err != nil {
		return "", nil, err
	}
	record := &Record{
		CartID:   cartID,
		UserID:   &userID,
		Role:     &role,
		IssuedAt: time.Now().UTC(),
	}
	if err := m.save(ctx, id, record); err != nil {
		return "", nil, err
	}

	if strings.TrimSpace(currentID) != "" {
		if err := m.store.Del(ctx, m.keyer.SessionKey(currentID)); err != nil {
			return "", nil, err
		}
	}
	return id, record, nil
}

// Destroy removes the session record. Used by logout and account deactivation.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return m.store.Del(ctx, m.keyer.SessionKey(sessionID))
}

func (m *Manager) save(ctx context.Context, id string, record *Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	return m.store.Set(ctx, m.keyer.SessionKey(id), string(payload), m.ttl)
}

// NewSessionID produces an opaque high-entropy identifier for cookies and jti claims.
func NewSessionID() (string, error) {
	bytes := make([]byte, sessionIDBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
