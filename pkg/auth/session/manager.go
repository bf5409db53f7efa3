package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	redisclient "github.com/angelmondragon/ticketbooth-backend/pkg/redis"
	"github.com/google/uuid"
)

type sessionStore interface {
	PutSession(ctx context.Context, accessID, userID string, ttl time.Duration) error
	SessionOwner(ctx context.Context, accessID string) (string, bool, error)
	DropSession(ctx context.Context, accessID string) error
}

// Manager tracks issued session tokens in Redis so they can be revoked before expiry.
type Manager struct {
	store sessionStore
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{store: client, ttl: ttl}, nil
}

// Register records the session identified by accessID (the token jti) for userID.
func (m *Manager) Register(ctx context.Context, accessID string, userID uuid.UUID) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.PutSession(ctx, accessID, userID.String(), m.ttl)
}

// Revoke deletes the session tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.DropSession(ctx, accessID)
}

// HasSession reports whether the provided access ID is still registered.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	_, found, err := m.store.SessionOwner(ctx, accessID)
	return found, err
}
