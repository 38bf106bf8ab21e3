package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/log"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// SessionManager issues and validates admin login sessions. The raw
// token only ever lives in the client cookie; the store keeps its hash.
type SessionManager struct {
	store  storage.Store
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a session manager whose sessions live for ttl
func NewSessionManager(store storage.Store, ttl time.Duration) *SessionManager {
	return &SessionManager{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: log.WithComponent("sessions"),
		stopCh: make(chan struct{}),
	}
}

// TTL returns the lifetime of new sessions
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// HashToken returns the store key of a raw session token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create opens a session for adminID and returns the raw token
func (m *SessionManager) Create(ctx context.Context, adminID string) (string, *types.AdminSession, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	token := hex.EncodeToString(bytes)

	now := m.now()
	session := &types.AdminSession{
		AdminID:   adminID,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(m.ttl).UnixMilli(),
	}
	if err := m.store.Set(ctx, storage.AdminSessionPath(HashToken(token)), session); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}
	return token, session, nil
}

// Validate returns the live session for token
func (m *SessionManager) Validate(ctx context.Context, token string) (*types.AdminSession, error) {
	if token == "" {
		return nil, apperr.Unauthorized("invalid session")
	}
	var session types.AdminSession
	ok, err := m.store.Get(ctx, storage.AdminSessionPath(HashToken(token)), &session)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !ok {
		return nil, apperr.Unauthorized("invalid session")
	}
	if m.now().UnixMilli() >= session.ExpiresAt {
		return nil, apperr.Unauthorized("session expired")
	}
	return &session, nil
}

// Revoke deletes the session for token. Unknown tokens are ignored.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Remove(ctx, storage.AdminSessionPath(HashToken(token))); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// CleanupExpired removes every expired session and reports how many
func (m *SessionManager) CleanupExpired(ctx context.Context) (int, error) {
	removed := 0
	now := m.now().UnixMilli()
	err := m.store.Transact(ctx, func(tx storage.Tx) error {
		removed = 0
		keys, err := tx.Keys(storage.Join(storage.RootAdminSessions))
		if err != nil {
			return err
		}
		for _, key := range keys {
			var session types.AdminSession
			if _, err := tx.Get(storage.AdminSessionPath(key), &session); err != nil {
				return err
			}
			if now < session.ExpiresAt {
				continue
			}
			if err := tx.Remove(storage.AdminSessionPath(key)); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return removed, nil
}

// Start runs CleanupExpired every interval until Stop is called
func (m *SessionManager) Start(interval time.Duration) {
	go m.run(interval)
}

// Stop stops the janitor. Safe to call more than once.
func (m *SessionManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *SessionManager) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := m.CleanupExpired(ctx)
			cancel()
			if err != nil {
				m.logger.Error().Err(err).Msg("Session cleanup failed")
				continue
			}
			if n > 0 {
				m.logger.Info().Int("removed", n).Msg("Removed expired admin sessions")
			}
		case <-m.stopCh:
			return
		}
	}
}
