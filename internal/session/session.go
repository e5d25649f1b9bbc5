// Package session holds the bearer credential shared by the gateway client and
// the live alert channel.
package session

import (
	"context"
	"sync"
	"time"

	"iotmon/internal/logging"
)

const persistTimeout = 5 * time.Second

// Persister is the durable medium behind a Session.
// Load returns "" when nothing is stored.
type Persister interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Session is the single source of truth for the credential. At most one token
// is live per Session; Get, Set and Clear never fail. Persistence errors are
// logged and the in-memory value stays authoritative.
type Session struct {
	mu    sync.RWMutex
	token string

	// writeMu orders persistence so the stored value matches the last write.
	writeMu sync.Mutex
	store   Persister
	logger  *logging.Logger
}

// New restores the persisted credential, if any, and returns the Session.
func New(ctx context.Context, store Persister, logger *logging.Logger) *Session {
	s := &Session{store: store, logger: logger}
	if store == nil {
		return s
	}
	token, err := store.Load(ctx)
	if err != nil {
		logger.Errorf("Failed to restore session: %v", err)
		return s
	}
	s.token = token
	if token != "" {
		logger.Infof("Restored persisted session")
	}
	return s
}

// Get returns the current credential and whether one is present.
func (s *Session) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Set replaces the credential. An empty token clears the session.
func (s *Session) Set(token string) {
	if token == "" {
		s.Clear()
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.persist(func(ctx context.Context) error { return s.store.Save(ctx, token) })
}

// Clear removes the credential. Safe to call when already empty.
func (s *Session) Clear() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	s.persist(func(ctx context.Context) error { return s.store.Delete(ctx) })
}

func (s *Session) persist(fn func(ctx context.Context) error) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Errorf("Failed to persist session: %v", err)
	}
}

// MemoryStore is a process-local Persister.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
