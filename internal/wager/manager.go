package wager

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
)

// Manager owns the live sessions, one per authenticated player. It is the
// identity provider's entry point: login reloads, logout discards.
type Manager struct {
	store Store
	opts  Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager builds a manager. opts.Store is ignored in favour of store.
func NewManager(store Store, opts Options) *Manager {
	if store != nil {
		opts.Store = store
	}
	return &Manager{
		store:    store,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// OnPlayerChange loads the player's persisted state (or the defaults) into
// a fresh session, replacing any session the player already had.
func (m *Manager) OnPlayerChange(ctx context.Context, playerID string) (*Session, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, ErrInvalidPlayer
	}

	m.mu.Lock()
	prev := m.sessions[playerID]
	delete(m.sessions, playerID)
	m.mu.Unlock()

	// Close waits out any save in flight, so the load below sees the old
	// session's last settlement.
	if prev != nil {
		prev.Close()
	}

	state := m.load(ctx, playerID)
	sess := NewSession(playerID, state, m.opts)

	m.mu.Lock()
	if other := m.sessions[playerID]; other != nil {
		other.Close()
	}
	m.sessions[playerID] = sess
	m.mu.Unlock()

	log.Printf("[WAGER] Session loaded for %s (balance %d)", playerID, state.Balance)
	return sess, nil
}

func (m *Manager) load(ctx context.Context, playerID string) State {
	defaults := State{Balance: m.opts.StartingBalance}
	if m.store == nil {
		return defaults
	}
	state, err := m.store.Load(ctx, playerID)
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			log.Printf("[WAGER] Stored state for %s unusable, using defaults: %v", playerID, err)
		}
		return defaults
	}
	if state.Balance < 0 {
		log.Printf("[WAGER] Stored balance for %s is negative, using defaults", playerID)
		return defaults
	}
	return state
}

// Get returns the live session for a player.
func (m *Manager) Get(playerID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[playerID]
	return sess, ok
}

// Logout discards the in-memory session. When clear is set the persisted
// record is removed as well.
func (m *Manager) Logout(ctx context.Context, playerID string, clear bool) error {
	m.mu.Lock()
	sess := m.sessions[playerID]
	delete(m.sessions, playerID)
	m.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	if clear && m.store != nil {
		if err := m.store.Clear(ctx, playerID); err != nil {
			log.Printf("[WAGER] Failed to clear state for %s: %v", playerID, err)
			return err
		}
	}
	log.Printf("[WAGER] Session discarded for %s (cleared=%t)", playerID, clear)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll tears down every live session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
