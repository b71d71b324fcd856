package store

import (
	"context"
	"sync"

	"github.com/calvinwijaya/blackjack-wallet/internal/game"
)

// entry guards one identity's session. The session is created lazily under
// the entry lock so slow score loads only block that identity.
type entry struct {
	mu      sync.Mutex
	session *game.Session
}

// MemoryStore is an in-memory implementation of session storage
type MemoryStore struct {
	sessions   map[string]*entry
	newSession func(identity string) *game.Session
	mu         sync.RWMutex
}

// NewMemoryStore creates a new in-memory store. newSession builds the
// session for an identity seen for the first time.
func NewMemoryStore(newSession func(identity string) *game.Session) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*entry),
		newSession: newSession,
	}
}

func (s *MemoryStore) lookup(identity string, create bool) (*entry, error) {
	s.mu.RLock()
	e, exists := s.sessions[identity]
	s.mu.RUnlock()
	if exists {
		return e, nil
	}
	if !create {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have created it meanwhile
	if e, exists := s.sessions[identity]; exists {
		return e, nil
	}
	e = &entry{}
	s.sessions[identity] = e
	return e, nil
}

// Open runs fn on the identity's session, creating it if needed
func (s *MemoryStore) Open(identity string, fn func(*game.Session) error) error {
	e, err := s.lookup(identity, true)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		e.session = s.newSession(identity)
	}
	return fn(e.session)
}

// Update runs fn on an existing session
func (s *MemoryStore) Update(identity string, fn func(*game.Session) error) error {
	e, err := s.lookup(identity, false)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrSessionNotFound
	}
	return fn(e.session)
}

// Delete removes a session from the store
func (s *MemoryStore) Delete(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[identity]; !exists {
		return ErrSessionNotFound
	}
	delete(s.sessions, identity)
	return nil
}

// Count returns the number of sessions in the store
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// MemoryScoreStore keeps scores and round history in process memory. It is
// used when no database is configured or the database is unavailable.
type MemoryScoreStore struct {
	scores map[string]int
	rounds map[string][]game.RoundResult
	mu     sync.RWMutex
}

// NewMemoryScoreStore creates an empty in-memory score store
func NewMemoryScoreStore() *MemoryScoreStore {
	return &MemoryScoreStore{
		scores: make(map[string]int),
		rounds: make(map[string][]game.RoundResult),
	}
}

func (s *MemoryScoreStore) GetScore(_ context.Context, identity string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, exists := s.scores[identity]
	if !exists {
		return 0, ErrScoreNotFound
	}
	return score, nil
}

func (s *MemoryScoreStore) PutScore(_ context.Context, identity string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores[identity] = score
	return nil
}

func (s *MemoryScoreStore) RecordRound(_ context.Context, result game.RoundResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rounds[result.Identity] = append(s.rounds[result.Identity], result)
	return nil
}

func (s *MemoryScoreStore) PlayerStats(_ context.Context, identity string) (*PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &PlayerStats{
		Identity: identity,
		Score:    s.scores[identity],
	}
	for _, r := range s.rounds[identity] {
		stats.RoundsPlayed++
		switch {
		case r.Delta > 0:
			stats.Wins++
		case r.Delta < 0:
			stats.Losses++
		default:
			stats.Pushes++
		}
		if stats.LastPlayed == nil || r.FinishedAt.After(*stats.LastPlayed) {
			last := r.FinishedAt
			stats.LastPlayed = &last
		}
	}
	return stats, nil
}
