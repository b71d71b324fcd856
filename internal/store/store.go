package store

import (
	"context"
	"errors"
	"time"

	"github.com/calvinwijaya/blackjack-wallet/internal/game"
)

var (
	// ErrSessionNotFound is returned when an identity never started a round
	ErrSessionNotFound = errors.New("session not found")
	// ErrScoreNotFound is returned when an identity has no persisted score
	ErrScoreNotFound = errors.New("score not found")
)

// SessionStore holds one live game session per identity. Callbacks run with
// exclusive access to that identity's session.
type SessionStore interface {
	// Open runs fn on the identity's session, creating it if needed
	Open(identity string, fn func(s *game.Session) error) error

	// Update runs fn on an existing session
	Update(identity string, fn func(s *game.Session) error) error

	// Delete forgets the identity's session
	Delete(identity string) error

	// Count returns the number of sessions held
	Count() int
}

// ScoreStore persists scores and round history across process restarts
type ScoreStore interface {
	GetScore(ctx context.Context, identity string) (int, error)
	PutScore(ctx context.Context, identity string, score int) error
	RecordRound(ctx context.Context, result game.RoundResult) error
	PlayerStats(ctx context.Context, identity string) (*PlayerStats, error)
}

// PlayerStats summarises an identity's history
type PlayerStats struct {
	Identity     string     `json:"identity"`
	Score        int        `json:"score"`
	RoundsPlayed int        `json:"roundsPlayed"`
	Wins         int        `json:"wins"`
	Losses       int        `json:"losses"`
	Pushes       int        `json:"pushes"`
	LastPlayed   *time.Time `json:"lastPlayed,omitempty"`
}
