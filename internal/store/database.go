package store

import (
	"context"
	"errors"

	"github.com/calvinwijaya/blackjack-wallet/internal/db"
	"github.com/calvinwijaya/blackjack-wallet/internal/game"
)

// DatabaseScoreStore is a database implementation of score storage
type DatabaseScoreStore struct {
	db *db.Database
}

// NewDatabaseScoreStore creates a new database score store
func NewDatabaseScoreStore(database *db.Database) *DatabaseScoreStore {
	return &DatabaseScoreStore{
		db: database,
	}
}

// GetScore retrieves the persisted score of an identity
func (s *DatabaseScoreStore) GetScore(ctx context.Context, identity string) (int, error) {
	score, err := s.db.GetScore(ctx, identity)
	if errors.Is(err, db.ErrNotFound) {
		return 0, ErrScoreNotFound
	}
	return score, err
}

// PutScore saves the score of an identity
func (s *DatabaseScoreStore) PutScore(ctx context.Context, identity string, score int) error {
	return s.db.PutScore(ctx, identity, score)
}

// RecordRound appends a finished round to the history
func (s *DatabaseScoreStore) RecordRound(ctx context.Context, result game.RoundResult) error {
	return s.db.SaveRoundResult(ctx, result)
}

// PlayerStats returns the aggregated history of an identity
func (s *DatabaseScoreStore) PlayerStats(ctx context.Context, identity string) (*PlayerStats, error) {
	st, err := s.db.GetPlayerStats(ctx, identity)
	if err != nil {
		return nil, err
	}

	stats := &PlayerStats{
		Identity:     st.Identity,
		Score:        st.Score,
		RoundsPlayed: st.RoundsPlayed,
		Wins:         st.Wins,
		Losses:       st.Losses,
		Pushes:       st.Pushes,
	}
	if !st.LastPlayed.IsZero() {
		last := st.LastPlayed
		stats.LastPlayed = &last
	}
	return stats, nil
}
