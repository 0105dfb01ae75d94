package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/venuescout/internal/domain"
)

// RecoveryRepository records the audit trail of inferred website URLs.
type RecoveryRepository struct {
	db *sqlx.DB
}

// NewRecoveryRepository creates a new RecoveryRepository.
func NewRecoveryRepository(db *sqlx.DB) *RecoveryRepository {
	return &RecoveryRepository{db: db}
}

// SaveCandidates persists recovery candidates. Re-discovering a known
// (venue, url) pair is a no-op.
func (r *RecoveryRepository) SaveCandidates(ctx context.Context, candidates []*domain.RecoveryCandidate) error {
	for _, c := range candidates {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO recovery_candidates (venue_id, url, confidence, method, is_chosen)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (venue_id, url) DO UPDATE SET
				confidence = EXCLUDED.confidence,
				is_chosen = EXCLUDED.is_chosen`,
			c.VenueID, c.URL, c.Confidence, c.Method, c.IsChosen); err != nil {
			return fmt.Errorf("failed to save recovery candidate: %w", err)
		}
	}
	return nil
}
