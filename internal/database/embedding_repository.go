package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/jonesrussell/venuescout/internal/domain"
)

// EmbeddingRepository stores venue description embeddings for semantic
// reranking.
type EmbeddingRepository struct {
	db *sqlx.DB
}

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(db *sqlx.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// Upsert writes a venue's embedding vector.
func (r *EmbeddingRepository) Upsert(ctx context.Context, venueID string, vec pgvector.Vector, validUntil time.Time) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO embeddings (venue_id, embedding, valid_until, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (venue_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			valid_until = EXCLUDED.valid_until,
			updated_at = NOW()`, venueID, vec, validUntil); err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// EmbeddingCandidate is a venue whose embedding is missing or expired,
// with the enrichment text the vector is built from.
type EmbeddingCandidate struct {
	VenueID      string             `db:"venue_id"`
	Name         string             `db:"name"`
	CategoryName *string            `db:"category_name"`
	Description  *string            `db:"description"`
	Features     domain.StringSlice `db:"features"`
}

// SelectNeedingEmbedding returns venues whose enrichment description is
// long enough to embed and whose stored vector is missing or expired.
func (r *EmbeddingRepository) SelectNeedingEmbedding(ctx context.Context, minTextChars, limit int) ([]*EmbeddingCandidate, error) {
	var candidates []*EmbeddingCandidate
	if err := r.db.SelectContext(ctx, &candidates, `
		SELECT v.venue_id, v.name, v.category_name, en.description, en.features
		FROM venues v
		JOIN enrichment en USING (venue_id)
		LEFT JOIN embeddings em USING (venue_id)
		WHERE en.description IS NOT NULL
		  AND length(en.description) >= $1
		  AND (em.venue_id IS NULL
		       OR em.valid_until IS NULL
		       OR em.valid_until < NOW()
		       OR en.description_last_updated > em.updated_at)
		ORDER BY v.popularity_confidence DESC NULLS LAST
		LIMIT $2`, minTextChars, limit); err != nil {
		return nil, fmt.Errorf("failed to select embedding candidates: %w", err)
	}
	return candidates, nil
}

// Count returns the number of stored embeddings.
func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM embeddings`); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}
