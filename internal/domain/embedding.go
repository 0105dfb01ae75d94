package domain

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingDim is the fixed dimension of venue embeddings.
const EmbeddingDim = 384

// VenueEmbedding is the semantic vector for one venue.
type VenueEmbedding struct {
	VenueID    string          `db:"venue_id"`
	Embedding  pgvector.Vector `db:"embedding"`
	ValidUntil *time.Time      `db:"valid_until"`
	UpdatedAt  time.Time       `db:"updated_at"`
}
