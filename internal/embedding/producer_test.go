package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/venuescout/internal/database"
	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/logger"
)

type fakeEmbeddingStore struct {
	candidates []*database.EmbeddingCandidate
	selectErr  error
	upserted   map[string]pgvector.Vector
	upsertErr  error
}

func (s *fakeEmbeddingStore) SelectNeedingEmbedding(_ context.Context, _, _ int) ([]*database.EmbeddingCandidate, error) {
	return s.candidates, s.selectErr
}

func (s *fakeEmbeddingStore) Upsert(_ context.Context, venueID string, vec pgvector.Vector, _ time.Time) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	if s.upserted == nil {
		s.upserted = make(map[string]pgvector.Vector)
	}
	s.upserted[venueID] = vec
	return nil
}

func (s *fakeEmbeddingStore) Count(_ context.Context) (int, error) {
	return len(s.upserted), nil
}

func testProducerConfig() Config {
	return Config{BatchSize: 100, Interval: time.Minute, MinTextChars: 40}
}

func candidate(venueID, name, description string) *database.EmbeddingCandidate {
	return &database.EmbeddingCandidate{
		VenueID:     venueID,
		Name:        name,
		Description: &description,
	}
}

func TestRunOnceEmbedsCandidates(t *testing.T) {
	store := &fakeEmbeddingStore{candidates: []*database.EmbeddingCandidate{
		candidate("v1", "Trattoria Roma", "Family-run trattoria serving Roman classics since 1962."),
		candidate("v2", "City Museum", "Victorian museum of natural history and local archaeology."),
	}}

	p, err := NewProducer(testProducerConfig(), NewLocalProvider(), store, logger.NewNop())
	require.NoError(t, err)

	written, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, written)
	require.Len(t, store.upserted, 2)
	assert.Len(t, store.upserted["v1"].Slice(), domain.EmbeddingDim)
}

func TestRunOnceSkipsUnembeddable(t *testing.T) {
	empty := ""
	store := &fakeEmbeddingStore{candidates: []*database.EmbeddingCandidate{
		{VenueID: "v1", Description: &empty},
		candidate("v2", "City Museum", "Victorian museum of natural history."),
	}}

	p, err := NewProducer(testProducerConfig(), NewLocalProvider(), store, logger.NewNop())
	require.NoError(t, err)

	written, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, written)
	assert.NotContains(t, store.upserted, "v1")
}

func TestRunOnceSelectErrorFailsPass(t *testing.T) {
	store := &fakeEmbeddingStore{selectErr: errors.New("connection refused")}

	p, err := NewProducer(testProducerConfig(), NewLocalProvider(), store, logger.NewNop())
	require.NoError(t, err)

	_, err = p.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunOnceUpsertErrorSkipsVenue(t *testing.T) {
	store := &fakeEmbeddingStore{
		candidates: []*database.EmbeddingCandidate{
			candidate("v1", "Trattoria Roma", "Family-run trattoria in the old town."),
		},
		upsertErr: errors.New("deadlock detected"),
	}

	p, err := NewProducer(testProducerConfig(), NewLocalProvider(), store, logger.NewNop())
	require.NoError(t, err)

	written, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestBuildVenueText(t *testing.T) {
	category := "Italian Restaurant"
	description := "Family-run trattoria"

	text := BuildVenueText(&database.EmbeddingCandidate{
		VenueID:      "v1",
		Name:         "Trattoria Roma",
		CategoryName: &category,
		Description:  &description,
		Features:     domain.StringSlice{"Outdoor seating", "Dog friendly"},
	})

	assert.Equal(t, "Trattoria Roma. Italian Restaurant. Family-run trattoria. Outdoor seating Dog friendly", text)

	assert.Empty(t, BuildVenueText(&database.EmbeddingCandidate{VenueID: "v1"}))
}
