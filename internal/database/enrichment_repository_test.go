package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/enrich"
)

func strPtr(s string) *string { return &s }

func TestMergeEnrichmentReplacesUpdatedFields(t *testing.T) {
	old := time.Now().Add(-30 * 24 * time.Hour)
	now := time.Now()

	current := &domain.Enrichment{
		VenueID:        "v1",
		Hours:          domain.Hours{"mon": {{"09:00", "17:00"}}},
		HoursUpdatedAt: &old,
		Description:    strPtr("Old description."),
	}
	u := &enrich.Update{
		VenueID:       "v1",
		Now:           now,
		UpdatedFields: []string{domain.FieldHours},
		Hours:         domain.Hours{"mon": {{"10:00", "18:00"}}},
	}

	merged := mergeEnrichment(current, u)

	assert.Equal(t, domain.Hours{"mon": {{"10:00", "18:00"}}}, merged.Hours)
	assert.Equal(t, now, *merged.HoursUpdatedAt)

	// Fields the update does not carry keep their stored values.
	assert.Equal(t, "Old description.", *merged.Description)
	assert.Nil(t, merged.DescriptionUpdatedAt)

	// The stored row is not mutated.
	assert.Equal(t, old, *current.HoursUpdatedAt)
}

func TestMergeEnrichmentNotApplicableClearsFees(t *testing.T) {
	now := time.Now()
	current := &domain.Enrichment{
		VenueID: "v1",
		Fees:    strPtr("Adults £10"),
	}
	u := &enrich.Update{
		VenueID:       "v1",
		Now:           now,
		UpdatedFields: []string{domain.FieldFees},
		NotApplicable: map[string]bool{domain.FieldFees: true},
	}

	merged := mergeEnrichment(current, u)

	assert.Nil(t, merged.Fees)
	assert.True(t, merged.NotApplicable[domain.FieldFees].(bool))
	assert.Equal(t, now, *merged.FeesUpdatedAt)
}

func TestMergeEnrichmentAccumulatesSources(t *testing.T) {
	current := &domain.Enrichment{
		VenueID: "v1",
		Sources: domain.SourceMap{
			domain.FieldHours: {"https://venue.example"},
		},
	}
	u := &enrich.Update{
		VenueID: "v1",
		Now:     time.Now(),
		Sources: domain.SourceMap{
			domain.FieldHours: {"https://venue.example", "https://venue.example/hours"},
		},
	}

	merged := mergeEnrichment(current, u)

	assert.Equal(t, []string{"https://venue.example", "https://venue.example/hours"},
		merged.Sources[domain.FieldHours])
}

func TestApplyCommitsUpdateStampAndJob(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrichmentRepository(db)

	u := &enrich.Update{
		VenueID:       "v1",
		Now:           time.Now(),
		UpdatedFields: []string{domain.FieldContact},
		Contact:       domain.JSONBMap{"phone": "+442079460958"},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM enrichment WHERE venue_id .+ FOR UPDATE`).
		WithArgs("v1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO enrichment`).
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectExec(`UPDATE venues SET last_enriched_at`).
		WithArgs("v1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE crawl_jobs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Apply(context.Background(), u, 3, true, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFailureSkipsEnrichmentRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrichmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE crawl_jobs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Apply(context.Background(), nil, 3, false, "no_website")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
