package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func venueRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"venue_id", "name", "category_name", "category_weight", "lat", "lon",
		"website", "email", "popularity_confidence", "last_enriched_at",
	})
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVenueRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM venues WHERE venue_id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrVenueNotFound)
}

func TestUpdateWebsiteNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVenueRepository(db)

	mock.ExpectExec(`UPDATE venues SET website`).
		WithArgs("missing", "https://venue.example").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateWebsite(context.Background(), "missing", "https://venue.example")
	assert.ErrorIs(t, err, ErrVenueNotFound)
}

func TestSearchNearbyBaseQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVenueRepository(db)

	rows := sqlmock.NewRows([]string{
		"venue_id", "name", "category_name", "category_weight", "lat", "lon",
		"website", "email", "popularity_confidence", "last_enriched_at", "distance_m",
	}).AddRow("v1", "Trattoria Roma", nil, nil, 51.5, -0.1, nil, nil, nil, nil, 120.5)

	mock.ExpectQuery(`ST_DWithin`).
		WithArgs(51.5, -0.1, 1500, 20).
		WillReturnRows(rows)

	venues, err := repo.SearchNearby(context.Background(), 51.5, -0.1, 1500, 20, "", "")
	require.NoError(t, err)

	require.Len(t, venues, 1)
	assert.Equal(t, "v1", venues[0].VenueID)
	assert.InDelta(t, 120.5, venues[0].DistanceM, 0.001)
}

func TestSearchNearbyWithFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVenueRepository(db)

	mock.ExpectQuery(`name % \$4 AND category_name = \$5`).
		WithArgs(51.5, -0.1, 1500, "trattoria", "Italian Restaurant", 20).
		WillReturnRows(sqlmock.NewRows([]string{
			"venue_id", "name", "category_name", "category_weight", "lat", "lon",
			"website", "email", "popularity_confidence", "last_enriched_at", "distance_m",
		}))

	venues, err := repo.SearchNearby(context.Background(), 51.5, -0.1, 1500, 20,
		"trattoria", "Italian Restaurant")
	require.NoError(t, err)
	assert.Empty(t, venues)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectStaleForBackground(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVenueRepository(db)

	mock.ExpectQuery(`percentile_disc`).
		WithArgs(0.9, 3, 14, 30, 50).
		WillReturnRows(venueRows().
			AddRow("v1", "Popular Venue", nil, nil, 51.5, -0.1,
				"https://venue.example", nil, 0.95, nil).
			AddRow("v2", "Quiet Venue", nil, nil, 51.6, -0.2,
				"https://quiet.example", nil, 0.1, nil))

	venues, err := repo.SelectStaleForBackground(context.Background(), 0.9, 3, 14, 30, 50)
	require.NoError(t, err)

	// Popularity orders the batch but does not gate membership: the
	// venue below the percentile cut is still selected.
	require.Len(t, venues, 2)
	assert.Equal(t, "v1", venues[0].VenueID)
	assert.InDelta(t, 0.95, venues[0].PopularityOrZero(), 0.001)
	assert.Equal(t, "v2", venues[1].VenueID)
}
