package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/enrich"
)

// EnrichmentRepository reads and writes the per-venue fact rows.
type EnrichmentRepository struct {
	db *sqlx.DB
}

// NewEnrichmentRepository creates a new EnrichmentRepository.
func NewEnrichmentRepository(db *sqlx.DB) *EnrichmentRepository {
	return &EnrichmentRepository{db: db}
}

const enrichmentColumns = `venue_id, hours, contact_details, description, features,
	menu_url, menu_items, price_range, amenities, fees,
	hours_last_updated, contact_last_updated, description_last_updated,
	menu_last_updated, price_last_updated, features_last_updated, fees_last_updated,
	sources, not_applicable`

// Get returns the enrichment row for a venue.
func (r *EnrichmentRepository) Get(ctx context.Context, venueID string) (*domain.Enrichment, error) {
	var e domain.Enrichment
	err := r.db.GetContext(ctx, &e,
		`SELECT `+enrichmentColumns+` FROM enrichment WHERE venue_id = $1`, venueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEnrichmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrichment: %w", err)
	}
	return &e, nil
}

const upsertEnrichmentSQL = `
	INSERT INTO enrichment (
		venue_id, hours, contact_details, description, features, menu_url,
		menu_items, price_range, amenities, fees,
		hours_last_updated, contact_last_updated, description_last_updated,
		menu_last_updated, price_last_updated, features_last_updated,
		fees_last_updated, sources, not_applicable
	) VALUES (
		:venue_id, :hours, :contact_details, :description, :features, :menu_url,
		:menu_items, :price_range, :amenities, :fees,
		:hours_last_updated, :contact_last_updated, :description_last_updated,
		:menu_last_updated, :price_last_updated, :features_last_updated,
		:fees_last_updated, :sources, :not_applicable
	)
	ON CONFLICT (venue_id) DO UPDATE SET
		hours = EXCLUDED.hours,
		contact_details = EXCLUDED.contact_details,
		description = EXCLUDED.description,
		features = EXCLUDED.features,
		menu_url = EXCLUDED.menu_url,
		menu_items = EXCLUDED.menu_items,
		price_range = EXCLUDED.price_range,
		amenities = EXCLUDED.amenities,
		fees = EXCLUDED.fees,
		hours_last_updated = EXCLUDED.hours_last_updated,
		contact_last_updated = EXCLUDED.contact_last_updated,
		description_last_updated = EXCLUDED.description_last_updated,
		menu_last_updated = EXCLUDED.menu_last_updated,
		price_last_updated = EXCLUDED.price_last_updated,
		features_last_updated = EXCLUDED.features_last_updated,
		fees_last_updated = EXCLUDED.fees_last_updated,
		sources = EXCLUDED.sources,
		not_applicable = EXCLUDED.not_applicable`

// Apply commits one job's outcome in a single transaction: the merged
// enrichment row, the venue's last_enriched_at stamp, and the job's
// terminal state. Fields the update does not carry keep their stored
// values; sources accumulate rather than replace.
func (r *EnrichmentRepository) Apply(ctx context.Context, u *enrich.Update, jobID int64, success bool, errText string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin enrichment transaction: %w", err)
	}
	defer tx.Rollback()

	if u != nil && !u.Empty() {
		if applyErr := r.applyUpdate(ctx, tx, u); applyErr != nil {
			return applyErr
		}
	}

	if success {
		venueID := ""
		if u != nil {
			venueID = u.VenueID
		}
		if venueID != "" {
			if _, touchErr := tx.ExecContext(ctx,
				`UPDATE venues SET last_enriched_at = NOW() WHERE venue_id = $1`,
				venueID); touchErr != nil {
				return fmt.Errorf("failed to stamp venue: %w", touchErr)
			}
		}
	}

	if jobID != 0 {
		if jobErr := r.finishJob(ctx, tx, jobID, success, errText); jobErr != nil {
			return jobErr
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit enrichment: %w", commitErr)
	}
	return nil
}

func (r *EnrichmentRepository) applyUpdate(ctx context.Context, tx *sqlx.Tx, u *enrich.Update) error {
	var current domain.Enrichment
	err := tx.GetContext(ctx, &current,
		`SELECT `+enrichmentColumns+` FROM enrichment WHERE venue_id = $1 FOR UPDATE`,
		u.VenueID)
	if errors.Is(err, sql.ErrNoRows) {
		current = domain.Enrichment{VenueID: u.VenueID}
	} else if err != nil {
		return fmt.Errorf("failed to read enrichment for update: %w", err)
	}

	merged := mergeEnrichment(&current, u)

	rows, upsertErr := sqlx.NamedQueryContext(ctx, tx, upsertEnrichmentSQL, merged)
	if upsertErr != nil {
		return fmt.Errorf("failed to upsert enrichment: %w", upsertErr)
	}
	return rows.Close()
}

func (r *EnrichmentRepository) finishJob(ctx context.Context, tx *sqlx.Tx, jobID int64, success bool, errText string) error {
	state := domain.JobStateSuccess
	var errVal any
	if !success {
		state = domain.JobStateFail
		if len(errText) > 2000 {
			errText = errText[:2000]
		}
		if errText != "" {
			errVal = errText
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE crawl_jobs
		SET state = $2, finished_at = NOW(), error = $3
		WHERE job_id = $1 AND state = 'running'`, jobID, state, errVal)
	if finishErr := execRequireRows(result, err, ErrJobNotFound); finishErr != nil {
		return fmt.Errorf("failed to finish job: %w", finishErr)
	}
	return nil
}

// mergeEnrichment folds an update into the stored row. Updated fields are
// replaced and stamped; everything else keeps its stored value.
func mergeEnrichment(current *domain.Enrichment, u *enrich.Update) *domain.Enrichment {
	merged := *current
	merged.VenueID = u.VenueID
	now := u.Now

	updated := make(map[string]bool, len(u.UpdatedFields))
	for _, f := range u.UpdatedFields {
		updated[f] = true
	}

	if updated[domain.FieldHours] {
		merged.Hours = u.Hours
		merged.HoursUpdatedAt = &now
	}
	if updated[domain.FieldContact] {
		merged.ContactDetails = u.Contact
		merged.ContactUpdatedAt = &now
	}
	if updated[domain.FieldDescription] {
		merged.Description = u.Description
		merged.DescriptionUpdatedAt = &now
	}
	if updated[domain.FieldMenu] {
		merged.MenuURL = u.MenuURL
		merged.MenuItems = u.MenuItems
		merged.MenuUpdatedAt = &now
	}
	if updated[domain.FieldPrice] {
		merged.PriceRange = u.PriceRange
		merged.PriceUpdatedAt = &now
	}
	if updated[domain.FieldFeatures] {
		merged.Features = u.Features
		merged.Amenities = u.Amenities
		merged.FeaturesUpdatedAt = &now
	}
	if updated[domain.FieldFees] {
		merged.Fees = u.Fees
		merged.FeesUpdatedAt = &now
	}

	if len(u.NotApplicable) > 0 {
		if merged.NotApplicable == nil {
			merged.NotApplicable = domain.JSONBMap{}
		}
		for field, na := range u.NotApplicable {
			if !na {
				continue
			}
			merged.NotApplicable[field] = true
			if field == domain.FieldFees {
				merged.Fees = nil
				merged.FeesUpdatedAt = &now
			}
		}
	}

	if len(u.Sources) > 0 {
		if merged.Sources == nil {
			merged.Sources = domain.SourceMap{}
		}
		for field, urls := range u.Sources {
			merged.Sources.Append(field, urls...)
		}
	}

	return &merged
}
