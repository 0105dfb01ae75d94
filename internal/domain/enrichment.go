package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MenuItem is a minimal menu entry: a name and an optional price string.
type MenuItem struct {
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
}

// MenuItems is a list of menu entries stored as a JSONB column.
type MenuItems []MenuItem

// Value implements driver.Valuer.
func (m MenuItems) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal menu items: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (m *MenuItems) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if unmarshalErr := json.Unmarshal(data, m); unmarshalErr != nil {
		return fmt.Errorf("failed to unmarshal menu items: %w", unmarshalErr)
	}
	return nil
}

// Enrichment field names, used as keys in the sources map and the
// not_applicable map.
const (
	FieldHours       = "hours"
	FieldContact     = "contact_details"
	FieldDescription = "description"
	FieldMenu        = "menu"
	FieldPrice       = "price_range"
	FieldFeatures    = "features"
	FieldFees        = "fees"
)

// EnrichmentFields lists all per-field timestamp columns in a stable order.
var EnrichmentFields = []string{
	FieldHours,
	FieldContact,
	FieldDescription,
	FieldMenu,
	FieldPrice,
	FieldFeatures,
	FieldFees,
}

// Enrichment is the dated, source-cited fact row for one venue. Every
// populated field carries a last-updated timestamp and at least one source
// URL drawn from the venue's scraped pages.
type Enrichment struct {
	VenueID        string      `db:"venue_id"`
	Hours          Hours       `db:"hours"`
	ContactDetails JSONBMap    `db:"contact_details"`
	Description    *string     `db:"description"`
	Features       StringSlice `db:"features"`
	MenuURL        *string     `db:"menu_url"`
	MenuItems      MenuItems   `db:"menu_items"`
	PriceRange     *string     `db:"price_range"`
	Amenities      StringSlice `db:"amenities"`
	Fees           *string     `db:"fees"`

	HoursUpdatedAt       *time.Time `db:"hours_last_updated"`
	ContactUpdatedAt     *time.Time `db:"contact_last_updated"`
	DescriptionUpdatedAt *time.Time `db:"description_last_updated"`
	MenuUpdatedAt        *time.Time `db:"menu_last_updated"`
	PriceUpdatedAt       *time.Time `db:"price_last_updated"`
	FeaturesUpdatedAt    *time.Time `db:"features_last_updated"`
	FeesUpdatedAt        *time.Time `db:"fees_last_updated"`

	Sources       SourceMap `db:"sources"`
	NotApplicable JSONBMap  `db:"not_applicable"`
}

// FieldUpdatedAt returns the last-updated timestamp for a field name, or
// nil when the field has never been written.
func (e *Enrichment) FieldUpdatedAt(field string) *time.Time {
	switch field {
	case FieldHours:
		return e.HoursUpdatedAt
	case FieldContact:
		return e.ContactUpdatedAt
	case FieldDescription:
		return e.DescriptionUpdatedAt
	case FieldMenu:
		return e.MenuUpdatedAt
	case FieldPrice:
		return e.PriceUpdatedAt
	case FieldFeatures:
		return e.FeaturesUpdatedAt
	case FieldFees:
		return e.FeesUpdatedAt
	}
	return nil
}

// FieldPopulated reports whether the field holds a value or an explicit
// not-applicable marker.
func (e *Enrichment) FieldPopulated(field string) bool {
	if e.NotApplicable != nil {
		if na, ok := e.NotApplicable[field].(bool); ok && na {
			return true
		}
	}
	switch field {
	case FieldHours:
		return !e.Hours.IsZero()
	case FieldContact:
		return len(e.ContactDetails) > 0
	case FieldDescription:
		return e.Description != nil && *e.Description != ""
	case FieldMenu:
		return (e.MenuURL != nil && *e.MenuURL != "") || len(e.MenuItems) > 0
	case FieldPrice:
		return e.PriceRange != nil && *e.PriceRange != ""
	case FieldFeatures:
		return len(e.Features) > 0 || len(e.Amenities) > 0
	case FieldFees:
		return e.Fees != nil && *e.Fees != ""
	}
	return false
}
