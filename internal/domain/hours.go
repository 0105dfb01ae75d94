package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Weekdays in rendering order. Hours maps are keyed by these three-letter
// day names.
var Weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Hours is the structured opening-hours map: day -> list of [open, close]
// ranges in 24h "HH:MM" format. Stored as JSONB.
type Hours map[string][][2]string

// Value implements driver.Valuer.
func (h Hours) Value() (driver.Value, error) {
	if h == nil {
		return nil, nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal hours: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (h *Hours) Scan(value any) error {
	if value == nil {
		*h = nil
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if unmarshalErr := json.Unmarshal(data, h); unmarshalErr != nil {
		return fmt.Errorf("failed to unmarshal hours: %w", unmarshalErr)
	}
	return nil
}

// IsZero reports whether no day has any range.
func (h Hours) IsZero() bool {
	for _, ranges := range h {
		if len(ranges) > 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (h Hours) Clone() Hours {
	if h == nil {
		return nil
	}
	out := make(Hours, len(h))
	for day, ranges := range h {
		cp := make([][2]string, len(ranges))
		copy(cp, ranges)
		out[day] = cp
	}
	return out
}
