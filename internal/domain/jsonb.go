package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONBMap is a map stored as a JSONB column.
type JSONBMap map[string]any

// Value implements driver.Valuer.
func (m JSONBMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb map: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (m *JSONBMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if unmarshalErr := json.Unmarshal(data, m); unmarshalErr != nil {
		return fmt.Errorf("failed to unmarshal jsonb map: %w", unmarshalErr)
	}
	return nil
}

// StringSlice is a list of strings stored as a JSONB column.
type StringSlice []string

// Value implements driver.Valuer.
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb slice: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if unmarshalErr := json.Unmarshal(data, s); unmarshalErr != nil {
		return fmt.Errorf("failed to unmarshal jsonb slice: %w", unmarshalErr)
	}
	return nil
}

// SourceMap maps an enrichment field name to the list of contributing page
// URLs, stored as JSONB.
type SourceMap map[string][]string

// Value implements driver.Valuer.
func (m SourceMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal source map: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner.
func (m *SourceMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if unmarshalErr := json.Unmarshal(data, m); unmarshalErr != nil {
		return fmt.Errorf("failed to unmarshal source map: %w", unmarshalErr)
	}
	return nil
}

// Append merges URLs into the field's source list, deduplicated and
// order-preserved.
func (m SourceMap) Append(field string, urls ...string) {
	existing := m[field]
	seen := make(map[string]struct{}, len(existing))
	for _, u := range existing {
		seen[u] = struct{}{}
	}
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		existing = append(existing, u)
	}
	m[field] = existing
}

// CountDistinct returns the number of distinct source URLs across all
// fields.
func (m SourceMap) CountDistinct() int {
	seen := make(map[string]struct{})
	for _, urls := range m {
		for _, u := range urls {
			seen[u] = struct{}{}
		}
	}
	return len(seen)
}

// jsonbBytes coerces a driver value into the raw JSONB bytes.
func jsonbBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
