package database

import "errors"

var (
	// ErrVenueNotFound is returned when a venue id does not exist.
	ErrVenueNotFound = errors.New("venue not found")

	// ErrJobNotFound is returned when a job id does not exist or is not in
	// the expected state.
	ErrJobNotFound = errors.New("job not found")

	// ErrEnrichmentNotFound is returned when a venue has no enrichment row.
	ErrEnrichmentNotFound = errors.New("enrichment not found")
)
