package contacts

import "errors"

var (
	// ErrContactNotFound is returned by the HTTP layer when a contact id is unknown.
	// The store itself treats lookup misses as no-ops.
	ErrContactNotFound = errors.New("contact not found")

	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = errors.New("name is required")

	// ErrInvalidEmail is returned when the email is missing or malformed
	ErrInvalidEmail = errors.New("a valid email is required")

	// ErrInvalidSource is returned for a source outside manual, csv and api
	ErrInvalidSource = errors.New("source must be one of manual, csv, api")

	// ErrUnsupportedFormat is returned for export formats other than csv and json
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
