package csvimport

import "errors"

var (
	// ErrEmptyFile is returned when the payload has no header line
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrMissingColumns is returned when the header lacks name or email
	ErrMissingColumns = errors.New("missing required columns")

	// ErrFileTooLarge is returned when the payload exceeds the configured cap
	ErrFileTooLarge = errors.New("CSV file is too large")
)
