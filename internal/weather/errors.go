package weather

import "errors"

var (
	// ErrInvalidRange is returned for date ranges that cannot be served.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrMissingVariable is returned when provider data lacks a requested
	// (variable, altitude) pair.
	ErrMissingVariable = errors.New("weather variable missing from provider data")

	// ErrMalformedResponse is returned when provider data is internally inconsistent.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrIncompleteData is returned when provider nulls leave gaps in the rows
	// a model would read.
	ErrIncompleteData = errors.New("provider data has gaps")

	// ErrProviderFetch wraps any failure talking to the weather provider.
	ErrProviderFetch = errors.New("weather provider fetch failed")
)
