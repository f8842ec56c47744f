package service

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable fails a whole run; every other failure is recorded and
// skipped.
var ErrStoreUnavailable = errors.New("store unavailable")

// IngestionError attributes a store failure to one listing.
type IngestionError struct {
	Card string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Card, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// SourceError is a failure of one source during a collection run.
type SourceError struct {
	Source string
	Query  string
	Page   int
	Err    error
}

func (e *SourceError) Error() string {
	if e.Query == "" {
		return fmt.Sprintf("source %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("source %s query %q page %d: %v", e.Source, e.Query, e.Page, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
