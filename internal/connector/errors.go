package connector

import (
	"errors"
	"fmt"
)

const (
	CodeSearch  = "SEARCH_ERROR"
	CodeDetail  = "DETAIL_ERROR"
	CodeDecode  = "DECODE_ERROR"
	CodeUnknown = "UNKNOWN_SOURCE"
)

// Error is a page-level connector failure. The collector treats it as a
// failure of the whole source for the current query.
type Error struct {
	Source string
	Code   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(source, code string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Source: source, Code: code, Err: err}
}

// ParseError marks one element that could not be turned into a listing.
// It is never retried.
type ParseError struct {
	Source string
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse %s: %v", e.Source, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	errMissingName  = errors.New("missing name")
	errMissingPrice = errors.New("missing price")
)

func MissingName(source string) error {
	return &ParseError{Source: source, Field: "name", Err: errMissingName}
}

func MissingPrice(source string) error {
	return &ParseError{Source: source, Field: "price", Err: errMissingPrice}
}
