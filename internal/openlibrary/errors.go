package openlibrary

import "errors"

var (
	// ErrBookNotFound is returned when Open Library has no record under the
	// requested ISBN, or answers with a client error. Not retried.
	ErrBookNotFound = errors.New("book not found")

	// ErrIncompleteRecord is returned when the response lacks a field the
	// normalized record cannot do without (title, author, cover). Not retried.
	ErrIncompleteRecord = errors.New("incomplete book record")

	// ErrUpstream is returned when Open Library stays unreachable or keeps
	// failing after the retry budget is spent.
	ErrUpstream = errors.New("open library unavailable")
)
