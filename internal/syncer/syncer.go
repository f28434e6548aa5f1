// Package syncer processes book synchronization requests: it validates the
// ISBN, skips books already stored, fetches metadata upstream, and persists
// the record exactly once per ISBN.
package syncer

import (
	"context"

	"booksync/internal/entity"
)

// SyncRequest is the queue message payload asking for one book to be
// synchronized.
type SyncRequest struct {
	ISBN string `json:"isbn"`
}

type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusSkipped  Status = "SKIPPED"
	StatusRejected Status = "REJECTED"
	StatusFailed   Status = "FAILED"
)

type Reason string

const (
	ReasonAlreadyPresent Reason = "already_present"
	ReasonMalformedISBN  Reason = "malformed_isbn"
	ReasonUpstreamFatal  Reason = "upstream_fatal"
	ReasonStorageError   Reason = "storage_error"
)

// Outcome describes how a request ended. Book is set only for
// StatusCreated; Err only for StatusFailed.
type Outcome struct {
	Status Status
	Reason Reason
	Book   *entity.Book
	Err    error
}

// Ack reports whether the transport should acknowledge the message. Failed
// outcomes stay unacknowledged so the transport can redeliver or
// dead-letter them.
func (o Outcome) Ack() bool {
	return o.Status != StatusFailed
}

// MetadataFetcher fetches and normalizes book metadata for an ISBN.
type MetadataFetcher interface {
	FetchByISBN(ctx context.Context, isbn string) (entity.Book, error)
}

// BookStore is the slice of the book repository the syncer needs.
type BookStore interface {
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	Insert(ctx context.Context, b *entity.Book) error
}
