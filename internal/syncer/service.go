package syncer

import (
	"context"
	"errors"

	"booksync/internal/obs"
	"booksync/internal/store"
)

type Service struct {
	fetcher MetadataFetcher
	books   BookStore
}

func NewService(fetcher MetadataFetcher, books BookStore) *Service {
	return &Service{fetcher: fetcher, books: books}
}

// Handle runs one synchronization request through validation, the
// idempotency pre-check, the upstream fetch, and the constrained insert.
// A duplicate-key conflict on insert means a concurrent delivery won the
// race; that counts as already present, not as a failure.
func (s *Service) Handle(ctx context.Context, req SyncRequest) Outcome {
	if !ValidISBN(req.ISBN) {
		obs.Logger.Warn("rejecting malformed isbn", "isbn", req.ISBN)
		return Outcome{Status: StatusRejected, Reason: ReasonMalformedISBN}
	}

	exists, err := s.books.ExistsByISBN(ctx, req.ISBN)
	if err != nil {
		obs.Logger.Error("existence check failed", "isbn", req.ISBN, "error", err)
		return Outcome{Status: StatusFailed, Reason: ReasonStorageError, Err: err}
	}
	if exists {
		obs.Logger.Info("book already present", "isbn", req.ISBN)
		return Outcome{Status: StatusSkipped, Reason: ReasonAlreadyPresent}
	}

	book, err := s.fetcher.FetchByISBN(ctx, req.ISBN)
	if err != nil {
		obs.Logger.Error("metadata fetch failed", "isbn", req.ISBN, "error", err)
		return Outcome{Status: StatusFailed, Reason: ReasonUpstreamFatal, Err: err}
	}

	if err := s.books.Insert(ctx, &book); err != nil {
		if errors.Is(err, store.ErrDuplicateISBN) {
			obs.Logger.Info("lost insert race, book already present", "isbn", req.ISBN)
			return Outcome{Status: StatusSkipped, Reason: ReasonAlreadyPresent}
		}
		obs.Logger.Error("insert failed", "isbn", req.ISBN, "error", err)
		return Outcome{Status: StatusFailed, Reason: ReasonStorageError, Err: err}
	}

	obs.Logger.Info("book synchronized", "isbn", req.ISBN, "id", book.ID, "title", book.Title)
	return Outcome{Status: StatusCreated, Book: &book}
}
