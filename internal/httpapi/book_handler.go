package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"booksync/internal/entity"
	"booksync/internal/store"
)

// BookReader is the read-side slice of the book repository.
type BookReader interface {
	GetByISBN(ctx context.Context, isbn string) (entity.Book, error)
	List(ctx context.Context, limit, offset int) ([]entity.Book, error)
}

type BookHandler struct {
	repo BookReader
}

func NewBookHandler(repo BookReader) *BookHandler {
	return &BookHandler{repo: repo}
}

func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	books, err := h.repo.List(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "server_error", "could not list books")
		return
	}
	if books == nil {
		books = []entity.Book{}
	}

	JSONSuccess(w, http.StatusOK, books, map[string]interface{}{
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *BookHandler) GetByISBN(w http.ResponseWriter, r *http.Request) {
	isbn := strings.TrimPrefix(r.URL.Path, "/books/")
	if isbn == "" || strings.Contains(isbn, "/") {
		JSONError(w, http.StatusBadRequest, "bad_request", "missing isbn")
		return
	}

	book, err := h.repo.GetByISBN(r.Context(), isbn)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "not_found", "no book stored for this isbn")
			return
		}
		JSONError(w, http.StatusInternalServerError, "server_error", "could not load book")
		return
	}

	JSONSuccess(w, http.StatusOK, book, nil)
}
