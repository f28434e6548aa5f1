package store

//Repository implementation (Postgres)

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"booksync/internal/entity"
)

var (
	// ErrNotFound is returned when no book exists for the given ISBN.
	ErrNotFound = errors.New("book not found")

	// ErrDuplicateISBN is returned when an insert loses the race against a
	// concurrent insert for the same ISBN. The unique index on isbn is the
	// authoritative guard; callers treat this as "already present".
	ErrDuplicateISBN = errors.New("duplicate isbn")
)

const uniqueViolation = "23505"

type BookPG struct {
	db *pgxpool.Pool
}

func NewBookPG(db *pgxpool.Pool) *BookPG {
	return &BookPG{db: db}
}

// ExistsByISBN is the advisory pre-check used to skip upstream fetches for
// books already stored. It cannot replace the unique constraint: the check
// and a later insert are separate statements.
func (r *BookPG) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM books WHERE isbn = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, isbn).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Insert writes the book as a single constrained statement and fills in the
// surrogate id and timestamps. A unique violation on isbn surfaces as
// ErrDuplicateISBN.
func (r *BookPG) Insert(ctx context.Context, b *entity.Book) error {
	const query = `
	INSERT INTO books (isbn, title, author, publisher, pages, description, genre, thumbnail_url)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		b.ISBN, b.Title, b.Author, b.Publisher, b.Pages, b.Description, b.Genre, b.ThumbnailURL,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateISBN
		}
		return err
	}
	return nil
}

func (r *BookPG) GetByISBN(ctx context.Context, isbn string) (entity.Book, error) {
	const query = `
	SELECT id, isbn, title, author, publisher, pages, description, genre, thumbnail_url, created_at, updated_at
	FROM books
	WHERE isbn = $1
	`
	var b entity.Book
	err := r.db.QueryRow(ctx, query, isbn).Scan(
		&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Publisher, &b.Pages,
		&b.Description, &b.Genre, &b.ThumbnailURL, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Book{}, ErrNotFound
		}
		return entity.Book{}, err
	}
	return b, nil
}

func (r *BookPG) List(ctx context.Context, limit, offset int) ([]entity.Book, error) {
	const query = `
	SELECT id, isbn, title, author, publisher, pages, description, genre, thumbnail_url, created_at, updated_at
	FROM books
	ORDER BY title
	LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []entity.Book
	for rows.Next() {
		var b entity.Book
		if err := rows.Scan(
			&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Publisher, &b.Pages,
			&b.Description, &b.Genre, &b.ThumbnailURL, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}
