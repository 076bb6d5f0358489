package store

import (
	"context"
	"errors"

	"flipbook/pkg/domain"
)

// ErrPermissionDenied marks metadata-store failures caused by the caller's
// credentials rather than the request itself. The HTTP layer maps it to a
// session-expired response instead of a generic error.
var ErrPermissionDenied = errors.New("store: permission denied")

// ErrInvalidBook rejects records that must never reach persistence, such as
// a book with fewer than one page.
var ErrInvalidBook = errors.New("store: invalid book record")

// Store defines persistence operations for books and share links.
type Store interface {
	// books, newest-first where a list is returned
	ListBooks(ctx context.Context) ([]domain.Book, error)
	ListBooksByCategory(ctx context.Context, category domain.Category) ([]domain.Book, error)
	GetBook(ctx context.Context, id string) (domain.Book, bool, error)
	// InsertBook assigns the canonical ID and CreatedAt and returns the
	// confirmed record.
	InsertBook(ctx context.Context, book domain.Book) (domain.Book, error)
	UpdateBook(ctx context.Context, id string, patch domain.BookPatch) error
	DeleteBook(ctx context.Context, id string) error

	// share links
	InsertShareLink(ctx context.Context, link domain.ShareLink) error
	GetShareLink(ctx context.Context, token string) (domain.ShareLink, bool, error)
}
