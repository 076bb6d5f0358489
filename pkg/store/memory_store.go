package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"flipbook/pkg/domain"
)

// MemoryStore keeps metadata in-process. Used by tests and local runs
// without Postgres.
type MemoryStore struct {
	mu    sync.RWMutex
	books map[string]domain.Book
	order []string // insertion order, oldest first
	links map[string]domain.ShareLink
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books: make(map[string]domain.Book),
		links: make(map[string]domain.ShareLink),
	}
}

// ListBooks returns books newest-first.
func (m *MemoryStore) ListBooks(_ context.Context) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		if b, ok := m.books[m.order[i]]; ok {
			res = append(res, b)
		}
	}
	return res, nil
}

// ListBooksByCategory returns books in one category, newest-first.
func (m *MemoryStore) ListBooksByCategory(ctx context.Context, category domain.Category) ([]domain.Book, error) {
	all, _ := m.ListBooks(ctx)
	res := make([]domain.Book, 0, len(all))
	for _, b := range all {
		if b.Category == category {
			res = append(res, b)
		}
	}
	return res, nil
}

// GetBook retrieves one book by ID.
func (m *MemoryStore) GetBook(_ context.Context, id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

// InsertBook assigns an ID and timestamp and stores the record.
func (m *MemoryStore) InsertBook(_ context.Context, book domain.Book) (domain.Book, error) {
	if book.TotalPages < 1 {
		return domain.Book{}, fmt.Errorf("%w: total pages %d", ErrInvalidBook, book.TotalPages)
	}
	book.ID = uuid.NewString()
	book.CreatedAt = time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[book.ID] = book
	m.order = append(m.order, book.ID)
	return book, nil
}

// UpdateBook applies a partial update of the mutable fields.
func (m *MemoryStore) UpdateBook(_ context.Context, id string, patch domain.BookPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[id]
	if !ok {
		return fmt.Errorf("update book: %q not found", id)
	}
	if patch.Category != nil {
		book.Category = *patch.Category
	}
	if patch.IsFavorite != nil {
		book.IsFavorite = *patch.IsFavorite
	}
	if patch.Summary != nil {
		book.Summary = *patch.Summary
	}
	m.books[id] = book
	return nil
}

// DeleteBook removes the record. Deleting a missing book is not an error.
func (m *MemoryStore) DeleteBook(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	return nil
}

// InsertShareLink stores a share token.
func (m *MemoryStore) InsertShareLink(_ context.Context, link domain.ShareLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.links[link.Token]; exists {
		return fmt.Errorf("insert share link: token %q already exists", link.Token)
	}
	m.links[link.Token] = link
	return nil
}

// GetShareLink resolves a share token.
func (m *MemoryStore) GetShareLink(_ context.Context, token string) (domain.ShareLink, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	link, ok := m.links[token]
	return link, ok, nil
}
