package library

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"flipbook/pkg/domain"
	"flipbook/pkg/storage"
	"flipbook/pkg/store"
)

// BookRecord is the read-only snapshot handed to the view layer: persisted
// metadata plus the session-local hydration state.
type BookRecord struct {
	domain.Book
	Hydrated bool `json:"hydrated"`
}

// Manager is the single source of truth for the in-session book collection.
// It owns the only shared mutable state in the core; readers always get
// copies, never references into the internal maps.
type Manager struct {
	store   store.Store
	objects storage.ObjectStore
	hydrate Hydrator
	logger  *slog.Logger

	mu      sync.RWMutex
	books   map[string]domain.Book
	order   []string // newest-first
	handles map[string]Handle

	flight singleflight.Group
}

// NewManager wires the manager to its collaborators. logger may be nil.
func NewManager(st store.Store, objects storage.ObjectStore, hydrator Hydrator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:   st,
		objects: objects,
		hydrate: hydrator,
		logger:  logger,
		books:   make(map[string]domain.Book),
		handles: make(map[string]Handle),
	}
}

// LoadAll replaces the whole collection with metadata-only records from the
// metadata store. Idempotent; safe to call on reconnect. Record fields are
// trusted as given; broken URLs surface later, at hydration time.
func (m *Manager) LoadAll(ctx context.Context) error {
	books, err := m.store.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("load books: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books = make(map[string]domain.Book, len(books))
	m.order = make([]string, 0, len(books))
	m.handles = make(map[string]Handle)
	for _, b := range books {
		m.books[b.ID] = b
		m.order = append(m.order, b.ID)
	}
	return nil
}

// Books returns a newest-first snapshot of the collection.
func (m *Manager) Books() []BookRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]BookRecord, 0, len(m.order))
	for _, id := range m.order {
		if b, ok := m.books[id]; ok {
			_, hydrated := m.handles[id]
			records = append(records, BookRecord{Book: b, Hydrated: hydrated})
		}
	}
	return records
}

// BooksByCategory returns the snapshot filtered to one category.
func (m *Manager) BooksByCategory(category domain.Category) []BookRecord {
	all := m.Books()
	out := make([]BookRecord, 0, len(all))
	for _, r := range all {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// Get returns one record snapshot.
func (m *Manager) Get(id string) (BookRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	if !ok {
		return BookRecord{}, false
	}
	_, hydrated := m.handles[id]
	return BookRecord{Book: b, Hydrated: hydrated}, true
}

// EnsureHydrated returns the record's document handle, hydrating it on
// first use. Concurrent callers for the same id share a single in-flight
// fetch-and-parse; a book once hydrated stays warm for the session.
// Failures are not cached, so a later call retries from scratch.
func (m *Manager) EnsureHydrated(ctx context.Context, id string) (Handle, error) {
	m.mu.RLock()
	handle, hydrated := m.handles[id]
	book, exists := m.books[id]
	m.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if hydrated {
		return handle, nil
	}

	// Hydration runs to completion even if this caller goes away; the
	// result is kept only when the record still exists.
	hctx := context.WithoutCancel(ctx)
	v, err, _ := m.flight.Do(id, func() (any, error) {
		m.mu.RLock()
		h, ok := m.handles[id]
		m.mu.RUnlock()
		if ok {
			return h, nil
		}
		h, err := m.hydrate.Hydrate(hctx, book.PDFURL)
		if err != nil {
			return nil, err
		}
		if h.PageCount() != book.TotalPages {
			return nil, fmt.Errorf("%w: handle has %d pages, record has %d", ErrPageCountMismatch, h.PageCount(), book.TotalPages)
		}
		m.mu.Lock()
		if _, still := m.books[id]; still {
			m.handles[id] = h
		}
		m.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Handle), nil
}

// AddBatch merges freshly confirmed records into the collection, keeping
// their already-hydrated handles so a just-uploaded book is not re-fetched.
func (m *Manager) AddBatch(books []domain.Book, handles map[string]Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range books {
		if _, exists := m.books[b.ID]; !exists {
			// new uploads go to the front: display order is newest-first
			m.order = append([]string{b.ID}, m.order...)
		}
		m.books[b.ID] = b
		if h, ok := handles[b.ID]; ok && h != nil {
			m.handles[b.ID] = h
		}
	}
}

// ApplyMutation updates the mutable fields (category, favorite, summary) on
// the in-memory record immediately, then persists the same subset. A
// persistence failure is logged, never reverted: local state stays
// authoritative for the session.
func (m *Manager) ApplyMutation(ctx context.Context, id string, patch domain.BookPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	m.mu.Lock()
	book, ok := m.books[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, id)
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
	m.mu.Unlock()

	if err := m.store.UpdateBook(ctx, id, patch); err != nil {
		m.logger.Warn("book mutation not persisted, local state kept", "book_id", id, "err", err)
	}
	return nil
}

// Remove deletes the record locally right away, then issues the metadata
// delete and best-effort deletion of the two associated blobs. Storage
// failures are logged only: an orphaned blob is cheaper than blocking the
// user-visible removal.
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	book, ok := m.books[id]
	if ok {
		delete(m.books, id)
		delete(m.handles, id)
		for i, oid := range m.order {
			if oid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if err := m.store.DeleteBook(ctx, id); err != nil {
		m.logger.Warn("book metadata delete failed", "book_id", id, "err", err)
	}
	m.deleteBlob(ctx, id, book.PDFURL)
	m.deleteBlob(ctx, id, book.CoverURL)
}

func (m *Manager) deleteBlob(ctx context.Context, id, rawURL string) {
	if m.objects == nil || rawURL == "" {
		return
	}
	key, ok := m.objects.KeyFromURL(rawURL)
	if !ok {
		return
	}
	if err := m.objects.Delete(ctx, key); err != nil {
		m.logger.Warn("blob delete failed, orphan left behind", "book_id", id, "key", key, "err", err)
	}
}
