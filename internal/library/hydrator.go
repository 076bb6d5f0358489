// Package library owns the in-session book collection: metadata-only
// listing, lazy at-most-once document hydration, optimistic mutations, and
// removal with best-effort blob cleanup.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"flipbook/internal/pdfdoc"
)

var (
	// ErrFetch marks transport failures or non-2xx responses while
	// downloading a book's binary.
	ErrFetch = errors.New("library: fetch failed")
	// ErrParse marks a downloaded binary that could not be parsed.
	ErrParse = errors.New("library: parse failed")
	// ErrEmptyDocument marks a parsed document with zero pages.
	ErrEmptyDocument = errors.New("library: document has no pages")
	// ErrPageCountMismatch marks a hydrated handle whose page count does
	// not agree with the stored record.
	ErrPageCountMismatch = errors.New("library: page count mismatch")
	// ErrNotFound marks an id absent from the collection.
	ErrNotFound = errors.New("library: book not found")
)

// Handle is a hydrated, page-addressable document.
type Handle interface {
	PageCount() int
	// PageText returns a renderable plain-text representation of page n
	// (1-indexed).
	PageText(n int) (string, error)
}

// Hydrator converts a remote binary URL into a document handle. Fetching is
// all-or-nothing; there is no partial or streaming contract at this layer.
type Hydrator interface {
	Hydrate(ctx context.Context, url string) (Handle, error)
}

// HTTPHydrator fetches the full binary over HTTP(S) and parses it.
// It has no side effects beyond network I/O.
type HTTPHydrator struct {
	client *http.Client
}

// NewHTTPHydrator builds a hydrator with a bounded HTTP client.
func NewHTTPHydrator(client *http.Client) *HTTPHydrator {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPHydrator{client: client}
}

// Hydrate downloads and parses the document at url.
func (h *HTTPHydrator) Hydrate(ctx context.Context, url string) (Handle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrFetch, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	doc, err := pdfdoc.Parse(data)
	if err != nil {
		if errors.Is(err, pdfdoc.ErrEmpty) {
			return nil, fmt.Errorf("%w: %v", ErrEmptyDocument, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return doc, nil
}
