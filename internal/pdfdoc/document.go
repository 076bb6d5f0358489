// Package pdfdoc turns raw PDF bytes into a page-addressable document
// handle: page count, per-page plain text, and a first-page cover render.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrInvalid marks bytes that could not be parsed as a PDF.
	ErrInvalid = errors.New("pdfdoc: not a valid PDF")
	// ErrEmpty marks a structurally valid PDF with zero pages.
	ErrEmpty = errors.New("pdfdoc: document has no pages")
	// ErrPageOutOfRange marks a page request outside [1, PageCount].
	ErrPageOutOfRange = errors.New("pdfdoc: page out of range")
)

// Document is a parsed, page-addressable PDF. It keeps the original bytes
// so the cover can be rasterized without a second fetch.
type Document struct {
	raw    []byte
	reader *pdf.Reader
	pages  int
}

// Parse reads the whole byte slice into a Document. All-or-nothing: either
// the full binary parses or the call fails.
func Parse(data []byte) (*Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	pages := reader.NumPage()
	if pages < 1 {
		return nil, ErrEmpty
	}
	return &Document{raw: data, reader: reader, pages: pages}, nil
}

// PageCount reports the number of pages, always >= 1 for a parsed document.
func (d *Document) PageCount() int {
	return d.pages
}

// PageText extracts plain text from page n (1-indexed). Pages that the
// extractor cannot handle yield an empty string rather than an error, so a
// single bad page does not poison excerpts.
func (d *Document) PageText(n int) (string, error) {
	if n < 1 || n > d.pages {
		return "", fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, d.pages)
	}
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", nil
	}
	return normalizeText(text), nil
}

// Size reports the size of the original binary in bytes.
func (d *Document) Size() int64 {
	return int64(len(d.raw))
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
