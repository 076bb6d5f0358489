// Package upload turns a batch of local PDF files into confirmed library
// records. Files move one at a time through a fixed sequence of stages so
// failures carry precise stage attribution and progress can report
// "file i of N".
package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"flipbook/internal/library"
	"flipbook/internal/pdfdoc"
	"flipbook/pkg/domain"
	"flipbook/pkg/storage"
	"flipbook/pkg/store"
)

// DefaultMaxFileBytes caps a single upload at 150 MB, checked before any
// network use.
const DefaultMaxFileBytes int64 = 150 << 20

// Stage labels identify which step of the pipeline a failure belongs to.
type Stage string

const (
	StageSizeCheck   Stage = "size_check"
	StageParse       Stage = "parse"
	StageCover       Stage = "cover"
	StageUpload      Stage = "upload"
	StageCoverUpload Stage = "cover_upload"
	StageMetadata    Stage = "metadata"
)

// StageError attributes a failure to one file and one pipeline stage.
type StageError struct {
	Filename string
	Stage    Stage
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("upload %q: stage %s: %v", e.Filename, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Document is what the parser hands back for one file: a page-addressable
// handle that can also render its first page as a cover.
type Document interface {
	library.Handle
	RenderCover(ctx context.Context) ([]byte, error)
}

// Parser parses raw local bytes without touching the network.
type Parser interface {
	Parse(data []byte) (Document, error)
}

// PDFParser is the production Parser backed by pdfdoc.
type PDFParser struct{}

// Parse implements Parser.
func (PDFParser) Parse(data []byte) (Document, error) {
	return pdfdoc.Parse(data)
}

// File is one raw input file.
type File struct {
	Name string
	Data []byte
}

// Confirmed is one fully uploaded and persisted book, still carrying the
// parsed handle so the library does not re-fetch a book right after upload.
type Confirmed struct {
	Book   domain.Book
	Handle library.Handle
}

// Progress is invoked as each file enters a stage. index is 1-based.
type Progress func(index, total int, stage Stage)

// Pipeline wires the ingestion stages to their collaborators.
type Pipeline struct {
	store    store.Store
	objects  storage.ObjectStore
	parser   Parser
	manager  *library.Manager
	maxBytes int64
	logger   *slog.Logger
}

// Config holds pipeline dependencies. Parser and MaxFileBytes default when
// zero; the rest are required.
type Config struct {
	Store        store.Store
	Objects      storage.ObjectStore
	Manager      *library.Manager
	Parser       Parser
	MaxFileBytes int64
	Logger       *slog.Logger
}

// New constructs the pipeline.
func New(cfg Config) *Pipeline {
	parser := cfg.Parser
	if parser == nil {
		parser = PDFParser{}
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    cfg.Store,
		objects:  cfg.Objects,
		parser:   parser,
		manager:  cfg.Manager,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Run processes the batch strictly one file at a time. The first fatal
// failure aborts the remaining files. Already-confirmed files stay
// persisted; they are merged into the library manager only when the whole
// batch succeeds, and the confirmed list is always returned so the caller
// can drive follow-up workflows (category assignment).
func (p *Pipeline) Run(ctx context.Context, files []File, progress Progress) ([]Confirmed, error) {
	if progress == nil {
		progress = func(int, int, Stage) {}
	}
	total := len(files)
	confirmed := make([]Confirmed, 0, total)
	for i, f := range files {
		c, err := p.runOne(ctx, i+1, total, f, progress)
		if err != nil {
			return confirmed, err
		}
		confirmed = append(confirmed, c)
	}
	if p.manager != nil {
		books := make([]domain.Book, 0, len(confirmed))
		handles := make(map[string]library.Handle, len(confirmed))
		for _, c := range confirmed {
			books = append(books, c.Book)
			handles[c.Book.ID] = c.Handle
		}
		p.manager.AddBatch(books, handles)
	}
	return confirmed, nil
}

func (p *Pipeline) runOne(ctx context.Context, index, total int, f File, progress Progress) (Confirmed, error) {
	fail := func(stage Stage, err error) (Confirmed, error) {
		return Confirmed{}, &StageError{Filename: f.Name, Stage: stage, Err: err}
	}

	// 1. size check, before any network effect
	progress(index, total, StageSizeCheck)
	if size := int64(len(f.Data)); size > p.maxBytes {
		return fail(StageSizeCheck, fmt.Errorf("file is %d bytes, cap is %d", size, p.maxBytes))
	}

	// 2. parse local bytes
	progress(index, total, StageParse)
	doc, err := p.parser.Parse(f.Data)
	if err != nil {
		return fail(StageParse, err)
	}

	// 3. cover extraction; a cover is mandatory for list display
	progress(index, total, StageCover)
	coverJPEG, err := doc.RenderCover(ctx)
	if err != nil {
		return fail(StageCover, err)
	}
	inlineCover := pdfdoc.InlineCover(coverJPEG)

	// 4. binary upload
	progress(index, total, StageUpload)
	tempID := uuid.NewString()
	pdfKey := path.Join("books", tempID, sanitizeFilename(f.Name))
	pdfURL, err := p.objects.Put(ctx, pdfKey, bytes.NewReader(f.Data), int64(len(f.Data)), "application/pdf")
	if err != nil {
		return fail(StageUpload, err)
	}

	// 5. cover upload; non-fatal, inline cover is the fallback
	progress(index, total, StageCoverUpload)
	coverURL := inlineCover
	coverKey := path.Join("covers", tempID+"-cover.jpg")
	if url, err := p.objects.Put(ctx, coverKey, bytes.NewReader(coverJPEG), int64(len(coverJPEG)), "image/jpeg"); err != nil {
		p.logger.Warn("cover upload failed, falling back to inline cover", "file", f.Name, "err", err)
	} else {
		coverURL = url
	}

	// 6. metadata persistence; failure leaves the uploaded blobs behind,
	// there is no compensating delete
	progress(index, total, StageMetadata)
	book, err := p.store.InsertBook(ctx, domain.Book{
		Title:            titleFromName(f.Name),
		OriginalFilename: filepath.Base(f.Name),
		PDFURL:           pdfURL,
		CoverURL:         coverURL,
		TotalPages:       doc.PageCount(),
		FileSize:         int64(len(f.Data)),
	})
	if err != nil {
		return fail(StageMetadata, err)
	}

	p.logger.Info("book uploaded",
		"book_id", book.ID,
		"title", book.Title,
		"pages", book.TotalPages,
		"size_bytes", book.FileSize,
	)
	return Confirmed{Book: book, Handle: doc}, nil
}

func titleFromName(name string) string {
	base := filepath.Base(name)
	title := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if title == "" {
		return "Untitled"
	}
	return title
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == ".." {
		return "book.pdf"
	}
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r <= 0x7f {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
				b.WriteRune(r)
				lastUnderscore = false
				continue
			}
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "book.pdf"
	}
	return out
}
