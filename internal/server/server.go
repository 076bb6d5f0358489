package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"flipbook/internal/library"
	"flipbook/internal/ratelimit"
	"flipbook/internal/share"
	"flipbook/internal/upload"
	"flipbook/internal/usertoken"
	"flipbook/internal/util"
	"flipbook/pkg/ai"
	"flipbook/pkg/cache"
	"flipbook/pkg/domain"
	"flipbook/pkg/store"
)

const (
	summaryExcerptPages = 3
	maxBatchFiles       = 10
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Manager        *library.Manager
	Pipeline       *upload.Pipeline
	Share          *share.Service
	Summarizer     *ai.Summarizer
	SummaryCache   *cache.SummaryCache
	TokenVerifier  *usertoken.Verifier
	SummaryLimiter *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server exposes HTTP endpoints for the flipbook service.
type Server struct {
	manager        *library.Manager
	pipeline       *upload.Pipeline
	share          *share.Service
	summarizer     *ai.Summarizer
	summaryCache   *cache.SummaryCache
	tokenVerifier  *usertoken.Verifier
	summaryLimiter *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	mux            *http.ServeMux
	maxUploadBytes int64
	logger         *slog.Logger
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = upload.DefaultMaxFileBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		manager:        cfg.Manager,
		pipeline:       cfg.Pipeline,
		share:          cfg.Share,
		summarizer:     cfg.Summarizer,
		summaryCache:   cfg.SummaryCache,
		tokenVerifier:  cfg.TokenVerifier,
		summaryLimiter: cfg.SummaryLimiter,
		trustedProxies: cfg.TrustedProxies,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("flipbook", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// books
	s.mux.Handle("/books", s.withUser(s.handleBooks))
	s.mux.Handle("/books/", s.withUser(s.handleBookByID))

	// share links; resolution is public so recipients need no account
	s.mux.Handle("/share", s.withUser(s.handleCreateShare))
	s.mux.HandleFunc("/share/", s.handleResolveShare)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) withUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokenVerifier == nil {
			writeError(w, http.StatusInternalServerError, "auth not configured")
			return
		}
		token := usertoken.BearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if _, err := s.tokenVerifier.VerifySubject(token); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBooks(w, r)
	case http.MethodPost:
		s.handleUploadBooks(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	var books []library.BookRecord
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		category, ok := domain.ParseCategory(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		books = s.manager.BooksByCategory(category)
	} else {
		books = s.manager.Books()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

func (s *Server) handleUploadBooks(w http.ResponseWriter, r *http.Request) {
	// maxUploadBytes is a per-file cap; the request body holds a whole
	// batch, so size it for maxBatchFiles files plus form overhead and
	// leave per-file enforcement to the pipeline's size check.
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes*maxBatchFiles+32<<20)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "at least one file is required (field: files)")
		return
	}
	if len(headers) > maxBatchFiles {
		writeError(w, http.StatusBadRequest, "too many files in one batch")
		return
	}
	files := make([]upload.File, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid form data")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid form data")
			return
		}
		files = append(files, upload.File{Name: header.Filename, Data: data})
	}

	confirmed, err := s.pipeline.Run(r.Context(), files, nil)
	if err != nil {
		s.writeUploadError(w, confirmed, err)
		return
	}
	books := make([]domain.Book, 0, len(confirmed))
	for _, c := range confirmed {
		books = append(books, c.Book)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"items": books,
		"count": len(books),
	})
}

// writeUploadError reports a failed batch: which file broke, at which stage,
// and which earlier files were already persisted before the abort.
func (s *Server) writeUploadError(w http.ResponseWriter, confirmed []upload.Confirmed, err error) {
	status := http.StatusBadRequest
	body := map[string]any{"error": err.Error()}

	var stageErr *upload.StageError
	if errors.As(err, &stageErr) {
		body["failed"] = map[string]string{
			"filename": stageErr.Filename,
			"stage":    string(stageErr.Stage),
		}
		if stageErr.Stage == upload.StageSizeCheck {
			status = http.StatusRequestEntityTooLarge
		}
	}
	if errors.Is(err, store.ErrPermissionDenied) {
		status = http.StatusUnauthorized
		body["error"] = "permission denied by metadata store"
	}
	books := make([]domain.Book, 0, len(confirmed))
	for _, c := range confirmed {
		books = append(books, c.Book)
	}
	body["confirmed"] = books
	writeJSON(w, status, body)
}

// /books/{id}, /books/{id}/pages/{n} or /books/{id}/summary
func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/books/")
	parts := strings.Split(path, "/")
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	switch {
	case len(parts) == 1:
		s.handleBook(w, r, id)
	case len(parts) == 2 && parts[1] == "summary":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleSummary(w, r, id)
	case len(parts) == 3 && parts[1] == "pages":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handlePage(w, r, id, parts[2])
	default:
		notFound(w, "not found")
	}
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		record, ok := s.manager.Get(id)
		if !ok {
			notFound(w, "book not found")
			return
		}
		writeJSON(w, http.StatusOK, record)
	case http.MethodPatch:
		s.handlePatchBook(w, r, id)
	case http.MethodDelete:
		s.manager.Remove(r.Context(), id)
		s.summaryCache.Invalidate(r.Context(), id)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

type patchRequest struct {
	Category   *string `json:"category"`
	IsFavorite *bool   `json:"isFavorite"`
	Summary    *string `json:"summary"`
}

func (s *Server) handlePatchBook(w http.ResponseWriter, r *http.Request, id string) {
	var req patchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	patch := domain.BookPatch{
		IsFavorite: req.IsFavorite,
		Summary:    req.Summary,
	}
	if req.Category != nil {
		category, ok := domain.ParseCategory(*req.Category)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		patch.Category = &category
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, "empty patch")
		return
	}
	if err := s.manager.ApplyMutation(r.Context(), id, patch); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			notFound(w, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	record, ok := s.manager.Get(id)
	if !ok {
		notFound(w, "book not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request, id, rawPage string) {
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		writeError(w, http.StatusBadRequest, "invalid page number")
		return
	}
	handle, err := s.manager.EnsureHydrated(r.Context(), id)
	if err != nil {
		s.writeHydrationError(w, id, err)
		return
	}
	if page > handle.PageCount() {
		notFound(w, "page not found")
		return
	}
	text, err := handle.PageText(page)
	if err != nil {
		notFound(w, "page not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":       page,
		"totalPages": handle.PageCount(),
		"text":       text,
	})
}

func (s *Server) writeHydrationError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		notFound(w, "book not found")
	case errors.Is(err, library.ErrFetch):
		s.logger.Warn("book fetch failed", "book_id", id, "err", err)
		writeError(w, http.StatusBadGateway, "book file unavailable")
	default:
		s.logger.Warn("book hydration failed", "book_id", id, "err", err)
		writeError(w, http.StatusUnprocessableEntity, "book file unreadable")
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, id string) {
	if !s.summaryLimiter.Allow(util.ClientIP(r, s.trustedProxies)) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	record, ok := s.manager.Get(id)
	if !ok {
		notFound(w, "book not found")
		return
	}
	if record.Summary != "" {
		writeJSON(w, http.StatusOK, map[string]string{"summary": record.Summary})
		return
	}
	if summary, ok := s.summaryCache.Get(r.Context(), id); ok {
		writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
		return
	}

	handle, err := s.manager.EnsureHydrated(r.Context(), id)
	if err != nil {
		s.writeHydrationError(w, id, err)
		return
	}
	excerpt := library.Excerpt(handle, summaryExcerptPages, ai.MaxExcerptChars)
	summary, err := s.summarizer.Summarize(r.Context(), excerpt)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.logger.Warn("summary generation failed", "book_id", id, "err", err)
		writeError(w, http.StatusBadGateway, "summary generation failed")
		return
	}
	s.summaryCache.Set(r.Context(), id, summary)
	if err := s.manager.ApplyMutation(r.Context(), id, domain.BookPatch{Summary: &summary}); err != nil {
		s.logger.Warn("summary not saved on book", "book_id", id, "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

type shareRequest struct {
	LinkType string `json:"linkType"`
	Target   string `json:"target"`
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req shareRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	linkType, ok := domain.ParseLinkType(req.LinkType)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid link type")
		return
	}
	if linkType == domain.LinkTypeBook {
		if _, ok := s.manager.Get(req.Target); !ok {
			notFound(w, "book not found")
			return
		}
	}
	link, err := s.share.Create(r.Context(), linkType, req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (s *Server) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	token := strings.TrimPrefix(r.URL.Path, "/share/")
	if token == "" || strings.Contains(token, "/") {
		notFound(w, "not found")
		return
	}
	link, ok, err := s.share.Resolve(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		notFound(w, "share link not found")
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}
