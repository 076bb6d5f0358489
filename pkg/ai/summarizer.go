// Package ai calls the Google AI Studio (Gemini) API to produce one-line
// book summaries. The service is best-effort: it never blocks core flows,
// and a missing credential is a silent no-op rather than an error surfaced
// to users.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"

	// MaxExcerptChars bounds how much extracted text is sent per request.
	MaxExcerptChars = 2000
)

// ErrNotConfigured is returned when no API key is set. Callers treat it as
// "summaries unavailable", not as a failure.
var ErrNotConfigured = errors.New("ai: summarizer not configured")

// Summarizer generates one-sentence book summaries.
type Summarizer struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option adjusts the summarizer.
type Option func(*Summarizer)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(s *Summarizer) { s.baseURL = strings.TrimRight(url, "/") }
}

// WithModel selects a different Gemini model.
func WithModel(model string) Option {
	return func(s *Summarizer) {
		model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
		if model != "" {
			s.model = model
		}
	}
}

// NewSummarizer builds a client. An empty API key yields a summarizer whose
// Summarize always returns ErrNotConfigured.
func NewSummarizer(apiKey string, opts ...Option) *Summarizer {
	s := &Summarizer{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether an API key is present.
func (s *Summarizer) Configured() bool {
	return s.apiKey != ""
}

// Summarize asks for an extremely concise one-sentence hook (under 25
// words) for a book, given sample text pulled from its first pages. The
// excerpt is truncated to MaxExcerptChars before sending.
func (s *Summarizer) Summarize(ctx context.Context, excerpt string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	excerpt = strings.TrimSpace(excerpt)
	if excerpt == "" {
		return "", errors.New("ai: empty excerpt")
	}
	if len(excerpt) > MaxExcerptChars {
		excerpt = excerpt[:MaxExcerptChars]
	}

	prompt := "Provide an extremely concise one-sentence hook/summary (under 25 words) " +
		"for a book based on this extracted text. Make it sound professional and intriguing: " + excerpt

	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)
	if err := s.doJSON(ctx, url, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("ai: empty response from gemini")
	}
	summary := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if summary == "" {
		return "", errors.New("ai: blank summary from gemini")
	}
	return summary, nil
}

func (s *Summarizer) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("ai: gemini api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("ai: gemini api error: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
