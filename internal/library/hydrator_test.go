package library

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPHydratorReportsFetchFailureOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	h := NewHTTPHydrator(srv.Client())
	_, err := h.Hydrate(context.Background(), srv.URL+"/books/missing.pdf")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestHTTPHydratorReportsFetchFailureOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	h := NewHTTPHydrator(nil)
	_, err := h.Hydrate(context.Background(), srv.URL+"/books/x.pdf")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestHTTPHydratorReportsParseFailureOnGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("definitely not a pdf"))
	}))
	defer srv.Close()

	h := NewHTTPHydrator(srv.Client())
	_, err := h.Hydrate(context.Background(), srv.URL+"/books/corrupt.pdf")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestHTTPHydratorRejectsBadURL(t *testing.T) {
	h := NewHTTPHydrator(nil)
	_, err := h.Hydrate(context.Background(), "://not-a-url")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}
