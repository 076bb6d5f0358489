package library

import (
	"strings"
	"testing"
)

func TestExcerptUsesFirstPagesOnly(t *testing.T) {
	h := &fakeHandle{pages: 10}
	got := Excerpt(h, 3, 2000)
	want := "text of page 1 text of page 2 text of page 3"
	if got != want {
		t.Fatalf("Excerpt() = %q, want %q", got, want)
	}
}

func TestExcerptHonorsShortDocuments(t *testing.T) {
	h := &fakeHandle{pages: 1}
	if got := Excerpt(h, 3, 2000); got != "text of page 1" {
		t.Fatalf("Excerpt() = %q", got)
	}
}

func TestExcerptCapsLength(t *testing.T) {
	h := &fakeHandle{pages: 500}
	got := Excerpt(h, 500, 100)
	if len(got) > 100 {
		t.Fatalf("excerpt exceeds cap: %d bytes", len(got))
	}
	if got == "" {
		t.Fatal("expected non-empty excerpt")
	}
}

func TestTruncateUTF8KeepsRuneBoundary(t *testing.T) {
	s := "héllo wörld"
	for max := 0; max <= len(s); max++ {
		got := truncateUTF8(s, max)
		if len(got) > max {
			t.Fatalf("truncateUTF8(%q, %d) = %q exceeds cap", s, max, got)
		}
		if !strings.HasPrefix(s, got) {
			t.Fatalf("truncateUTF8(%q, %d) = %q is not a prefix", s, max, got)
		}
	}
	if got := truncateUTF8("héllo", 2); got != "h" {
		t.Fatalf("expected mid-rune cut to back off, got %q", got)
	}
}
