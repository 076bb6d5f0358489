package share

import (
	"context"
	"strings"
	"testing"

	"flipbook/pkg/domain"
	"flipbook/pkg/store"
)

func TestNewTokenShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := NewToken(12)
		if len(token) != 12 {
			t.Fatalf("token length = %d", len(token))
		}
		for _, r := range token {
			if !strings.ContainsRune(tokenAlphabet, r) {
				t.Fatalf("token %q contains %q outside alphabet", token, r)
			}
		}
		if seen[token] {
			t.Fatalf("duplicate token %q after %d draws", token, i)
		}
		seen[token] = true
	}
}

func TestCreateAndResolve(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemoryStore())

	link, err := svc.Create(ctx, domain.LinkTypeCategory, "philippines")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if link.Token == "" || link.LinkType != domain.LinkTypeCategory || link.Target != "philippines" {
		t.Fatalf("unexpected link: %+v", link)
	}

	got, ok, err := svc.Resolve(ctx, link.Token)
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if got.Target != "philippines" {
		t.Fatalf("resolved target = %q", got.Target)
	}
}

func TestResolveUnknownTokenIsNotFound(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	_, ok, err := svc.Resolve(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("expected clean not-found, ok=%v err=%v", ok, err)
	}
}

func TestCreateRequiresTarget(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	if _, err := svc.Create(context.Background(), domain.LinkTypeBook, ""); err == nil {
		t.Fatal("expected error for empty target")
	}
}
