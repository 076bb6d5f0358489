// Package share maps opaque tokens to a book ID or category slug so links
// can be handed out without exposing store internals.
package share

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"flipbook/pkg/domain"
	"flipbook/pkg/store"
)

const (
	tokenLength   = 12
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Service creates and resolves share links.
type Service struct {
	store store.Store
}

// NewService wires the service to the metadata store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create mints a new token for the target and persists it.
func (s *Service) Create(ctx context.Context, linkType domain.LinkType, target string) (domain.ShareLink, error) {
	if target == "" {
		return domain.ShareLink{}, fmt.Errorf("share: target required")
	}
	link := domain.ShareLink{
		Token:     NewToken(tokenLength),
		LinkType:  linkType,
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertShareLink(ctx, link); err != nil {
		return domain.ShareLink{}, fmt.Errorf("share: %w", err)
	}
	return link, nil
}

// Resolve looks a token up. Unknown tokens yield ok=false, not an error.
func (s *Service) Resolve(ctx context.Context, token string) (domain.ShareLink, bool, error) {
	if token == "" {
		return domain.ShareLink{}, false, nil
	}
	link, ok, err := s.store.GetShareLink(ctx, token)
	if err != nil {
		return domain.ShareLink{}, false, fmt.Errorf("share: %w", err)
	}
	return link, ok, nil
}

// NewToken returns a crypto-random alphanumeric token of length n.
func NewToken(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out)
}
