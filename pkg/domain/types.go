package domain

import "time"

// Category is the closed set of library shelves a book can be filed under.
type Category string

const (
	CategoryPhilippines   Category = "philippines"
	CategoryInternal      Category = "internal"
	CategoryInternational Category = "international"
	CategoryPHInterns     Category = "ph_interns"
	CategoryDeseret       Category = "deseret"
)

// ParseCategory validates a raw category value. The empty string is not a
// valid category; "no category" is represented by omitting the field.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryPhilippines, CategoryInternal, CategoryInternational, CategoryPHInterns, CategoryDeseret:
		return Category(s), true
	}
	return "", false
}

// Book is the persisted metadata for one flipbook. The hydrated document
// handle is session-local and lives in the library manager, never here.
type Book struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	OriginalFilename string    `json:"originalFilename"`
	PDFURL           string    `json:"pdfUrl"`
	CoverURL         string    `json:"coverUrl,omitempty"`
	TotalPages       int       `json:"totalPages"`
	FileSize         int64     `json:"fileSize,omitempty"`
	Category         Category  `json:"category,omitempty"`
	IsFavorite       bool      `json:"isFavorite"`
	Summary          string    `json:"summary,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// BookPatch carries a partial update of the mutable book fields.
// Nil pointers mean "leave unchanged"; a pointer to a zero value clears.
type BookPatch struct {
	Category   *Category `json:"category,omitempty"`
	IsFavorite *bool     `json:"isFavorite,omitempty"`
	Summary    *string   `json:"summary,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p BookPatch) IsEmpty() bool {
	return p.Category == nil && p.IsFavorite == nil && p.Summary == nil
}

// LinkType says what a share link points at.
type LinkType string

const (
	LinkTypeBook     LinkType = "book"
	LinkTypeCategory LinkType = "category"
)

// ParseLinkType validates a raw link type value.
func ParseLinkType(s string) (LinkType, bool) {
	switch LinkType(s) {
	case LinkTypeBook, LinkTypeCategory:
		return LinkType(s), true
	}
	return "", false
}

// ShareLink maps an opaque token to a book ID or category slug.
type ShareLink struct {
	Token     string    `json:"token"`
	LinkType  LinkType  `json:"linkType"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"createdAt"`
}
