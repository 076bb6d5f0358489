package store

import (
	"time"

	"flipbook/pkg/domain"
)

// GORM models used for persistence.
type BookModel struct {
	ID               string `gorm:"primaryKey"`
	Title            string `gorm:"not null"`
	OriginalFilename string `gorm:"not null"`
	PDFURL           string `gorm:"column:pdf_url;not null"`
	CoverURL         string `gorm:"column:cover_url"`
	TotalPages       int    `gorm:"not null"`
	FileSize         int64
	Category         string    `gorm:"index"`
	IsFavorite       bool      `gorm:"not null;default:false"`
	Summary          string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"not null;index"`
}

type ShareLinkModel struct {
	Token     string    `gorm:"primaryKey"`
	LinkType  string    `gorm:"not null"`
	Target    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (m BookModel) toDomain() domain.Book {
	category, _ := domain.ParseCategory(m.Category)
	return domain.Book{
		ID:               m.ID,
		Title:            m.Title,
		OriginalFilename: m.OriginalFilename,
		PDFURL:           m.PDFURL,
		CoverURL:         m.CoverURL,
		TotalPages:       m.TotalPages,
		FileSize:         m.FileSize,
		Category:         category,
		IsFavorite:       m.IsFavorite,
		Summary:          m.Summary,
		CreatedAt:        m.CreatedAt,
	}
}

func bookModelFrom(b domain.Book) BookModel {
	return BookModel{
		ID:               b.ID,
		Title:            b.Title,
		OriginalFilename: b.OriginalFilename,
		PDFURL:           b.PDFURL,
		CoverURL:         b.CoverURL,
		TotalPages:       b.TotalPages,
		FileSize:         b.FileSize,
		Category:         string(b.Category),
		IsFavorite:       b.IsFavorite,
		Summary:          b.Summary,
		CreatedAt:        b.CreatedAt,
	}
}
