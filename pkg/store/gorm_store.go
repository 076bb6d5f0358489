package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"flipbook/pkg/domain"
)

// Postgres error codes that indicate the caller is not allowed to touch the
// row, as opposed to the request being malformed. 42501 is
// insufficient_privilege (row-level security), 28000 invalid_authorization.
const (
	pgCodeInsufficientPrivilege = "42501"
	pgCodeInvalidAuthorization  = "28000"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&BookModel{}, &ShareLinkModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// ListBooks returns all books ordered newest-first.
func (s *GormStore) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, wrapPGError("list books", err)
	}
	return toDomainBooks(models), nil
}

// ListBooksByCategory returns books in one category, newest-first.
func (s *GormStore) ListBooksByCategory(ctx context.Context, category domain.Category) ([]domain.Book, error) {
	var models []BookModel
	err := s.db.WithContext(ctx).
		Where("category = ?", string(category)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, wrapPGError("list books by category", err)
	}
	return toDomainBooks(models), nil
}

// GetBook retrieves one book by ID.
func (s *GormStore) GetBook(ctx context.Context, id string) (domain.Book, bool, error) {
	var model BookModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Book{}, false, nil
	}
	if err != nil {
		return domain.Book{}, false, wrapPGError("get book", err)
	}
	return model.toDomain(), true, nil
}

// InsertBook assigns the canonical ID and timestamp and persists the record.
func (s *GormStore) InsertBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	if book.TotalPages < 1 {
		return domain.Book{}, fmt.Errorf("%w: total pages %d", ErrInvalidBook, book.TotalPages)
	}
	book.ID = uuid.NewString()
	book.CreatedAt = time.Now().UTC()
	model := bookModelFrom(book)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Book{}, wrapPGError("insert book", err)
	}
	return model.toDomain(), nil
}

// UpdateBook applies a partial update of the mutable fields.
func (s *GormStore) UpdateBook(ctx context.Context, id string, patch domain.BookPatch) error {
	updates := map[string]any{}
	if patch.Category != nil {
		updates["category"] = string(*patch.Category)
	}
	if patch.IsFavorite != nil {
		updates["is_favorite"] = *patch.IsFavorite
	}
	if patch.Summary != nil {
		updates["summary"] = *patch.Summary
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&BookModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return wrapPGError("update book", err)
	}
	return nil
}

// DeleteBook removes the metadata row.
func (s *GormStore) DeleteBook(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&BookModel{}, "id = ?", id).Error; err != nil {
		return wrapPGError("delete book", err)
	}
	return nil
}

// InsertShareLink persists a share token.
func (s *GormStore) InsertShareLink(ctx context.Context, link domain.ShareLink) error {
	model := ShareLinkModel{
		Token:     link.Token,
		LinkType:  string(link.LinkType),
		Target:    link.Target,
		CreatedAt: link.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapPGError("insert share link", err)
	}
	return nil
}

// GetShareLink resolves a share token.
func (s *GormStore) GetShareLink(ctx context.Context, token string) (domain.ShareLink, bool, error) {
	var model ShareLinkModel
	err := s.db.WithContext(ctx).First(&model, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ShareLink{}, false, nil
	}
	if err != nil {
		return domain.ShareLink{}, false, wrapPGError("get share link", err)
	}
	linkType, _ := domain.ParseLinkType(model.LinkType)
	return domain.ShareLink{
		Token:     model.Token,
		LinkType:  linkType,
		Target:    model.Target,
		CreatedAt: model.CreatedAt,
	}, true, nil
}

func toDomainBooks(models []BookModel) []domain.Book {
	books := make([]domain.Book, 0, len(models))
	for _, m := range models {
		books = append(books, m.toDomain())
	}
	return books
}

func wrapPGError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeInsufficientPrivilege, pgCodeInvalidAuthorization:
			return fmt.Errorf("%s: %w: %s", op, ErrPermissionDenied, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
