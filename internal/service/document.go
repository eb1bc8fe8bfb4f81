package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"activerecord/internal/model"
	"activerecord/internal/repository"
	"activerecord/internal/storage"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrNotFound         = errors.New("document not found")
	ErrReaderNil        = errors.New("reader is nil")
	ErrFilenameRequired = errors.New("filename is required")
)

const (
	// DefaultPerPage is used when the caller does not ask for a page size.
	DefaultPerPage = 10
	// MaxPerPage caps the page size a caller can request.
	MaxPerPage = 100

	downloadURLExpiry = 15 * time.Minute
)

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items   []model.Document `json:"data"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
	Pages   int              `json:"pages"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload uploads the content to object storage, saves metadata to DB, and rolls back storage if DB save fails.
	// - originalFilename is used only to extract extension; stored filename will be UUID + original extension.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error)

	// List returns one page of documents and the total count. page starts at 1.
	List(ctx context.Context, page, perPage int) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Rename changes the display filename. The stored object is not touched.
	Rename(ctx context.Context, id, filename string) (*model.Document, error)

	// DownloadURL returns a short-lived presigned URL for the document content.
	DownloadURL(ctx context.Context, id string) (string, error)

	// Delete removes a document by ID from both storage and repository.
	Delete(ctx context.Context, id string) error
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	now   func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository) DocumentService {
	return &documentService{store: store, repo: repo, now: time.Now}
}

// notFound translates missing-row errors from the repository.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	ext := filepath.Ext(originalFilename)
	genName := uuid.New().String() + ext
	key := filepath.ToSlash(filepath.Join("documents", genName))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:          uuid.New().String(),
		Filename:    genName,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: objInfo.ContentType,
		CreatedAt:   s.now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Nothing references the object without its row.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %w; rollback delete failed: %w", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, page, perPage int) (*DocumentListResult, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)

	res, err := s.repo.List(ctx, repository.PageQuery{Page: page, PerPage: perPage})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{
		Items:   res.Items,
		Total:   res.Total,
		Page:    res.Page,
		PerPage: res.PerPage,
		Pages:   res.Pages,
	}, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

// Rename trims filename and stores it as the document's display name.
func (s *documentService) Rename(ctx context.Context, id, filename string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, ErrFilenameRequired
	}
	doc, err := s.repo.Rename(ctx, id, filename)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

// DownloadURL presigns a GET for the document's object.
func (s *documentService) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignGet(ctx, doc.StoragePath, downloadURLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", doc.StoragePath, err)
	}
	return url, nil
}

// Delete removes a document from storage, then deletes its record.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	// Storage goes first; a failure keeps the row so the object stays reachable.
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}
