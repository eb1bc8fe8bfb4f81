package repository

import (
	"context"

	"activerecord/internal/model"
)

// DocumentRepository defines data access for documents.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create stores a new document record and returns it as stored.
	// The caller provides the ID and CreatedAt.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID. A missing row yields an error wrapping sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns one page of documents, newest first, and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// Rename changes the filename of a document and returns the updated record.
	Rename(ctx context.Context, id, filename string) (*model.Document, error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds page-number pagination parameters. Page starts at 1.
type PageQuery struct {
	Page    int
	PerPage int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items   []T
	Total   int
	Page    int
	PerPage int
	Pages   int
}
