// Package sqlstore implements the repositories on top of record models, so every write
// goes through the request's database session.
package sqlstore

import (
	"context"

	"activerecord/internal/model"
	"activerecord/internal/record"
	"activerecord/internal/repository"
)

// DocumentStore is a repository.DocumentRepository backed by record.Model[model.Document].
type DocumentStore struct {
	docs *record.Model[model.Document]
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(docs *record.Model[model.Document]) *DocumentStore {
	return &DocumentStore{docs: docs}
}

var _ repository.DocumentRepository = (*DocumentStore)(nil)

// Create saves a copy of doc and returns it.
func (s *DocumentStore) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	out := *doc
	if err := s.docs.Save(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single document by its ID.
func (s *DocumentStore) FindByID(ctx context.Context, id string) (*model.Document, error) {
	return s.docs.Get(ctx, id)
}

// List returns documents newest first.
func (s *DocumentStore) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	page, err := s.docs.Query().
		OrderBy("created_at DESC", "id DESC").
		Paginate(ctx, pq.Page, pq.PerPage)
	if err != nil {
		return nil, err
	}

	items := make([]model.Document, 0, len(page.Items))
	for _, d := range page.Items {
		items = append(items, *d)
	}
	return &repository.PageResult[model.Document]{
		Items:   items,
		Total:   page.Total,
		Page:    page.Page,
		PerPage: page.PerPage,
		Pages:   page.Pages(),
	}, nil
}

// Rename updates the filename of an existing document.
func (s *DocumentStore) Rename(ctx context.Context, id, filename string) (*model.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Update(ctx, doc, record.Fields{"filename": filename}); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document by ID.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	return s.docs.Delete(ctx, &model.Document{ID: id})
}
