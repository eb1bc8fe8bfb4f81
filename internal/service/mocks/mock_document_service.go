package mocks

import (
	"context"
	"io"

	"activerecord/internal/model"
	"activerecord/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockDocumentService is a testify mock of service.DocumentService.
type MockDocumentService struct {
	mock.Mock
}

var _ service.DocumentService = (*MockDocumentService)(nil)

func (m *MockDocumentService) document(args mock.Arguments) (*model.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error) {
	return m.document(m.Called(ctx, r, originalFilename, contentType, size))
}

func (m *MockDocumentService) List(ctx context.Context, page, perPage int) (*service.DocumentListResult, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	return m.document(m.Called(ctx, id))
}

func (m *MockDocumentService) Rename(ctx context.Context, id, filename string) (*model.Document, error) {
	return m.document(m.Called(ctx, id, filename))
}

func (m *MockDocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
