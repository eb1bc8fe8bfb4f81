package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activerecord/internal/database"
	"activerecord/internal/model"
	"activerecord/internal/record"
	"activerecord/internal/repository"
)

var documentColumns = []string{"id", "filename", "storage_path", "size", "content_type", "created_at"}

func newStore(t *testing.T) (*DocumentStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := database.FromSQL(sqlDB, database.DialectPostgres)
	require.NoError(t, err)
	docs, err := record.Register[model.Document](db)
	require.NoError(t, err)
	return NewDocumentStore(docs), mock
}

func TestDocumentStore_Create(t *testing.T) {
	store, mock := newStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &model.Document{
		ID:          "test-uuid",
		Filename:    "test.txt",
		StoragePath: "documents/test.txt",
		Size:        123,
		ContentType: "text/plain",
		CreatedAt:   now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "documents" SET`).
		WithArgs(doc.Filename, doc.StoragePath, doc.Size, doc.ContentType, doc.CreatedAt, doc.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "documents"`).
		WithArgs(doc.ID, doc.Filename, doc.StoragePath, doc.Size, doc.ContentType, doc.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := store.Create(ctx, doc)

	assert.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, doc.ID, result.ID)
	assert.NotSame(t, doc, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_CreateFailureRollsBack(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "documents" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "documents"`).WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	result, err := store.Create(context.Background(), &model.Document{ID: "dup", CreatedAt: time.Now()})

	assert.Nil(t, result)
	assert.ErrorContains(t, err, "insert documents: duplicate key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_FindByID(t *testing.T) {
	store, mock := newStore(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(documentColumns).
			AddRow("test-id", "file.txt", "path/file.txt", 100, "text/plain", time.Now())

		mock.ExpectQuery(`SELECT (.+) FROM "documents" WHERE "id" = \$1 LIMIT 1`).
			WithArgs("test-id").
			WillReturnRows(rows)

		doc, err := store.FindByID(ctx, "test-id")

		assert.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, "test-id", doc.ID)
		assert.Equal(t, int64(100), doc.Size)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM "documents" WHERE "id" = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(documentColumns))

		doc, err := store.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, record.ErrNotFound)
		assert.Nil(t, doc)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_List(t *testing.T) {
	store, mock := newStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	rows := sqlmock.NewRows(documentColumns).
		AddRow("test-id", "file.txt", "path/file.txt", 100, "text/plain", time.Now())
	mock.ExpectQuery(`SELECT (.+) FROM "documents" ORDER BY created_at DESC, id DESC LIMIT 10 OFFSET 10`).
		WillReturnRows(rows)

	res, err := store.List(ctx, repository.PageQuery{Page: 2, PerPage: 10})

	require.NoError(t, err)
	assert.Equal(t, 21, res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 10, res.PerPage)
	assert.Equal(t, 3, res.Pages)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "test-id", res.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_Rename(t *testing.T) {
	store, mock := newStore(t)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		created := time.Now().UTC()
		mock.ExpectQuery(`SELECT (.+) FROM "documents" WHERE "id" = \$1`).
			WithArgs("test-id").
			WillReturnRows(sqlmock.NewRows(documentColumns).
				AddRow("test-id", "old.txt", "documents/old.txt", 5, "text/plain", created))
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "documents" SET "filename" = \$1`).
			WithArgs("new.txt", "documents/old.txt", int64(5), "text/plain", created, "test-id").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		doc, err := store.Rename(ctx, "test-id", "new.txt")

		require.NoError(t, err)
		assert.Equal(t, "new.txt", doc.Filename)
		assert.Equal(t, "documents/old.txt", doc.StoragePath)
	})

	t.Run("missing document", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM "documents" WHERE "id" = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(documentColumns))

		doc, err := store.Rename(ctx, "missing", "new.txt")

		assert.ErrorIs(t, err, record.ErrNotFound)
		assert.Nil(t, doc)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_Delete(t *testing.T) {
	store, mock := newStore(t)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "documents" WHERE "id" = \$1`).
			WithArgs("test-id").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, store.Delete(ctx, "test-id"))
	})

	t.Run("no row is not an error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "documents"`).
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		assert.NoError(t, store.Delete(ctx, "missing"))
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "documents"`).
			WithArgs("test-id").
			WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		err := store.Delete(ctx, "test-id")
		assert.ErrorContains(t, err, "delete documents: db error")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
