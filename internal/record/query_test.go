package record

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activerecord/internal/database"
)

func noteRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "body", "created_at"})
}

func TestQuery_All(t *testing.T) {
	ctx := context.Background()
	db, mock := newTestDB(t, database.DialectPostgres)
	notes := MustRegister[Note](db)
	now := time.Now().UTC()

	t.Run("filters, ordering and paging are rendered in order", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + noteColumns + ` FROM "note" WHERE (title LIKE $1) AND (created_at > $2) ORDER BY created_at DESC, id DESC LIMIT 5 OFFSET 10`)).
			WithArgs("go%", now).
			WillReturnRows(noteRows().AddRow(1, "go one", nil, now).AddRow(2, "go two", "body", now))

		items, err := notes.Query().
			Where("title LIKE ?", "go%").
			Where("created_at > ?", now).
			OrderBy("created_at DESC", "id DESC").
			Limit(5).
			Offset(10).
			All(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "go one", items[0].Title)
		assert.Equal(t, "body", items[1].Body.String)
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + noteColumns + ` FROM "note"`)).WillReturnRows(noteRows())

		items, err := notes.Query().All(ctx)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("builders do not mutate the receiver", func(t *testing.T) {
		base := notes.Query().Where("title = ?", "a")
		_ = base.Where("id > ?", 3).Limit(1)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + noteColumns + ` FROM "note" WHERE title = $1`)).
			WithArgs("a").
			WillReturnRows(noteRows())

		_, err := base.All(ctx)
		require.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_First(t *testing.T) {
	ctx := context.Background()
	db, mock := newTestDB(t, database.DialectMySQL)
	notes := MustRegister[Note](db)
	firstSQL := regexp.QuoteMeta("SELECT `id`, `title`, `body`, `created_at` FROM `note` WHERE title = ? ORDER BY id LIMIT 1")
	q := notes.Query().Where("title = ?", "x").OrderBy("id")

	mock.ExpectQuery(firstSQL).WithArgs("x").WillReturnRows(noteRows().AddRow(4, "x", nil, time.Now()))
	note, err := q.First(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), note.ID)

	mock.ExpectQuery(firstSQL).WithArgs("x").WillReturnRows(noteRows())
	_, err = q.First(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	errMissing := errors.New("missing")
	mock.ExpectQuery(firstSQL).WithArgs("x").WillReturnRows(noteRows())
	_, err = q.FirstOrError(ctx, errMissing)
	assert.ErrorIs(t, err, errMissing)

	mock.ExpectQuery(firstSQL).WithArgs("x").WillReturnRows(noteRows())
	note, err = q.FirstOrElse(ctx, func() (*Note, error) { return &Note{Title: "fallback"}, nil })
	require.NoError(t, err)
	assert.Equal(t, "fallback", note.Title)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_GetKeepsFilters(t *testing.T) {
	ctx := context.Background()
	db, mock := newTestDB(t, database.DialectPostgres)
	notes := MustRegister[Note](db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "note" WHERE (title = $1) AND ("id" = $2) LIMIT 1`)).
		WithArgs("secret", 3).
		WillReturnRows(noteRows())

	_, err := notes.Query().Where("title = ?", "secret").GetOrError(ctx, 3, errors.New("forbidden"))
	assert.EqualError(t, err, "forbidden")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_CountAndExists(t *testing.T) {
	ctx := context.Background()
	db, mock := newTestDB(t, database.DialectSQLite)
	notes := MustRegister[Note](db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "note" WHERE title = ?`)).
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := notes.Query().Where("title = ?", "a").OrderBy("id").Limit(1).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM "note" WHERE title = ? LIMIT 1`)).
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	ok, err := notes.Query().Where("title = ?", "a").Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM "note" WHERE title = ? LIMIT 1`)).
		WithArgs("b").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	ok, err = notes.Query().Where("title = ?", "b").Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("disk I/O error"))
	_, err = notes.Query().Count(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "count note: disk I/O error")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_Paginate(t *testing.T) {
	ctx := context.Background()
	db, mock := newTestDB(t, database.DialectPostgres)
	notes := MustRegister[Note](db)
	now := time.Now().UTC()

	t.Run("second page", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "note"`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
		mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY id LIMIT 10 OFFSET 10`)).
			WillReturnRows(noteRows().AddRow(11, "eleven", nil, now))

		page, err := notes.Query().OrderBy("id").Paginate(ctx, 2, 10)
		require.NoError(t, err)
		assert.Equal(t, 25, page.Total)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 10, page.PerPage)
		assert.Equal(t, 3, page.Pages())
		assert.Len(t, page.Items, 1)
		assert.True(t, page.HasPrev())
		assert.True(t, page.HasNext())
	})

	t.Run("out of range arguments are clamped", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "note"`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM "note" LIMIT 10`)).
			WillReturnRows(noteRows())

		page, err := notes.Query().Paginate(ctx, 0, -5)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, DefaultPerPage, page.PerPage)
		assert.Equal(t, 0, page.Pages())
		assert.False(t, page.HasNext())
		assert.Empty(t, page.Items)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_ReadsSeePendingWrites(t *testing.T) {
	ctx := context.Background()
	db, mock := newTestDB(t, database.DialectPostgres)
	notes := MustRegister[Note](db)
	scoped, s := db.Scope(ctx)

	note := &Note{Title: "draft"}
	require.NoError(t, db.Add(scoped, database.Op{Key: note, Run: func(ctx context.Context, conn database.Conn) error {
		_, err := conn.ExecContext(ctx, `INSERT INTO "note" ("title") VALUES ($1)`, note.Title)
		return err
	}}))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "note"`).WithArgs("draft").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	n, err := notes.Query().Count(scoped)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, s.InTransaction(), "the read runs inside the session transaction")

	require.NoError(t, s.Remove())
	assert.NoError(t, mock.ExpectationsWereMet())
}
