package postgres

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/store"
)

func collectionRows(cols ...*domain.Collection) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "content_id", "owner_id", "parent_id", "collection_type",
		"title", "sharing", "position", "created_at", "updated_at",
	})
	for _, c := range cols {
		var parent any
		if c.ParentID != nil {
			parent = *c.ParentID
		}
		rows.AddRow(
			c.ID, c.ContentID, c.OwnerID, parent, string(c.Type),
			c.Title, string(c.Sharing), c.Position, c.CreatedAt, c.UpdatedAt,
		)
	}
	return rows
}

func testCourse(parentID uuid.UUID, position int) *domain.Collection {
	now := time.Now().UTC()
	pid := parentID
	return &domain.Collection{
		ID:        uuid.New(),
		ContentID: uuid.New(),
		OwnerID:   uuid.New(),
		ParentID:  &pid,
		Type:      domain.TypeCourse,
		Title:     "Course",
		Sharing:   domain.SharingPrivate,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCollectionStoreGetByID(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCollectionStore(db, slog.Default())

	course := testCourse(uuid.New(), 1)
	mock.ExpectQuery(`SELECT .+ FROM collections\s+WHERE id = \$1`).
		WithArgs(course.ID).
		WillReturnRows(collectionRows(course))

	got, err := s.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, got.ID)
	assert.Equal(t, domain.TypeCourse, got.Type)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, *course.ParentID, *got.ParentID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionStoreGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCollectionStore(db, slog.Default())

	id := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM collections\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(collectionRows())

	_, err = s.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrCollectionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionStoreListChildrenOrdered(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCollectionStore(db, slog.Default())

	parentID := uuid.New()
	a := testCourse(parentID, 0)
	b := testCourse(parentID, 1)

	mock.ExpectQuery(`SELECT .+ FROM collections\s+WHERE parent_id = \$1\s+ORDER BY position\s+FOR UPDATE`).
		WithArgs(parentID).
		WillReturnRows(collectionRows(a, b))

	children, err := s.ListChildren(context.Background(), parentID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, a.ID, children[0].ID)
	assert.Equal(t, b.ID, children[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func testShelf(t *testing.T) *domain.Collection {
	t.Helper()
	shelf, err := domain.NewShelf(uuid.New())
	require.NoError(t, err)
	return shelf
}

func TestCollectionStoreCreateShelf(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCollectionStore(db, slog.Default())
	shelf := testShelf(t)

	mock.ExpectExec(`INSERT INTO contents`).
		WithArgs(shelf.ContentID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO collections .+ ON CONFLICT \(owner_id\) WHERE collection_type = 'shelf' DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.CreateShelf(context.Background(), shelf))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionStoreCreateShelfLostRace(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCollectionStore(db, slog.Default())
	shelf := testShelf(t)

	// The concurrent winner's row makes the shelf insert a no-op rather
	// than a unique violation, so the transaction stays usable and the
	// loser's content record is taken back out.
	mock.ExpectExec(`INSERT INTO contents`).
		WithArgs(shelf.ContentID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO collections .+ ON CONFLICT \(owner_id\) WHERE collection_type = 'shelf' DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM contents WHERE id = \$1`).
		WithArgs(shelf.ContentID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.CreateShelf(context.Background(), shelf)
	assert.ErrorIs(t, err, store.ErrShelfExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionStoreLockForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCollectionStore(db, slog.Default())
	id := uuid.New()

	mock.ExpectQuery(`SELECT id FROM collections WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))

	require.NoError(t, s.LockForUpdate(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionStoreLockForUpdateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCollectionStore(db, slog.Default())
	id := uuid.New()

	mock.ExpectQuery(`SELECT id FROM collections WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err = s.LockForUpdate(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrCollectionNotFound)
}

func TestCollectionStoreDeleteRemovesContent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCollectionStore(db, slog.Default())

	id := uuid.New()
	contentID := uuid.New()

	mock.ExpectQuery(`DELETE FROM collections WHERE id = \$1 RETURNING content_id`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"content_id"}).AddRow(contentID))
	mock.ExpectExec(`DELETE FROM contents WHERE id = \$1`).
		WithArgs(contentID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionStoreUpdatePositions(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCollectionStore(db, slog.Default())

	parentID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	mock.ExpectExec(`UPDATE collections\s+SET position = \$1, updated_at = \$2\s+WHERE id = \$3 AND parent_id = \$4`).
		WithArgs(0, sqlmock.AnyArg(), first, parentID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE collections\s+SET position = \$1, updated_at = \$2\s+WHERE id = \$3 AND parent_id = \$4`).
		WithArgs(1, sqlmock.AnyArg(), second, parentID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.UpdatePositions(context.Background(), parentID, []uuid.UUID{first, second})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionStoreUpdatePositionsNonMember(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresCollectionStore(db, slog.Default())

	parentID := uuid.New()
	stranger := uuid.New()

	// The stranger is not under this parent: zero rows touched
	mock.ExpectExec(`UPDATE collections\s+SET position = \$1, updated_at = \$2\s+WHERE id = \$3 AND parent_id = \$4`).
		WithArgs(0, sqlmock.AnyArg(), stranger, parentID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.UpdatePositions(context.Background(), parentID, []uuid.UUID{stranger})
	assert.ErrorIs(t, err, store.ErrCollectionNotFound)
}
