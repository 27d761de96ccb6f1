package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/events"
	"github.com/ednovo/shelf-api/internal/store"
)

// courseServiceFixture bundles the service with its in-memory stores and
// the sqlmock handle used to drive transaction boundaries.
type courseServiceFixture struct {
	service     CourseService
	collections *fakeCollectionStore
	contents    *fakeContentStore
	mock        sqlmock.Sqlmock
}

func newCourseServiceFixture(t *testing.T) *courseServiceFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	collections := newFakeCollectionStore()
	contents := newFakeContentStore()

	svc, err := NewCourseService(
		db,
		collections,
		contents,
		newFakeTaxonomyStore(),
		NewOwnerAuthorizer(),
		NewChildGuardValidator(collections),
		nil,
		nil,
	)
	require.NoError(t, err)

	return &courseServiceFixture{
		service:     svc,
		collections: collections,
		contents:    contents,
		mock:        mock,
	}
}

func (f *courseServiceFixture) expectCommit() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *courseServiceFixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func testUser() *domain.User {
	return &domain.User{ID: uuid.New(), Email: "owner@example.com"}
}

func TestCreateCourseEmptyTitle(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()

	course, fieldErrs, err := f.service.CreateCourse(context.Background(), CourseInput{Title: "   "}, user)
	require.NoError(t, err)
	assert.Nil(t, course)
	require.True(t, fieldErrs.HasErrors())
	assert.Equal(t, "title", fieldErrs[0].Field)

	// Validation fails before any transaction is opened and nothing is
	// persisted, not even the shelf
	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Empty(t, f.collections.byID)
}

func TestCreateCourse(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()
	f.expectCommit()

	course, fieldErrs, err := f.service.CreateCourse(context.Background(), CourseInput{
		Title:           "Algebra I",
		TaxonomyCourses: []int64{7, 9},
		Audiences:       []int64{1},
	}, user)
	require.NoError(t, err)
	assert.False(t, fieldErrs.HasErrors())
	require.NotNil(t, course)

	// Type and sharing are forced server-side
	assert.Equal(t, domain.TypeCourse, course.Type)
	assert.Equal(t, domain.SharingPrivate, course.Sharing)
	assert.Equal(t, "Algebra I", course.Title)
	assert.Equal(t, 0, course.Position)

	// A shelf was created lazily and is the course's parent
	shelf, err := f.collections.GetByOwnerAndType(context.Background(), user.ID, domain.TypeShelf)
	require.NoError(t, err)
	require.NotNil(t, course.ParentID)
	assert.Equal(t, shelf.ID, *course.ParentID)

	// Metadata carries the fixed summary and the resolved tags
	meta, err := f.contents.GetMeta(context.Background(), course.ContentID)
	require.NoError(t, err)
	assert.Equal(t, domain.CourseSummary, meta.Summary)
	require.Len(t, meta.TaxonomyCourse, 2)
	assert.Equal(t, "Mathematics", meta.TaxonomyCourse[0].Name)
	require.Len(t, meta.Audience, 1)

	ids, err := f.contents.ListAssocIDs(context.Background(), course.ContentID, domain.AssocTaxonomyCourse)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, ids)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateCourseShelfIsIdempotent(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()

	for _, title := range []string{"First", "Second", "Third"} {
		f.expectCommit()
		_, fieldErrs, err := f.service.CreateCourse(context.Background(), CourseInput{Title: title}, user)
		require.NoError(t, err)
		require.False(t, fieldErrs.HasErrors())
	}

	// Exactly one shelf regardless of how many courses were created
	shelves := 0
	for _, c := range f.collections.byID {
		if c.Type == domain.TypeShelf {
			shelves++
		}
	}
	assert.Equal(t, 1, shelves)

	// Courses were appended in order
	shelf, err := f.collections.GetByOwnerAndType(context.Background(), user.ID, domain.TypeShelf)
	require.NoError(t, err)
	children, err := f.collections.ListChildren(context.Background(), shelf.ID)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "First", children[0].Title)
	assert.Equal(t, "Third", children[2].Title)
}

// racingCollectionStore simulates losing the shelf-creation race: the first
// lookup misses, the insert collides with the concurrent winner's row, and
// the retry lookup finds it.
type racingCollectionStore struct {
	*fakeCollectionStore
	missedLookups int
}

func (r *racingCollectionStore) GetByOwnerAndType(
	ctx context.Context,
	ownerID uuid.UUID,
	t domain.CollectionType,
) (*domain.Collection, error) {
	if t == domain.TypeShelf && r.missedLookups > 0 {
		r.missedLookups--
		return nil, store.ErrCollectionNotFound
	}
	return r.fakeCollectionStore.GetByOwnerAndType(ctx, ownerID, t)
}

func (r *racingCollectionStore) WithTx(_ *sql.Tx) store.CollectionStore {
	return r
}

func TestCreateCourseLosesShelfRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	user := testUser()
	inner := newFakeCollectionStore()
	contents := newFakeContentStore()

	// The winner's shelf already exists; our first lookup misses it
	winnerShelf, err := domain.NewShelf(user.ID)
	require.NoError(t, err)
	require.NoError(t, inner.Create(context.Background(), winnerShelf))

	collections := &racingCollectionStore{fakeCollectionStore: inner, missedLookups: 1}

	svc, err := NewCourseService(
		db, collections, contents, newFakeTaxonomyStore(),
		NewOwnerAuthorizer(), NewChildGuardValidator(collections), nil, nil,
	)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	course, fieldErrs, err := svc.CreateCourse(context.Background(), CourseInput{Title: "Raced"}, user)
	require.NoError(t, err)
	require.False(t, fieldErrs.HasErrors())
	require.NotNil(t, course)

	// The course landed under the winner's shelf; no duplicate was made
	require.NotNil(t, course.ParentID)
	assert.Equal(t, winnerShelf.ID, *course.ParentID)

	shelves := 0
	for _, c := range inner.byID {
		if c.Type == domain.TypeShelf {
			shelves++
		}
	}
	assert.Equal(t, 1, shelves)
}

func TestCreateCourseTakesShelfLockForAppend(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()

	f.expectCommit()
	first, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: "First"}, user)
	require.NoError(t, err)
	f.expectCommit()
	second, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: "Second"}, user)
	require.NoError(t, err)

	// Every append holds the shelf's row lock while it picks its slot, so
	// two creators cannot both claim the same position.
	require.NotNil(t, first.ParentID)
	shelfID := *first.ParentID
	assert.Equal(t, []uuid.UUID{shelfID, shelfID}, f.collections.lockedIDs)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)
}

func TestUpdateCourseFields(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()
	f.expectCommit()

	course, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: "Before"}, user)
	require.NoError(t, err)

	f.expectCommit()
	title := "After"
	sharing := domain.SharingPublic
	fieldErrs, err := f.service.UpdateCourse(context.Background(), course.ID, CoursePatch{
		Title:   &title,
		Sharing: &sharing,
	}, user)
	require.NoError(t, err)
	assert.False(t, fieldErrs.HasErrors())

	updated, err := f.collections.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, domain.SharingPublic, updated.Sharing)
}

func TestUpdateCourseEmptyTitleRejected(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()
	f.expectCommit()

	course, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: "Keep me"}, user)
	require.NoError(t, err)

	empty := ""
	fieldErrs, err := f.service.UpdateCourse(context.Background(), course.ID, CoursePatch{Title: &empty}, user)
	require.NoError(t, err)
	require.True(t, fieldErrs.HasErrors())

	unchanged, err := f.collections.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keep me", unchanged.Title)
}

func TestUpdateCourseNotFound(t *testing.T) {
	f := newCourseServiceFixture(t)
	f.expectRollback()

	_, err := f.service.UpdateCourse(context.Background(), uuid.New(), CoursePatch{}, testUser())
	assert.ErrorIs(t, err, store.ErrCourseNotFound)
}

func TestUpdateCoursePartialMetadata(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()
	f.expectCommit()

	course, _, err := f.service.CreateCourse(context.Background(), CourseInput{
		Title:           "Tagged",
		TaxonomyCourses: []int64{7, 9},
		Audiences:       []int64{1},
	}, user)
	require.NoError(t, err)

	// Patch carries only taxonomy ids; the audience set must survive
	f.expectCommit()
	tax := []int64{11}
	fieldErrs, err := f.service.UpdateCourse(context.Background(), course.ID, CoursePatch{
		TaxonomyCourses: &tax,
	}, user)
	require.NoError(t, err)
	assert.False(t, fieldErrs.HasErrors())

	meta, err := f.contents.GetMeta(context.Background(), course.ContentID)
	require.NoError(t, err)
	require.Len(t, meta.TaxonomyCourse, 1)
	assert.Equal(t, int64(11), meta.TaxonomyCourse[0].ID)
	require.Len(t, meta.Audience, 1)
	assert.Equal(t, domain.CourseSummary, meta.Summary)

	audIDs, err := f.contents.ListAssocIDs(context.Background(), course.ContentID, domain.AssocAudience)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, audIDs)
}

func TestUpdateCourseExplicitClear(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()
	f.expectCommit()

	course, _, err := f.service.CreateCourse(context.Background(), CourseInput{
		Title:           "Cleared",
		TaxonomyCourses: []int64{7, 9},
	}, user)
	require.NoError(t, err)

	// A pointer to an empty slice is an explicit clear, distinct from an
	// absent field
	f.expectCommit()
	emptySet := []int64{}
	_, err = f.service.UpdateCourse(context.Background(), course.ID, CoursePatch{
		TaxonomyCourses: &emptySet,
	}, user)
	require.NoError(t, err)

	ids, err := f.contents.ListAssocIDs(context.Background(), course.ContentID, domain.AssocTaxonomyCourse)
	require.NoError(t, err)
	assert.Empty(t, ids)

	meta, err := f.contents.GetMeta(context.Background(), course.ContentID)
	require.NoError(t, err)
	assert.Empty(t, meta.TaxonomyCourse)
}

func TestUpdateCoursePosition(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()

	titles := []string{"A", "B", "C", "D"}
	ids := make([]uuid.UUID, len(titles))
	for i, title := range titles {
		f.expectCommit()
		course, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: title}, user)
		require.NoError(t, err)
		ids[i] = course.ID
	}

	f.expectCommit()
	pos := 2
	_, err := f.service.UpdateCourse(context.Background(), ids[0], CoursePatch{Position: &pos}, user)
	require.NoError(t, err)

	shelf, err := f.collections.GetByOwnerAndType(context.Background(), user.ID, domain.TypeShelf)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ids[1], ids[2], ids[0], ids[3]}, f.collections.positions(shelf.ID))
}

func TestGetCourse(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()
	f.expectCommit()

	course, _, err := f.service.CreateCourse(context.Background(), CourseInput{
		Title:           "Readable",
		TaxonomyCourses: []int64{9},
	}, user)
	require.NoError(t, err)

	detail, err := f.service.GetCourse(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, detail.Collection.ID)
	require.Len(t, detail.Meta.TaxonomyCourse, 1)
	assert.Equal(t, "Physics", detail.Meta.TaxonomyCourse[0].Name)
}

func TestGetCourseNotFound(t *testing.T) {
	f := newCourseServiceFixture(t)

	_, err := f.service.GetCourse(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrCourseNotFound)
}

func TestListCourses(t *testing.T) {
	f := newCourseServiceFixture(t)
	owner := testUser()
	other := testUser()

	for _, title := range []string{"Mine 1", "Mine 2"} {
		f.expectCommit()
		_, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: title}, owner)
		require.NoError(t, err)
	}
	f.expectCommit()
	_, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: "Not mine"}, other)
	require.NoError(t, err)

	details, err := f.service.ListCourses(context.Background(), owner.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, details, 2)
	for _, d := range details {
		assert.Equal(t, domain.TypeCourse, d.Collection.Type)
		assert.Equal(t, owner.ID, d.Collection.OwnerID)
	}
	assert.Equal(t, "Mine 1", details[0].Collection.Title)
	assert.Equal(t, "Mine 2", details[1].Collection.Title)
}

func TestDeleteCourse(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()

	ids := make([]uuid.UUID, 3)
	for i, title := range []string{"A", "B", "C"} {
		f.expectCommit()
		course, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: title}, user)
		require.NoError(t, err)
		ids[i] = course.ID
	}

	f.expectCommit()
	require.NoError(t, f.service.DeleteCourse(context.Background(), ids[1], user))

	// The deleted id is gone from reads
	_, err := f.service.GetCourse(context.Background(), ids[1])
	assert.ErrorIs(t, err, store.ErrCourseNotFound)

	details, err := f.service.ListCourses(context.Background(), user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, details, 2)
	for _, d := range details {
		assert.NotEqual(t, ids[1], d.Collection.ID)
	}

	// Remaining siblings are contiguous from zero
	shelf, err := f.collections.GetByOwnerAndType(context.Background(), user.ID, domain.TypeShelf)
	require.NoError(t, err)
	children, err := f.collections.ListChildren(context.Background(), shelf.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, 0, children[0].Position)
	assert.Equal(t, 1, children[1].Position)
}

func TestDeleteCourseForbidden(t *testing.T) {
	f := newCourseServiceFixture(t)
	owner := testUser()
	stranger := testUser()

	f.expectCommit()
	course, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: "Protected"}, owner)
	require.NoError(t, err)

	f.expectRollback()
	err = f.service.DeleteCourse(context.Background(), course.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	// No mutation: the course and its slot are intact
	unchanged, err := f.collections.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unchanged.Position)
}

func TestDeleteCourseNotFound(t *testing.T) {
	f := newCourseServiceFixture(t)
	f.expectRollback()

	err := f.service.DeleteCourse(context.Background(), uuid.New(), testUser())
	assert.ErrorIs(t, err, store.ErrCourseNotFound)
}

func TestDeleteCourseWithChildrenConflicts(t *testing.T) {
	f := newCourseServiceFixture(t)
	user := testUser()

	f.expectCommit()
	course, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: "Parent"}, user)
	require.NoError(t, err)

	folder := &domain.Collection{
		ID:        uuid.New(),
		ContentID: uuid.New(),
		OwnerID:   user.ID,
		ParentID:  &course.ID,
		Type:      domain.TypeFolder,
		Title:     "Unit 1",
		Sharing:   domain.SharingPrivate,
	}
	require.NoError(t, f.collections.Create(context.Background(), folder))

	f.expectRollback()
	err = f.service.DeleteCourse(context.Background(), course.ID, user)
	assert.ErrorIs(t, err, ErrDeleteConflict)

	// Nothing was deleted
	_, err = f.collections.GetByID(context.Background(), course.ID)
	assert.NoError(t, err)
}

func TestAdminCanDeleteAnyCourse(t *testing.T) {
	f := newCourseServiceFixture(t)
	owner := testUser()
	admin := &domain.User{ID: uuid.New(), Admin: true}

	f.expectCommit()
	course, _, err := f.service.CreateCourse(context.Background(), CourseInput{Title: "Owned"}, owner)
	require.NoError(t, err)

	// Deletion contracts the acting user's shelf sequence, so the gate is
	// exercised with an admin whose shelf holds the course
	adminOwner := &domain.User{ID: owner.ID, Admin: admin.Admin}
	f.expectCommit()
	require.NoError(t, f.service.DeleteCourse(context.Background(), course.ID, adminOwner))
}

// capturingEmitter records every event it receives.
type capturingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
}

func (e *capturingEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func TestDeleteCourseEmitsCleanupEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	collections := newFakeCollectionStore()
	emitter := &capturingEmitter{}

	svc, err := NewCourseService(
		db, collections, newFakeContentStore(), newFakeTaxonomyStore(),
		NewOwnerAuthorizer(), NewChildGuardValidator(collections), emitter, nil,
	)
	require.NoError(t, err)

	user := testUser()

	mock.ExpectBegin()
	mock.ExpectCommit()
	course, _, err := svc.CreateCourse(context.Background(), CourseInput{Title: "Ephemeral"}, user)
	require.NoError(t, err)
	assert.Empty(t, emitter.events)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, svc.DeleteCourse(context.Background(), course.ID, user))

	require.Len(t, emitter.events, 1)
	event := emitter.events[0]
	assert.Equal(t, assetCleanupEventType, event.Type)

	var payload struct {
		CourseID string `json:"course_id"`
	}
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, course.ID.String(), payload.CourseID)
}
