package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/store"
)

// fakeCollectionStore is an in-memory store.CollectionStore. WithTx returns
// the same instance; transaction boundaries are exercised with sqlmock at
// the service level.
type fakeCollectionStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.Collection

	createErr error

	// lockedIDs records every LockForUpdate call in order.
	lockedIDs []uuid.UUID
}

func newFakeCollectionStore() *fakeCollectionStore {
	return &fakeCollectionStore{byID: make(map[uuid.UUID]*domain.Collection)}
}

var _ store.CollectionStore = (*fakeCollectionStore)(nil)

func (f *fakeCollectionStore) clone(c *domain.Collection) *domain.Collection {
	cp := *c
	if c.ParentID != nil {
		pid := *c.ParentID
		cp.ParentID = &pid
	}
	return &cp
}

func (f *fakeCollectionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, store.ErrCollectionNotFound
	}
	return f.clone(c), nil
}

func (f *fakeCollectionStore) GetByIDAndType(
	_ context.Context,
	id uuid.UUID,
	t domain.CollectionType,
) (*domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok || c.Type != t {
		return nil, store.ErrCollectionNotFound
	}
	return f.clone(c), nil
}

func (f *fakeCollectionStore) GetByOwnerAndType(
	_ context.Context,
	ownerID uuid.UUID,
	t domain.CollectionType,
) (*domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.OwnerID == ownerID && c.Type == t {
			return f.clone(c), nil
		}
	}
	return nil, store.ErrCollectionNotFound
}

func (f *fakeCollectionStore) Create(_ context.Context, c *domain.Collection) error {
	if f.createErr != nil {
		return f.createErr
	}
	if err := c.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[c.ID] = f.clone(c)
	return nil
}

func (f *fakeCollectionStore) CreateShelf(_ context.Context, c *domain.Collection) error {
	if f.createErr != nil {
		return f.createErr
	}
	if err := c.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.OwnerID == c.OwnerID && existing.Type == domain.TypeShelf {
			return store.ErrShelfExists
		}
	}
	f.byID[c.ID] = f.clone(c)
	return nil
}

func (f *fakeCollectionStore) LockForUpdate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return store.ErrCollectionNotFound
	}
	f.lockedIDs = append(f.lockedIDs, id)
	return nil
}

func (f *fakeCollectionStore) Update(_ context.Context, c *domain.Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[c.ID]; !ok {
		return store.ErrCollectionNotFound
	}
	f.byID[c.ID] = f.clone(c)
	return nil
}

func (f *fakeCollectionStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return store.ErrCollectionNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeCollectionStore) ListChildren(_ context.Context, parentID uuid.UUID) ([]*domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var children []*domain.Collection
	for _, c := range f.byID {
		if c.ParentID != nil && *c.ParentID == parentID {
			children = append(children, f.clone(c))
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Position < children[j].Position })
	return children, nil
}

func (f *fakeCollectionStore) UpdatePositions(_ context.Context, parentID uuid.UUID, orderedIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pos, id := range orderedIDs {
		c, ok := f.byID[id]
		if !ok || c.ParentID == nil || *c.ParentID != parentID {
			return store.ErrCollectionNotFound
		}
		c.Position = pos
	}
	return nil
}

func (f *fakeCollectionStore) CountChildren(_ context.Context, parentID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.byID {
		if c.ParentID != nil && *c.ParentID == parentID {
			count++
		}
	}
	return count, nil
}

func (f *fakeCollectionStore) List(
	_ context.Context,
	filters store.CollectionFilters,
	limit, offset int,
) ([]*domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*domain.Collection
	for _, c := range f.byID {
		if filters.Type != "" && c.Type != filters.Type {
			continue
		}
		if filters.OwnerID != uuid.Nil && c.OwnerID != filters.OwnerID {
			continue
		}
		if filters.ParentType != "" {
			if c.ParentID == nil {
				continue
			}
			parent, ok := f.byID[*c.ParentID]
			if !ok || parent.Type != filters.ParentType {
				continue
			}
		}
		matched = append(matched, f.clone(c))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Position < matched[j].Position })

	if offset >= len(matched) {
		return []*domain.Collection{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeCollectionStore) WithTx(_ *sql.Tx) store.CollectionStore {
	return f
}

// positions returns the children of parentID as (id, position) pairs
// ordered by position, for asserting sequence invariants.
func (f *fakeCollectionStore) positions(parentID uuid.UUID) []uuid.UUID {
	children, _ := f.ListChildren(context.Background(), parentID)
	ids := make([]uuid.UUID, len(children))
	for i, c := range children {
		ids[i] = c.ID
	}
	return ids
}

// fakeContentStore is an in-memory store.ContentStore.
type fakeContentStore struct {
	mu       sync.Mutex
	contents map[uuid.UUID]bool
	meta     map[uuid.UUID]*domain.ContentMeta
	assocs   map[uuid.UUID]map[domain.AssocKind][]int64
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{
		contents: make(map[uuid.UUID]bool),
		meta:     make(map[uuid.UUID]*domain.ContentMeta),
		assocs:   make(map[uuid.UUID]map[domain.AssocKind][]int64),
	}
}

var _ store.ContentStore = (*fakeContentStore)(nil)

func (f *fakeContentStore) CreateContent(_ context.Context, contentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents[contentID] = true
	return nil
}

func (f *fakeContentStore) GetMeta(_ context.Context, contentID uuid.UUID) (*domain.ContentMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meta[contentID]
	if !ok {
		return nil, store.ErrContentMetaNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeContentStore) SaveMeta(_ context.Context, meta *domain.ContentMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *meta
	f.meta[meta.ContentID] = &cp
	return nil
}

func (f *fakeContentStore) DeleteAssocs(_ context.Context, contentID uuid.UUID, kind domain.AssocKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kinds, ok := f.assocs[contentID]; ok {
		delete(kinds, kind)
	}
	return nil
}

func (f *fakeContentStore) SaveAssocs(_ context.Context, contentID uuid.UUID, kind domain.AssocKind, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assocs[contentID] == nil {
		f.assocs[contentID] = make(map[domain.AssocKind][]int64)
	}
	f.assocs[contentID][kind] = append([]int64(nil), ids...)
	return nil
}

func (f *fakeContentStore) ListAssocIDs(_ context.Context, contentID uuid.UUID, kind domain.AssocKind) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.assocs[contentID][kind]...), nil
}

func (f *fakeContentStore) WithTx(_ *sql.Tx) store.ContentStore {
	return f
}

// fakeTaxonomyStore resolves ids from fixed in-memory reference tables.
type fakeTaxonomyStore struct {
	courses   map[int64]string
	audiences map[int64]string
}

func newFakeTaxonomyStore() *fakeTaxonomyStore {
	return &fakeTaxonomyStore{
		courses: map[int64]string{
			7:  "Mathematics",
			9:  "Physics",
			11: "Chemistry",
		},
		audiences: map[int64]string{
			1: "All students",
			2: "Teachers",
		},
	}
}

var _ store.TaxonomyStore = (*fakeTaxonomyStore)(nil)

func (f *fakeTaxonomyStore) GetTaxonomyCourses(_ context.Context, ids []int64) ([]domain.TaxonomyCourse, error) {
	var out []domain.TaxonomyCourse
	for _, id := range ids {
		if name, ok := f.courses[id]; ok {
			out = append(out, domain.TaxonomyCourse{ID: id, Name: name})
		}
	}
	return out, nil
}

func (f *fakeTaxonomyStore) GetAudiences(_ context.Context, ids []int64) ([]domain.Audience, error) {
	var out []domain.Audience
	for _, id := range ids {
		if name, ok := f.audiences[id]; ok {
			out = append(out, domain.Audience{ID: id, Name: name})
		}
	}
	return out, nil
}

func (f *fakeTaxonomyStore) WithTx(_ *sql.Tx) store.TaxonomyStore {
	return f
}
