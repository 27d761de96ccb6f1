package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/domain"
)

// CollectionFilters narrows a List query. Zero-valued fields are ignored.
type CollectionFilters struct {
	// Type restricts results to collections of this type.
	Type domain.CollectionType

	// ParentType restricts results to collections whose parent has this type.
	ParentType domain.CollectionType

	// OwnerID restricts results to collections owned by this party.
	OwnerID uuid.UUID
}

// CollectionStore defines the interface for collection hierarchy persistence.
// It is the structural contract consumed by the generic hierarchy service;
// course-specific orchestration never talks to it directly.
type CollectionStore interface {
	// GetByID retrieves a collection by its unique ID.
	// Returns ErrCollectionNotFound if the collection does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error)

	// GetByIDAndType retrieves a collection by ID, additionally requiring it
	// to be of the given type. Returns ErrCollectionNotFound on a type
	// mismatch as well as on a missing row.
	GetByIDAndType(ctx context.Context, id uuid.UUID, t domain.CollectionType) (*domain.Collection, error)

	// GetByOwnerAndType retrieves the single collection of the given type
	// owned by the given party. Used for shelf resolution.
	// Returns ErrCollectionNotFound if no such collection exists.
	GetByOwnerAndType(ctx context.Context, ownerID uuid.UUID, t domain.CollectionType) (*domain.Collection, error)

	// Create persists a new collection node. The entity carries its parent
	// linkage and position; both must already be assigned by the caller.
	// Shelves go through CreateShelf instead.
	Create(ctx context.Context, c *domain.Collection) error

	// CreateShelf persists the owner's root shelf together with its backing
	// content record. When a concurrent creator already inserted a shelf for
	// the same owner, nothing is written and ErrShelfExists is returned; the
	// surrounding transaction stays usable so the caller can re-read the
	// winner's row.
	CreateShelf(ctx context.Context, c *domain.Collection) error

	// LockForUpdate acquires a row lock on the given collection, held until
	// the surrounding transaction ends. Writers that append under or
	// resequence the same parent take this lock first so their position
	// assignments serialize. Returns ErrCollectionNotFound if the collection
	// does not exist.
	LockForUpdate(ctx context.Context, id uuid.UUID) error

	// Update persists changes to the collection's mutable fields
	// (title, sharing, position). Returns ErrCollectionNotFound if the
	// collection does not exist.
	Update(ctx context.Context, c *domain.Collection) error

	// Delete removes a collection node and its backing content record.
	// Association rows and metadata go with the content via cascading
	// foreign keys. Returns ErrCollectionNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListChildren returns the children of the given parent ordered by
	// position. Rows are locked for update so concurrent resequences of the
	// same parent serialize at the storage layer.
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*domain.Collection, error)

	// UpdatePositions rewrites the position of every listed child to its
	// index in orderedIDs. Callers must pass a complete, gap-free ordering.
	UpdatePositions(ctx context.Context, parentID uuid.UUID, orderedIDs []uuid.UUID) error

	// CountChildren returns the number of children under the given parent.
	CountChildren(ctx context.Context, parentID uuid.UUID) (int, error)

	// List returns collections matching the filters, ordered by position,
	// paginated by limit/offset.
	List(ctx context.Context, filters CollectionFilters, limit, offset int) ([]*domain.Collection, error)

	// WithTx returns a new CollectionStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) CollectionStore
}
