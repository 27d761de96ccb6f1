package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/domain"
)

// ContentStore defines the interface for content record and metadata
// persistence, including the taxonomy/audience association rows that the
// metadata engine reconciles.
type ContentStore interface {
	// CreateContent persists the content record backing a collection.
	// Content is owned exclusively by its collection; they are created
	// together and the content is never deleted independently.
	CreateContent(ctx context.Context, contentID uuid.UUID) error

	// GetMeta retrieves the metadata bag for the given content.
	// Returns ErrContentMetaNotFound if no metadata record exists.
	GetMeta(ctx context.Context, contentID uuid.UUID) (*domain.ContentMeta, error)

	// SaveMeta creates or replaces the metadata bag for the given content.
	SaveMeta(ctx context.Context, meta *domain.ContentMeta) error

	// DeleteAssocs removes all association rows of the given kind for the
	// content. Deleting zero rows is not an error; an explicit clear of an
	// already-empty set is a valid request.
	DeleteAssocs(ctx context.Context, contentID uuid.UUID, kind domain.AssocKind) error

	// SaveAssocs persists one association row per id as a single batch.
	SaveAssocs(ctx context.Context, contentID uuid.UUID, kind domain.AssocKind, ids []int64) error

	// ListAssocIDs returns the ids currently associated with the content
	// for the given kind.
	ListAssocIDs(ctx context.Context, contentID uuid.UUID, kind domain.AssocKind) ([]int64, error)

	// WithTx returns a new ContentStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ContentStore
}

// TaxonomyStore resolves external classification ids to their canonical
// entities. The reference tables are read-only from this service's
// perspective.
type TaxonomyStore interface {
	// GetTaxonomyCourses resolves taxonomy course ids, preserving input
	// order. Unknown ids are skipped, not errors.
	GetTaxonomyCourses(ctx context.Context, ids []int64) ([]domain.TaxonomyCourse, error)

	// GetAudiences resolves audience ids, preserving input order.
	// Unknown ids are skipped, not errors.
	GetAudiences(ctx context.Context, ids []int64) ([]domain.Audience, error)

	// WithTx returns a new TaxonomyStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaxonomyStore
}
