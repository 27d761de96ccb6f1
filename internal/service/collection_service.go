package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/platform/logger"
	"github.com/ednovo/shelf-api/internal/store"
)

// CollectionService provides the generic hierarchy operations shared by all
// collection kinds: structural create with parent linkage and sequence
// append, field updates, lookups, and structural delete. Course-specific
// orchestration composes this service rather than talking to the stores
// directly.
type CollectionService struct {
	collections store.CollectionStore
	contents    store.ContentStore
	logger      *slog.Logger
}

// NewCollectionService creates a CollectionService over the given stores.
func NewCollectionService(
	collections store.CollectionStore,
	contents store.ContentStore,
	logger *slog.Logger,
) *CollectionService {
	if collections == nil {
		panic("collections store cannot be nil")
	}
	if contents == nil {
		panic("contents store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CollectionService{
		collections: collections,
		contents:    contents,
		logger:      logger.With(slog.String("component", "collection_service")),
	}
}

// WithTx returns a CollectionService bound to the provided transaction.
func (s *CollectionService) WithTx(tx *sql.Tx) *CollectionService {
	return &CollectionService{
		collections: s.collections.WithTx(tx),
		contents:    s.contents.WithTx(tx),
		logger:      s.logger,
	}
}

// Create persists a new node together with its backing content record. A
// parented node is appended at the end of its parent's sequence; a root
// node (shelf) keeps position zero. The parent row is locked before the
// append position is computed, so two concurrent appends under the same
// parent cannot both claim the same slot.
func (s *CollectionService) Create(ctx context.Context, c *domain.Collection) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if c.ParentID != nil {
		if err := s.collections.LockForUpdate(ctx, *c.ParentID); err != nil {
			return fmt.Errorf("failed to lock parent %s: %w", *c.ParentID, err)
		}
		count, err := s.collections.CountChildren(ctx, *c.ParentID)
		if err != nil {
			return fmt.Errorf("failed to count siblings under %s: %w", *c.ParentID, err)
		}
		c.Position = count
	}

	if err := s.contents.CreateContent(ctx, c.ContentID); err != nil {
		return fmt.Errorf("failed to create content record: %w", err)
	}

	if err := s.collections.Create(ctx, c); err != nil {
		return err
	}

	log.Debug("collection node created",
		slog.String("collection_id", c.ID.String()),
		slog.String("collection_type", string(c.Type)),
		slog.Int("position", c.Position))
	return nil
}

// Update persists changes to the node's mutable fields.
func (s *CollectionService) Update(ctx context.Context, c *domain.Collection) error {
	c.Touch()
	return s.collections.Update(ctx, c)
}

// Delete removes the node and its backing content record. The caller is
// responsible for contracting the parent sequence first.
func (s *CollectionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.collections.Delete(ctx, id)
}

// GetByID retrieves a node by its ID.
func (s *CollectionService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error) {
	return s.collections.GetByID(ctx, id)
}

// GetByIDAndType retrieves a node by ID, requiring the given type.
func (s *CollectionService) GetByIDAndType(
	ctx context.Context,
	id uuid.UUID,
	t domain.CollectionType,
) (*domain.Collection, error) {
	return s.collections.GetByIDAndType(ctx, id, t)
}

// GetByOwnerAndType retrieves the single node of the given type owned by
// the given party.
func (s *CollectionService) GetByOwnerAndType(
	ctx context.Context,
	ownerID uuid.UUID,
	t domain.CollectionType,
) (*domain.Collection, error) {
	return s.collections.GetByOwnerAndType(ctx, ownerID, t)
}
