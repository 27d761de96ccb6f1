package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/platform/logger"
	"github.com/ednovo/shelf-api/internal/store"
)

// PostgresCollectionStore implements the store.CollectionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCollectionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCollectionStore creates a new PostgreSQL implementation of the
// CollectionStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCollectionStore(db store.DBTX, logger *slog.Logger) *PostgresCollectionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCollectionStore{
		db:     db,
		logger: logger.With(slog.String("component", "collection_store")),
	}
}

// Ensure PostgresCollectionStore implements store.CollectionStore interface
var _ store.CollectionStore = (*PostgresCollectionStore)(nil)

// WithTx implements store.CollectionStore.WithTx
func (s *PostgresCollectionStore) WithTx(tx *sql.Tx) store.CollectionStore {
	return &PostgresCollectionStore{
		db:     tx,
		logger: s.logger,
	}
}

const collectionColumns = `id, content_id, owner_id, parent_id, collection_type, title, sharing, position, created_at, updated_at`

// scanCollection scans one collection row from the given scanner.
func scanCollection(row interface{ Scan(dest ...any) error }) (*domain.Collection, error) {
	var c domain.Collection
	var parentID uuid.NullUUID
	var collectionType, sharing string

	err := row.Scan(
		&c.ID,
		&c.ContentID,
		&c.OwnerID,
		&parentID,
		&collectionType,
		&c.Title,
		&sharing,
		&c.Position,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		id := parentID.UUID
		c.ParentID = &id
	}
	c.Type = domain.CollectionType(collectionType)
	c.Sharing = domain.Sharing(sharing)

	return &c, nil
}

// GetByID implements store.CollectionStore.GetByID
// Returns store.ErrCollectionNotFound if the collection does not exist.
func (s *PostgresCollectionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + collectionColumns + `
		FROM collections
		WHERE id = $1
	`

	c, err := scanCollection(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNotFound(err) {
			log.Debug("collection not found", slog.String("collection_id", id.String()))
			return nil, store.ErrCollectionNotFound
		}
		log.Error("failed to get collection by ID",
			slog.String("error", err.Error()),
			slog.String("collection_id", id.String()))
		return nil, MapError(err)
	}

	return c, nil
}

// GetByIDAndType implements store.CollectionStore.GetByIDAndType
// A type mismatch is reported the same way as a missing row.
func (s *PostgresCollectionStore) GetByIDAndType(
	ctx context.Context,
	id uuid.UUID,
	t domain.CollectionType,
) (*domain.Collection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + collectionColumns + `
		FROM collections
		WHERE id = $1 AND collection_type = $2
	`

	c, err := scanCollection(s.db.QueryRowContext(ctx, query, id, string(t)))
	if err != nil {
		if IsNotFound(err) {
			log.Debug("collection not found by type",
				slog.String("collection_id", id.String()),
				slog.String("collection_type", string(t)))
			return nil, store.ErrCollectionNotFound
		}
		log.Error("failed to get collection by ID and type",
			slog.String("error", err.Error()),
			slog.String("collection_id", id.String()))
		return nil, MapError(err)
	}

	return c, nil
}

// GetByOwnerAndType implements store.CollectionStore.GetByOwnerAndType
func (s *PostgresCollectionStore) GetByOwnerAndType(
	ctx context.Context,
	ownerID uuid.UUID,
	t domain.CollectionType,
) (*domain.Collection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + collectionColumns + `
		FROM collections
		WHERE owner_id = $1 AND collection_type = $2
	`

	c, err := scanCollection(s.db.QueryRowContext(ctx, query, ownerID, string(t)))
	if err != nil {
		if IsNotFound(err) {
			log.Debug("collection not found by owner and type",
				slog.String("owner_id", ownerID.String()),
				slog.String("collection_type", string(t)))
			return nil, store.ErrCollectionNotFound
		}
		log.Error("failed to get collection by owner and type",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, MapError(err)
	}

	return c, nil
}

// Create implements store.CollectionStore.Create
func (s *PostgresCollectionStore) Create(ctx context.Context, c *domain.Collection) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		log.Warn("collection validation failed during create",
			slog.String("error", err.Error()),
			slog.String("collection_id", c.ID.String()))
		return err
	}

	var parentID uuid.NullUUID
	if c.ParentID != nil {
		parentID = uuid.NullUUID{UUID: *c.ParentID, Valid: true}
	}

	query := `
		INSERT INTO collections (id, content_id, owner_id, parent_id, collection_type, title, sharing, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		c.ID,
		c.ContentID,
		c.OwnerID,
		parentID,
		string(c.Type),
		c.Title,
		string(c.Sharing),
		c.Position,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create collection",
			slog.String("error", err.Error()),
			slog.String("collection_id", c.ID.String()),
			slog.String("collection_type", string(c.Type)))
		return MapError(err)
	}

	log.Info("collection created",
		slog.String("collection_id", c.ID.String()),
		slog.String("collection_type", string(c.Type)),
		slog.String("owner_id", c.OwnerID.String()))
	return nil
}

// CreateShelf implements store.CollectionStore.CreateShelf
// The shelf insert is ON CONFLICT DO NOTHING against the partial unique
// index on (owner_id) for shelves, so losing the creation race never aborts
// the surrounding transaction: the loser's backing content record is removed
// again and store.ErrShelfExists tells the caller to re-read the winner's row.
func (s *PostgresCollectionStore) CreateShelf(ctx context.Context, c *domain.Collection) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if c.Type != domain.TypeShelf {
		return fmt.Errorf("CreateShelf called with collection type %q", c.Type)
	}
	if err := c.Validate(); err != nil {
		log.Warn("shelf validation failed during create",
			slog.String("error", err.Error()),
			slog.String("collection_id", c.ID.String()))
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO contents (id, created_at) VALUES ($1, $2)`,
		c.ContentID, time.Now().UTC(),
	); err != nil {
		log.Error("failed to create shelf content record",
			slog.String("error", err.Error()),
			slog.String("content_id", c.ContentID.String()))
		return MapError(err)
	}

	query := `
		INSERT INTO collections (id, content_id, owner_id, parent_id, collection_type, title, sharing, position, created_at, updated_at)
		VALUES ($1, $2, $3, NULL, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id) WHERE collection_type = 'shelf' DO NOTHING
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		c.ID,
		c.ContentID,
		c.OwnerID,
		string(c.Type),
		c.Title,
		string(c.Sharing),
		c.Position,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create shelf",
			slog.String("error", err.Error()),
			slog.String("collection_id", c.ID.String()))
		return MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		// A concurrent creator won; take the orphaned content row back out
		if _, err := s.db.ExecContext(ctx, `DELETE FROM contents WHERE id = $1`, c.ContentID); err != nil {
			log.Error("failed to remove shelf content record after lost race",
				slog.String("error", err.Error()),
				slog.String("content_id", c.ContentID.String()))
			return MapError(err)
		}
		log.Debug("shelf creation lost the race",
			slog.String("owner_id", c.OwnerID.String()))
		return store.ErrShelfExists
	}

	log.Info("shelf created",
		slog.String("collection_id", c.ID.String()),
		slog.String("owner_id", c.OwnerID.String()))
	return nil
}

// LockForUpdate implements store.CollectionStore.LockForUpdate
// Returns store.ErrCollectionNotFound if the collection does not exist.
func (s *PostgresCollectionStore) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM collections WHERE id = $1 FOR UPDATE`, id,
	).Scan(&locked)
	if err != nil {
		if IsNotFound(err) {
			return store.ErrCollectionNotFound
		}
		return MapError(err)
	}
	return nil
}

// Update implements store.CollectionStore.Update
// Returns store.ErrCollectionNotFound if the collection does not exist.
func (s *PostgresCollectionStore) Update(ctx context.Context, c *domain.Collection) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		log.Warn("collection validation failed during update",
			slog.String("error", err.Error()),
			slog.String("collection_id", c.ID.String()))
		return err
	}

	query := `
		UPDATE collections
		SET title = $1, sharing = $2, position = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		c.Title,
		string(c.Sharing),
		c.Position,
		time.Now().UTC(),
		c.ID,
	)
	if err != nil {
		log.Error("failed to update collection",
			slog.String("error", err.Error()),
			slog.String("collection_id", c.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrCollectionNotFound); err != nil {
		return err
	}

	log.Debug("collection updated", slog.String("collection_id", c.ID.String()))
	return nil
}

// Delete implements store.CollectionStore.Delete
// The backing content record goes with the collection; metadata and
// association rows cascade from the content via foreign keys.
func (s *PostgresCollectionStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var contentID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM collections WHERE id = $1 RETURNING content_id`, id,
	).Scan(&contentID)
	if err != nil {
		if IsNotFound(err) {
			return store.ErrCollectionNotFound
		}
		log.Error("failed to delete collection",
			slog.String("error", err.Error()),
			slog.String("collection_id", id.String()))
		return MapError(err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM contents WHERE id = $1`, contentID); err != nil {
		log.Error("failed to delete backing content",
			slog.String("error", err.Error()),
			slog.String("content_id", contentID.String()))
		return MapError(err)
	}

	log.Info("collection deleted",
		slog.String("collection_id", id.String()),
		slog.String("content_id", contentID.String()))
	return nil
}

// ListChildren implements store.CollectionStore.ListChildren
// Rows are locked FOR UPDATE so two concurrent resequences of the same
// parent serialize at the storage layer.
func (s *PostgresCollectionStore) ListChildren(
	ctx context.Context,
	parentID uuid.UUID,
) ([]*domain.Collection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + collectionColumns + `
		FROM collections
		WHERE parent_id = $1
		ORDER BY position
		FOR UPDATE
	`

	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		log.Error("failed to list children",
			slog.String("error", err.Error()),
			slog.String("parent_id", parentID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var children []*domain.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			log.Error("failed to scan child collection",
				slog.String("error", err.Error()))
			return nil, err
		}
		children = append(children, c)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	if children == nil {
		children = []*domain.Collection{}
	}

	return children, nil
}

// UpdatePositions implements store.CollectionStore.UpdatePositions
// Each listed child gets its index in orderedIDs as its new position.
func (s *PostgresCollectionStore) UpdatePositions(
	ctx context.Context,
	parentID uuid.UUID,
	orderedIDs []uuid.UUID,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE collections
		SET position = $1, updated_at = $2
		WHERE id = $3 AND parent_id = $4
	`

	now := time.Now().UTC()
	for pos, id := range orderedIDs {
		result, err := s.db.ExecContext(ctx, query, pos, now, id, parentID)
		if err != nil {
			log.Error("failed to update position",
				slog.String("error", err.Error()),
				slog.String("collection_id", id.String()),
				slog.Int("position", pos))
			return MapError(err)
		}
		if err := CheckRowsAffected(result, store.ErrCollectionNotFound); err != nil {
			return fmt.Errorf("%w: child %s not under parent %s", store.ErrCollectionNotFound, id, parentID)
		}
	}

	log.Debug("positions rewritten",
		slog.String("parent_id", parentID.String()),
		slog.Int("count", len(orderedIDs)))
	return nil
}

// CountChildren implements store.CollectionStore.CountChildren
func (s *PostgresCollectionStore) CountChildren(ctx context.Context, parentID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE parent_id = $1`, parentID,
	).Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// List implements store.CollectionStore.List
// The parent-type filter joins the parent row, which is how course listings
// are restricted to courses sitting directly under a shelf.
func (s *PostgresCollectionStore) List(
	ctx context.Context,
	filters store.CollectionFilters,
	limit, offset int,
) ([]*domain.Collection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT c.id, c.content_id, c.owner_id, c.parent_id, c.collection_type, c.title, c.sharing, c.position, c.created_at, c.updated_at
		FROM collections c
	`
	var args []any
	var conds []string

	if filters.ParentType != "" {
		query += ` JOIN collections p ON p.id = c.parent_id`
		args = append(args, string(filters.ParentType))
		conds = append(conds, fmt.Sprintf("p.collection_type = $%d", len(args)))
	}
	if filters.Type != "" {
		args = append(args, string(filters.Type))
		conds = append(conds, fmt.Sprintf("c.collection_type = $%d", len(args)))
	}
	if filters.OwnerID != uuid.Nil {
		args = append(args, filters.OwnerID)
		conds = append(conds, fmt.Sprintf("c.owner_id = $%d", len(args)))
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY c.position LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list collections", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var collections []*domain.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			log.Error("failed to scan collection row", slog.String("error", err.Error()))
			return nil, err
		}
		collections = append(collections, c)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	if collections == nil {
		collections = []*domain.Collection{}
	}

	return collections, nil
}
