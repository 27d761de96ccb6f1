package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/platform/logger"
	"github.com/ednovo/shelf-api/internal/store"
)

// assocTables maps an association kind to its join table and id column.
var assocTables = map[domain.AssocKind]struct {
	table  string
	column string
}{
	domain.AssocTaxonomyCourse: {"content_taxonomy_course_assoc", "taxonomy_course_id"},
	domain.AssocAudience:       {"content_audience_assoc", "audience_id"},
}

// PostgresContentStore implements the store.ContentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresContentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresContentStore creates a new PostgreSQL implementation of the
// ContentStore interface. If logger is nil, a default logger will be used.
func NewPostgresContentStore(db store.DBTX, logger *slog.Logger) *PostgresContentStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresContentStore{
		db:     db,
		logger: logger.With(slog.String("component", "content_store")),
	}
}

// Ensure PostgresContentStore implements store.ContentStore interface
var _ store.ContentStore = (*PostgresContentStore)(nil)

// WithTx implements store.ContentStore.WithTx
func (s *PostgresContentStore) WithTx(tx *sql.Tx) store.ContentStore {
	return &PostgresContentStore{
		db:     tx,
		logger: s.logger,
	}
}

// CreateContent implements store.ContentStore.CreateContent
func (s *PostgresContentStore) CreateContent(ctx context.Context, contentID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contents (id, created_at) VALUES ($1, $2)`,
		contentID, time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to create content record",
			slog.String("error", err.Error()),
			slog.String("content_id", contentID.String()))
		return MapError(err)
	}

	return nil
}

// GetMeta implements store.ContentStore.GetMeta
// Returns store.ErrContentMetaNotFound if no metadata record exists.
func (s *PostgresContentStore) GetMeta(ctx context.Context, contentID uuid.UUID) (*domain.ContentMeta, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var bag []byte
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT meta, updated_at FROM content_meta WHERE content_id = $1`,
		contentID,
	).Scan(&bag, &updatedAt)
	if err != nil {
		if IsNotFound(err) {
			log.Debug("content meta not found",
				slog.String("content_id", contentID.String()))
			return nil, store.ErrContentMetaNotFound
		}
		log.Error("failed to get content meta",
			slog.String("error", err.Error()),
			slog.String("content_id", contentID.String()))
		return nil, MapError(err)
	}

	meta := &domain.ContentMeta{ContentID: contentID, UpdatedAt: updatedAt}
	if err := meta.UnmarshalBag(bag); err != nil {
		log.Error("failed to decode content meta bag",
			slog.String("error", err.Error()),
			slog.String("content_id", contentID.String()))
		return nil, fmt.Errorf("failed to decode content meta: %w", err)
	}

	return meta, nil
}

// SaveMeta implements store.ContentStore.SaveMeta
// The metadata bag is upserted as a whole; field-level merging is the
// service layer's responsibility.
func (s *PostgresContentStore) SaveMeta(ctx context.Context, meta *domain.ContentMeta) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	bag, err := meta.MarshalBag()
	if err != nil {
		log.Error("failed to encode content meta bag",
			slog.String("error", err.Error()),
			slog.String("content_id", meta.ContentID.String()))
		return fmt.Errorf("failed to encode content meta: %w", err)
	}

	query := `
		INSERT INTO content_meta (content_id, meta, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (content_id) DO UPDATE SET meta = $2, updated_at = $3
	`
	_, err = s.db.ExecContext(ctx, query, meta.ContentID, bag, time.Now().UTC())
	if err != nil {
		log.Error("failed to save content meta",
			slog.String("error", err.Error()),
			slog.String("content_id", meta.ContentID.String()))
		return MapError(err)
	}

	log.Debug("content meta saved", slog.String("content_id", meta.ContentID.String()))
	return nil
}

// DeleteAssocs implements store.ContentStore.DeleteAssocs
// Deleting zero rows is fine; clearing an empty set is a valid request.
func (s *PostgresContentStore) DeleteAssocs(
	ctx context.Context,
	contentID uuid.UUID,
	kind domain.AssocKind,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	t, ok := assocTables[kind]
	if !ok {
		return domain.ErrInvalidAssocKind
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE content_id = $1`, t.table)
	if _, err := s.db.ExecContext(ctx, query, contentID); err != nil {
		log.Error("failed to delete associations",
			slog.String("error", err.Error()),
			slog.String("content_id", contentID.String()),
			slog.String("kind", string(kind)))
		return MapError(err)
	}

	return nil
}

// SaveAssocs implements store.ContentStore.SaveAssocs
// All rows go in as a single multi-row insert.
func (s *PostgresContentStore) SaveAssocs(
	ctx context.Context,
	contentID uuid.UUID,
	kind domain.AssocKind,
	ids []int64,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 {
		return nil
	}

	t, ok := assocTables[kind]
	if !ok {
		return domain.ErrInvalidAssocKind
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, contentID)
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("($1, $%d)", i+2))
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (content_id, %s) VALUES %s`,
		t.table, t.column, strings.Join(placeholders, ", "),
	)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to save associations",
			slog.String("error", err.Error()),
			slog.String("content_id", contentID.String()),
			slog.String("kind", string(kind)),
			slog.Int("count", len(ids)))
		return MapError(err)
	}

	log.Debug("associations saved",
		slog.String("content_id", contentID.String()),
		slog.String("kind", string(kind)),
		slog.Int("count", len(ids)))
	return nil
}

// ListAssocIDs implements store.ContentStore.ListAssocIDs
func (s *PostgresContentStore) ListAssocIDs(
	ctx context.Context,
	contentID uuid.UUID,
	kind domain.AssocKind,
) ([]int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	t, ok := assocTables[kind]
	if !ok {
		return nil, domain.ErrInvalidAssocKind
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE content_id = $1 ORDER BY %s`,
		t.column, t.table, t.column,
	)

	rows, err := s.db.QueryContext(ctx, query, contentID)
	if err != nil {
		log.Error("failed to list association ids",
			slog.String("error", err.Error()),
			slog.String("content_id", contentID.String()),
			slog.String("kind", string(kind)))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if ids == nil {
		ids = []int64{}
	}

	return ids, nil
}
