package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/platform/logger"
	"github.com/ednovo/shelf-api/internal/store"
)

// PostgresTaxonomyStore implements the store.TaxonomyStore interface over
// the read-only taxonomy_courses and audiences reference tables.
type PostgresTaxonomyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaxonomyStore creates a new PostgreSQL implementation of the
// TaxonomyStore interface. If logger is nil, a default logger will be used.
func NewPostgresTaxonomyStore(db store.DBTX, logger *slog.Logger) *PostgresTaxonomyStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaxonomyStore{
		db:     db,
		logger: logger.With(slog.String("component", "taxonomy_store")),
	}
}

// Ensure PostgresTaxonomyStore implements store.TaxonomyStore interface
var _ store.TaxonomyStore = (*PostgresTaxonomyStore)(nil)

// WithTx implements store.TaxonomyStore.WithTx
func (s *PostgresTaxonomyStore) WithTx(tx *sql.Tx) store.TaxonomyStore {
	return &PostgresTaxonomyStore{
		db:     tx,
		logger: s.logger,
	}
}

// GetTaxonomyCourses implements store.TaxonomyStore.GetTaxonomyCourses
// Results preserve the order of ids; unknown ids are skipped.
func (s *PostgresTaxonomyStore) GetTaxonomyCourses(
	ctx context.Context,
	ids []int64,
) ([]domain.TaxonomyCourse, error) {
	names, err := s.resolve(ctx, `taxonomy_courses`, ids)
	if err != nil {
		return nil, err
	}

	courses := make([]domain.TaxonomyCourse, 0, len(names))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			continue
		}
		courses = append(courses, domain.TaxonomyCourse{ID: id, Name: name})
	}
	return courses, nil
}

// GetAudiences implements store.TaxonomyStore.GetAudiences
// Results preserve the order of ids; unknown ids are skipped.
func (s *PostgresTaxonomyStore) GetAudiences(
	ctx context.Context,
	ids []int64,
) ([]domain.Audience, error) {
	names, err := s.resolve(ctx, `audiences`, ids)
	if err != nil {
		return nil, err
	}

	audiences := make([]domain.Audience, 0, len(names))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			continue
		}
		audiences = append(audiences, domain.Audience{ID: id, Name: name})
	}
	return audiences, nil
}

// resolve fetches id->name for the given reference table.
func (s *PostgresTaxonomyStore) resolve(
	ctx context.Context,
	table string,
	ids []int64,
) (map[int64]string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 {
		return map[int64]string{}, nil
	}

	// table is one of two fixed names, never caller input
	query := `SELECT id, name FROM ` + table + ` WHERE id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, ids)
	if err != nil {
		log.Error("failed to resolve reference ids",
			slog.String("error", err.Error()),
			slog.String("table", table))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	names := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}
