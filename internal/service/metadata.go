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

// MetaEngine reconciles a content record's tag associations against a
// desired id list. The association set is replaced wholesale on every call,
// never diffed: delete-all-then-insert makes the operation idempotent and
// guarantees the returned list reflects the complete current set.
type MetaEngine struct {
	contents store.ContentStore
	taxonomy store.TaxonomyStore
	logger   *slog.Logger
}

// NewMetaEngine creates a MetaEngine over the given stores.
func NewMetaEngine(contents store.ContentStore, taxonomy store.TaxonomyStore, logger *slog.Logger) *MetaEngine {
	if contents == nil {
		panic("contents store cannot be nil")
	}
	if taxonomy == nil {
		panic("taxonomy store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MetaEngine{
		contents: contents,
		taxonomy: taxonomy,
		logger:   logger.With(slog.String("component", "meta_engine")),
	}
}

// WithTx returns a MetaEngine bound to the provided transaction.
func (e *MetaEngine) WithTx(tx *sql.Tx) *MetaEngine {
	return &MetaEngine{
		contents: e.contents.WithTx(tx),
		taxonomy: e.taxonomy.WithTx(tx),
		logger:   e.logger,
	}
}

// Reconcile replaces the content's association set of the given kind with
// the supplied ids. An empty id list is an explicit clear: the existing
// associations are still deleted and an empty result is returned. Unknown
// ids are skipped rather than rejected, mirroring the reference tables'
// read-only lookup contract. The returned tags preserve input order; a
// repeated id counts once, at its first occurrence, so the association
// rows stay unique per (content, id) pair.
func (e *MetaEngine) Reconcile(
	ctx context.Context,
	contentID uuid.UUID,
	kind domain.AssocKind,
	ids []int64,
) ([]domain.MetaTag, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	if !kind.IsValid() {
		return nil, domain.ErrInvalidAssocKind
	}

	if err := e.contents.DeleteAssocs(ctx, contentID, kind); err != nil {
		return nil, fmt.Errorf("failed to clear %s associations: %w", kind, err)
	}

	if len(ids) == 0 {
		log.Debug("association set cleared",
			slog.String("content_id", contentID.String()),
			slog.String("kind", string(kind)))
		return []domain.MetaTag{}, nil
	}

	tags, err := e.resolve(ctx, kind, dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s ids: %w", kind, err)
	}

	if len(tags) > 0 {
		resolved := make([]int64, len(tags))
		for i, t := range tags {
			resolved[i] = t.ID
		}
		if err := e.contents.SaveAssocs(ctx, contentID, kind, resolved); err != nil {
			return nil, fmt.Errorf("failed to save %s associations: %w", kind, err)
		}
	}

	log.Debug("association set reconciled",
		slog.String("content_id", contentID.String()),
		slog.String("kind", string(kind)),
		slog.Int("requested", len(ids)),
		slog.Int("resolved", len(tags)))
	return tags, nil
}

// resolve maps the requested ids to their canonical entities, preserving
// input order and dropping ids the reference tables do not know.
func (e *MetaEngine) resolve(ctx context.Context, kind domain.AssocKind, ids []int64) ([]domain.MetaTag, error) {
	switch kind {
	case domain.AssocTaxonomyCourse:
		courses, err := e.taxonomy.GetTaxonomyCourses(ctx, ids)
		if err != nil {
			return nil, err
		}
		tags := make([]domain.MetaTag, len(courses))
		for i, c := range courses {
			tags[i] = c.MetaTag()
		}
		return tags, nil
	case domain.AssocAudience:
		audiences, err := e.taxonomy.GetAudiences(ctx, ids)
		if err != nil {
			return nil, err
		}
		tags := make([]domain.MetaTag, len(audiences))
		for i, a := range audiences {
			tags[i] = a.MetaTag()
		}
		return tags, nil
	}
	return nil, domain.ErrInvalidAssocKind
}

// dedupe drops repeated ids, keeping each id's first occurrence.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
