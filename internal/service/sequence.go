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

// SequenceManager maintains the ordered position list of sibling collections
// under one parent. Positions are always rewritten contiguous from zero, so
// no gaps or duplicates can survive an operation. Operations take the
// parent's row lock first, so resequences and appends under the same parent
// serialize.
//
// Both operations are defined only over true members of the parent's
// sequence; calling them for a non-member returns ErrNotSequenceMember.
type SequenceManager struct {
	collections store.CollectionStore
	logger      *slog.Logger
}

// NewSequenceManager creates a SequenceManager over the given collection store.
func NewSequenceManager(collections store.CollectionStore, logger *slog.Logger) *SequenceManager {
	if collections == nil {
		panic("collections store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SequenceManager{
		collections: collections,
		logger:      logger.With(slog.String("component", "sequence_manager")),
	}
}

// WithTx returns a SequenceManager bound to the provided transaction.
func (m *SequenceManager) WithTx(tx *sql.Tx) *SequenceManager {
	return &SequenceManager{
		collections: m.collections.WithTx(tx),
		logger:      m.logger,
	}
}

// Move relocates one child to newPosition within its parent's ordered list,
// shifting the intervening siblings by one slot. Relative order among all
// other siblings is preserved. newPosition is clamped into the valid range.
func (m *SequenceManager) Move(ctx context.Context, parentID, childID uuid.UUID, newPosition int) error {
	log := logger.FromContextOrDefault(ctx, m.logger)

	if err := m.collections.LockForUpdate(ctx, parentID); err != nil {
		return fmt.Errorf("failed to lock parent %s: %w", parentID, err)
	}

	children, err := m.collections.ListChildren(ctx, parentID)
	if err != nil {
		return fmt.Errorf("failed to load sequence for parent %s: %w", parentID, err)
	}

	current := indexOf(children, childID)
	if current < 0 {
		return fmt.Errorf("%w: child %s under parent %s", ErrNotSequenceMember, childID, parentID)
	}

	if newPosition < 0 {
		newPosition = 0
	}
	if newPosition > len(children)-1 {
		newPosition = len(children) - 1
	}

	if newPosition == current {
		log.Debug("child already at requested position",
			slog.String("child_id", childID.String()),
			slog.Int("position", newPosition))
		return nil
	}

	ordered := make([]uuid.UUID, 0, len(children))
	for _, c := range children {
		if c.ID == childID {
			continue
		}
		ordered = append(ordered, c.ID)
	}
	ordered = append(ordered[:newPosition], append([]uuid.UUID{childID}, ordered[newPosition:]...)...)

	if err := m.collections.UpdatePositions(ctx, parentID, ordered); err != nil {
		return fmt.Errorf("failed to rewrite sequence for parent %s: %w", parentID, err)
	}

	log.Debug("child moved within sequence",
		slog.String("parent_id", parentID.String()),
		slog.String("child_id", childID.String()),
		slog.Int("from", current),
		slog.Int("to", newPosition))
	return nil
}

// Remove contracts the sequence by taking one child's slot out and shifting
// every later sibling back by one. It does not delete the child itself; the
// structural delete is the caller's next step.
func (m *SequenceManager) Remove(ctx context.Context, parentID, childID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, m.logger)

	if err := m.collections.LockForUpdate(ctx, parentID); err != nil {
		return fmt.Errorf("failed to lock parent %s: %w", parentID, err)
	}

	children, err := m.collections.ListChildren(ctx, parentID)
	if err != nil {
		return fmt.Errorf("failed to load sequence for parent %s: %w", parentID, err)
	}

	if indexOf(children, childID) < 0 {
		return fmt.Errorf("%w: child %s under parent %s", ErrNotSequenceMember, childID, parentID)
	}

	ordered := make([]uuid.UUID, 0, len(children)-1)
	for _, c := range children {
		if c.ID == childID {
			continue
		}
		ordered = append(ordered, c.ID)
	}

	if err := m.collections.UpdatePositions(ctx, parentID, ordered); err != nil {
		return fmt.Errorf("failed to contract sequence for parent %s: %w", parentID, err)
	}

	log.Debug("child removed from sequence",
		slog.String("parent_id", parentID.String()),
		slog.String("child_id", childID.String()),
		slog.Int("remaining", len(ordered)))
	return nil
}

func indexOf(children []*domain.Collection, id uuid.UUID) int {
	for i, c := range children {
		if c.ID == id {
			return i
		}
	}
	return -1
}
