package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/platform/assets"
)

// AssetCleanupTask removes every stored asset under a deleted course's
// prefix. The structural delete has already committed by the time this
// runs, so a failure here leaves orphaned files, not broken data.
type AssetCleanupTask struct {
	id       uuid.UUID
	courseID uuid.UUID
	assets   assets.AssetStore
	logger   *slog.Logger

	mu     sync.Mutex
	status TaskStatus
}

// NewAssetCleanupTask creates a cleanup task for the given course.
func NewAssetCleanupTask(
	courseID uuid.UUID,
	assetStore assets.AssetStore,
	logger *slog.Logger,
) (*AssetCleanupTask, error) {
	if assetStore == nil {
		return nil, fmt.Errorf("asset store cannot be nil")
	}
	if courseID == uuid.Nil {
		return nil, fmt.Errorf("course ID cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AssetCleanupTask{
		id:       uuid.New(),
		courseID: courseID,
		assets:   assetStore,
		logger:   logger.With(slog.String("component", "asset_cleanup_task")),
		status:   TaskStatusPending,
	}, nil
}

// ID implements Task.ID
func (t *AssetCleanupTask) ID() uuid.UUID {
	return t.id
}

// Type implements Task.Type
func (t *AssetCleanupTask) Type() string {
	return TaskTypeAssetCleanup
}

// Status implements Task.Status
func (t *AssetCleanupTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *AssetCleanupTask) setStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

// Execute implements Task.Execute
func (t *AssetCleanupTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)

	if err := t.assets.DeletePrefix(ctx, t.courseID.String()); err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("failed to delete assets for course %s: %w", t.courseID, err)
	}

	t.setStatus(TaskStatusCompleted)
	t.logger.Debug("course assets removed",
		slog.String("course_id", t.courseID.String()))
	return nil
}
