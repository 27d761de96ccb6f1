package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/events"
	"github.com/ednovo/shelf-api/internal/platform/assets"
)

// AssetCleanupPayload is the event payload for asset cleanup requests.
type AssetCleanupPayload struct {
	CourseID string `json:"course_id"`
}

// CleanupEventHandler turns asset cleanup events into queued tasks. Events
// of other types are ignored so additional handlers can share the emitter.
type CleanupEventHandler struct {
	assets assets.AssetStore
	runner *TaskRunner
	logger *slog.Logger
}

// NewCleanupEventHandler creates a handler submitting to the given runner.
func NewCleanupEventHandler(
	assetStore assets.AssetStore,
	runner *TaskRunner,
	logger *slog.Logger,
) *CleanupEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupEventHandler{
		assets: assetStore,
		runner: runner,
		logger: logger.With(slog.String("component", "cleanup_event_handler")),
	}
}

// HandleEvent implements events.EventHandler.
func (h *CleanupEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeAssetCleanup {
		h.logger.Debug("ignoring event with unsupported type",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
		return nil
	}

	var payload AssetCleanupPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	courseID, err := uuid.Parse(payload.CourseID)
	if err != nil {
		return fmt.Errorf("invalid course ID %q: %w", payload.CourseID, err)
	}

	cleanupTask, err := NewAssetCleanupTask(courseID, h.assets, h.logger)
	if err != nil {
		return fmt.Errorf("failed to create cleanup task: %w", err)
	}

	if err := h.runner.Submit(ctx, cleanupTask); err != nil {
		return fmt.Errorf("failed to submit cleanup task: %w", err)
	}

	h.logger.Info("asset cleanup task submitted",
		slog.String("task_id", cleanupTask.ID().String()),
		slog.String("course_id", courseID.String()),
		slog.String("event_id", event.ID.String()))
	return nil
}
