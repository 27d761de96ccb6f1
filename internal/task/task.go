// Package task provides the background task runner: a bounded queue drained
// by a worker pool. It performs deferred cleanup work, currently the removal
// of stored assets after a course is deleted.
package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeAssetCleanup identifies tasks that remove the stored assets of a
// deleted course.
const TaskTypeAssetCleanup = "asset_cleanup"

// Task is a unit of background work.
type Task interface {
	// ID returns the task's unique identifier.
	ID() uuid.UUID

	// Type returns the task type identifier.
	Type() string

	// Status returns the current task status.
	Status() TaskStatus

	// Execute runs the task logic.
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel so workers
// can consume tasks without being able to enqueue.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue.
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue. Returns an error if the queue is
	// full or closed.
	Enqueue(task Task) error

	// Close closes the queue, preventing further submissions.
	Close()
}
