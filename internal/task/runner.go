package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TaskRunnerConfig holds the runner's tunables.
type TaskRunnerConfig struct {
	// QueueSize is the task queue buffer size. Zero or negative falls back
	// to a small default.
	QueueSize int

	// WorkerCount is the number of concurrent workers. Zero or negative
	// falls back to one worker.
	WorkerCount int

	// TaskTimeout bounds the execution time of a single task. Zero means
	// one minute.
	TaskTimeout time.Duration
}

// TaskRunner drains a bounded queue with a pool of workers. Tasks are
// executed at most once; a failed task is logged and dropped.
type TaskRunner struct {
	queue       *TaskQueue
	workerCount int
	taskTimeout time.Duration
	logger      *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// NewTaskRunner creates a runner. Start must be called before tasks are
// processed.
func NewTaskRunner(cfg TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "task_runner"))

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 10
	}
	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	taskTimeout := cfg.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &TaskRunner{
		queue:       NewTaskQueue(queueSize, logger),
		workerCount: workerCount,
		taskTimeout: taskTimeout,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker goroutines. Calling Start twice is a no-op.
func (r *TaskRunner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.started = true

	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.logger.Info("task runner started", slog.Int("workers", r.workerCount))
}

// Submit queues a task for execution.
func (r *TaskRunner) Submit(_ context.Context, task Task) error {
	return r.queue.Enqueue(task)
}

// Stop closes the queue and waits for the workers to finish the tasks that
// were already buffered.
func (r *TaskRunner) Stop() {
	r.queue.Close()
	r.wg.Wait()
	r.cancel()
	r.logger.Info("task runner stopped")
}

func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	log := r.logger.With(slog.Int("worker", id))
	for task := range r.queue.GetChannel() {
		r.runTask(log, task)
	}
}

func (r *TaskRunner) runTask(log *slog.Logger, task Task) {
	ctx, cancel := context.WithTimeout(r.ctx, r.taskTimeout)
	defer cancel()

	start := time.Now()
	log.Debug("executing task",
		slog.String("task_id", task.ID().String()),
		slog.String("task_type", task.Type()))

	if err := task.Execute(ctx); err != nil {
		log.Error("task execution failed",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID().String()),
			slog.String("task_type", task.Type()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return
	}

	log.Info("task completed",
		slog.String("task_id", task.ID().String()),
		slog.String("task_type", task.Type()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}
