package worker

import (
	"sync"

	"go.uber.org/zap"
)

// BaseWorker carries the lifecycle plumbing shared by all workers.
type BaseWorker struct {
	name     string
	logger   *zap.Logger
	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
}

func NewBaseWorker(name string, logger *zap.Logger) *BaseWorker {
	return &BaseWorker{
		name:     name,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

func (w *BaseWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.logger.Info("Stopping worker", zap.String("name", w.name))
	close(w.stopChan)
	w.stopped = true

	return nil
}

func (w *BaseWorker) IsStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// StopChan fires once Stop has been called.
func (w *BaseWorker) StopChan() <-chan struct{} {
	return w.stopChan
}

func (w *BaseWorker) Logger() *zap.Logger {
	return w.logger
}
