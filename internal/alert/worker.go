package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier delivers an alert to an external collaborator such as a sound
// plugin or a dashboard.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, a Alert) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, a Alert) error {
	return f(ctx, a)
}

// Fanout delivers every alert to each notifier in turn and joins the errors.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Worker defaults.
const (
	DefaultQueueSize  = 4
	DefaultJobTimeout = 5 * time.Second
)

// WorkerConfig holds Worker options.
type WorkerConfig struct {
	QueueSize  int
	JobTimeout time.Duration
	Logger     *zap.Logger
}

// Worker runs notifications on a background goroutine so the sampling loop
// never waits for sound or network I/O. Jobs are fire-and-forget: failures
// are logged and never reported back.
type Worker struct {
	notifier Notifier
	queue    chan Alert
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewWorker creates a Worker and starts its goroutine.
func NewWorker(n Notifier, cfg WorkerConfig) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	w := &Worker{
		notifier: n,
		queue:    make(chan Alert, cfg.QueueSize),
		timeout:  cfg.JobTimeout,
		logger:   cfg.Logger,
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit queues a notification job. It never blocks and returns false when
// the queue is full or the worker is closed.
func (w *Worker) Submit(a Alert) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return false
	}

	select {
	case w.queue <- a:
		return true
	default:
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)

	for a := range w.queue {
		if err := w.deliver(a); err != nil {
			w.logger.Warn("notification failed",
				zap.Int("count", a.Count),
				zap.String("level", a.Level.String()),
				zap.Error(err))
		}
	}
}

func (w *Worker) deliver(a Alert) (err error) {
	if w.notifier == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()

	return w.notifier.Notify(ctx, a)
}
