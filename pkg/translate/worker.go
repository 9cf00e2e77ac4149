package translate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/lipidquant/pkg/metrics"
)

// Worker translates one file in a background goroutine. The driver polls Finished and
// reads Err afterwards.
type Worker struct {
	id         string
	path       string
	format     string
	maxPieceMB int64
	translator Translator
	logger     *zap.Logger
	metrics    *metrics.Metrics

	once     sync.Once
	done     chan struct{}
	finished atomic.Bool

	mu     sync.Mutex
	errStr string
}

// Option configures a Worker
type Option func(*Worker)

// WithFormat sets the raw file format handed to the translator
func WithFormat(format string) Option {
	return func(w *Worker) { w.format = format }
}

// WithMaxPieceMB bounds the size of one translated piece
func WithMaxPieceMB(mb int64) Option {
	return func(w *Worker) { w.maxPieceMB = mb }
}

// WithLogger sets the logger; the job id is attached to every entry
func WithLogger(logger *zap.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics sets the counters the worker updates
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker creates a worker for path
func NewWorker(path string, translator Translator, opts ...Option) *Worker {
	w := &Worker{
		id:         uuid.NewString(),
		path:       path,
		format:     DefaultFormat,
		maxPieceMB: DefaultMaxPieceMB,
		translator: translator,
		logger:     zap.NewNop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("job", w.id), zap.String("file", path))
	return w
}

// ID returns the job id
func (w *Worker) ID() string { return w.id }

// Path returns the file being translated
func (w *Worker) Path() string { return w.path }

// Start launches the translation and returns immediately. Further calls do nothing.
func (w *Worker) Start(ctx context.Context) {
	w.once.Do(func() {
		go w.run(ctx)
	})
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer w.finished.Store(true)

	start := time.Now()
	err := w.translate(ctx)
	if err != nil {
		w.mu.Lock()
		w.errStr = err.Error()
		w.mu.Unlock()
		w.metrics.RecordTranslation("error", time.Since(start))
		w.logger.Error("translation failed", zap.Error(err))
		return
	}
	w.metrics.RecordTranslation("success", time.Since(start))
	w.logger.Info("translation finished", zap.Duration("duration", time.Since(start)))
}

func (w *Worker) translate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("translator panicked: %v", r)
		}
	}()

	pieces, err := Pieces(w.path, w.maxPieceMB)
	if err != nil {
		return err
	}
	w.logger.Info("translating", zap.String("format", w.format), zap.Int("pieces", pieces))
	return w.translator.Translate(ctx, Job{Path: w.path, Format: w.format, Pieces: pieces})
}

// Finished reports whether the translation is over, successful or not. It never blocks.
func (w *Worker) Finished() bool {
	return w.finished.Load()
}

// Err returns the failure message, empty unless the translation failed
func (w *Worker) Err() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errStr
}

// Wait blocks until the translation is over. It must only be called after Start.
func (w *Worker) Wait() {
	<-w.done
}

// Poll calls Finished every interval until the worker is done or ctx ends
func (w *Worker) Poll(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for !w.Finished() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
