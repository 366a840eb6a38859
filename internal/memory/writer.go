// Package memory records decisions off the request path and derives
// longitudinal insights from the decision log.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/model"
)

// Write outcomes reported to an Observer.
const (
	WriteStored  = "stored"
	WriteFailed  = "failed"
	WriteDropped = "dropped"
)

// Appender persists decision records.
type Appender interface {
	AppendDecision(ctx context.Context, record model.DecisionRecord) error
}

// Observer is notified of every write outcome.
type Observer interface {
	MemoryWrite(status string)
}

// WriterConfig sizes the worker pool.
type WriterConfig struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

// DefaultWriterConfig returns the default pool configuration.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Workers:      2,
		QueueSize:    256,
		WriteTimeout: 5 * time.Second,
	}
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger sets the logger for dropped and failed writes.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = logger }
}

// WithObserver reports write outcomes to o.
func WithObserver(o Observer) WriterOption {
	return func(w *Writer) { w.observer = o }
}

// Writer is a bounded pool that appends records in the background.
// Submit never blocks and write failures never reach the submitter.
type Writer struct {
	store    Appender
	observer Observer
	logger   *slog.Logger
	queue    chan model.DecisionRecord
	done     chan struct{}
	wg       sync.WaitGroup
	timeout  time.Duration
	mu       sync.RWMutex
	closed   bool
}

// NewWriter starts the worker pool.
func NewWriter(store Appender, cfg WriterConfig, opts ...WriterOption) *Writer {
	defaults := DefaultWriterConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}

	w := &Writer{
		store:   store,
		queue:   make(chan model.DecisionRecord, cfg.QueueSize),
		done:    make(chan struct{}),
		timeout: cfg.WriteTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = common.LoggerOrDefault(w.logger)

	w.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go w.work()
	}
	go func() {
		w.wg.Wait()
		close(w.done)
	}()

	return w
}

// Submit enqueues a record. It returns false when the queue is full or the
// writer is closed; the record is then dropped.
func (w *Writer) Submit(record model.DecisionRecord) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.drop(record, "writer closed")
		return false
	}

	select {
	case w.queue <- record:
		return true
	default:
		w.drop(record, "queue full")
		return false
	}
}

// Close stops accepting records and waits for queued writes to finish or ctx to end.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) work() {
	defer w.wg.Done()
	for record := range w.queue {
		w.write(record)
	}
}

func (w *Writer) write(record model.DecisionRecord) {
	// Writes outlive the request that produced them.
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.store.AppendDecision(ctx, record); err != nil {
		common.LogError(ctx, w.logger, err, "failed to write decision memory",
			common.Fields{"decision_id": record.ID, "business_id": record.BusinessID})
		w.observe(WriteFailed)
		return
	}
	w.observe(WriteStored)
}

func (w *Writer) drop(record model.DecisionRecord, reason string) {
	w.logger.Warn("dropping decision memory write",
		"decision_id", record.ID,
		"business_id", record.BusinessID,
		"reason", reason)
	w.observe(WriteDropped)
}

func (w *Writer) observe(status string) {
	if w.observer != nil {
		w.observer.MemoryWrite(status)
	}
}
