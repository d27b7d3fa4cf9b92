package mongodb

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/sorter-station-service/internal/domain"
	"github.com/wms-platform/sorter-station-service/pkg/logging"
	"github.com/wms-platform/sorter-station-service/pkg/resilience"
)

// Audit record kinds
const (
	KindItemSorted               = "item_sorted"
	KindGridCompleted            = "grid_completed"
	KindWaveCompleted            = "wave_completed"
	KindSourceContainerCompleted = "source_container_completed"
)

// AuditStore persists batches of audit records
type AuditStore interface {
	InsertBatch(ctx context.Context, records []ScanAuditRecord) error
}

// WriterConfig tunes the background audit writer
type WriterConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// FlushTimeout bounds the final flush after Run's context is cancelled
	FlushTimeout time.Duration
	// Retry governs re-sending a batch that failed with a transient error
	Retry *resilience.RetryConfig
}

// DefaultWriterConfig returns the default writer settings
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BufferSize:    1024,
		BatchSize:     50,
		FlushInterval: time.Second,
		FlushTimeout:  5 * time.Second,
		Retry:         defaultRetryConfig(),
	}
}

func defaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryableErrors = isTransientWriteError
	return cfg
}

// isTransientWriteError reports network errors and timeouts. Record ids are
// generated client side, so a retried batch only collides on duplicate keys
// with rows the failed attempt already stored.
func isTransientWriteError(err error) bool {
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

// ScanAuditWriter buffers audit records and writes them in batches from a
// single goroutine. Record never blocks; records are dropped when the
// buffer is full.
type ScanAuditWriter struct {
	store   AuditStore
	records chan ScanAuditRecord
	config  WriterConfig
	logger  *logging.Logger
	now     func() time.Time

	dropped atomic.Int64
	written atomic.Int64
}

// NewScanAuditWriter creates a new ScanAuditWriter
func NewScanAuditWriter(store AuditStore, config WriterConfig, logger *logging.Logger) *ScanAuditWriter {
	defaults := DefaultWriterConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaults.FlushInterval
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = defaults.FlushTimeout
	}
	if config.Retry == nil {
		config.Retry = defaults.Retry
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ScanAuditWriter{
		store:   store,
		records: make(chan ScanAuditRecord, config.BufferSize),
		config:  config,
		logger:  logger.WithComponent("scan-audit-writer"),
		now:     time.Now,
	}
}

// Record queues the auditable events among events
func (w *ScanAuditWriter) Record(ctx context.Context, events []domain.DomainEvent) {
	for _, event := range events {
		record, ok := toAuditRecord(event)
		if !ok {
			continue
		}
		record.ID = uuid.New().String()
		record.RecordedAt = w.now().UTC()

		select {
		case w.records <- record:
		default:
			w.dropped.Add(1)
			w.logger.WithContext(ctx).Warn("Audit buffer full, record dropped",
				"kind", record.Kind,
				"orderId", record.OrderID,
			)
		}
	}
}

// Run writes queued records until ctx is cancelled, then flushes what is
// still buffered.
func (w *ScanAuditWriter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	w.logger.Info("Starting scan audit writer", "batchSize", w.config.BatchSize, "flushInterval", w.config.FlushInterval)

	batch := make([]ScanAuditRecord, 0, w.config.BatchSize)
	for {
		select {
		case record := <-w.records:
			batch = append(batch, record)
			if len(batch) >= w.config.BatchSize {
				batch = w.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = w.flush(ctx, batch)
		case <-ctx.Done():
			w.drain(batch)
			w.logger.Info("Scan audit writer stopped", "written", w.written.Load(), "dropped", w.dropped.Load())
			return nil
		}
	}
}

func (w *ScanAuditWriter) drain(batch []ScanAuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.FlushTimeout)
	defer cancel()
	for {
		select {
		case record := <-w.records:
			batch = append(batch, record)
			if len(batch) >= w.config.BatchSize {
				batch = w.flush(ctx, batch)
			}
		default:
			w.flush(ctx, batch)
			return
		}
	}
}

// flush writes batch and returns it emptied. Failed batches are logged and
// discarded.
func (w *ScanAuditWriter) flush(ctx context.Context, batch []ScanAuditRecord) []ScanAuditRecord {
	if len(batch) == 0 {
		return batch
	}
	attempts := 0
	err := resilience.Retry(ctx, w.config.Retry, func() error {
		attempts++
		err := w.store.InsertBatch(ctx, batch)
		if err != nil && attempts > 1 && mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		w.dropped.Add(int64(len(batch)))
		w.logger.WithError(err).Error("Failed to write audit batch", "count", len(batch))
	} else {
		w.written.Add(int64(len(batch)))
	}
	return batch[:0]
}

// Dropped returns how many records were lost to a full buffer or a failed write
func (w *ScanAuditWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Written returns how many records were stored
func (w *ScanAuditWriter) Written() int64 {
	return w.written.Load()
}

func toAuditRecord(event domain.DomainEvent) (ScanAuditRecord, bool) {
	switch e := event.(type) {
	case *domain.ItemSortedEvent:
		return ScanAuditRecord{
			Kind:                 KindItemSorted,
			StationID:            e.StationID,
			WorkflowID:           e.WorkflowID,
			SourceContainer:      e.SourceContainer,
			SKU:                  e.SKU,
			GridID:               e.GridID,
			OrderID:              e.OrderID,
			DestinationContainer: e.DestinationContainer,
			ScannedQty:           e.ScannedQty,
			RequiredQty:          e.RequiredQty,
			OccurredAt:           e.SortedAt,
		}, true
	case *domain.GridCompletedEvent:
		return ScanAuditRecord{
			Kind:                 KindGridCompleted,
			StationID:            e.StationID,
			WorkflowID:           e.WorkflowID,
			GridID:               e.GridID,
			OrderID:              e.OrderID,
			DestinationContainer: e.DestinationContainer,
			SortedQuantities:     e.SortedQuantities,
			OccurredAt:           e.CompletedAt,
		}, true
	case *domain.WaveCompletedEvent:
		return ScanAuditRecord{
			Kind:       KindWaveCompleted,
			StationID:  e.StationID,
			WorkflowID: e.WorkflowID,
			OccurredAt: e.CompletedAt,
		}, true
	case *domain.SourceContainerCompletedEvent:
		return ScanAuditRecord{
			Kind:            KindSourceContainerCompleted,
			StationID:       e.StationID,
			SourceContainer: e.Container,
			OccurredAt:      e.CompletedAt,
		}, true
	default:
		return ScanAuditRecord{}, false
	}
}
