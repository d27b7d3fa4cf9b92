package application

import (
	"context"
	"time"

	"github.com/wms-platform/sorter-station-service/internal/domain"
)

// SnapshotSource fetches the authoritative station snapshot
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, stationBarcode string) (*domain.Snapshot, error)
}

// ContainerSource lists destination containers not assigned to any station
type ContainerSource interface {
	AvailableContainers(ctx context.Context, limit int) ([]string, error)
}

// FeedbackSink reports sorting progress upstream
type FeedbackSink interface {
	SendDropFeedback(ctx context.Context, fb DropFeedback) error
	SendOrderFeedback(ctx context.Context, fb OrderFeedback) error
	SendWaveFeedback(ctx context.Context, fb WaveFeedback) error
}

// EventPublisher publishes domain events
type EventPublisher interface {
	PublishAll(ctx context.Context, events []domain.DomainEvent) error
}

// ScanAuditor records scans and completions. Implementations must not block.
type ScanAuditor interface {
	Record(ctx context.Context, events []domain.DomainEvent)
}

// AuditTrail reads back recorded audit entries, newest first
type AuditTrail interface {
	Recent(ctx context.Context, stationID string, limit int) ([]AuditEntry, error)
}

// AuditEntry is one recorded scan or completion
type AuditEntry struct {
	ID                   string         `json:"id"`
	Kind                 string         `json:"kind"`
	StationID            string         `json:"stationId"`
	WorkflowID           string         `json:"workflowId,omitempty"`
	SourceContainer      string         `json:"sourceContainer,omitempty"`
	SKU                  string         `json:"sku,omitempty"`
	GridID               string         `json:"gridId,omitempty"`
	OrderID              string         `json:"orderId,omitempty"`
	DestinationContainer string         `json:"destinationContainer,omitempty"`
	ScannedQty           int            `json:"scannedQty,omitempty"`
	RequiredQty          int            `json:"requiredQty,omitempty"`
	SortedQuantities     map[string]int `json:"sortedQuantities,omitempty"`
	OccurredAt           time.Time      `json:"occurredAt"`
}

// DropFeedback reports one unit dropped into a grid
type DropFeedback struct {
	StationID            string
	WorkflowID           string
	OrderID              string
	GridNumber           int
	SourceContainer      string
	DestinationContainer string
	SKUID                string
}

// SortedQuantity is one manifest line of a finished order
type SortedQuantity struct {
	SKUID    string
	Quantity int
}

// OrderFeedback reports a finished grid with its full manifest
type OrderFeedback struct {
	StationID            string
	WorkflowID           string
	OrderID              string
	GridNumber           int
	DestinationContainer string
	Items                []SortedQuantity
}

// WaveFeedback reports a finished wave
type WaveFeedback struct {
	StationID  string
	WorkflowID string
}

// Feedback kinds, used in logs, metrics and errors
const (
	FeedbackDrop  = "drop"
	FeedbackOrder = "order"
	FeedbackWave  = "wave"
)
