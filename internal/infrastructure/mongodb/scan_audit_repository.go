package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/sorter-station-service/internal/application"
	"github.com/wms-platform/sorter-station-service/pkg/mongodb"
)

// ScanAuditCollection is the default audit collection name
const ScanAuditCollection = "scan_audit"

// ScanAuditRecord is the stored form of one audit entry
type ScanAuditRecord struct {
	ID                   string         `bson:"_id"`
	Kind                 string         `bson:"kind"`
	StationID            string         `bson:"stationId"`
	WorkflowID           string         `bson:"workflowId,omitempty"`
	SourceContainer      string         `bson:"sourceContainer,omitempty"`
	SKU                  string         `bson:"sku,omitempty"`
	GridID               string         `bson:"gridId,omitempty"`
	OrderID              string         `bson:"orderId,omitempty"`
	DestinationContainer string         `bson:"destinationContainer,omitempty"`
	ScannedQty           int            `bson:"scannedQty,omitempty"`
	RequiredQty          int            `bson:"requiredQty,omitempty"`
	SortedQuantities     map[string]int `bson:"sortedQuantities,omitempty"`
	OccurredAt           time.Time      `bson:"occurredAt"`
	RecordedAt           time.Time      `bson:"recordedAt"`
}

func (r *ScanAuditRecord) toEntry() application.AuditEntry {
	return application.AuditEntry{
		ID:                   r.ID,
		Kind:                 r.Kind,
		StationID:            r.StationID,
		WorkflowID:           r.WorkflowID,
		SourceContainer:      r.SourceContainer,
		SKU:                  r.SKU,
		GridID:               r.GridID,
		OrderID:              r.OrderID,
		DestinationContainer: r.DestinationContainer,
		ScannedQty:           r.ScannedQty,
		RequiredQty:          r.RequiredQty,
		SortedQuantities:     r.SortedQuantities,
		OccurredAt:           r.OccurredAt,
	}
}

// ScanAuditRepository stores audit records. Nothing is ever read back into
// station state.
type ScanAuditRepository struct {
	collection *mongodb.InstrumentedCollection
}

// NewScanAuditRepository creates a new ScanAuditRepository
func NewScanAuditRepository(collection *mongodb.InstrumentedCollection) *ScanAuditRepository {
	return &ScanAuditRepository{collection: collection}
}

// EnsureIndexes creates the query indexes
func (r *ScanAuditRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "stationId", Value: 1}, {Key: "occurredAt", Value: -1}}},
		{Keys: bson.D{{Key: "orderId", Value: 1}}},
		{Keys: bson.D{{Key: "workflowId", Value: 1}, {Key: "kind", Value: 1}}},
	}
	if err := r.collection.CreateIndexes(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create scan audit indexes: %w", err)
	}
	return nil
}

// InsertBatch writes records in one round trip. Order is not required, so
// a duplicate id does not stop the rest of the batch.
func (r *ScanAuditRepository) InsertBatch(ctx context.Context, records []ScanAuditRecord) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = records[i]
	}
	if _, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to insert %d audit records: %w", len(records), err)
	}
	return nil
}

// Recent returns up to limit entries of a station, newest first
func (r *ScanAuditRepository) Recent(ctx context.Context, stationID string, limit int) ([]application.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurredAt", Value: -1}, {Key: "recordedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"stationId": stationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer cursor.Close(ctx)

	var records []ScanAuditRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode audit trail: %w", err)
	}
	entries := make([]application.AuditEntry, 0, len(records))
	for i := range records {
		entries = append(entries, records[i].toEntry())
	}
	return entries, nil
}
