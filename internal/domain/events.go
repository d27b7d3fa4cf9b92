package domain

import "time"

// DomainEvent represents a domain event
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// SnapshotRebuiltEvent is emitted when a new generation replaces the old one
type SnapshotRebuiltEvent struct {
	StationID     string    `json:"stationId"`
	Generation    uint64    `json:"generation"`
	WorkflowID    string    `json:"workflowId,omitempty"`
	GridCount     int       `json:"gridCount"`
	OrderCount    int       `json:"orderCount"`
	DroppedOrders int       `json:"droppedOrders"`
	RebuiltAt     time.Time `json:"rebuiltAt"`
}

func (e *SnapshotRebuiltEvent) EventType() string     { return "wms.sorter-station.snapshot-rebuilt" }
func (e *SnapshotRebuiltEvent) OccurredAt() time.Time { return e.RebuiltAt }

// SourceContainerActivatedEvent is emitted when the operator scans a source container
type SourceContainerActivatedEvent struct {
	StationID   string    `json:"stationId"`
	Container   string    `json:"container"`
	ActivatedAt time.Time `json:"activatedAt"`
}

func (e *SourceContainerActivatedEvent) EventType() string {
	return "wms.sorter-station.source-container-activated"
}
func (e *SourceContainerActivatedEvent) OccurredAt() time.Time { return e.ActivatedAt }

// SourceContainerClearedEvent is emitted when the active source container is released
type SourceContainerClearedEvent struct {
	StationID string    `json:"stationId"`
	Container string    `json:"container"`
	ClearedAt time.Time `json:"clearedAt"`
}

func (e *SourceContainerClearedEvent) EventType() string {
	return "wms.sorter-station.source-container-cleared"
}
func (e *SourceContainerClearedEvent) OccurredAt() time.Time { return e.ClearedAt }

// ItemSortedEvent is emitted for every accepted scan
type ItemSortedEvent struct {
	StationID            string    `json:"stationId"`
	WorkflowID           string    `json:"workflowId,omitempty"`
	SourceContainer      string    `json:"sourceContainer"`
	SKU                  string    `json:"sku"`
	GridID               string    `json:"gridId"`
	OrderID              string    `json:"orderId"`
	DestinationContainer string    `json:"destinationContainer,omitempty"`
	ScannedQty           int       `json:"scannedQty"`
	RequiredQty          int       `json:"requiredQty"`
	SortedAt             time.Time `json:"sortedAt"`
}

func (e *ItemSortedEvent) EventType() string     { return "wms.sorter-station.item-sorted" }
func (e *ItemSortedEvent) OccurredAt() time.Time { return e.SortedAt }

// GridAllocatedEvent is emitted when an empty grid is bound to an order
type GridAllocatedEvent struct {
	StationID   string    `json:"stationId"`
	GridID      string    `json:"gridId"`
	OrderID     string    `json:"orderId"`
	AllocatedAt time.Time `json:"allocatedAt"`
}

func (e *GridAllocatedEvent) EventType() string     { return "wms.sorter-station.grid-allocated" }
func (e *GridAllocatedEvent) OccurredAt() time.Time { return e.AllocatedAt }

// GridCompletedEvent is emitted when a grid's order is fully scanned
type GridCompletedEvent struct {
	StationID            string         `json:"stationId"`
	WorkflowID           string         `json:"workflowId,omitempty"`
	GridID               string         `json:"gridId"`
	OrderID              string         `json:"orderId"`
	ExternalOrderID      string         `json:"externalOrderId,omitempty"`
	DestinationContainer string         `json:"destinationContainer,omitempty"`
	SortedQuantities     map[string]int `json:"sortedQuantities"`
	CompletedAt          time.Time      `json:"completedAt"`
}

func (e *GridCompletedEvent) EventType() string     { return "wms.sorter-station.grid-completed" }
func (e *GridCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// WaveCompletedEvent is emitted when every order of the workflow is done
type WaveCompletedEvent struct {
	StationID    string    `json:"stationId"`
	WorkflowID   string    `json:"workflowId"`
	WorkflowName string    `json:"workflowName,omitempty"`
	OrderCount   int       `json:"orderCount"`
	CompletedAt  time.Time `json:"completedAt"`
}

func (e *WaveCompletedEvent) EventType() string     { return "wms.sorter-station.wave-completed" }
func (e *WaveCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// SourceContainerCompletedEvent is emitted when nothing more is expected from a source container
type SourceContainerCompletedEvent struct {
	StationID   string    `json:"stationId"`
	Container   string    `json:"container"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *SourceContainerCompletedEvent) EventType() string {
	return "wms.sorter-station.source-container-completed"
}
func (e *SourceContainerCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// ContainersProvisionedEvent is emitted when auto-fill assigns provisional destinations
type ContainersProvisionedEvent struct {
	StationID     string            `json:"stationId"`
	Assignments   map[string]string `json:"assignments"` // grid id -> container
	ProvisionedAt time.Time         `json:"provisionedAt"`
}

func (e *ContainersProvisionedEvent) EventType() string {
	return "wms.sorter-station.containers-provisioned"
}
func (e *ContainersProvisionedEvent) OccurredAt() time.Time { return e.ProvisionedAt }

// ContainerChangedEvent is emitted when the operator replaces a provisional destination
type ContainerChangedEvent struct {
	StationID string    `json:"stationId"`
	GridID    string    `json:"gridId"`
	Previous  string    `json:"previous,omitempty"`
	Container string    `json:"container"`
	ChangedAt time.Time `json:"changedAt"`
}

func (e *ContainerChangedEvent) EventType() string     { return "wms.sorter-station.container-changed" }
func (e *ContainerChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
