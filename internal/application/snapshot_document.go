package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/wms-platform/sorter-station-service/internal/domain"
)

// StationID accepts the upstream station id as a JSON number or string
type StationID string

// UnmarshalJSON implements json.Unmarshaler
func (id *StationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StationID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("station_id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("station_id must be a string or number: %w", err)
	}
	*id = StationID(n.String())
	return nil
}

// SnapshotDocument is the wire form of a station snapshot, shared by the
// upstream GraphQL payload and the snapshot push endpoint.
type SnapshotDocument struct {
	StationID      StationID          `json:"station_id"`
	TotalCellCount int                `json:"total_cell_count" binding:"min=0"`
	SorterType     string             `json:"sorter_type"`
	Grids          []SnapshotGridDoc  `json:"grids" binding:"dive"`
	PendingOrders  []SnapshotOrderDoc `json:"pending_orders,omitempty" binding:"dive"`
}

// SnapshotGridDoc is one grid record
type SnapshotGridDoc struct {
	Grid   int                `json:"grid"`
	Orders []SnapshotOrderDoc `json:"orders" binding:"dive"`
}

// SnapshotOrderDoc is one order
type SnapshotOrderDoc struct {
	OrderID       string            `json:"order_id" binding:"required"`
	OMSOrderID    string            `json:"oms_order_id"`
	WorkflowID    string            `json:"order_workflow_id"`
	WorkflowName  string            `json:"workflow_name"`
	AssortedTote  string            `json:"assorted_tote"`
	OrderItemList []SnapshotItemDoc `json:"order_item_list" binding:"dive"`
}

// SnapshotItemDoc is one order line
type SnapshotItemDoc struct {
	OrderItemID     string               `json:"order_item_id"`
	SKUID           string               `json:"sku_id"`
	Barcode         string               `json:"barcode"`
	TotalQty        int                  `json:"total_qty" binding:"min=0"`
	TotalWorkedQty  int                  `json:"total_worked_qty" binding:"min=0"`
	PickingToteList []SnapshotPickingDoc `json:"picking_tote_list" binding:"dive"`
}

// SnapshotPickingDoc is the per-tote breakdown of an order line
type SnapshotPickingDoc struct {
	PickingTote string `json:"picking_tote"`
	Qty         int    `json:"qty" binding:"min=0"`
	WorkedQty   int    `json:"worked_qty" binding:"min=0"`
}

// ToDomain converts the document into the engine's snapshot
func (d *SnapshotDocument) ToDomain() *domain.Snapshot {
	snapshot := &domain.Snapshot{
		StationID:      string(d.StationID),
		TotalCellCount: d.TotalCellCount,
		SorterType:     d.SorterType,
		Grids:          make([]domain.SnapshotGrid, 0, len(d.Grids)),
		PendingOrders:  make([]domain.SnapshotOrder, 0, len(d.PendingOrders)),
	}
	for _, g := range d.Grids {
		grid := domain.SnapshotGrid{Grid: g.Grid, Orders: make([]domain.SnapshotOrder, 0, len(g.Orders))}
		for _, o := range g.Orders {
			grid.Orders = append(grid.Orders, o.toDomain())
		}
		snapshot.Grids = append(snapshot.Grids, grid)
	}
	for _, o := range d.PendingOrders {
		snapshot.PendingOrders = append(snapshot.PendingOrders, o.toDomain())
	}
	return snapshot
}

func (o SnapshotOrderDoc) toDomain() domain.SnapshotOrder {
	order := domain.SnapshotOrder{
		OrderID:           o.OrderID,
		ExternalOrderID:   o.OMSOrderID,
		WorkflowID:        o.WorkflowID,
		WorkflowName:      o.WorkflowName,
		AssortedContainer: o.AssortedTote,
		Items:             make([]domain.SnapshotItem, 0, len(o.OrderItemList)),
	}
	for _, item := range o.OrderItemList {
		line := domain.SnapshotItem{
			OrderItemID:      item.OrderItemID,
			SKUID:            item.SKUID,
			Barcode:          item.Barcode,
			TotalQty:         item.TotalQty,
			TotalWorkedQty:   item.TotalWorkedQty,
			SourceContainers: make([]domain.SnapshotSourceContainer, 0, len(item.PickingToteList)),
		}
		for _, p := range item.PickingToteList {
			line.SourceContainers = append(line.SourceContainers, domain.SnapshotSourceContainer{
				Container: p.PickingTote,
				Qty:       p.Qty,
				WorkedQty: p.WorkedQty,
			})
		}
		order.Items = append(order.Items, line)
	}
	return order
}
