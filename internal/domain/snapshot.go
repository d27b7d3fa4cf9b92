package domain

import "strings"

// DefaultGridCount is used when a snapshot does not report its cell count
const DefaultGridCount = 20

// Snapshot is the authoritative station payload served upstream
type Snapshot struct {
	StationID      string
	TotalCellCount int
	SorterType     string
	Grids          []SnapshotGrid
	// PendingOrders are released to the station but not yet bound to a grid.
	PendingOrders []SnapshotOrder
}

// SnapshotGrid is one grid record; Grid is 1-based
type SnapshotGrid struct {
	Grid   int
	Orders []SnapshotOrder
}

// SnapshotOrder is an order as reported upstream
type SnapshotOrder struct {
	OrderID           string
	ExternalOrderID   string
	WorkflowID        string
	WorkflowName      string
	AssortedContainer string
	Items             []SnapshotItem
}

// SnapshotItem is one order line
type SnapshotItem struct {
	OrderItemID      string
	SKUID            string
	Barcode          string
	TotalQty         int
	TotalWorkedQty   int
	SourceContainers []SnapshotSourceContainer
}

// SnapshotSourceContainer is the per-container breakdown of an order line
type SnapshotSourceContainer struct {
	Container string
	Qty       int
	WorkedQty int
}

// MapOptions tunes snapshot mapping
type MapOptions struct {
	DefaultGridCount int
}

// MapSnapshot normalizes a snapshot into a fresh StationState generation.
// Only the first order of each grid record is honored; records whose grid
// number is out of range, and repeated records for the same grid, are
// ignored. Nothing is carried over from any earlier generation.
func MapSnapshot(snapshot *Snapshot, generation uint64, opts MapOptions) (*StationState, error) {
	if snapshot == nil {
		return nil, malformed("snapshot is empty")
	}
	if snapshot.TotalCellCount < 0 {
		return nil, malformed("negative cell count %d", snapshot.TotalCellCount)
	}

	gridCount := snapshot.TotalCellCount
	if gridCount == 0 {
		gridCount = opts.DefaultGridCount
	}
	if gridCount <= 0 {
		gridCount = DefaultGridCount
	}

	state := NewEmptyState(generation, gridCount)
	state.StationID = strings.TrimSpace(snapshot.StationID)
	state.SorterType = strings.TrimSpace(snapshot.SorterType)

	seenOrders := make(map[string]struct{})
	seenGrids := make(map[int]struct{})

	for _, record := range snapshot.Grids {
		if record.Grid < 1 || record.Grid > gridCount {
			continue
		}
		if len(record.Orders) == 0 {
			continue
		}
		if _, dup := seenGrids[record.Grid]; dup {
			state.DroppedOrders += len(record.Orders)
			continue
		}
		seenGrids[record.Grid] = struct{}{}
		state.DroppedOrders += len(record.Orders) - 1

		src := record.Orders[0]
		order, err := mapOrder(src)
		if err != nil {
			return nil, err
		}
		if _, dup := seenOrders[order.OrderID]; dup {
			return nil, malformed("order %s reported in more than one grid", order.OrderID)
		}
		seenOrders[order.OrderID] = struct{}{}

		grid := state.Grids[record.Grid-1]
		grid.Status = GridStatusActive
		grid.AssignedOrderID = order.OrderID
		grid.ScannedItems = copyCounts(order.WorkedItems)
		if dest := strings.TrimSpace(src.AssortedContainer); !IsAbsentContainer(dest) {
			grid.DestinationContainer = dest
		}
		if order.IsComplete {
			grid.Status = GridStatusComplete
		}
		order.AllocatedSlot = grid.ID

		if state.WorkflowID == "" && order.WorkflowID != "" {
			state.WorkflowID = order.WorkflowID
			state.WorkflowName = order.WorkflowName
		}
		state.Orders = append(state.Orders, order)
	}

	for _, src := range snapshot.PendingOrders {
		order, err := mapOrder(src)
		if err != nil {
			return nil, err
		}
		if _, dup := seenOrders[order.OrderID]; dup {
			return nil, malformed("pending order %s is already bound to a grid", order.OrderID)
		}
		seenOrders[order.OrderID] = struct{}{}
		state.Orders = append(state.Orders, order)
	}

	state.Inventory = BuildInventoryIndex(state.Orders)
	return state, nil
}

// mapOrder converts one upstream order.
func mapOrder(src SnapshotOrder) (*Order, error) {
	orderID := strings.TrimSpace(src.OrderID)
	if orderID == "" {
		return nil, malformed("order without order id")
	}

	order := &Order{
		OrderID:           orderID,
		ExternalOrderID:   strings.TrimSpace(src.ExternalOrderID),
		WorkflowID:        strings.TrimSpace(src.WorkflowID),
		WorkflowName:      strings.TrimSpace(src.WorkflowName),
		RequiredItems:     make(map[SKUKey]int, len(src.Items)),
		WorkedItems:       make(map[SKUKey]int, len(src.Items)),
		SKUInfo:           make(map[SKUKey]SKUInfo, len(src.Items)),
		SKUs:              make([]SKUKey, 0, len(src.Items)),
		PickingSourceRefs: make([]PickingSourceRef, 0),
	}
	for _, item := range src.Items {
		key := NewSKUKey(item.Barcode, item.SKUID)
		if key.IsZero() {
			return nil, malformed("order %s has an item without barcode or sku id", orderID)
		}
		if item.TotalQty < 0 || item.TotalWorkedQty < 0 {
			return nil, malformed("order %s item %s has a negative quantity", orderID, key)
		}

		if _, seen := order.RequiredItems[key]; !seen {
			order.SKUs = append(order.SKUs, key)
			order.SKUInfo[key] = SKUInfo{
				SKUID:   strings.TrimSpace(item.SKUID),
				Barcode: strings.TrimSpace(item.Barcode),
			}
		}
		// Lines repeating a SKU key add up instead of the last line replacing
		// the earlier ones; an order may list a SKU once per picking line.
		order.RequiredItems[key] += item.TotalQty
		order.WorkedItems[key] += item.TotalWorkedQty

		for _, sc := range item.SourceContainers {
			container := strings.TrimSpace(sc.Container)
			if container == "" {
				continue
			}
			order.PickingSourceRefs = append(order.PickingSourceRefs, PickingSourceRef{
				Container: container,
				SKU:       key,
				Qty:       sc.Qty,
				WorkedQty: sc.WorkedQty,
			})
		}
	}

	order.IsComplete = satisfies(order.RequiredItems, order.WorkedItems)
	return order, nil
}

// satisfies reports whether scanned covers every required quantity.
// An order with no lines is vacuously satisfied.
func satisfies(required, scanned map[SKUKey]int) bool {
	for sku, qty := range required {
		if scanned[sku] < qty {
			return false
		}
	}
	return true
}
