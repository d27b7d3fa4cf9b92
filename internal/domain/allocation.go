package domain

// Allocation is the placement chosen for one scanned unit. It is computed
// without touching state; NewlyBound means the grid must be bound to the
// order before the unit is recorded.
type Allocation struct {
	Grid       *Grid
	Order      *Order
	NewlyBound bool
}

// Allocate picks the grid for one unit of sku.
//
// An ACTIVE grid whose order still needs the SKU always wins, in grid
// order. Otherwise the first unallocated, incomplete order requiring the
// SKU is placed on the first EMPTY grid; units the snapshot already reported
// as worked do not count as demand.
func Allocate(state *StationState, sku SKUKey) (Allocation, error) {
	for _, grid := range state.Grids {
		if grid.Status != GridStatusActive {
			continue
		}
		order, ok := state.Order(grid.AssignedOrderID)
		if !ok {
			continue
		}
		if required := order.Requires(sku); required > 0 && grid.ScannedItems[sku] < required {
			return Allocation{Grid: grid, Order: order}, nil
		}
	}

	var candidate *Order
	for _, order := range state.Orders {
		if !order.IsAllocated() && !order.IsComplete && order.Outstanding(sku) > 0 {
			candidate = order
			break
		}
	}
	if candidate == nil {
		return Allocation{}, ErrNoDemand
	}

	for _, grid := range state.Grids {
		if grid.Status == GridStatusEmpty {
			return Allocation{Grid: grid, Order: candidate, NewlyBound: true}, nil
		}
	}
	return Allocation{}, ErrCapacityExhausted
}
