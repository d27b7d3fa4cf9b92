package domain

// IsGridComplete reports whether the grid's bound order is fully scanned
func IsGridComplete(state *StationState, grid *Grid) bool {
	if !grid.IsBound() {
		return false
	}
	order, ok := state.Order(grid.AssignedOrderID)
	if !ok {
		return false
	}
	return satisfies(order.RequiredItems, grid.ScannedItems)
}

// IsWaveComplete reports whether every order in the pool is done, either by
// the upstream completion flag or by its grid's scans. An empty pool is
// never complete.
func IsWaveComplete(state *StationState) bool {
	if len(state.Orders) == 0 {
		return false
	}
	for _, order := range state.Orders {
		if order.IsComplete {
			continue
		}
		grid, ok := state.GridForOrder(order.OrderID)
		if !ok {
			return false
		}
		if !satisfies(order.RequiredItems, grid.ScannedItems) {
			return false
		}
	}
	return true
}

// IsSourceContainerComplete reports whether every picking source ref drawn
// from container has been fully worked. No container means not complete.
func IsSourceContainerComplete(state *StationState, container string) bool {
	if container == "" {
		return false
	}
	for _, order := range state.Orders {
		for _, ref := range order.PickingSourceRefs {
			if ref.Container == container && ref.WorkedQty < ref.Qty {
				return false
			}
		}
	}
	return true
}
