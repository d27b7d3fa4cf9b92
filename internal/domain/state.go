package domain

// SorterTypeSorter is the sorter-type tag of stations allowed to sort
const SorterTypeSorter = "SORTER"

// StationState is one generation of station data. A rebuild always
// produces a new value; scans mutate the current generation in place.
type StationState struct {
	Generation    uint64
	StationID     string
	SorterType    string
	WorkflowID    string
	WorkflowName  string
	Grids         []*Grid
	Orders        []*Order
	Inventory     InventoryIndex
	DroppedOrders int // orders beyond the first in a grid record
}

// NewEmptyState returns a generation with gridCount empty grids and no orders
func NewEmptyState(generation uint64, gridCount int) *StationState {
	grids := make([]*Grid, gridCount)
	for i := range grids {
		grids[i] = NewEmptyGrid(i + 1)
	}
	return &StationState{
		Generation: generation,
		Grids:      grids,
		Orders:     make([]*Order, 0),
		Inventory:  make(InventoryIndex),
	}
}

// Grid finds a grid by id
func (s *StationState) Grid(id string) (*Grid, bool) {
	for _, g := range s.Grids {
		if g.ID == id {
			return g, true
		}
	}
	return nil, false
}

// Order finds an order by id
func (s *StationState) Order(id string) (*Order, bool) {
	for _, o := range s.Orders {
		if o.OrderID == id {
			return o, true
		}
	}
	return nil, false
}

// GridForOrder finds the grid an order is currently bound to
func (s *StationState) GridForOrder(orderID string) (*Grid, bool) {
	for _, g := range s.Grids {
		if g.AssignedOrderID == orderID {
			return g, true
		}
	}
	return nil, false
}

// CountByStatus returns how many grids are in each status
func (s *StationState) CountByStatus() map[GridStatus]int {
	counts := map[GridStatus]int{
		GridStatusEmpty:    0,
		GridStatusActive:   0,
		GridStatusComplete: 0,
	}
	for _, g := range s.Grids {
		counts[g.Status]++
	}
	return counts
}

// GridsWithoutDestination counts grids lacking a usable destination container
func (s *StationState) GridsWithoutDestination() int {
	n := 0
	for _, g := range s.Grids {
		if !g.HasDestination() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to hand out to readers
func (s *StationState) Clone() *StationState {
	c := *s
	c.Grids = make([]*Grid, len(s.Grids))
	for i, g := range s.Grids {
		c.Grids[i] = g.clone()
	}
	c.Orders = make([]*Order, len(s.Orders))
	for i, o := range s.Orders {
		c.Orders[i] = o.clone()
	}
	c.Inventory = BuildInventoryIndex(c.Orders)
	return &c
}
