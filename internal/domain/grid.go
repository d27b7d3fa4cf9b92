package domain

import (
	"fmt"
	"strings"
	"time"
)

// GridStatus represents the lifecycle of a sorting slot
type GridStatus string

const (
	GridStatusEmpty    GridStatus = "EMPTY"
	GridStatusActive   GridStatus = "ACTIVE"
	GridStatusComplete GridStatus = "COMPLETE"
)

// ScanLogEntry records one unit placed into a grid
type ScanLogEntry struct {
	SKU       SKUKey    `json:"sku"`
	ScannedAt time.Time `json:"scannedAt"`
}

// Grid is one physical slot on the sorting wall
type Grid struct {
	ID                   string
	Number               int
	Status               GridStatus
	DestinationContainer string
	ProvisionalContainer bool
	AssignedOrderID      string
	ScannedItems         map[SKUKey]int
	ScanLog              []ScanLogEntry // most recent first
}

// GridID formats the identifier of the n-th grid (1-based).
func GridID(number int) string {
	return fmt.Sprintf("GRID-%02d", number)
}

// NewEmptyGrid creates an unbound grid
func NewEmptyGrid(number int) *Grid {
	return &Grid{
		ID:           GridID(number),
		Number:       number,
		Status:       GridStatusEmpty,
		ScannedItems: make(map[SKUKey]int),
		ScanLog:      make([]ScanLogEntry, 0),
	}
}

// IsAbsentContainer reports whether a destination value means "no container".
// Upstream systems send "-" and "undefined" as placeholders.
func IsAbsentContainer(code string) bool {
	switch strings.TrimSpace(code) {
	case "", "-", "undefined":
		return true
	}
	return false
}

// HasDestination reports whether the grid has a usable destination container
func (g *Grid) HasDestination() bool {
	return !IsAbsentContainer(g.DestinationContainer)
}

// IsBound reports whether an order is assigned to the grid
func (g *Grid) IsBound() bool {
	return g.AssignedOrderID != ""
}

// bind assigns an order to an empty grid. The destination container is
// cleared; it must come from confirmed data or provisional auto-fill. The
// scanned counts start from what the snapshot reported as worked.
func (g *Grid) bind(order *Order) {
	g.Status = GridStatusActive
	g.AssignedOrderID = order.OrderID
	g.DestinationContainer = ""
	g.ProvisionalContainer = false
	g.ScannedItems = make(map[SKUKey]int, len(order.SKUs))
	for _, sku := range order.SKUs {
		g.ScannedItems[sku] = order.WorkedItems[sku]
	}
	g.ScanLog = make([]ScanLogEntry, 0)
}

func (g *Grid) recordUnit(sku SKUKey, at time.Time) int {
	g.ScannedItems[sku]++
	g.ScanLog = append([]ScanLogEntry{{SKU: sku, ScannedAt: at}}, g.ScanLog...)
	return g.ScannedItems[sku]
}

func (g *Grid) clone() *Grid {
	c := *g
	c.ScannedItems = copyCounts(g.ScannedItems)
	c.ScanLog = append(make([]ScanLogEntry, 0, len(g.ScanLog)), g.ScanLog...)
	return &c
}
