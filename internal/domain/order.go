package domain

// PickingSourceRef records how much of a SKU an order expects out of one
// source container, and how much has been worked so far.
type PickingSourceRef struct {
	Container string
	SKU       SKUKey
	Qty       int
	WorkedQty int
}

// Remaining returns the quantity still expected from the container
func (r PickingSourceRef) Remaining() int {
	if r.WorkedQty >= r.Qty {
		return 0
	}
	return r.Qty - r.WorkedQty
}

// Order is a customer order being assembled at the station
type Order struct {
	OrderID           string
	ExternalOrderID   string
	WorkflowID        string
	WorkflowName      string
	RequiredItems     map[SKUKey]int
	WorkedItems       map[SKUKey]int // sorted quantity reported by the snapshot
	SKUInfo           map[SKUKey]SKUInfo
	SKUs              []SKUKey // declaration order
	PickingSourceRefs []PickingSourceRef
	AllocatedSlot     string
	IsComplete        bool
}

// Requires returns the quantity of sku the order needs in total
func (o *Order) Requires(sku SKUKey) int {
	return o.RequiredItems[sku]
}

// Outstanding returns how much of sku the snapshot still reported as unsorted
func (o *Order) Outstanding(sku SKUKey) int {
	if left := o.RequiredItems[sku] - o.WorkedItems[sku]; left > 0 {
		return left
	}
	return 0
}

// CanonicalSKUID maps a SKU key to the catalog id used by feedback endpoints.
func (o *Order) CanonicalSKUID(sku SKUKey) string {
	if info, ok := o.SKUInfo[sku]; ok && info.SKUID != "" {
		return info.SKUID
	}
	return sku.String()
}

// IsAllocated reports whether the order is bound to a grid
func (o *Order) IsAllocated() bool {
	return o.AllocatedSlot != ""
}

// creditSource books one unit against the first matching source ref that
// still has remaining quantity.
func (o *Order) creditSource(container string, sku SKUKey) bool {
	for i := range o.PickingSourceRefs {
		ref := &o.PickingSourceRefs[i]
		if ref.Container == container && ref.SKU == sku && ref.Remaining() > 0 {
			ref.WorkedQty++
			return true
		}
	}
	return false
}

func (o *Order) clone() *Order {
	c := *o
	c.RequiredItems = copyCounts(o.RequiredItems)
	c.WorkedItems = copyCounts(o.WorkedItems)
	c.SKUInfo = make(map[SKUKey]SKUInfo, len(o.SKUInfo))
	for k, v := range o.SKUInfo {
		c.SKUInfo[k] = v
	}
	c.SKUs = append(make([]SKUKey, 0, len(o.SKUs)), o.SKUs...)
	c.PickingSourceRefs = append(make([]PickingSourceRef, 0, len(o.PickingSourceRefs)), o.PickingSourceRefs...)
	return &c
}

func copyCounts(src map[SKUKey]int) map[SKUKey]int {
	dst := make(map[SKUKey]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
