package domain

import "sort"

// InventoryIndex maps each source container to the set of SKUs it supplies
type InventoryIndex map[string]map[SKUKey]struct{}

// BuildInventoryIndex derives the index from every order's picking source refs.
func BuildInventoryIndex(orders []*Order) InventoryIndex {
	ix := make(InventoryIndex)
	for _, order := range orders {
		for _, ref := range order.PickingSourceRefs {
			if ref.Container == "" || ref.SKU.IsZero() {
				continue
			}
			skus, ok := ix[ref.Container]
			if !ok {
				skus = make(map[SKUKey]struct{})
				ix[ref.Container] = skus
			}
			skus[ref.SKU] = struct{}{}
		}
	}
	return ix
}

// HasContainer reports whether the container supplies anything to the station
func (ix InventoryIndex) HasContainer(container string) bool {
	_, ok := ix[container]
	return ok
}

// Contains reports whether the container supplies the SKU
func (ix InventoryIndex) Contains(container string, sku SKUKey) bool {
	skus, ok := ix[container]
	if !ok {
		return false
	}
	_, ok = skus[sku]
	return ok
}

// Containers returns the container codes in lexical order
func (ix InventoryIndex) Containers() []string {
	out := make([]string, 0, len(ix))
	for c := range ix {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SKUs returns the SKUs of a container in lexical order
func (ix InventoryIndex) SKUs(container string) []SKUKey {
	skus := ix[container]
	out := make([]SKUKey, 0, len(skus))
	for sku := range skus {
		out = append(out, sku)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SourceContainerItem is the per-SKU progress of one source container
type SourceContainerItem struct {
	SKU         SKUKey
	SKUID       string
	Barcode     string
	RequiredQty int
	WorkedQty   int
	Done        bool
}

// SourceContainerSummary aggregates progress for one source container
type SourceContainerSummary struct {
	Container string
	Items     []SourceContainerItem
	Done      bool
}

// SummarizeSourceContainers totals qty/workedQty per container and SKU
// across all orders of the state.
func SummarizeSourceContainers(state *StationState) []SourceContainerSummary {
	summaries := make([]SourceContainerSummary, 0, len(state.Inventory))
	for _, container := range state.Inventory.Containers() {
		summary := SourceContainerSummary{Container: container, Done: true}
		for _, sku := range state.Inventory.SKUs(container) {
			item := SourceContainerItem{SKU: sku}
			for _, order := range state.Orders {
				for _, ref := range order.PickingSourceRefs {
					if ref.Container != container || ref.SKU != sku {
						continue
					}
					item.RequiredQty += ref.Qty
					item.WorkedQty += ref.WorkedQty
					if item.SKUID == "" {
						info := order.SKUInfo[sku]
						item.SKUID = info.SKUID
						item.Barcode = info.Barcode
					}
				}
			}
			item.Done = item.WorkedQty >= item.RequiredQty
			if !item.Done {
				summary.Done = false
			}
			summary.Items = append(summary.Items, item)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
