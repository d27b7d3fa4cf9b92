package domain

import "time"

// ScanResult describes the outcome of one accepted SKU scan
type ScanResult struct {
	Generation               uint64
	Code                     string
	SKU                      SKUKey
	SourceContainer          string
	GridID                   string
	GridNumber               int
	OrderID                  string
	DestinationContainer     string
	ScannedQty               int
	RequiredQty              int
	NewlyAllocated           bool
	GridCompleted            bool
	WaveCompleted            bool
	SourceContainerCompleted bool
	ScannedAt                time.Time
}

// scanContext flows through the scan stages
type scanContext struct {
	station    *Station
	code       string
	sku        SKUKey
	allocation Allocation
	result     *ScanResult
	now        time.Time
}

// scanStage is one guarded step of a scan. Stages before applyScan must
// not touch the generation; a stage error stops the pipeline.
type scanStage func(*scanContext) error

var scanPipeline = []scanStage{
	checkAccess,
	checkSourceContainer,
	recordHistory,
	allocateGrid,
	applyScan,
	evaluateGrid,
	evaluateWave,
	evaluateSourceContainer,
}

// RecordScan runs one SKU scan through the pipeline: access gate,
// container membership, history, allocation, then the completion checks.
// A rejection leaves grids, orders and the inventory index unchanged.
func (s *Station) RecordScan(raw string) (*ScanResult, error) {
	code := NormalizeScanCode(raw)
	now := s.now()
	sc := &scanContext{
		station: s,
		code:    code,
		sku:     SKUKey(code),
		now:     now,
		result: &ScanResult{
			Generation:      s.state.Generation,
			Code:            code,
			SKU:             SKUKey(code),
			SourceContainer: s.sourceContainer,
			ScannedAt:       now,
		},
	}

	for _, stage := range scanPipeline {
		if err := stage(sc); err != nil {
			return nil, err
		}
	}
	return sc.result, nil
}

func checkAccess(sc *scanContext) error {
	if !sc.station.AccessAllowed() {
		return ErrAccessDenied
	}
	if sc.code == "" {
		return ErrEmptyScanCode
	}
	return nil
}

func checkSourceContainer(sc *scanContext) error {
	container := sc.station.sourceContainer
	if container == "" {
		return reject(sc.code, ErrNoActiveSourceContainer)
	}
	if !sc.station.state.Inventory.Contains(container, sc.sku) {
		return reject(sc.code, ErrSKUNotInSourceContainer)
	}
	return nil
}

// recordHistory runs once the code is known to belong to the container,
// before allocation can still refuse it.
func recordHistory(sc *scanContext) error {
	sc.station.history.Record(sc.code)
	return nil
}

func allocateGrid(sc *scanContext) error {
	allocation, err := Allocate(sc.station.state, sc.sku)
	if err != nil {
		return reject(sc.code, err)
	}
	sc.allocation = allocation
	return nil
}

func applyScan(sc *scanContext) error {
	s := sc.station
	grid, order := sc.allocation.Grid, sc.allocation.Order

	if sc.allocation.NewlyBound {
		grid.bind(order)
		order.AllocatedSlot = grid.ID
		s.AddDomainEvent(&GridAllocatedEvent{
			StationID:   s.state.StationID,
			GridID:      grid.ID,
			OrderID:     order.OrderID,
			AllocatedAt: sc.now,
		})
	}

	scanned := grid.recordUnit(sc.sku, sc.now)
	order.creditSource(s.sourceContainer, sc.sku)

	r := sc.result
	r.GridID = grid.ID
	r.GridNumber = grid.Number
	r.OrderID = order.OrderID
	r.DestinationContainer = grid.DestinationContainer
	r.ScannedQty = scanned
	r.RequiredQty = order.Requires(sc.sku)
	r.NewlyAllocated = sc.allocation.NewlyBound

	s.AddDomainEvent(&ItemSortedEvent{
		StationID:            s.state.StationID,
		WorkflowID:           s.state.WorkflowID,
		SourceContainer:      s.sourceContainer,
		SKU:                  sc.sku.String(),
		GridID:               grid.ID,
		OrderID:              order.OrderID,
		DestinationContainer: grid.DestinationContainer,
		ScannedQty:           scanned,
		RequiredQty:          r.RequiredQty,
		SortedAt:             sc.now,
	})
	return nil
}

func evaluateGrid(sc *scanContext) error {
	s := sc.station
	grid, order := sc.allocation.Grid, sc.allocation.Order
	if grid.Status != GridStatusActive || !IsGridComplete(s.state, grid) {
		return nil
	}

	grid.Status = GridStatusComplete
	sc.result.GridCompleted = true

	sorted := make(map[string]int, len(order.SKUs))
	for _, sku := range order.SKUs {
		sorted[order.CanonicalSKUID(sku)] += grid.ScannedItems[sku]
	}
	s.AddDomainEvent(&GridCompletedEvent{
		StationID:            s.state.StationID,
		WorkflowID:           s.state.WorkflowID,
		GridID:               grid.ID,
		OrderID:              order.OrderID,
		ExternalOrderID:      order.ExternalOrderID,
		DestinationContainer: grid.DestinationContainer,
		SortedQuantities:     sorted,
		CompletedAt:          sc.now,
	})
	return nil
}

// evaluateWave only runs on the scan that completed a grid; any earlier
// scan left at least that grid's order unsatisfied.
func evaluateWave(sc *scanContext) error {
	s := sc.station
	if !sc.result.GridCompleted || !IsWaveComplete(s.state) {
		return nil
	}
	sc.result.WaveCompleted = true
	s.AddDomainEvent(&WaveCompletedEvent{
		StationID:    s.state.StationID,
		WorkflowID:   s.state.WorkflowID,
		WorkflowName: s.state.WorkflowName,
		OrderCount:   len(s.state.Orders),
		CompletedAt:  sc.now,
	})
	return nil
}

func evaluateSourceContainer(sc *scanContext) error {
	s := sc.station
	if !IsSourceContainerComplete(s.state, s.sourceContainer) {
		return nil
	}
	sc.result.SourceContainerCompleted = true
	s.AddDomainEvent(&SourceContainerCompletedEvent{
		StationID:   s.state.StationID,
		Container:   s.sourceContainer,
		CompletedAt: sc.now,
	})
	return nil
}
