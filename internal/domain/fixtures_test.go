package domain_test

import (
	"time"

	"github.com/wms-platform/sorter-station-service/internal/domain"
)

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// createTestSnapshot builds a four-cell station:
//
//	GRID-01  ORD-1  DEST-1  8801 x2 (TOTE-A), S2 x1 (TOTE-A)
//	GRID-02  ORD-2  -       8801 x1 (TOTE-B)
//	pending  ORD-3          7700 x1 (TOTE-A)
func createTestSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		StationID:      "STN-7",
		TotalCellCount: 4,
		SorterType:     domain.SorterTypeSorter,
		Grids: []domain.SnapshotGrid{
			{
				Grid: 1,
				Orders: []domain.SnapshotOrder{
					{
						OrderID:           "ORD-1",
						ExternalOrderID:   "OMS-1",
						WorkflowID:        "WAVE-1",
						WorkflowName:      "Morning wave",
						AssortedContainer: "DEST-1",
						Items: []domain.SnapshotItem{
							{
								OrderItemID: "ITEM-1", SKUID: "S1", Barcode: "8801", TotalQty: 2,
								SourceContainers: []domain.SnapshotSourceContainer{{Container: "TOTE-A", Qty: 2}},
							},
							{
								OrderItemID: "ITEM-2", SKUID: "S2", TotalQty: 1,
								SourceContainers: []domain.SnapshotSourceContainer{{Container: "TOTE-A", Qty: 1}},
							},
						},
					},
				},
			},
			{
				Grid: 2,
				Orders: []domain.SnapshotOrder{
					{
						OrderID:           "ORD-2",
						ExternalOrderID:   "OMS-2",
						WorkflowID:        "WAVE-1",
						AssortedContainer: "-",
						Items: []domain.SnapshotItem{
							{
								OrderItemID: "ITEM-3", SKUID: "S1", Barcode: "8801", TotalQty: 1,
								SourceContainers: []domain.SnapshotSourceContainer{{Container: "TOTE-B", Qty: 1}},
							},
						},
					},
				},
			},
			{Grid: 3},
		},
		PendingOrders: []domain.SnapshotOrder{
			{
				OrderID: "ORD-3",
				Items: []domain.SnapshotItem{
					{
						OrderItemID: "ITEM-4", SKUID: "S3", Barcode: "7700", TotalQty: 1,
						SourceContainers: []domain.SnapshotSourceContainer{{Container: "TOTE-A", Qty: 1}},
					},
				},
			},
		},
	}
}

// singleOrderSnapshot has one grid needing one unit from TOTE-Z
func singleOrderSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		StationID:      "STN-9",
		TotalCellCount: 2,
		SorterType:     domain.SorterTypeSorter,
		Grids: []domain.SnapshotGrid{
			{
				Grid: 1,
				Orders: []domain.SnapshotOrder{
					{
						OrderID:           "ORD-9",
						WorkflowID:        "WAVE-9",
						AssortedContainer: "DEST-9",
						Items: []domain.SnapshotItem{
							{
								SKUID: "S9", Barcode: "9900", TotalQty: 1,
								SourceContainers: []domain.SnapshotSourceContainer{{Container: "TOTE-Z", Qty: 1}},
							},
						},
					},
				},
			},
		},
	}
}

func newTestStation(snapshot *domain.Snapshot) *domain.Station {
	station := domain.NewStation(domain.StationConfig{
		DefaultGridCount: domain.DefaultGridCount,
		HistoryCapacity:  domain.DefaultHistoryCapacity,
	}, domain.WithClock(fixedClock))
	if snapshot != nil {
		if err := station.Rebuild(snapshot); err != nil {
			panic(err)
		}
	}
	station.ClearDomainEvents()
	return station
}
