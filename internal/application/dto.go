package application

import (
	"time"

	"github.com/wms-platform/sorter-station-service/internal/domain"
)

// StationDTO is the operator's view of the station
type StationDTO struct {
	StationBarcode  string     `json:"stationBarcode,omitempty"`
	Connected       bool       `json:"connected"`
	StationID       string     `json:"stationId,omitempty"`
	SorterType      string     `json:"sorterType,omitempty"`
	AccessAllowed   bool       `json:"accessAllowed"`
	Generation      uint64     `json:"generation"`
	WorkflowID      string     `json:"workflowId,omitempty"`
	WorkflowName    string     `json:"workflowName,omitempty"`
	SourceContainer string     `json:"sourceContainer,omitempty"`
	WaveComplete    bool       `json:"waveComplete"`
	DroppedOrders   int        `json:"droppedOrders"`
	Grids           []GridDTO  `json:"grids"`
	Orders          []OrderDTO `json:"orders"`
}

// GridDTO summarizes one grid
type GridDTO struct {
	ID                   string         `json:"id"`
	Number               int            `json:"number"`
	Status               string         `json:"status"`
	DestinationContainer string         `json:"destinationContainer,omitempty"`
	ProvisionalContainer bool           `json:"provisionalContainer"`
	AssignedOrderID      string         `json:"assignedOrderId,omitempty"`
	ScannedItems         map[string]int `json:"scannedItems"`
}

// GridItemDTO is required versus scanned for one SKU of a grid's order
type GridItemDTO struct {
	SKU      string `json:"sku"`
	SKUID    string `json:"skuId,omitempty"`
	Barcode  string `json:"barcode,omitempty"`
	Required int    `json:"required"`
	Scanned  int    `json:"scanned"`
}

// ScanLogDTO is one scan log entry
type ScanLogDTO struct {
	SKU       string    `json:"sku"`
	ScannedAt time.Time `json:"scannedAt"`
}

// GridDetailDTO is a grid with its order lines and scan log
type GridDetailDTO struct {
	GridDTO
	ExternalOrderID string        `json:"externalOrderId,omitempty"`
	Items           []GridItemDTO `json:"items"`
	ScanLog         []ScanLogDTO  `json:"scanLog"`
}

// OrderDTO summarizes one order
type OrderDTO struct {
	OrderID         string         `json:"orderId"`
	ExternalOrderID string         `json:"externalOrderId,omitempty"`
	WorkflowID      string         `json:"workflowId,omitempty"`
	AllocatedSlot   string         `json:"allocatedSlot,omitempty"`
	IsComplete      bool           `json:"isComplete"`
	RequiredItems   map[string]int `json:"requiredItems"`
}

// SourceContainerItemDTO is per-SKU progress of a source container
type SourceContainerItemDTO struct {
	SKU         string `json:"sku"`
	SKUID       string `json:"skuId,omitempty"`
	Barcode     string `json:"barcode,omitempty"`
	RequiredQty int    `json:"requiredQty"`
	WorkedQty   int    `json:"workedQty"`
	Done        bool   `json:"done"`
}

// SourceContainerDTO is the progress of one source container
type SourceContainerDTO struct {
	Container string                   `json:"container"`
	Active    bool                     `json:"active"`
	Done      bool                     `json:"done"`
	Items     []SourceContainerItemDTO `json:"items"`
}

// ScanOutcomeDTO reports an accepted scan and what followed it
type ScanOutcomeDTO struct {
	Code                     string    `json:"code"`
	SKU                      string    `json:"sku"`
	SourceContainer          string    `json:"sourceContainer"`
	GridID                   string    `json:"gridId"`
	OrderID                  string    `json:"orderId"`
	DestinationContainer     string    `json:"destinationContainer,omitempty"`
	ScannedQty               int       `json:"scannedQty"`
	RequiredQty              int       `json:"requiredQty"`
	NewlyAllocated           bool      `json:"newlyAllocated"`
	GridCompleted            bool      `json:"gridCompleted"`
	WaveCompleted            bool      `json:"waveCompleted"`
	WaveFeedbackSent         bool      `json:"waveFeedbackSent"`
	SourceContainerCompleted bool      `json:"sourceContainerCompleted"`
	AutoClearScheduled       bool      `json:"autoClearScheduled"`
	Refreshed                bool      `json:"refreshed"`
	Generation               uint64    `json:"generation"`
	ScannedAt                time.Time `json:"scannedAt"`
}

// HistoryDTO is the scan history with its recall cursor
type HistoryDTO struct {
	Entries []string `json:"entries"`
	Cursor  int      `json:"cursor"`
}

// RecallDTO is the code under the recall cursor after a move
type RecallDTO struct {
	Code   string `json:"code"`
	Moved  bool   `json:"moved"`
	Cursor int    `json:"cursor"`
}

// AutoFillDTO reports provisional containers assigned
type AutoFillDTO struct {
	Filled  int        `json:"filled"`
	Station StationDTO `json:"station"`
}

func toStationDTO(station *domain.Station, barcode string) StationDTO {
	state := station.State()
	dto := StationDTO{
		StationBarcode:  barcode,
		Connected:       barcode != "",
		StationID:       state.StationID,
		SorterType:      state.SorterType,
		AccessAllowed:   station.AccessAllowed(),
		Generation:      state.Generation,
		WorkflowID:      state.WorkflowID,
		WorkflowName:    state.WorkflowName,
		SourceContainer: station.SourceContainer(),
		WaveComplete:    station.WaveComplete(),
		DroppedOrders:   state.DroppedOrders,
		Grids:           make([]GridDTO, 0, len(state.Grids)),
		Orders:          make([]OrderDTO, 0, len(state.Orders)),
	}
	for _, g := range state.Grids {
		dto.Grids = append(dto.Grids, toGridDTO(g))
	}
	for _, o := range state.Orders {
		dto.Orders = append(dto.Orders, toOrderDTO(o))
	}
	return dto
}

func toGridDTO(g *domain.Grid) GridDTO {
	scanned := make(map[string]int, len(g.ScannedItems))
	for sku, qty := range g.ScannedItems {
		scanned[sku.String()] = qty
	}
	return GridDTO{
		ID:                   g.ID,
		Number:               g.Number,
		Status:               string(g.Status),
		DestinationContainer: g.DestinationContainer,
		ProvisionalContainer: g.ProvisionalContainer,
		AssignedOrderID:      g.AssignedOrderID,
		ScannedItems:         scanned,
	}
}

func toOrderDTO(o *domain.Order) OrderDTO {
	required := make(map[string]int, len(o.RequiredItems))
	for sku, qty := range o.RequiredItems {
		required[sku.String()] = qty
	}
	return OrderDTO{
		OrderID:         o.OrderID,
		ExternalOrderID: o.ExternalOrderID,
		WorkflowID:      o.WorkflowID,
		AllocatedSlot:   o.AllocatedSlot,
		IsComplete:      o.IsComplete,
		RequiredItems:   required,
	}
}

func toGridDetailDTO(state *domain.StationState, g *domain.Grid) GridDetailDTO {
	dto := GridDetailDTO{
		GridDTO: toGridDTO(g),
		Items:   make([]GridItemDTO, 0),
		ScanLog: make([]ScanLogDTO, 0, len(g.ScanLog)),
	}
	if order, ok := state.Order(g.AssignedOrderID); ok {
		dto.ExternalOrderID = order.ExternalOrderID
		for _, sku := range order.SKUs {
			info := order.SKUInfo[sku]
			dto.Items = append(dto.Items, GridItemDTO{
				SKU:      sku.String(),
				SKUID:    info.SKUID,
				Barcode:  info.Barcode,
				Required: order.RequiredItems[sku],
				Scanned:  g.ScannedItems[sku],
			})
		}
	}
	for _, entry := range g.ScanLog {
		dto.ScanLog = append(dto.ScanLog, ScanLogDTO{SKU: entry.SKU.String(), ScannedAt: entry.ScannedAt})
	}
	return dto
}

func toSourceContainerDTOs(state *domain.StationState, active string) []SourceContainerDTO {
	summaries := domain.SummarizeSourceContainers(state)
	out := make([]SourceContainerDTO, 0, len(summaries))
	for _, s := range summaries {
		dto := SourceContainerDTO{
			Container: s.Container,
			Active:    s.Container == active,
			Done:      s.Done,
			Items:     make([]SourceContainerItemDTO, 0, len(s.Items)),
		}
		for _, item := range s.Items {
			dto.Items = append(dto.Items, SourceContainerItemDTO{
				SKU:         item.SKU.String(),
				SKUID:       item.SKUID,
				Barcode:     item.Barcode,
				RequiredQty: item.RequiredQty,
				WorkedQty:   item.WorkedQty,
				Done:        item.Done,
			})
		}
		out = append(out, dto)
	}
	return out
}

func toScanOutcomeDTO(r *domain.ScanResult) *ScanOutcomeDTO {
	return &ScanOutcomeDTO{
		Code:                     r.Code,
		SKU:                      r.SKU.String(),
		SourceContainer:          r.SourceContainer,
		GridID:                   r.GridID,
		OrderID:                  r.OrderID,
		DestinationContainer:     r.DestinationContainer,
		ScannedQty:               r.ScannedQty,
		RequiredQty:              r.RequiredQty,
		NewlyAllocated:           r.NewlyAllocated,
		GridCompleted:            r.GridCompleted,
		WaveCompleted:            r.WaveCompleted,
		SourceContainerCompleted: r.SourceContainerCompleted,
		Generation:               r.Generation,
		ScannedAt:                r.ScannedAt,
	}
}
