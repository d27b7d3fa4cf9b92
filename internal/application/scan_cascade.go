package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/sorter-station-service/internal/domain"
)

// Scan records one SKU scan and runs the feedback sequence: drop feedback,
// order feedback when the grid completed, wave feedback when the wave
// completed, then a refresh. A failed drop or order feedback forces a full
// resynchronization and is reported as a FeedbackError. When the refreshed
// station shows the active source container as finished, it is cleared
// after the configured delay.
func (s *StationService) Scan(ctx context.Context, code string) (*ScanOutcomeDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.station.RecordScan(code)
	if err != nil {
		s.recordRejectionLocked(ctx, "sku", code, err)
		return nil, fmt.Errorf("scan rejected: %w", err)
	}
	s.recordScanMetricsLocked(result)

	log := s.logger.WithContext(ctx)
	log.Info("Item sorted",
		"sku", result.SKU.String(),
		"sourceContainer", result.SourceContainer,
		"gridId", result.GridID,
		"orderId", result.OrderID,
		"scannedQty", result.ScannedQty,
		"requiredQty", result.RequiredQty,
		"gridCompleted", result.GridCompleted,
		"waveCompleted", result.WaveCompleted,
	)

	outcome := toScanOutcomeDTO(result)
	state := s.station.State()
	drop := buildDropFeedback(state, result)
	var order *OrderFeedback
	if result.GridCompleted {
		order = buildOrderFeedback(state, result)
	}
	wave := WaveFeedback{StationID: state.StationID, WorkflowID: state.WorkflowID}

	s.dispatchLocked(ctx)

	if err := s.sendFeedbackLocked(ctx, FeedbackDrop, result, func(ctx context.Context) error {
		return s.feedback.SendDropFeedback(ctx, drop)
	}); err != nil {
		return nil, s.resynchronizeLocked(ctx, FeedbackDrop, err)
	}

	if order != nil {
		if err := s.sendFeedbackLocked(ctx, FeedbackOrder, result, func(ctx context.Context) error {
			return s.feedback.SendOrderFeedback(ctx, *order)
		}); err != nil {
			return nil, s.resynchronizeLocked(ctx, FeedbackOrder, err)
		}

		if result.WaveCompleted {
			err := s.sendFeedbackLocked(ctx, FeedbackWave, result, func(ctx context.Context) error {
				return s.feedback.SendWaveFeedback(ctx, wave)
			})
			outcome.WaveFeedbackSent = err == nil
		}
	}

	if s.barcode != "" {
		if err := s.refreshLocked(ctx); err != nil {
			log.WithError(err).Warn("Refresh after scan failed")
		} else {
			outcome.Refreshed = true
		}
	}

	// Re-evaluated on whatever generation is current now.
	outcome.SourceContainerCompleted = s.station.SourceContainerComplete()
	if outcome.SourceContainerCompleted {
		if s.metrics != nil {
			s.metrics.RecordSourceContainerCompleted()
		}
		outcome.AutoClearScheduled = s.scheduleAutoClearLocked()
	}
	outcome.DestinationContainer = currentDestination(s.station.State(), result.GridID, outcome.DestinationContainer)
	outcome.Generation = s.station.Generation()

	s.dispatchLocked(ctx)
	return outcome, nil
}

func (s *StationService) recordScanMetricsLocked(result *domain.ScanResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordScan("sku")
	if result.GridCompleted {
		s.metrics.RecordGridCompleted()
	}
	if result.WaveCompleted {
		s.metrics.RecordWaveCompleted()
	}
	s.updateGaugesLocked()
}

func (s *StationService) sendFeedbackLocked(ctx context.Context, kind string, result *domain.ScanResult, send func(context.Context) error) error {
	start := time.Now()
	err := send(ctx)
	duration := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordFeedback(kind, err == nil)
	}
	details := map[string]any{
		"gridId":  result.GridID,
		"orderId": result.OrderID,
	}
	if err != nil {
		details["error"] = err.Error()
	}
	s.logger.Feedback(ctx, kind, err == nil, duration, details)
	return err
}

// resynchronizeLocked replaces local optimistic state with a fresh snapshot
// after a failed feedback. No local rollback is attempted.
func (s *StationService) resynchronizeLocked(ctx context.Context, kind string, cause error) error {
	fbErr := &FeedbackError{Kind: kind, Err: cause}

	if s.barcode != "" {
		err := s.refreshLocked(ctx)
		fbErr.Resynchronized = err == nil
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Error("Resynchronization failed", "feedbackKind", kind)
		}
		if s.metrics != nil {
			s.metrics.RecordResynchronization(kind, err == nil)
		}
	}
	s.dispatchLocked(ctx)
	return fbErr
}

// scheduleAutoClearLocked arms the timer that releases the active source
// container. Any operator action on the source container cancels it.
func (s *StationService) scheduleAutoClearLocked() bool {
	container := s.station.SourceContainer()
	if container == "" || s.closed {
		return false
	}
	s.cancelAutoClearLocked()
	seq := s.autoClearSeq
	s.autoClear = time.AfterFunc(s.autoClearDelay, func() {
		s.runAutoClear(seq, container)
	})
	return true
}

func (s *StationService) cancelAutoClearLocked() {
	if s.autoClear != nil {
		s.autoClear.Stop()
		s.autoClear = nil
	}
	s.autoClearSeq++
}

func (s *StationService) runAutoClear(seq uint64, container string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.autoClearSeq || s.station.SourceContainer() != container {
		return
	}
	s.autoClear = nil
	s.station.ClearSourceContainer()
	s.logger.Info("Source container auto-cleared", "sourceContainer", container)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.dispatchLocked(ctx)
}

func buildDropFeedback(state *domain.StationState, result *domain.ScanResult) DropFeedback {
	fb := DropFeedback{
		StationID:            state.StationID,
		WorkflowID:           state.WorkflowID,
		OrderID:              result.OrderID,
		GridNumber:           result.GridNumber,
		SourceContainer:      result.SourceContainer,
		DestinationContainer: result.DestinationContainer,
		SKUID:                result.SKU.String(),
	}
	if order, ok := state.Order(result.OrderID); ok {
		fb.SKUID = order.CanonicalSKUID(result.SKU)
	}
	return fb
}

// buildOrderFeedback lists the sorted quantity of every SKU of the order,
// keyed by catalog id, in order-line order.
func buildOrderFeedback(state *domain.StationState, result *domain.ScanResult) *OrderFeedback {
	fb := &OrderFeedback{
		StationID:            state.StationID,
		WorkflowID:           state.WorkflowID,
		OrderID:              result.OrderID,
		GridNumber:           result.GridNumber,
		DestinationContainer: result.DestinationContainer,
		Items:                make([]SortedQuantity, 0),
	}
	grid, gridOK := state.Grid(result.GridID)
	order, orderOK := state.Order(result.OrderID)
	if !gridOK || !orderOK {
		return fb
	}

	index := make(map[string]int, len(order.SKUs))
	for _, sku := range order.SKUs {
		id := order.CanonicalSKUID(sku)
		if i, seen := index[id]; seen {
			fb.Items[i].Quantity += grid.ScannedItems[sku]
			continue
		}
		index[id] = len(fb.Items)
		fb.Items = append(fb.Items, SortedQuantity{SKUID: id, Quantity: grid.ScannedItems[sku]})
	}
	return fb
}

func currentDestination(state *domain.StationState, gridID, fallback string) string {
	if grid, ok := state.Grid(gridID); ok && grid.HasDestination() {
		return grid.DestinationContainer
	}
	return fallback
}
