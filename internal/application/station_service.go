package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wms-platform/sorter-station-service/internal/domain"
	apperrors "github.com/wms-platform/sorter-station-service/pkg/errors"
	"github.com/wms-platform/sorter-station-service/pkg/logging"
	"github.com/wms-platform/sorter-station-service/pkg/metrics"
)

// Config tunes the station service
type Config struct {
	// AutoClearDelay is how long a completed source container stays active
	// so the operator can see the last scan.
	AutoClearDelay time.Duration
}

// Dependencies are the collaborators of the station service. Publisher,
// Auditor, AuditTrail and Metrics are optional.
type Dependencies struct {
	Snapshots  SnapshotSource
	Containers ContainerSource
	Feedback   FeedbackSink
	Publisher  EventPublisher
	Auditor    ScanAuditor
	AuditTrail AuditTrail
	Metrics    *metrics.Metrics
	Logger     *logging.Logger
}

// StationService is the application service for one sorter station. Every
// operation holds the station lock for its whole duration, including the
// upstream calls of a scan cascade, so operator actions never interleave.
type StationService struct {
	mu      sync.Mutex
	station *domain.Station
	barcode string

	snapshots  SnapshotSource
	containers ContainerSource
	feedback   FeedbackSink
	publisher  EventPublisher
	auditor    ScanAuditor
	auditTrail AuditTrail
	metrics    *metrics.Metrics
	logger     *logging.Logger

	autoClearDelay time.Duration
	autoClear      *time.Timer
	autoClearSeq   uint64
	closed         bool
}

// NewStationService creates a new StationService
func NewStationService(station *domain.Station, deps Dependencies, cfg Config) *StationService {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StationService{
		station:        station,
		snapshots:      deps.Snapshots,
		containers:     deps.Containers,
		feedback:       deps.Feedback,
		publisher:      deps.Publisher,
		auditor:        deps.Auditor,
		auditTrail:     deps.AuditTrail,
		metrics:        deps.Metrics,
		logger:         logger.WithComponent("station-service"),
		autoClearDelay: cfg.AutoClearDelay,
	}
}

// Connect binds the service to a station barcode and loads its snapshot
func (s *StationService) Connect(ctx context.Context, stationBarcode string) (*StationDTO, error) {
	barcode := strings.TrimSpace(stationBarcode)
	if barcode == "" {
		return nil, apperrors.ErrValidation("station barcode is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Connecting station", "stationBarcode", barcode)

	snapshot, err := s.snapshots.FetchSnapshot(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch station snapshot: %w", err)
	}

	if s.barcode != barcode {
		s.cancelAutoClearLocked()
		s.station.ClearSourceContainer()
	}
	if err := s.rebuildLocked(ctx, snapshot); err != nil {
		return nil, err
	}
	s.barcode = barcode
	s.autoFillAfterRebuildLocked(ctx)
	s.dispatchLocked(ctx)

	view := toStationDTO(s.station, s.barcode)
	s.logger.Info("Station connected",
		"stationBarcode", barcode,
		"stationId", view.StationID,
		"generation", view.Generation,
		"accessAllowed", view.AccessAllowed,
	)
	return &view, nil
}

// Disconnect forgets the station and empties every grid. History is kept.
func (s *StationService) Disconnect(ctx context.Context) StationDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAutoClearLocked()
	s.station.ClearSourceContainer()
	s.station.Reset()
	s.logger.Info("Station disconnected", "stationBarcode", s.barcode)
	s.barcode = ""
	s.dispatchLocked(ctx)
	s.updateGaugesLocked()

	return toStationDTO(s.station, s.barcode)
}

// Refresh re-fetches the snapshot of the connected station
func (s *StationService) Refresh(ctx context.Context) (*StationDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(ctx); err != nil {
		return nil, err
	}
	s.dispatchLocked(ctx)

	view := toStationDTO(s.station, s.barcode)
	return &view, nil
}

// PushSnapshot rebuilds the station from a snapshot delivered by the caller
func (s *StationService) PushSnapshot(ctx context.Context, snapshot *domain.Snapshot) (*StationDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rebuildLocked(ctx, snapshot); err != nil {
		return nil, err
	}
	s.autoFillAfterRebuildLocked(ctx)
	s.dispatchLocked(ctx)

	view := toStationDTO(s.station, s.barcode)
	return &view, nil
}

// Station returns the current station view
func (s *StationService) Station() StationDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toStationDTO(s.station, s.barcode)
}

// Grid returns one grid with its order lines and scan log
func (s *StationService) Grid(gridID string) (*GridDetailDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.station.State()
	grid, ok := state.Grid(gridID)
	if !ok {
		return nil, domain.ErrGridNotFound
	}
	detail := toGridDetailDTO(state, grid)
	return &detail, nil
}

// SourceContainers summarizes every source container the station expects
func (s *StationService) SourceContainers() []SourceContainerDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toSourceContainerDTOs(s.station.State(), s.station.SourceContainer())
}

// ChangeContainer replaces a grid's provisional destination container
func (s *StationService) ChangeContainer(ctx context.Context, gridID, container string) (*GridDetailDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.station.ChangeContainer(gridID, container); err != nil {
		s.logger.Warn("Container change rejected", "gridId", gridID, "container", container, "error", err.Error())
		return nil, fmt.Errorf("failed to change container: %w", err)
	}
	s.dispatchLocked(ctx)

	state := s.station.State()
	grid, _ := state.Grid(gridID)
	s.logger.Info("Container changed", "gridId", gridID, "container", grid.DestinationContainer)
	detail := toGridDetailDTO(state, grid)
	return &detail, nil
}

// AutoFill assigns provisional containers to grids without a destination
func (s *StationService) AutoFill(ctx context.Context) (*AutoFillDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.station.AccessAllowed() {
		return nil, domain.ErrAccessDenied
	}
	filled, err := s.autoFillLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.dispatchLocked(ctx)

	return &AutoFillDTO{Filled: filled, Station: toStationDTO(s.station, s.barcode)}, nil
}

// ActivateSourceContainer makes a scanned source container active, then
// refreshes the connected station.
func (s *StationService) ActivateSourceContainer(ctx context.Context, code string) (*StationDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAutoClearLocked()

	container, err := s.station.ActivateSourceContainer(code)
	if err != nil {
		s.recordRejectionLocked(ctx, "source_container", code, err)
		return nil, fmt.Errorf("failed to activate source container: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordScan("source_container")
	}
	s.logger.Info("Source container activated", "sourceContainer", container)

	if s.barcode != "" {
		if err := s.refreshLocked(ctx); err != nil {
			s.logger.WithError(err).Warn("Refresh after source container activation failed")
		}
	}
	s.dispatchLocked(ctx)

	view := toStationDTO(s.station, s.barcode)
	return &view, nil
}

// ClearSourceContainer deactivates the active source container
func (s *StationService) ClearSourceContainer(ctx context.Context) StationDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAutoClearLocked()
	if prev := s.station.ClearSourceContainer(); prev != "" {
		s.logger.Info("Source container cleared", "sourceContainer", prev)
	}
	s.dispatchLocked(ctx)
	return toStationDTO(s.station, s.barcode)
}

// History returns the scan history and recall cursor
func (s *StationService) History() HistoryDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, cursor := s.station.History()
	return HistoryDTO{Entries: entries, Cursor: cursor}
}

// AuditTrail returns the most recent audit entries of the connected station.
// It reads the audit store only; engine state is never rebuilt from it.
func (s *StationService) AuditTrail(ctx context.Context, limit int) ([]AuditEntry, error) {
	s.mu.Lock()
	stationID := s.station.State().StationID
	connected := s.barcode != ""
	s.mu.Unlock()

	if s.auditTrail == nil || !connected || stationID == "" {
		return []AuditEntry{}, nil
	}
	entries, err := s.auditTrail.Recent(ctx, stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}
	return entries, nil
}

// HistoryPrevious moves the recall cursor back
func (s *StationService) HistoryPrevious() RecallDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, moved := s.station.RecallPrevious()
	_, cursor := s.station.History()
	return RecallDTO{Code: code, Moved: moved, Cursor: cursor}
}

// HistoryNext moves the recall cursor forward
func (s *StationService) HistoryNext() RecallDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, moved := s.station.RecallNext()
	_, cursor := s.station.History()
	return RecallDTO{Code: code, Moved: moved, Cursor: cursor}
}

// Close stops a pending auto-clear. The service must not be used afterwards.
func (s *StationService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelAutoClearLocked()
}

func (s *StationService) rebuildLocked(ctx context.Context, snapshot *domain.Snapshot) error {
	err := s.station.Rebuild(snapshot)
	state := s.station.State()
	if s.metrics != nil {
		s.metrics.RecordSnapshotRebuild(err == nil, state.Generation, state.DroppedOrders)
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Snapshot rejected, keeping current generation",
			"generation", state.Generation)
		return fmt.Errorf("failed to rebuild station: %w", err)
	}
	if state.DroppedOrders > 0 {
		s.logger.WithContext(ctx).Warn("Snapshot grids carried more than one order, extra orders ignored",
			"droppedOrders", state.DroppedOrders)
	}
	s.logger.WithContext(ctx).Debug("Station rebuilt",
		"generation", state.Generation,
		"grids", len(state.Grids),
		"orders", len(state.Orders),
	)
	s.updateGaugesLocked()
	return nil
}

func (s *StationService) refreshLocked(ctx context.Context) error {
	if s.barcode == "" {
		return ErrStationNotConnected
	}
	snapshot, err := s.snapshots.FetchSnapshot(ctx, s.barcode)
	if err != nil {
		return fmt.Errorf("failed to fetch station snapshot: %w", err)
	}
	if err := s.rebuildLocked(ctx, snapshot); err != nil {
		return err
	}
	s.autoFillAfterRebuildLocked(ctx)
	return nil
}

// autoFillAfterRebuildLocked provisions containers after a rebuild. Failures
// are logged; the rebuild itself already succeeded.
func (s *StationService) autoFillAfterRebuildLocked(ctx context.Context) {
	if !s.station.AccessAllowed() {
		return
	}
	if _, err := s.autoFillLocked(ctx); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Container auto-fill failed")
	}
}

func (s *StationService) autoFillLocked(ctx context.Context) (int, error) {
	state := s.station.State()
	if state.GridsWithoutDestination() == 0 {
		return 0, nil
	}
	candidates, err := s.containers.AvailableContainers(ctx, len(state.Grids))
	if err != nil {
		return 0, fmt.Errorf("failed to list available containers: %w", err)
	}
	filled, err := s.station.AutoFillContainers(candidates)
	if err != nil {
		return 0, err
	}
	if filled > 0 {
		s.logger.WithContext(ctx).Info("Provisional containers assigned",
			"filled", filled, "candidates", len(candidates))
	}
	return filled, nil
}

// dispatchLocked hands accumulated domain events to the publisher and the
// auditor. Both are best effort.
func (s *StationService) dispatchLocked(ctx context.Context) {
	events := s.station.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	s.station.ClearDomainEvents()

	if s.auditor != nil {
		s.auditor.Record(ctx, events)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAll(ctx, events); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish station events", "count", len(events))
		}
	}
}

func (s *StationService) recordRejectionLocked(ctx context.Context, kind, raw string, err error) {
	if s.metrics != nil {
		s.metrics.RecordScanRejected(kind, rejectionReason(err))
	}
	s.logger.ScanRejected(ctx, domain.NormalizeScanCode(raw), s.station.SourceContainer(), err.Error())
}

func (s *StationService) updateGaugesLocked() {
	if s.metrics == nil {
		return
	}
	counts := s.station.State().CountByStatus()
	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}
	s.metrics.SetGridsByStatus(byStatus)
}
