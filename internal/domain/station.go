package domain

import "time"

// StationConfig holds the station's tunables
type StationConfig struct {
	DefaultGridCount  int
	HistoryCapacity   int
	ForceSorterAccess bool
}

// Station is the aggregate root of the sorter station bounded context. It
// owns the current generation, the active source container and the scan
// history. Station is not safe for concurrent use; callers serialize.
type Station struct {
	config          StationConfig
	state           *StationState
	history         *ScanHistory
	sourceContainer string
	now             func() time.Time
	domainEvents    []DomainEvent
}

// StationOption customizes a Station
type StationOption func(*Station)

// WithClock overrides the station's time source
func WithClock(now func() time.Time) StationOption {
	return func(s *Station) { s.now = now }
}

// NewStation creates a disconnected station with empty grids
func NewStation(config StationConfig, opts ...StationOption) *Station {
	if config.DefaultGridCount <= 0 {
		config.DefaultGridCount = DefaultGridCount
	}
	s := &Station{
		config:       config,
		state:        NewEmptyState(0, config.DefaultGridCount),
		history:      NewScanHistory(config.HistoryCapacity),
		now:          time.Now,
		domainEvents: make([]DomainEvent, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rebuild maps a snapshot into the next generation. On error the current
// generation stays in place untouched.
func (s *Station) Rebuild(snapshot *Snapshot) error {
	next, err := MapSnapshot(snapshot, s.state.Generation+1, MapOptions{
		DefaultGridCount: s.config.DefaultGridCount,
	})
	if err != nil {
		return err
	}
	s.state = next

	s.AddDomainEvent(&SnapshotRebuiltEvent{
		StationID:     next.StationID,
		Generation:    next.Generation,
		WorkflowID:    next.WorkflowID,
		GridCount:     len(next.Grids),
		OrderCount:    len(next.Orders),
		DroppedOrders: next.DroppedOrders,
		RebuiltAt:     s.now(),
	})
	return nil
}

// Reset drops all station data and the active source container. The scan
// history survives.
func (s *Station) Reset() {
	s.state = NewEmptyState(s.state.Generation+1, s.config.DefaultGridCount)
	s.sourceContainer = ""
}

// AccessAllowed reports whether mutating operations are permitted
func (s *Station) AccessAllowed() bool {
	return s.config.ForceSorterAccess || s.state.SorterType == SorterTypeSorter
}

// State returns the live generation. Callers must not retain it across
// operations; use Snapshot for a detached copy.
func (s *Station) State() *StationState {
	return s.state
}

// Snapshot returns a deep copy of the current generation
func (s *Station) Snapshot() *StationState {
	return s.state.Clone()
}

// Generation returns the current generation number
func (s *Station) Generation() uint64 {
	return s.state.Generation
}

// SourceContainer returns the active source container, empty when none
func (s *Station) SourceContainer() string {
	return s.sourceContainer
}

// ActivateSourceContainer validates raw scanner input against the
// inventory index and makes it the active source container.
func (s *Station) ActivateSourceContainer(raw string) (string, error) {
	if !s.AccessAllowed() {
		return "", ErrAccessDenied
	}
	code := NormalizeScanCode(raw)
	if code == "" {
		return "", ErrEmptyScanCode
	}
	if !s.state.Inventory.HasContainer(code) {
		return "", reject(code, ErrUnknownSourceContainer)
	}

	s.history.Record(code)
	s.sourceContainer = code
	s.AddDomainEvent(&SourceContainerActivatedEvent{
		StationID:   s.state.StationID,
		Container:   code,
		ActivatedAt: s.now(),
	})
	return code, nil
}

// ClearSourceContainer releases the active source container and returns it
func (s *Station) ClearSourceContainer() string {
	prev := s.sourceContainer
	if prev == "" {
		return ""
	}
	s.sourceContainer = ""
	s.AddDomainEvent(&SourceContainerClearedEvent{
		StationID: s.state.StationID,
		Container: prev,
		ClearedAt: s.now(),
	})
	return prev
}

// SourceContainerComplete evaluates the completion predicate for the
// active source container on the current generation.
func (s *Station) SourceContainerComplete() bool {
	return IsSourceContainerComplete(s.state, s.sourceContainer)
}

// WaveComplete evaluates wave completion on the current generation
func (s *Station) WaveComplete() bool {
	return IsWaveComplete(s.state)
}

// History returns the recorded scan codes, oldest first, and the cursor
func (s *Station) History() ([]string, int) {
	return s.history.Entries(), s.history.Cursor()
}

// RecallPrevious moves the history cursor back
func (s *Station) RecallPrevious() (string, bool) {
	return s.history.Previous()
}

// RecallNext moves the history cursor forward
func (s *Station) RecallNext() (string, bool) {
	return s.history.Next()
}

// AddDomainEvent adds a domain event
func (s *Station) AddDomainEvent(event DomainEvent) {
	s.domainEvents = append(s.domainEvents, event)
}

// GetDomainEvents returns all domain events
func (s *Station) GetDomainEvents() []DomainEvent {
	return s.domainEvents
}

// ClearDomainEvents clears all domain events
func (s *Station) ClearDomainEvents() {
	s.domainEvents = make([]DomainEvent, 0)
}
