package domain

import "strings"

// AutoFillContainers assigns provisional destination containers to every
// grid without one, walking candidates in order. Blank candidates and
// containers already held by a grid are skipped. Returns the number of
// grids filled.
func (s *Station) AutoFillContainers(candidates []string) (int, error) {
	if !s.AccessAllowed() {
		return 0, ErrAccessDenied
	}

	inUse := make(map[string]struct{}, len(s.state.Grids))
	for _, g := range s.state.Grids {
		if g.HasDestination() {
			inUse[g.DestinationContainer] = struct{}{}
		}
	}

	assignments := make(map[string]string)
	next := 0
	for _, grid := range s.state.Grids {
		if grid.HasDestination() {
			continue
		}
		container := ""
		for next < len(candidates) && container == "" {
			c := strings.TrimSpace(candidates[next])
			next++
			if IsAbsentContainer(c) {
				continue
			}
			if _, used := inUse[c]; used {
				continue
			}
			container = c
		}
		if container == "" {
			break
		}
		grid.DestinationContainer = container
		grid.ProvisionalContainer = true
		inUse[container] = struct{}{}
		assignments[grid.ID] = container
	}

	if len(assignments) > 0 {
		s.AddDomainEvent(&ContainersProvisionedEvent{
			StationID:     s.state.StationID,
			Assignments:   assignments,
			ProvisionedAt: s.now(),
		})
	}
	return len(assignments), nil
}

// ChangeContainer replaces the provisional destination of a grid. Confirmed
// destinations cannot be changed, and a container may back only one grid.
func (s *Station) ChangeContainer(gridID, raw string) error {
	if !s.AccessAllowed() {
		return ErrAccessDenied
	}
	grid, ok := s.state.Grid(gridID)
	if !ok {
		return ErrGridNotFound
	}
	if !grid.ProvisionalContainer {
		return ErrContainerNotChangeable
	}
	container := strings.TrimSpace(raw)
	if IsAbsentContainer(container) {
		return ErrEmptyContainerCode
	}
	for _, other := range s.state.Grids {
		if other.ID != grid.ID && other.DestinationContainer == container {
			return &DuplicateContainerError{Container: container, GridID: other.ID}
		}
	}

	prev := grid.DestinationContainer
	grid.DestinationContainer = container
	s.AddDomainEvent(&ContainerChangedEvent{
		StationID: s.state.StationID,
		GridID:    grid.ID,
		Previous:  prev,
		Container: container,
		ChangedAt: s.now(),
	})
	return nil
}
