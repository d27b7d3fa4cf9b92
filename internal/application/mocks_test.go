package application

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wms-platform/sorter-station-service/internal/domain"
)

type mockSnapshotSource struct {
	mock.Mock
}

func (m *mockSnapshotSource) FetchSnapshot(ctx context.Context, stationBarcode string) (*domain.Snapshot, error) {
	args := m.Called(ctx, stationBarcode)
	if s := args.Get(0); s != nil {
		return s.(*domain.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockContainerSource struct {
	mock.Mock
}

func (m *mockContainerSource) AvailableContainers(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	if c := args.Get(0); c != nil {
		return c.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockFeedbackSink struct {
	mock.Mock
}

func (m *mockFeedbackSink) SendDropFeedback(ctx context.Context, fb DropFeedback) error {
	return m.Called(ctx, fb).Error(0)
}

func (m *mockFeedbackSink) SendOrderFeedback(ctx context.Context, fb OrderFeedback) error {
	return m.Called(ctx, fb).Error(0)
}

func (m *mockFeedbackSink) SendWaveFeedback(ctx context.Context, fb WaveFeedback) error {
	return m.Called(ctx, fb).Error(0)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}

type mockScanAuditor struct {
	mock.Mock
}

func (m *mockScanAuditor) Record(ctx context.Context, events []domain.DomainEvent) {
	m.Called(ctx, events)
}

type mockAuditTrail struct {
	mock.Mock
}

func (m *mockAuditTrail) Recent(ctx context.Context, stationID string, limit int) ([]AuditEntry, error) {
	args := m.Called(ctx, stationID, limit)
	entries, _ := args.Get(0).([]AuditEntry)
	return entries, args.Error(1)
}
