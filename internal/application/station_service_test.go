package application

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wms-platform/sorter-station-service/internal/domain"
	apperrors "github.com/wms-platform/sorter-station-service/pkg/errors"
	"github.com/wms-platform/sorter-station-service/pkg/logging"
	"github.com/wms-platform/sorter-station-service/pkg/metrics"
)

const stationBarcode = "ST-BARCODE-1"

// stationSnapshot is a two-cell sorter station: grid 1 holds ORD-1, which
// needs one 8801 out of TOTE-A; grid 2 is empty.
func stationSnapshot(worked int) *domain.Snapshot {
	return &domain.Snapshot{
		StationID:      "101",
		TotalCellCount: 2,
		SorterType:     domain.SorterTypeSorter,
		Grids: []domain.SnapshotGrid{
			{
				Grid: 1,
				Orders: []domain.SnapshotOrder{{
					OrderID:           "ORD-1",
					ExternalOrderID:   "OMS-1",
					WorkflowID:        "WAVE-1",
					WorkflowName:      "Morning wave",
					AssortedContainer: "DEST-1",
					Items: []domain.SnapshotItem{{
						SKUID:          "SKU-A",
						Barcode:        "8801",
						TotalQty:       1,
						TotalWorkedQty: worked,
						SourceContainers: []domain.SnapshotSourceContainer{
							{Container: "TOTE-A", Qty: 1, WorkedQty: worked},
						},
					}},
				}},
			},
		},
	}
}

type serviceFixture struct {
	service    *StationService
	snapshots  *mockSnapshotSource
	containers *mockContainerSource
	feedback   *mockFeedbackSink
	publisher  *mockEventPublisher
	auditor    *mockScanAuditor
	auditTrail *mockAuditTrail
}

func newServiceFixture(t *testing.T, delay time.Duration) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		snapshots:  &mockSnapshotSource{},
		containers: &mockContainerSource{},
		feedback:   &mockFeedbackSink{},
		publisher:  &mockEventPublisher{},
		auditor:    &mockScanAuditor{},
		auditTrail: &mockAuditTrail{},
	}
	f.containers.On("AvailableContainers", mock.Anything, 2).Return([]string{"BOX-1", "BOX-2"}, nil).Maybe()
	f.publisher.On("PublishAll", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.auditor.On("Record", mock.Anything, mock.Anything).Return().Maybe()

	station := domain.NewStation(domain.StationConfig{DefaultGridCount: 2, HistoryCapacity: 50})
	f.service = NewStationService(station, Dependencies{
		Snapshots:  f.snapshots,
		Containers: f.containers,
		Feedback:   f.feedback,
		Publisher:  f.publisher,
		Auditor:    f.auditor,
		AuditTrail: f.auditTrail,
		Metrics:    metrics.New(metrics.DefaultConfig("sorter-station-service-test")),
		Logger:     logging.NewNop(),
	}, Config{AutoClearDelay: delay})
	t.Cleanup(f.service.Close)
	return f
}

func (f *serviceFixture) connectAndActivate(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.service.Connect(ctx, stationBarcode)
	require.NoError(t, err)
	_, err = f.service.ActivateSourceContainer(ctx, "tote-a")
	require.NoError(t, err)
}

func TestStationService_Connect(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil).Once()

	view, err := f.service.Connect(context.Background(), "  "+stationBarcode+" ")

	require.NoError(t, err)
	assert.True(t, view.Connected)
	assert.True(t, view.AccessAllowed)
	assert.Equal(t, "101", view.StationID)
	assert.Equal(t, "WAVE-1", view.WorkflowID)
	assert.Equal(t, uint64(1), view.Generation)
	require.Len(t, view.Grids, 2)
	assert.Equal(t, "DEST-1", view.Grids[0].DestinationContainer)
	assert.False(t, view.Grids[0].ProvisionalContainer)
	assert.Equal(t, "BOX-1", view.Grids[1].DestinationContainer)
	assert.True(t, view.Grids[1].ProvisionalContainer)
	f.containers.AssertCalled(t, "AvailableContainers", mock.Anything, 2)
	f.publisher.AssertCalled(t, "PublishAll", mock.Anything, mock.Anything)
}

func TestStationService_Connect_BlankBarcode(t *testing.T) {
	f := newServiceFixture(t, time.Hour)

	_, err := f.service.Connect(context.Background(), "   ")

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	f.snapshots.AssertNotCalled(t, "FetchSnapshot", mock.Anything, mock.Anything)
}

func TestStationService_Connect_MalformedSnapshot(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	bad := stationSnapshot(0)
	bad.TotalCellCount = -1
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(bad, nil).Once()

	_, err := f.service.Connect(context.Background(), stationBarcode)

	require.ErrorIs(t, err, domain.ErrMalformedSnapshot)
	appErr := MapError(err)
	assert.Equal(t, apperrors.CodeMalformedSnapshot, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	view := f.service.Station()
	assert.False(t, view.Connected)
	assert.Equal(t, uint64(0), view.Generation)
}

func TestStationService_Scan_FullCascade(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil)
	f.feedback.On("SendDropFeedback", mock.Anything, DropFeedback{
		StationID:            "101",
		WorkflowID:           "WAVE-1",
		OrderID:              "ORD-1",
		GridNumber:           1,
		SourceContainer:      "TOTE-A",
		DestinationContainer: "DEST-1",
		SKUID:                "SKU-A",
	}).Return(nil).Once()
	f.feedback.On("SendOrderFeedback", mock.Anything, OrderFeedback{
		StationID:            "101",
		WorkflowID:           "WAVE-1",
		OrderID:              "ORD-1",
		GridNumber:           1,
		DestinationContainer: "DEST-1",
		Items:                []SortedQuantity{{SKUID: "SKU-A", Quantity: 1}},
	}).Return(nil).Once()
	f.feedback.On("SendWaveFeedback", mock.Anything, WaveFeedback{StationID: "101", WorkflowID: "WAVE-1"}).Return(nil).Once()
	f.connectAndActivate(t)

	outcome, err := f.service.Scan(context.Background(), " 8801 ")

	require.NoError(t, err)
	assert.Equal(t, "GRID-01", outcome.GridID)
	assert.Equal(t, "ORD-1", outcome.OrderID)
	assert.True(t, outcome.GridCompleted)
	assert.True(t, outcome.WaveCompleted)
	assert.True(t, outcome.WaveFeedbackSent)
	assert.True(t, outcome.Refreshed)
	// the refreshed snapshot still owes the unit, so the tote stays active
	assert.False(t, outcome.SourceContainerCompleted)
	assert.False(t, outcome.AutoClearScheduled)
	assert.Equal(t, uint64(3), outcome.Generation)
	f.feedback.AssertExpectations(t)
	f.snapshots.AssertNumberOfCalls(t, "FetchSnapshot", 3)

	history := f.service.History()
	assert.Equal(t, []string{"TOTE-A", "8801"}, history.Entries)
}

func TestStationService_Scan_DropFeedbackFailureResynchronizes(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil)
	f.feedback.On("SendDropFeedback", mock.Anything, mock.Anything).Return(errors.New("upstream said NO")).Once()
	f.connectAndActivate(t)

	outcome, err := f.service.Scan(context.Background(), "8801")

	assert.Nil(t, outcome)
	var fbErr *FeedbackError
	require.ErrorAs(t, err, &fbErr)
	assert.Equal(t, FeedbackDrop, fbErr.Kind)
	assert.True(t, fbErr.Resynchronized)

	appErr := MapError(err)
	assert.Equal(t, apperrors.CodeFeedbackFailed, appErr.Code)
	assert.Equal(t, "true", appErr.Details["resynchronized"])

	f.feedback.AssertNotCalled(t, "SendOrderFeedback", mock.Anything, mock.Anything)
	view := f.service.Station()
	assert.Equal(t, 0, view.Grids[0].ScannedItems["8801"], "local optimistic scan superseded")
	assert.Equal(t, "TOTE-A", view.SourceContainer)
}

func TestStationService_Scan_OrderFeedbackFailure(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil)
	f.feedback.On("SendDropFeedback", mock.Anything, mock.Anything).Return(nil).Once()
	f.feedback.On("SendOrderFeedback", mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()
	f.connectAndActivate(t)

	_, err := f.service.Scan(context.Background(), "8801")

	var fbErr *FeedbackError
	require.ErrorAs(t, err, &fbErr)
	assert.Equal(t, FeedbackOrder, fbErr.Kind)
	f.feedback.AssertNotCalled(t, "SendWaveFeedback", mock.Anything, mock.Anything)
}

func TestStationService_Scan_WaveFeedbackFailureIsNotReported(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil)
	f.feedback.On("SendDropFeedback", mock.Anything, mock.Anything).Return(nil).Once()
	f.feedback.On("SendOrderFeedback", mock.Anything, mock.Anything).Return(nil).Once()
	f.feedback.On("SendWaveFeedback", mock.Anything, mock.Anything).Return(errors.New("wave closed")).Once()
	f.connectAndActivate(t)

	outcome, err := f.service.Scan(context.Background(), "8801")

	require.NoError(t, err)
	assert.True(t, outcome.WaveCompleted)
	assert.False(t, outcome.WaveFeedbackSent)
	assert.True(t, outcome.Refreshed)
}

func TestStationService_Scan_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		activate bool
		code     string
		wantErr  error
		wantCode string
	}{
		{name: "no active source container", code: "8801", wantErr: domain.ErrNoActiveSourceContainer, wantCode: apperrors.CodeScanRejected},
		{name: "sku not in tote", activate: true, code: "9999", wantErr: domain.ErrSKUNotInSourceContainer, wantCode: apperrors.CodeScanRejected},
		{name: "blank code", activate: true, code: "  ", wantErr: domain.ErrEmptyScanCode, wantCode: apperrors.CodeValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, time.Hour)
			f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil)
			_, err := f.service.Connect(context.Background(), stationBarcode)
			require.NoError(t, err)
			if tt.activate {
				_, err = f.service.ActivateSourceContainer(context.Background(), "TOTE-A")
				require.NoError(t, err)
			}

			_, err = f.service.Scan(context.Background(), tt.code)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, MapError(err).Code)
			f.feedback.AssertNotCalled(t, "SendDropFeedback", mock.Anything, mock.Anything)
		})
	}
}

func TestStationService_Scan_PushedSnapshotWithoutConnection(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	snapshot := stationSnapshot(0)
	snapshot.PendingOrders = []domain.SnapshotOrder{{
		OrderID:    "ORD-2",
		WorkflowID: "WAVE-1",
		Items: []domain.SnapshotItem{{
			SKUID:            "SKU-B",
			Barcode:          "8802",
			TotalQty:         1,
			SourceContainers: []domain.SnapshotSourceContainer{{Container: "TOTE-A", Qty: 1}},
		}},
	}}
	f.feedback.On("SendDropFeedback", mock.Anything, mock.Anything).Return(nil)
	f.feedback.On("SendOrderFeedback", mock.Anything, mock.Anything).Return(nil)
	f.feedback.On("SendWaveFeedback", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	_, err := f.service.PushSnapshot(ctx, snapshot)
	require.NoError(t, err)
	_, err = f.service.ActivateSourceContainer(ctx, "TOTE-A")
	require.NoError(t, err)

	outcome, err := f.service.Scan(ctx, "8802")

	require.NoError(t, err)
	assert.Equal(t, "GRID-02", outcome.GridID)
	assert.True(t, outcome.NewlyAllocated)
	assert.True(t, outcome.GridCompleted)
	assert.False(t, outcome.WaveCompleted, "ORD-1 is still open")
	assert.False(t, outcome.Refreshed)
	f.snapshots.AssertNotCalled(t, "FetchSnapshot", mock.Anything, mock.Anything)
}

func TestStationService_AutoClearAfterSourceContainerCompletes(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newServiceFixture(t, 10*time.Millisecond)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil).Twice()
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(1), nil)
	f.feedback.On("SendDropFeedback", mock.Anything, mock.Anything).Return(nil)
	f.feedback.On("SendOrderFeedback", mock.Anything, mock.Anything).Return(nil)
	f.feedback.On("SendWaveFeedback", mock.Anything, mock.Anything).Return(nil)
	f.connectAndActivate(t)

	outcome, err := f.service.Scan(context.Background(), "8801")

	require.NoError(t, err)
	assert.True(t, outcome.SourceContainerCompleted)
	assert.True(t, outcome.AutoClearScheduled)
	assert.Eventually(t, func() bool {
		return f.service.Station().SourceContainer == ""
	}, time.Second, 5*time.Millisecond)
}

func TestStationService_AutoClearCancelledByOperator(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newServiceFixture(t, 30*time.Millisecond)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil).Twice()
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(1), nil)
	f.feedback.On("SendDropFeedback", mock.Anything, mock.Anything).Return(nil)
	f.feedback.On("SendOrderFeedback", mock.Anything, mock.Anything).Return(nil)
	f.feedback.On("SendWaveFeedback", mock.Anything, mock.Anything).Return(nil)
	f.connectAndActivate(t)

	outcome, err := f.service.Scan(context.Background(), "8801")
	require.NoError(t, err)
	require.True(t, outcome.AutoClearScheduled)

	// re-scanning the tote re-arms nothing and keeps it active
	_, err = f.service.ActivateSourceContainer(context.Background(), "TOTE-A")
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, "TOTE-A", f.service.Station().SourceContainer)
}

func TestStationService_RefreshRequiresConnection(t *testing.T) {
	f := newServiceFixture(t, time.Hour)

	_, err := f.service.Refresh(context.Background())

	require.ErrorIs(t, err, ErrStationNotConnected)
	assert.Equal(t, apperrors.CodeConflict, MapError(err).Code)
}

func TestStationService_Disconnect(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil)
	f.connectAndActivate(t)

	view := f.service.Disconnect(context.Background())

	assert.False(t, view.Connected)
	assert.Empty(t, view.SourceContainer)
	assert.Empty(t, view.Orders)
	for _, g := range view.Grids {
		assert.Equal(t, string(domain.GridStatusEmpty), g.Status)
	}
	assert.Equal(t, []string{"TOTE-A"}, f.service.History().Entries)
}

func TestStationService_AccessDeniedForNonSorter(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	snapshot := stationSnapshot(0)
	snapshot.SorterType = "PUT_WALL"
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(snapshot, nil)
	ctx := context.Background()

	view, err := f.service.Connect(ctx, stationBarcode)
	require.NoError(t, err)
	assert.False(t, view.AccessAllowed)
	f.containers.AssertNotCalled(t, "AvailableContainers", mock.Anything, mock.Anything)

	_, err = f.service.AutoFill(ctx)
	require.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Equal(t, http.StatusForbidden, MapError(err).HTTPStatus)

	_, err = f.service.ActivateSourceContainer(ctx, "TOTE-A")
	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestStationService_ChangeContainer(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil)
	ctx := context.Background()
	_, err := f.service.Connect(ctx, stationBarcode)
	require.NoError(t, err)

	detail, err := f.service.ChangeContainer(ctx, "GRID-02", " BOX-9 ")
	require.NoError(t, err)
	assert.Equal(t, "BOX-9", detail.DestinationContainer)

	_, err = f.service.ChangeContainer(ctx, "GRID-02", "DEST-1")
	appErr := MapError(err)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.Equal(t, "GRID-01", appErr.Details["gridId"])

	_, err = f.service.ChangeContainer(ctx, "GRID-01", "BOX-7")
	assert.ErrorIs(t, err, domain.ErrContainerNotChangeable)

	_, err = f.service.ChangeContainer(ctx, "GRID-99", "BOX-7")
	assert.Equal(t, http.StatusNotFound, MapError(err).HTTPStatus)
}

func TestStationService_GridAndSourceContainers(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil)
	f.connectAndActivate(t)

	detail, err := f.service.Grid("GRID-01")
	require.NoError(t, err)
	assert.Equal(t, "OMS-1", detail.ExternalOrderID)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, GridItemDTO{SKU: "8801", SKUID: "SKU-A", Barcode: "8801", Required: 1, Scanned: 0}, detail.Items[0])

	_, err = f.service.Grid("GRID-42")
	assert.ErrorIs(t, err, domain.ErrGridNotFound)

	containers := f.service.SourceContainers()
	require.Len(t, containers, 1)
	assert.Equal(t, "TOTE-A", containers[0].Container)
	assert.True(t, containers[0].Active)
	assert.False(t, containers[0].Done)
}

func TestStationService_HistoryRecall(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil)
	f.connectAndActivate(t)

	prev := f.service.HistoryPrevious()
	assert.Equal(t, RecallDTO{Code: "TOTE-A", Moved: true, Cursor: 0}, prev)

	prev = f.service.HistoryPrevious()
	assert.False(t, prev.Moved)

	next := f.service.HistoryNext()
	assert.Equal(t, RecallDTO{Code: "", Moved: false, Cursor: 1}, next)
}

func TestStationService_PublishFailureIsBestEffort(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	f.publisher.ExpectedCalls = nil
	f.publisher.On("PublishAll", mock.Anything, mock.Anything).Return(errors.New("kafka down"))
	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil)

	_, err := f.service.Connect(context.Background(), stationBarcode)

	require.NoError(t, err)
	f.auditor.AssertCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestMapError_CircuitOpenAndTimeout(t *testing.T) {
	assert.Nil(t, MapError(nil))
	assert.Equal(t, http.StatusGatewayTimeout, MapError(context.DeadlineExceeded).HTTPStatus)
	assert.Equal(t, apperrors.CodeCapacityExhausted, MapError(&domain.RejectionError{Code: "8801", Err: domain.ErrCapacityExhausted}).Code)
}

func TestStationService_AuditTrail(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	ctx := context.Background()

	entries, err := f.service.AuditTrail(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries, "not connected")

	f.snapshots.On("FetchSnapshot", mock.Anything, stationBarcode).Return(stationSnapshot(0), nil).Once()
	_, err = f.service.Connect(ctx, stationBarcode)
	require.NoError(t, err)

	recorded := []AuditEntry{{ID: "a1", Kind: "item_sorted", StationID: "101", SKU: "8801"}}
	f.auditTrail.On("Recent", mock.Anything, "101", 10).Return(recorded, nil).Once()
	f.auditTrail.On("Recent", mock.Anything, "101", 5).Return(nil, errors.New("mongo down")).Once()

	entries, err = f.service.AuditTrail(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, recorded, entries)

	_, err = f.service.AuditTrail(ctx, 5)
	assert.ErrorContains(t, err, "mongo down")
	f.auditTrail.AssertExpectations(t)
}
