package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/wms-platform/sorter-station-service/internal/application"
	"github.com/wms-platform/sorter-station-service/internal/domain"
	"github.com/wms-platform/sorter-station-service/pkg/logging"
	"github.com/wms-platform/sorter-station-service/pkg/metrics"
	"github.com/wms-platform/sorter-station-service/pkg/resilience"
)

const stationStateJSON = `{
  "data": {
    "fc_order_assorting_station_state": {
      "station_id": 101,
      "total_cell_count": 4,
      "sorter_type": "SORTER",
      "grids": [
        {
          "grid": 2,
          "orders": [
            {
              "order_id": "ORD-1",
              "oms_order_id": "OMS-1",
              "order_workflow_id": "WAVE-1",
              "workflow_name": "Morning wave",
              "assorted_tote": "DEST-1",
              "order_item_list": [
                {
                  "order_item_id": "L1",
                  "sku_id": "SKU-A",
                  "barcode": "8801",
                  "total_qty": 2,
                  "total_worked_qty": 1,
                  "picking_tote_list": [{"picking_tote": "TOTE-A", "qty": 2, "worked_qty": 1}]
                }
              ]
            }
          ]
        }
      ]
    }
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*WMSClient, *metrics.Metrics) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	m := metrics.New(metrics.DefaultConfig("sorter-station-service"))
	client, err := NewWMSClient(Config{
		BaseURL:              server.URL,
		APIKey:               "test-key",
		CenterID:             "5",
		SnapshotPath:         "/api/graphql/GetFCAssignOrderAssortingStation",
		ContainerPagePath:    "/api/graphql/GetFcTotePageList",
		FeedbackPath:         "/api/sorter/v3.0",
		ContainerPage:        7,
		MaxContainerPageSize: 3,
	}, m, logging.NewNop())
	require.NoError(t, err)
	return client, m
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestWMSClient_FetchSnapshot(t *testing.T) {
	client, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/graphql/GetFCAssignOrderAssortingStation", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body := decodeBody(t, r)
		assert.Contains(t, body["query"], "fc_order_assorting_station_state")
		assert.Equal(t, map[string]any{"barcode": "ST-101"}, body["variables"])
		w.Write([]byte(stationStateJSON))
	})

	snap, err := client.FetchSnapshot(context.Background(), "ST-101")

	require.NoError(t, err)
	assert.Equal(t, "101", snap.StationID)
	assert.Equal(t, 4, snap.TotalCellCount)
	assert.Equal(t, domain.SorterTypeSorter, snap.SorterType)
	require.Len(t, snap.Grids, 1)
	assert.Equal(t, 2, snap.Grids[0].Grid)
	require.Len(t, snap.Grids[0].Orders, 1)
	order := snap.Grids[0].Orders[0]
	assert.Equal(t, "ORD-1", order.OrderID)
	assert.Equal(t, "DEST-1", order.AssortedContainer)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "8801", order.Items[0].Barcode)
	assert.Equal(t, "TOTE-A", order.Items[0].SourceContainers[0].Container)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("sorter-station-service", "station-state", "success")))
}

func TestWMSClient_FetchSnapshot_Failures(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		isMalformed bool
		errContains string
	}{
		{
			name:        "GraphQL error is surfaced",
			body:        `{"errors":[{"message":"station not found"}]}`,
			errContains: "station not found",
		},
		{
			name:        "Missing state is malformed",
			body:        `{"data":{"fc_order_assorting_station_state":null}}`,
			isMalformed: true,
		},
		{
			name:        "Negative quantity fails the schema",
			body:        `{"data":{"fc_order_assorting_station_state":{"station_id":"1","grids":[{"grid":1,"orders":[{"order_id":"O","order_item_list":[{"total_qty":-1,"total_worked_qty":0}]}]}]}}}`,
			isMalformed: true,
		},
		{
			name:        "Order without id fails the schema",
			body:        `{"data":{"fc_order_assorting_station_state":{"station_id":"1","grids":[{"grid":1,"orders":[{"order_item_list":[]}]}]}}}`,
			isMalformed: true,
		},
		{
			name:        "Body that is not JSON",
			body:        `<html>gateway</html>`,
			errContains: "failed to decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := client.FetchSnapshot(context.Background(), "ST-1")

			require.Error(t, err)
			assert.Equal(t, tt.isMalformed, errors.Is(err, domain.ErrMalformedSnapshot))
			if tt.errContains != "" {
				assert.Contains(t, err.Error(), tt.errContains)
			}
		})
	}
}

func TestWMSClient_AvailableContainers(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graphql/GetFcTotePageList", r.URL.Path)
		vars := decodeBody(t, r)["variables"].(map[string]any)
		assert.Equal(t, map[string]any{"domain_type": "NONE", "assign_type": "NOT_ASSIGNED"}, vars["search_input"])
		// limit 10 is capped at 3
		assert.Equal(t, map[string]any{"page": 7.0, "page_size": 3.0}, vars["page_input"])
		w.Write([]byte(`{"data":{"fc_tote_page_list":{"tote_list":[{"tote_barcode":"BOX-1"},{"tote_barcode":"BOX-2"}]}}}`))
	})

	containers, err := client.AvailableContainers(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"BOX-1", "BOX-2"}, containers)
}

func TestWMSClient_AvailableContainers_ZeroLimit(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	containers, err := client.AvailableContainers(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, containers)
}

func TestWMSClient_SendDropFeedback(t *testing.T) {
	client, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sorter/v3.0/product-drop-feedback", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get(HeaderAPIKey))
		assert.Equal(t, "101", r.Header.Get(HeaderStationID))
		assert.Equal(t, "5", r.Header.Get(HeaderCenterID))
		assert.Equal(t, map[string]any{
			"pickingContainerNo": "TOTE-A",
			"skuNo":              "SKU-A",
			"containerNo":        "DEST-1",
			"waveNo":             "WAVE-1",
			"orderNo":            "ORD-1",
			"gridNo":             "2",
			"stationId":          "101",
			"centerId":           "5",
		}, decodeBody(t, r))
		w.Write([]byte(`{"status":"OK"}`))
	})

	err := client.SendDropFeedback(context.Background(), application.DropFeedback{
		StationID:            "101",
		WorkflowID:           "WAVE-1",
		OrderID:              "ORD-1",
		GridNumber:           2,
		SourceContainer:      "TOTE-A",
		DestinationContainer: "DEST-1",
		SKUID:                "SKU-A",
	})

	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("sorter-station-service", "product-drop-feedback", "success")))
}

func TestWMSClient_SendOrderFeedback(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sorter/v3.0/customer-order-feedback", r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "FINISHED", body["status"])
		assert.Equal(t, "12", body["gridNo"])
		assert.Equal(t, []any{
			map[string]any{"skuNo": "SKU-A", "sortedQuantity": 2.0},
			map[string]any{"skuNo": "SKU-B", "sortedQuantity": 1.0},
		}, body["details"])
		w.Write([]byte(`{"status":"OK","message":"done"}`))
	})

	err := client.SendOrderFeedback(context.Background(), application.OrderFeedback{
		StationID:            "101",
		WorkflowID:           "WAVE-1",
		OrderID:              "ORD-1",
		GridNumber:           12,
		DestinationContainer: "DEST-1",
		Items:                []application.SortedQuantity{{SKUID: "SKU-A", Quantity: 2}, {SKUID: "SKU-B", Quantity: 1}},
	})

	require.NoError(t, err)
}

func TestWMSClient_SendWaveFeedback(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sorter/v3.0/wave-order-feedback", r.URL.Path)
		assert.Equal(t, map[string]any{
			"waveNo":    "WAVE-1",
			"status":    "FINISHED",
			"stationId": "101",
			"centerId":  "5",
		}, decodeBody(t, r))
		w.Write([]byte(`{}`))
	})

	require.NoError(t, client.SendWaveFeedback(context.Background(), application.WaveFeedback{StationID: "101", WorkflowID: "WAVE-1"}))
	assert.ErrorIs(t, client.SendWaveFeedback(context.Background(), application.WaveFeedback{StationID: "101"}), ErrMissingWorkflowID)
	assert.ErrorIs(t, client.SendWaveFeedback(context.Background(), application.WaveFeedback{WorkflowID: "WAVE-1"}), ErrMissingStationID)
}

func TestWMSClient_FeedbackRejected(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		errContains string
	}{
		{name: "Status not OK", status: http.StatusOK, body: `{"status":"FAIL","message":"grid is locked"}`, errContains: "grid is locked"},
		{name: "Client error", status: http.StatusBadRequest, body: `{"message":"bad gridNo"}`, errContains: "status 400"},
		{name: "Server error", status: http.StatusBadGateway, body: `{}`, errContains: "returned status 502"},
		{name: "Body that is not JSON", status: http.StatusOK, body: `oops`, errContains: "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := client.SendDropFeedback(context.Background(), application.DropFeedback{StationID: "101", GridNumber: 1})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestWMSClient_CircuitOpensAfterServerErrors(t *testing.T) {
	calls := 0
	client, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	fb := application.DropFeedback{StationID: "101", GridNumber: 1}

	for i := 0; i < int(resilience.DefaultFailureThreshold); i++ {
		require.Error(t, client.SendDropFeedback(context.Background(), fb))
	}
	err := client.SendDropFeedback(context.Background(), fb)

	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int(resilience.DefaultFailureThreshold), calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("sorter-station-service", "wms-sorter-feedback")))

	// queries use their own breaker
	_, err = client.AvailableContainers(context.Background(), 1)
	assert.NotErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestWMSClient_PropagatesTraceContext(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	var traceparent string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		w.Write([]byte(`{"status":"OK"}`))
	})

	ctx, span := provider.Tracer("test").Start(context.Background(), "scan")
	err := client.SendDropFeedback(ctx, application.DropFeedback{StationID: "101", GridNumber: 1})
	span.End()

	require.NoError(t, err)
	require.NotEmpty(t, traceparent)
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}
