package cloudevents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestCreateStationEvent(t *testing.T) {
	factory := NewEventFactory(SourceSorterStation)
	factory.now = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.FixedZone("KST", 9*3600)) }

	event := factory.CreateStationEvent(context.Background(), "wms.sorter-station.item-sorted", "STN-7", "WAVE-1", map[string]int{"qty": 1})

	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, "station/STN-7", event.Subject)
	assert.Equal(t, "STN-7", event.StationID)
	assert.Equal(t, "WAVE-1", event.WorkflowID)
	assert.Equal(t, time.UTC, event.Time.Location())
	assert.NotEmpty(t, event.ID)
	assert.Empty(t, event.TraceParent)

	headers := event.Headers()
	assert.Equal(t, "wms.sorter-station.item-sorted", headers["ce-type"])
	assert.Equal(t, "STN-7", headers["ce-wmsstationid"])
	assert.Equal(t, "2026-03-02T00:30:00Z", headers["ce-time"])
	_, hasOrder := headers["ce-wmsorderid"]
	assert.False(t, hasOrder)
}

func TestCreateEvent_CarriesTraceParent(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	ctx, span := tp.Tracer("test").Start(context.Background(), "scan")
	defer span.End()

	event := NewEventFactory(SourceSorterStation).CreateEvent(ctx, "wms.sorter-station.grid-completed", "station/STN-7", nil)

	require.NotEmpty(t, event.TraceParent)
	assert.Contains(t, event.TraceParent, span.SpanContext().TraceID().String())
	assert.Equal(t, event.TraceParent, event.Headers()["ce-traceparent"])
}
