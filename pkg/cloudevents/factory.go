package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// EventFactory creates CloudEvents for one source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent wraps data in a CloudEvent and copies the caller's trace
// context into the traceparent extension.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event.TraceParent = carrier.Get("traceparent")
	event.TraceState = carrier.Get("tracestate")

	return event
}

// CreateStationEvent creates an event scoped to a sorter station and wave.
// The subject is "station/<id>" so all events of one station share a key.
func (f *EventFactory) CreateStationEvent(ctx context.Context, eventType, stationID, workflowID string, data interface{}) *WMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, "station/"+stationID, data)
	event.StationID = stationID
	event.WorkflowID = workflowID
	event.WaveNumber = workflowID
	return event
}
