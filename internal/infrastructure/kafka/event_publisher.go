package kafka

import (
	"context"
	"fmt"

	"github.com/wms-platform/sorter-station-service/internal/domain"
	"github.com/wms-platform/sorter-station-service/pkg/cloudevents"
	"github.com/wms-platform/sorter-station-service/pkg/kafka"
	"github.com/wms-platform/sorter-station-service/pkg/logging"
)

// EventPublisher publishes station domain events to Kafka as CloudEvents
type EventPublisher struct {
	producer     *kafka.InstrumentedProducer
	eventFactory *cloudevents.EventFactory
	topic        string
}

// NewEventPublisher creates a new Kafka-based event publisher
func NewEventPublisher(
	producer *kafka.InstrumentedProducer,
	eventFactory *cloudevents.EventFactory,
	topic string,
) *EventPublisher {
	return &EventPublisher{
		producer:     producer,
		eventFactory: eventFactory,
		topic:        topic,
	}
}

// Publish publishes a single domain event
func (p *EventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	return p.PublishAll(ctx, []domain.DomainEvent{event})
}

// PublishAll publishes events in one batch, preserving their order
func (p *EventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := make([]*cloudevents.WMSCloudEvent, 0, len(events))
	for _, event := range events {
		batch = append(batch, p.toCloudEvent(ctx, event))
	}
	if err := p.producer.PublishBatch(ctx, p.topic, batch); err != nil {
		return fmt.Errorf("failed to publish events to kafka: %w", err)
	}
	return nil
}

// GetTopic returns the topic this publisher publishes to
func (p *EventPublisher) GetTopic() string {
	return p.topic
}

func (p *EventPublisher) toCloudEvent(ctx context.Context, event domain.DomainEvent) *cloudevents.WMSCloudEvent {
	stationID, workflowID, orderID := eventScope(event)
	ce := p.eventFactory.CreateStationEvent(ctx, event.EventType(), stationID, workflowID, event)
	ce.OrderID = orderID
	ce.Time = event.OccurredAt().UTC()
	return ce
}

// eventScope extracts the station, workflow and order an event belongs to
func eventScope(event domain.DomainEvent) (stationID, workflowID, orderID string) {
	switch e := event.(type) {
	case *domain.SnapshotRebuiltEvent:
		return e.StationID, e.WorkflowID, ""
	case *domain.SourceContainerActivatedEvent:
		return e.StationID, "", ""
	case *domain.SourceContainerClearedEvent:
		return e.StationID, "", ""
	case *domain.SourceContainerCompletedEvent:
		return e.StationID, "", ""
	case *domain.ItemSortedEvent:
		return e.StationID, e.WorkflowID, e.OrderID
	case *domain.GridAllocatedEvent:
		return e.StationID, "", e.OrderID
	case *domain.GridCompletedEvent:
		return e.StationID, e.WorkflowID, e.OrderID
	case *domain.WaveCompletedEvent:
		return e.StationID, e.WorkflowID, ""
	case *domain.ContainersProvisionedEvent:
		return e.StationID, "", ""
	case *domain.ContainerChangedEvent:
		return e.StationID, "", ""
	default:
		return "", "", ""
	}
}

// LogPublisher writes events to the log. Used when Kafka is disabled.
type LogPublisher struct {
	logger *logging.Logger
}

// NewLogPublisher creates a publisher that only logs
func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// PublishAll logs each event
func (p *LogPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		stationID, workflowID, orderID := eventScope(event)
		p.logger.Event(ctx, event.EventType(), map[string]any{
			"stationId":  stationID,
			"workflowId": workflowID,
			"orderId":    orderID,
			"occurredAt": event.OccurredAt(),
		})
	}
	return nil
}
