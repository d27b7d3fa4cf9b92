package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/sorter-station-service/internal/domain"
	"github.com/wms-platform/sorter-station-service/pkg/cloudevents"
	"github.com/wms-platform/sorter-station-service/pkg/kafka"
	"github.com/wms-platform/sorter-station-service/pkg/logging"
)

type memoryWriter struct {
	messages []kafkago.Message
	err      error
}

func (w *memoryWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *memoryWriter) Close() error { return nil }

func newPublisher(w *memoryWriter) *EventPublisher {
	producer := kafka.NewInstrumentedProducer(kafka.NewProducerWithWriter(kafka.DefaultConfig(), w), nil, logging.NewNop())
	return NewEventPublisher(producer, cloudevents.NewEventFactory(cloudevents.SourceSorterStation), kafka.Topics.SorterStationEvents)
}

func header(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestEventPublisher_PublishAll(t *testing.T) {
	w := &memoryWriter{}
	publisher := newPublisher(w)
	sortedAt := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	err := publisher.PublishAll(context.Background(), []domain.DomainEvent{
		&domain.ItemSortedEvent{
			StationID:       "101",
			WorkflowID:      "WAVE-1",
			SourceContainer: "TOTE-A",
			SKU:             "8801",
			GridID:          "GRID-01",
			OrderID:         "ORD-1",
			ScannedQty:      1,
			RequiredQty:     1,
			SortedAt:        sortedAt,
		},
		&domain.WaveCompletedEvent{StationID: "101", WorkflowID: "WAVE-1", OrderCount: 1, CompletedAt: sortedAt},
	})

	require.NoError(t, err)
	require.Len(t, w.messages, 2)

	first := w.messages[0]
	assert.Equal(t, "station/101", string(first.Key))
	assert.Equal(t, "wms.sorter-station.item-sorted", header(first, "ce-type"))
	assert.Equal(t, "ORD-1", header(first, "ce-wmsorderid"))
	assert.Equal(t, "WAVE-1", header(first, "ce-wmsworkflowid"))
	assert.True(t, sortedAt.Equal(first.Time))

	var body map[string]any
	require.NoError(t, json.Unmarshal(first.Value, &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "GRID-01", data["gridId"])
	assert.Equal(t, "TOTE-A", data["sourceContainer"])

	assert.Equal(t, "wms.sorter-station.wave-completed", header(w.messages[1], "ce-type"))
	assert.Empty(t, header(w.messages[1], "ce-wmsorderid"))
}

func TestEventPublisher_Failure(t *testing.T) {
	publisher := newPublisher(&memoryWriter{err: errors.New("leader not available")})

	err := publisher.Publish(context.Background(), &domain.SourceContainerActivatedEvent{StationID: "101", Container: "TOTE-A"})

	assert.ErrorContains(t, err, "leader not available")
	assert.Equal(t, kafka.Topics.SorterStationEvents, publisher.GetTopic())
}

func TestEventPublisher_EmptyBatch(t *testing.T) {
	w := &memoryWriter{}

	require.NoError(t, newPublisher(w).PublishAll(context.Background(), nil))
	assert.Empty(t, w.messages)
}

func TestLogPublisher(t *testing.T) {
	publisher := NewLogPublisher(logging.NewNop())

	err := publisher.PublishAll(context.Background(), []domain.DomainEvent{
		&domain.GridCompletedEvent{StationID: "101", GridID: "GRID-01", OrderID: "ORD-1"},
	})

	assert.NoError(t, err)
}
