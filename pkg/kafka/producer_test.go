package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/sorter-station-service/pkg/cloudevents"
	"github.com/wms-platform/sorter-station-service/pkg/logging"
	"github.com/wms-platform/sorter-station-service/pkg/metrics"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_PublishBatch(t *testing.T) {
	w := &recordingWriter{}
	producer := NewProducerWithWriter(DefaultConfig(), w)
	factory := cloudevents.NewEventFactory(cloudevents.SourceSorterStation)
	events := []*cloudevents.WMSCloudEvent{
		factory.CreateStationEvent(context.Background(), "wms.sorter-station.item-sorted", "STN-7", "WAVE-1", nil),
		factory.CreateStationEvent(context.Background(), "wms.sorter-station.grid-completed", "STN-7", "WAVE-1", nil),
	}

	err := producer.PublishBatch(context.Background(), Topics.SorterStationEvents, events)

	require.NoError(t, err)
	require.Len(t, w.messages, 2)
	assert.Equal(t, "station/STN-7", string(w.messages[0].Key))
	assert.Equal(t, "wms.sorter-station.item-sorted", headerValue(w.messages[0], "ce-type"))
	assert.Equal(t, "wms.sorter-station.grid-completed", headerValue(w.messages[1], "ce-type"))
	assert.Equal(t, "WAVE-1", headerValue(w.messages[1], "ce-wmsworkflowid"))

	require.NoError(t, producer.Close())
	assert.True(t, w.closed)
}

func TestInstrumentedProducer_RecordsFailure(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	m := metrics.New(metrics.DefaultConfig("sorter-station-service"))
	producer := NewInstrumentedProducer(NewProducerWithWriter(DefaultConfig(), w), m, logging.NewNop())
	event := cloudevents.NewEventFactory(cloudevents.SourceSorterStation).
		CreateStationEvent(context.Background(), "wms.sorter-station.wave-completed", "STN-7", "WAVE-1", nil)

	err := producer.PublishBatch(context.Background(), Topics.SorterStationEvents, []*cloudevents.WMSCloudEvent{event})

	assert.ErrorContains(t, err, "broker down")
}

func TestProducer_EmptyBatch(t *testing.T) {
	w := &recordingWriter{}
	producer := NewProducerWithWriter(DefaultConfig(), w)

	require.NoError(t, producer.PublishBatch(context.Background(), Topics.SorterStationEvents, nil))
	assert.Empty(t, w.messages)
}
