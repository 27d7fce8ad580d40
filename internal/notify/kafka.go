package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/donaldgifford/mailin-buyback/internal/metrics"
)

// messageWriter is the subset of *kafka.Writer used by KafkaNotifier.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes events to a Kafka topic keyed by request ID, so all
// events of one request land on the same partition in order.
type KafkaNotifier struct {
	writer messageWriter
}

// NewKafkaNotifier creates a KafkaNotifier writing to topic on brokers.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

// Notify implements Notifier.
func (k *KafkaNotifier) Notify(ctx context.Context, event *Event) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.WithLabelValues("kafka").Observe(time.Since(start).Seconds())
	}()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling kafka event: %w", err)
	}

	headers := headerCarrier{{Key: "action", Value: []byte(event.Action)}}
	otel.GetTextMapPropagator().Inject(ctx, &headers)

	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.RequestID),
		Value:   value,
		Headers: headers,
		Time:    event.OccurredAt,
	}); err != nil {
		return fmt.Errorf("writing kafka message: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// headerCarrier adapts Kafka message headers to the OpenTelemetry
// TextMapCarrier so trace context travels with the event.
type headerCarrier []kafka.Header

func (h *headerCarrier) Get(key string) string {
	for _, hdr := range *h {
		if hdr.Key == key {
			return string(hdr.Value)
		}
	}
	return ""
}

func (h *headerCarrier) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = []byte(value)
			return
		}
	}
	*h = append(*h, kafka.Header{Key: key, Value: []byte(value)})
}

func (h *headerCarrier) Keys() []string {
	keys := make([]string, len(*h))
	for i, hdr := range *h {
		keys[i] = hdr.Key
	}
	return keys
}
