package notifications

import (
	"context"
	"sync"
	"time"

	"staybook/pkg/kafka"
	"staybook/pkg/logger"
)

const (
	eventSource        = "staybook-bookings"
	eventSchemaVersion = "1"
)

// Publisher is the subset of *kafka.Producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaNotifier struct {
	producer Publisher
	log      *logger.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewKafkaNotifier publishes each event keyed by key, so events of one booking
// stay ordered within a partition.
func NewKafkaNotifier(producer Publisher, log *logger.Logger, timeout time.Duration) Notifier {
	return &kafkaNotifier{
		producer: producer,
		log:      log,
		timeout:  timeout,
	}
}

func (n *kafkaNotifier) Notify(ctx context.Context, eventType string, key string, payload any) {
	msg := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource(eventSource).
		WithSchemaVersion(eventSchemaVersion).
		Build()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		if err := n.producer.Publish(pubCtx, msg); err != nil {
			n.log.Warn("Failed to publish booking event",
				"event_type", eventType,
				"key", key,
				"error", err,
			)
		}
	}()
}

// Close waits for in-flight publishes and closes the producer.
func (n *kafkaNotifier) Close() error {
	n.wg.Wait()
	return n.producer.Close()
}
