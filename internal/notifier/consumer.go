package notifier

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/holaphone/order-service/internal/event"
	pkgkafka "github.com/holaphone/order-service/pkg/kafka"
)

// consumerGroup is the Kafka consumer group for notification dispatch.
const consumerGroup = "order-service-notifier"

// idempotencyTTL bounds how long processed event ids are remembered. Kafka
// redeliveries happen within seconds of a rebalance, so an hour is plenty.
const idempotencyTTL = time.Hour

// Consumers runs the notifier against the order event topics.
type Consumers struct {
	created       *pkgkafka.Consumer
	statusChanged *pkgkafka.Consumer
	logger        *slog.Logger
}

// NewConsumers builds a consumer per order topic, each wrapped in idempotent
// handling so redelivered events do not produce duplicate emails.
func NewConsumers(brokers []string, n *Notifier, logger *slog.Logger) *Consumers {
	store := pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)

	return &Consumers{
		created: pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers: brokers,
			GroupID: consumerGroup,
			Topic:   event.TopicOrderCreated,
		}, pkgkafka.IdempotentHandler(store, n.HandleOrderCreated, logger), logger),
		statusChanged: pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers: brokers,
			GroupID: consumerGroup,
			Topic:   event.TopicOrderStatusChanged,
		}, pkgkafka.IdempotentHandler(store, n.HandleStatusChanged, logger), logger),
		logger: logger,
	}
}

// Run consumes both topics until the context is canceled.
func (c *Consumers) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.created.Start(ctx) })
	g.Go(func() error { return c.statusChanged.Start(ctx) })
	return g.Wait()
}

// Close shuts down both consumers.
func (c *Consumers) Close() {
	if err := c.created.Close(); err != nil {
		c.logger.Error("close order.created consumer", slog.String("error", err.Error()))
	}
	if err := c.statusChanged.Close(); err != nil {
		c.logger.Error("close order.status_changed consumer", slog.String("error", err.Error()))
	}
}
