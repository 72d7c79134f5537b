package changefeed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/hearthlabs/hearth/internal/infrastructure/logging"
	"github.com/hearthlabs/hearth/internal/infrastructure/messaging"
	"github.com/hearthlabs/hearth/internal/infrastructure/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Handler func(Event)

type StatusHandler func(Status, error)

// Feed delivers row-level change events from the broker to a local
// handler. Each subscription owns an exclusive queue so every client
// sees the full feed. A dead subscription (connection loss, channel
// close, broker restart) is reported through the status handler and
// then resubscribed with exponential backoff until the context ends.
type Feed struct {
	dial   func() (*messaging.RabbitMQ, error)
	logger logging.Logger
}

func New(uri string, logger logging.Logger) *Feed {
	return &Feed{
		dial: func() (*messaging.RabbitMQ, error) {
			return messaging.NewRabbitMQ(uri)
		},
		logger: logger,
	}
}

// Subscribe starts a background consumer for the given tables and ops
// and returns immediately.
func (f *Feed) Subscribe(ctx context.Context, tables []Table, ops []Op, onEvent Handler, onStatus StatusHandler) {
	keys := RoutingKeys(tables, ops)
	go f.run(ctx, keys, onEvent, onStatus)
}

func (f *Feed) run(ctx context.Context, routingKeys []string, onEvent Handler, onStatus StatusHandler) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 500 * time.Millisecond
	retry.MaxInterval = 30 * time.Second

	first := true

	for {
		if ctx.Err() != nil {
			return
		}

		if !first {
			metrics.FeedResubscribes.Inc()
		}
		first = false

		err := f.consumeOnce(ctx, routingKeys, onEvent, onStatus)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			f.logger.Warn(logging.ChangeFeed, logging.Subscribe, "subscription lost, will resubscribe", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry.NextBackOff()):
		}
	}
}

// consumeOnce runs a single subscription to completion. Any returned
// error means the subscription died and should be retried.
func (f *Feed) consumeOnce(ctx context.Context, routingKeys []string, onEvent Handler, onStatus StatusHandler) error {
	rmq, err := f.dial()
	if err != nil {
		onStatus(StatusError, err)
		return err
	}
	defer rmq.Close()

	queue := "changefeed." + uuid.NewString()
	if err := rmq.DeclareAndBindQueue(queue, routingKeys, messaging.ChangeFeedExchange, true); err != nil {
		onStatus(StatusError, err)
		return err
	}

	onStatus(StatusSubscribed, nil)

	err = rmq.ConsumeMessages(ctx, queue, func(_ context.Context, msg amqp.Delivery) error {
		event, err := decodeDelivery(msg)
		if err != nil {
			f.logger.Warn(logging.ChangeFeed, logging.Subscribe, "dropping undecodable change event", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
			return err
		}

		onEvent(event)
		return nil
	})

	if ctx.Err() == nil {
		onStatus(StatusClosed, err)
	}
	return err
}

func decodeDelivery(msg amqp.Delivery) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return Event{}, err
	}

	// Older publishers put only the row in the body; table and op then
	// come from the routing key.
	if event.Table == "" || event.Op == "" {
		table, op, err := ParseRoutingKey(msg.RoutingKey)
		if err != nil {
			return Event{}, err
		}
		event.Table = table
		event.Op = op
		if event.Row == nil {
			event.Row = json.RawMessage(msg.Body)
		}
	}

	return event, nil
}
