package changefeed

import (
	"context"
	"encoding/json"

	"github.com/hearthlabs/hearth/internal/infrastructure/messaging"
)

// Publisher pushes row changes onto the feed after a successful store
// write, so other clients converge before their next poll. The store
// stays the source of truth; these events only trigger refreshes.
type Publisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewPublisher(rabbitmq *messaging.RabbitMQ) *Publisher {
	return &Publisher{rabbitmq: rabbitmq}
}

func (p *Publisher) PublishChange(ctx context.Context, table Table, op Op, row any) error {
	rawRow, err := json.Marshal(row)
	if err != nil {
		return err
	}

	body, err := json.Marshal(Event{
		Table: table,
		Op:    op,
		Row:   rawRow,
	})
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, RoutingKey(table, op), body)
}
