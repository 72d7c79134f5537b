package changefeed

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Table string

const (
	TableRooms        Table = "rooms"
	TableParticipants Table = "participants"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

var AllOps = []Op{OpInsert, OpUpdate, OpDelete}

// Status describes the health of a subscription as reported to the
// status callback.
type Status string

const (
	StatusSubscribed Status = "subscribed"
	StatusClosed     Status = "closed"
	StatusError      Status = "error"
)

// Event is one row-level change. Row carries the changed row as raw JSON
// so the handler decides which domain type to decode into; on delete it
// holds the key fields of the removed row.
type Event struct {
	Table Table           `json:"table"`
	Op    Op              `json:"op"`
	Row   json.RawMessage `json:"row"`
}

// Decode unmarshals the changed row into v.
func (e Event) Decode(v any) error {
	if len(e.Row) == 0 {
		return fmt.Errorf("event %s.%s carries no row", e.Table, e.Op)
	}
	return json.Unmarshal(e.Row, v)
}

// RoutingKey is the AMQP key an event travels under: "<table>.<op>".
func RoutingKey(table Table, op Op) string {
	return fmt.Sprintf("%s.%s", table, op)
}

func RoutingKeys(tables []Table, ops []Op) []string {
	keys := make([]string, 0, len(tables)*len(ops))
	for _, t := range tables {
		for _, op := range ops {
			keys = append(keys, RoutingKey(t, op))
		}
	}
	return keys
}

// ParseRoutingKey recovers table and op from a routing key, for
// consumers that bind wildcard patterns.
func ParseRoutingKey(key string) (Table, Op, error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed routing key %q", key)
	}
	return Table(parts[0]), Op(parts[1]), nil
}
