package changefeed

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestDecodeDeliveryEnvelope(t *testing.T) {
	msg := amqp.Delivery{
		RoutingKey: "participants.update",
		Body:       []byte(`{"table":"participants","op":"update","row":{"user_id":"u1"}}`),
	}

	event, err := decodeDelivery(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Table != TableParticipants || event.Op != OpUpdate {
		t.Fatalf("event = %s.%s, want participants.update", event.Table, event.Op)
	}
	if len(event.Row) == 0 {
		t.Fatal("row lost in decoding")
	}
}

func TestDecodeDeliveryBareRowFallsBackToRoutingKey(t *testing.T) {
	msg := amqp.Delivery{
		RoutingKey: "rooms.insert",
		Body:       []byte(`{"id":"r1","name":"fireside"}`),
	}

	event, err := decodeDelivery(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Table != TableRooms || event.Op != OpInsert {
		t.Fatalf("event = %s.%s, want rooms.insert", event.Table, event.Op)
	}

	var row struct {
		ID string `json:"id"`
	}
	if err := event.Decode(&row); err != nil {
		t.Fatalf("row decode: %v", err)
	}
	if row.ID != "r1" {
		t.Fatalf("row id = %q, want r1", row.ID)
	}
}

func TestDecodeDeliveryRejectsGarbage(t *testing.T) {
	msg := amqp.Delivery{RoutingKey: "rooms.insert", Body: []byte(`not json`)}
	if _, err := decodeDelivery(msg); err == nil {
		t.Fatal("garbage body accepted")
	}
}
