package changefeed

import (
	"encoding/json"
	"testing"
)

func TestRoutingKeyRoundTrip(t *testing.T) {
	for _, table := range []Table{TableRooms, TableParticipants} {
		for _, op := range AllOps {
			key := RoutingKey(table, op)

			gotTable, gotOp, err := ParseRoutingKey(key)
			if err != nil {
				t.Fatalf("parse %q: %v", key, err)
			}
			if gotTable != table || gotOp != op {
				t.Fatalf("parse %q = (%s, %s), want (%s, %s)", key, gotTable, gotOp, table, op)
			}
		}
	}
}

func TestParseRoutingKeyRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "rooms", ".insert", "rooms."} {
		if _, _, err := ParseRoutingKey(key); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestRoutingKeysCartesianProduct(t *testing.T) {
	keys := RoutingKeys([]Table{TableRooms, TableParticipants}, AllOps)
	if len(keys) != 6 {
		t.Fatalf("keys = %d, want 6", len(keys))
	}
}

func TestEventDecode(t *testing.T) {
	type row struct {
		ID string `json:"id"`
	}

	raw, _ := json.Marshal(row{ID: "r1"})
	ev := Event{Table: TableRooms, Op: OpInsert, Row: raw}

	var decoded row
	if err := ev.Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "r1" {
		t.Fatalf("id = %q, want r1", decoded.ID)
	}

	empty := Event{Table: TableRooms, Op: OpDelete}
	if err := empty.Decode(&decoded); err == nil {
		t.Fatal("decode of empty row succeeded")
	}
}
