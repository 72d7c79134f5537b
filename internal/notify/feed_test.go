package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
)

func TestFeedNeverExceedsCapacity(t *testing.T) {
	feed := NewFeed(Options{Capacity: 10, TTL: time.Minute})

	for i := 0; i < 25; i++ {
		feed.Publish(domain.NewNotification(domain.NotifyUserJoined, fmt.Sprintf("u%d", i), "user"))
	}

	if got := feed.Len(); got != 10 {
		t.Fatalf("len = %d, want 10", got)
	}
}

func TestFeedDropsOldestFirst(t *testing.T) {
	feed := NewFeed(Options{Capacity: 3, TTL: time.Minute})

	for i := 0; i < 4; i++ {
		n := domain.NewNotification(domain.NotifyUserJoined, fmt.Sprintf("u%d", i), "user")
		n.Timestamp = time.Now().Add(time.Duration(i) * time.Second)
		feed.Publish(n)
	}

	for _, n := range feed.Visible(10) {
		if n.UserID == "u0" {
			t.Fatal("oldest entry survived overflow")
		}
	}
}

func TestVisibleNewestFirstAndCapped(t *testing.T) {
	feed := NewFeed(Options{Capacity: 10, TTL: time.Minute, DefaultVisible: 3})

	base := time.Now()
	for i := 0; i < 5; i++ {
		n := domain.NewNotification(domain.NotifyUserJoined, fmt.Sprintf("u%d", i), "user")
		n.Timestamp = base.Add(time.Duration(i) * time.Second)
		feed.Publish(n)
	}

	visible := feed.Visible(0)
	if len(visible) != 3 {
		t.Fatalf("visible = %d, want default of 3", len(visible))
	}
	for i := 1; i < len(visible); i++ {
		if visible[i].Timestamp.After(visible[i-1].Timestamp) {
			t.Fatal("visible subset not sorted newest first")
		}
	}
	if visible[0].UserID != "u4" {
		t.Fatalf("newest entry = %s, want u4", visible[0].UserID)
	}
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	feed := NewFeed(Options{Capacity: 10, TTL: 20 * time.Millisecond})

	feed.Publish(domain.NewNotification(domain.NotifyUserLeft, "u1", "user"))
	if feed.Len() != 1 {
		t.Fatal("entry not stored")
	}

	deadline := time.Now().Add(time.Second)
	for feed.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("entry never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
