package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/infrastructure/metrics"
)

const (
	DefaultCapacity = 10
	DefaultTTL      = 10 * time.Second
	DefaultVisible  = 3
)

type entry struct {
	notification domain.Notification
	timer        *time.Timer
}

// Feed is the bounded, time-decaying toast log. Every entry expires TTL
// after insertion; when the feed is full the oldest entry is dropped
// first. Safe for concurrent use: change-feed handlers publish while
// the UI polls Visible.
type Feed struct {
	capacity       int
	ttl            time.Duration
	defaultVisible int

	mu      sync.Mutex
	entries []*entry
}

type Options struct {
	Capacity       int
	TTL            time.Duration
	DefaultVisible int
}

func NewFeed(options Options) *Feed {
	if options.Capacity <= 0 {
		options.Capacity = DefaultCapacity
	}
	if options.TTL <= 0 {
		options.TTL = DefaultTTL
	}
	if options.DefaultVisible <= 0 {
		options.DefaultVisible = DefaultVisible
	}

	return &Feed{
		capacity:       options.Capacity,
		ttl:            options.TTL,
		defaultVisible: options.DefaultVisible,
	}
}

func (f *Feed) Publish(n domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.entries) >= f.capacity {
		oldest := f.entries[0]
		oldest.timer.Stop()
		f.entries = f.entries[1:]
		metrics.NotificationsEvicted.Inc()
	}

	e := &entry{notification: n}
	e.timer = time.AfterFunc(f.ttl, func() {
		f.expire(n.ID)
	})
	f.entries = append(f.entries, e)
}

// Visible returns up to limit entries, newest first. limit <= 0 uses
// the configured default.
func (f *Feed) Visible(limit int) []domain.Notification {
	if limit <= 0 {
		limit = f.defaultVisible
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.Notification, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.notification)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *Feed) expire(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, e := range f.entries {
		if e.notification.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			metrics.NotificationsEvicted.Inc()
			return
		}
	}
}
