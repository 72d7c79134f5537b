package catalog

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// avatarPrefetcher warms the local HTTP cache for avatar images ahead
// of the UI requesting them. Failures are ignored and a ref is only
// fetched once per process.
type avatarPrefetcher struct {
	client *http.Client

	mu   sync.Mutex
	seen map[string]struct{}
}

func newAvatarPrefetcher() *avatarPrefetcher {
	return &avatarPrefetcher{
		client: &http.Client{Timeout: 5 * time.Second},
		seen:   make(map[string]struct{}),
	}
}

func (p *avatarPrefetcher) Prefetch(avatarRef string) {
	if avatarRef == "" || !strings.HasPrefix(avatarRef, "http") {
		return
	}

	p.mu.Lock()
	if _, ok := p.seen[avatarRef]; ok {
		p.mu.Unlock()
		return
	}
	p.seen[avatarRef] = struct{}{}
	p.mu.Unlock()

	go func() {
		resp, err := p.client.Get(avatarRef)
		if err != nil {
			return
		}
		defer resp.Body.Close()

		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	}()
}
