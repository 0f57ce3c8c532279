package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

// InmemReplayProtector remembers raw-body digests inside a sliding
// window and rejects a second delivery of the same payload. Entries
// outside the window are pruned lazily on each check.
type InmemReplayProtector struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func NewInmemReplayProtector(window time.Duration) *InmemReplayProtector {
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &InmemReplayProtector{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

func (p *InmemReplayProtector) Check(_ context.Context, _ *http.Request, body []byte) error {
	sum := sha256.Sum256(body)
	key := hex.EncodeToString(sum[:])

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for k, at := range p.seen {
		if now.Sub(at) > p.window {
			delete(p.seen, k)
		}
	}

	if _, ok := p.seen[key]; ok {
		return ErrReplayDetected
	}
	p.seen[key] = now
	return nil
}
