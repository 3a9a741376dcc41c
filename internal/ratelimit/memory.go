package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory keeps counters in process. Good for a single instance.
type Memory struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count     int
	windowEnd time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  window,
		clients: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.clients[key]
	if !ok || !now.Before(b.windowEnd) {
		m.sweep(now)
		m.clients[key] = &bucket{count: 1, windowEnd: now.Add(m.window)}
		return Decision{Allowed: true, Remaining: m.limit - 1}, nil
	}

	if b.count >= m.limit {
		return Decision{RetryAfter: retryAfter(b.windowEnd.Sub(now))}, nil
	}

	b.count++
	return Decision{Allowed: true, Remaining: m.limit - b.count}, nil
}

// sweep drops expired buckets so the map does not grow with every client seen.
func (m *Memory) sweep(now time.Time) {
	for k, b := range m.clients {
		if !now.Before(b.windowEnd) {
			delete(m.clients, k)
		}
	}
}
