package repository

import (
	"context"
	"sync"
	"time"
)

type lockEntry struct {
	token     uint64
	expiresAt time.Time
}

// MemorySlotLocker serializes bookings inside one process only.
type MemorySlotLocker struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	seq   uint64
	now   func() time.Time
}

func NewMemorySlotLocker() *MemorySlotLocker {
	return &MemorySlotLocker{
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

func (l *MemorySlotLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.locks[key]; ok && now.Before(entry.expiresAt) {
		return nil, ErrSlotLocked
	}

	l.seq++
	token := l.seq
	l.locks[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}

	return sync.OnceFunc(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if entry, ok := l.locks[key]; ok && entry.token == token {
			delete(l.locks, key)
		}
	}), nil
}
