package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"salonbook/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

type FailoverSlotLocker struct {
	primary   domain.SlotLocker
	fallback  domain.SlotLocker
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSlotLocker(primary, fallback domain.SlotLocker, logger *zerolog.Logger) *FailoverSlotLocker {
	return &FailoverSlotLocker{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (l *FailoverSlotLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.isDown.Load() && time.Since(time.Unix(0, l.lastCheck.Load())) > recoveryInterval {
		l.isDown.Store(false)
	}

	if !l.isDown.Load() {
		release, err := l.primary.Acquire(ctx, key, ttl)
		if err == nil || errors.Is(err, ErrSlotLocked) {
			return release, err
		}
		l.logger.Error().Err(err).Msg("Primary slot locker failed, falling back to memory")
		l.isDown.Store(true)
		l.lastCheck.Store(time.Now().UnixNano())
	}

	return l.fallback.Acquire(ctx, key, ttl)
}
