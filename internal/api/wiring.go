package api

import (
	"context"
	"errors"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/logging"
	"salonbook/internal/repository"
	"salonbook/internal/service"

	"github.com/rs/zerolog"
)

// Build assembles a Handler from config: store opener, optional slot
// locker, event bus and the SMS subscriber. cleanup releases the pool and
// redis client.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Handler, func()) {
	var closers []func() error

	dbOpts := database.Options{
		AutoMigrate:  cfg.Database.AutoMigrate,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Logger:       logging.Component(logger, "database"),
	}
	var opener domain.StoreOpener
	if cfg.Database.Pool {
		pool := database.NewPool(dbOpts)
		closers = append(closers, pool.Close)
		opener = pool
	} else {
		opener = database.NewConnector(dbOpts)
	}

	locker, closeLocker := buildLocker(ctx, cfg, logger)
	if closeLocker != nil {
		closers = append(closers, closeLocker)
	}

	bus := events.NewEventBus(logging.Component(logger, "events"))
	smsLogger := logging.Component(logger, "sms")
	service.SubscribeOwnerNotifications(bus, service.NewSMSService(cfg.SMS, smsLogger), smsLogger)

	handler := NewHandler(cfg, opener, locker, bus, logging.Component(logger, "handler"))

	cleanup := func() {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		if err := errors.Join(errs...); err != nil {
			logger.Warn().Err(err).Msg("cleanup failed")
		}
	}
	return handler, cleanup
}

func buildLocker(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.SlotLocker, func() error) {
	if !cfg.Locks.Enabled {
		return nil, nil
	}

	memory := repository.NewMemorySlotLocker()
	if cfg.Redis.Address == "" {
		logger.Info().Msg("slot locks use in-process memory")
		return memory, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, slot locks start on memory fallback")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	locker := repository.NewFailoverSlotLocker(
		repository.NewRedisSlotLocker(client),
		memory,
		logging.Component(logger, "locks"),
	)
	return locker, func() error { return repository.Close(client) }
}
