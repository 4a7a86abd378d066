package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"intents/internal/config"
	"intents/internal/eventbus"
	"intents/internal/intents"
	"intents/internal/metrics"
	"intents/internal/oracle"
	"intents/internal/runner"
	"intents/internal/store"
)

// app is the wired service plus what must be released on exit.
type app struct {
	svc     *intents.Service
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires the lifecycle service. Redis and NATS are optional: when
// unreachable the service runs without metrics or events.
func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{}

	cli := oracle.NewCLI(cfg.Oracle.Binary, cfg.Oracle.Model, log)
	if len(cfg.Oracle.Args) > 0 {
		cli.Args = cfg.Oracle.Args
	}

	run, err := runner.New(cfg.RunnerOptions(), log)
	if err != nil {
		return nil, err
	}

	var rec metrics.Recorder = metrics.Nop{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("⚠️ [METRICS] redis unreachable, metrics disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = client.Close()
		} else {
			log.Info("✅ [METRICS] redis connected", zap.String("addr", cfg.Redis.Addr))
			rec = metrics.NewRedis(client, cfg.Redis.TTL, log)
			a.closers = append(a.closers, func() { _ = client.Close() })
		}
	}

	var pub eventbus.Publisher = eventbus.Nop{}
	if cfg.NATS.URL != "" {
		bus, err := eventbus.NewNATSBus(eventbus.NATSConfig{URL: cfg.NATS.URL, Subject: cfg.NATS.Subject})
		if err != nil {
			log.Warn("⚠️ [EVENTS] nats unreachable, events disabled", zap.Error(err))
		} else {
			log.Info("✅ [EVENTS] nats connected", zap.String("subject", cfg.NATS.Subject))
			pub = bus
			a.closers = append(a.closers, bus.Close)
		}
	}

	a.svc = intents.New(intents.Deps{
		Store:   store.New(cfg.Store.Dir),
		Oracle:  cli,
		Runner:  run,
		Metrics: rec,
		Events:  pub,
		Log:     log,
	})
	return a, nil
}
