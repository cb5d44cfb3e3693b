package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"eduslide-live/internal/app"
	"eduslide-live/internal/config"
	"eduslide-live/internal/infra/memory"
	pgloader "eduslide-live/internal/infra/postgres"
	redisinfra "eduslide-live/internal/infra/redis"
	"eduslide-live/internal/logger"
	"eduslide-live/internal/transport/ws"
)

// version is stamped at build time with -ldflags.
var version = "dev"

// deps holds everything built from config that needs closing on exit.
type deps struct {
	log     logger.Logger
	redis   *redis.Client
	pool    *pgxpool.Pool
	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func newDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{}
	d.log = buildLogger(cfg, d)

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = d.redis.Close() })
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.pool = pool
		d.closers = append(d.closers, pool.Close)
	}
	return d, nil
}

func buildLogger(cfg config.Config, d *deps) logger.Logger {
	local := logger.NewStdLogger(log.New(os.Stderr, "", log.LstdFlags), logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.RollbarToken == "" {
		return local
	}
	rl := logger.NewRollbarLogger(local, logger.RollbarConfig{
		Token:       cfg.Log.RollbarToken,
		Environment: cfg.Log.Environment,
		CodeVersion: version,
	})
	d.closers = append(d.closers, rl.Close)
	return rl
}

// presentations picks the loader (static file, then Postgres) and the cache
// (Redis when configured, otherwise in-process).
func (d *deps) presentations(cfg config.Config) (app.PresentationRepository, error) {
	var loader memory.PresentationLoader
	switch {
	case cfg.Presentation.Static != "":
		static, err := memory.LoadStaticFile(cfg.Presentation.Static)
		if err != nil {
			return nil, err
		}
		loader = static
	case d.pool != nil:
		loader = pgloader.NewPresentationLoader(d.pool)
	default:
		return nil, fmt.Errorf("no presentation source: set presentation.static or postgres.url")
	}

	ttl := config.TTLDuration(cfg.Presentation.TTL, 10*time.Minute)
	if d.redis != nil {
		return redisinfra.NewPresentationRepository(d.redis, loader, cfg.Redis.Prefix, ttl), nil
	}
	return memory.NewPresentationRepository(loader, ttl), nil
}

func (d *deps) channel(ctx context.Context, cfg config.Config, id app.Identity) (app.Channel, error) {
	switch cfg.Server.Transport {
	case config.TransportRedis:
		if d.redis == nil {
			return nil, fmt.Errorf("redis transport needs redis.addr")
		}
		return redisinfra.Dial(ctx, d.redis, redisinfra.ChannelOptions{
			Prefix:      cfg.Redis.Prefix,
			SessionCode: id.SessionCode,
			SID:         id.SID,
			LivenessTTL: config.TTLDuration(cfg.Redis.TTL, time.Minute),
		}, d.log)
	default:
		return ws.Connect(ws.Options{
			URL:             cfg.Server.URL,
			InitialInterval: config.TTLDuration(cfg.Reconnect.Initial, 500*time.Millisecond),
			MaxInterval:     config.TTLDuration(cfg.Reconnect.Max, 10*time.Second),
			MaxElapsed:      config.TTLDuration(cfg.Reconnect.MaxElapsed, 0),
		}, d.log), nil
	}
}
