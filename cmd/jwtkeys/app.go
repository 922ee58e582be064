package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/jwtkeys/internal/cache"
	"github.com/dropDatabas3/jwtkeys/internal/config"
	jwtx "github.com/dropDatabas3/jwtkeys/internal/jwt"
	"github.com/dropDatabas3/jwtkeys/internal/keys"
	"github.com/dropDatabas3/jwtkeys/internal/metrics"
	"github.com/dropDatabas3/jwtkeys/internal/observability/logger"
	"github.com/dropDatabas3/jwtkeys/internal/store/pg"
)

// app reúne las dependencias armadas a partir de la config.
type app struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	schema  *pg.Schema
	manager *keys.Manager
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := metrics.Register(nil); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	pool, err := pg.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mgr, err := keys.NewManager(pool, pg.NewSigningKeyStore(cfg), keys.Policy{
		Algorithm:        cfg.Keys.Algorithm,
		Dynamic:          cfg.DynamicKeys(),
		RotationInterval: cfg.RotationInterval(),
		MaxAttempts:      cfg.Keys.MaxAttempts,
		CacheTTL:         cfg.KeyCacheTTL(),
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &app{cfg: cfg, pool: pool, schema: pg.NewSchema(cfg), manager: mgr}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

func (a *app) newCache(ctx context.Context) (cache.Client, error) {
	return cache.New(ctx, cache.Config{
		Kind:     a.cfg.Cache.Kind,
		Addr:     a.cfg.Cache.Redis.Addr,
		Password: a.cfg.Cache.Redis.Password,
		DB:       a.cfg.Cache.Redis.DB,
		Prefix:   a.cfg.Cache.Redis.Prefix,
	})
}

func (a *app) newIssuer() *jwtx.Issuer {
	return jwtx.NewIssuer(a.cfg.Keys.Issuer, a.manager)
}
