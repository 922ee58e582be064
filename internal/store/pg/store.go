package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/jwtkeys/internal/config"
	"github.com/dropDatabas3/jwtkeys/internal/observability/logger"
)

// Open crea el pool de conexiones. El pool es un colaborador externo: el store
// sólo recibe transacciones ya abiertas.
func Open(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Storage.DSN == "" {
		return nil, fmt.Errorf("pg: empty DSN")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.Storage.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.Storage.MaxConns)
	} else {
		pcfg.MaxConns = 10
	}
	if cfg.Storage.MinConns > 0 {
		pcfg.MinConns = int32(cfg.Storage.MinConns)
	}
	pcfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	// Verificar conexión
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	logger.From(ctx).Info("postgres pool ready",
		logger.Component("store.pg"),
		logger.Int("max_conns", int(pcfg.MaxConns)),
	)
	return pool, nil
}
