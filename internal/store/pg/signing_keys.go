package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
	"github.com/dropDatabas3/jwtkeys/internal/metrics"
	"github.com/dropDatabas3/jwtkeys/internal/observability/logger"
)

const componentSigningKeys = "store.pg.signing_keys"

// SigningKeyStore implementa repository.JWTSigningRepository sobre Postgres.
// No guarda estado entre llamadas: aislamiento y durabilidad vienen de la tx del caller.
type SigningKeyStore struct {
	table string

	selectForUpdate string
	insert          string
}

var _ repository.JWTSigningRepository = (*SigningKeyStore)(nil)

func NewSigningKeyStore(names TableNames) *SigningKeyStore {
	table := names.JWTSigningKeysTable()
	return &SigningKeyStore{
		table: table,
		selectForUpdate: "SELECT key_id, key_string, algorithm, created_at FROM " + table +
			" WHERE app_id = $1 ORDER BY created_at DESC FOR UPDATE",
		insert: "INSERT INTO " + table +
			"(app_id, key_id, key_string, created_at, algorithm) VALUES($1, $2, $3, $4, $5)",
	}
}

// GetSigningKeys devuelve todas las claves del app, la más reciente primero,
// bloqueando cada fila hasta que termine la tx. Una segunda tx que pida el mismo
// app queda esperando; así "leer, decidir, insertar" es seguro sin mutex propio.
// Sin filas devuelve un slice vacío.
func (s *SigningKeyStore) GetSigningKeys(ctx context.Context, tx pgx.Tx, appID string) ([]repository.SigningKey, error) {
	appID = repository.NormalizeAppID(appID)
	log := logger.From(ctx).With(
		logger.Layer("repository"),
		logger.Component(componentSigningKeys),
		logger.Op("GetSigningKeys"),
		logger.AppID(appID),
	)

	start := time.Now()
	rows, err := tx.Query(ctx, s.selectForUpdate, appID)
	if err != nil {
		log.Warn("select signing keys failed", logger.Err(err))
		return nil, queryError("get_signing_keys", appID, err)
	}
	defer rows.Close()

	keys := make([]repository.SigningKey, 0)
	for rows.Next() {
		k, err := scanSigningKey(rows)
		if err != nil {
			return nil, queryError("get_signing_keys", appID, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		log.Warn("iterate signing keys failed", logger.Err(err))
		return nil, queryError("get_signing_keys", appID, err)
	}

	metrics.ObserveSigningKeysRead(time.Since(start))
	log.Debug("signing keys locked", logger.Count(len(keys)))
	return keys, nil
}

// InsertSigningKey inserta exactamente una fila. La PK (app_id, key_id) rechaza
// duplicados; el error resultante cumple errors.Is(err, repository.ErrConflict)
// y el caller decide si significa "otro writer ya rotó". No hay retry acá.
func (s *SigningKeyStore) InsertSigningKey(ctx context.Context, tx pgx.Tx, appID string, info repository.SigningKeyInfo) error {
	appID = repository.NormalizeAppID(appID)
	if err := validateInfo(info); err != nil {
		return queryError("insert_signing_key", appID, err)
	}

	if _, err := tx.Exec(ctx, s.insert, appID, info.KeyID, info.KeyString, info.CreatedAt, info.Algorithm); err != nil {
		qe := queryError("insert_signing_key", appID, err)
		logger.From(ctx).Debug("insert signing key failed",
			logger.Component(componentSigningKeys),
			logger.AppID(appID),
			logger.KeyID(info.KeyID),
			logger.Bool("conflict", repository.IsConflict(qe)),
			logger.Err(err),
		)
		return qe
	}
	return nil
}

func validateInfo(info repository.SigningKeyInfo) error {
	switch {
	case strings.TrimSpace(info.KeyID) == "":
		return fmt.Errorf("%w: empty key_id", repository.ErrInvalidInput)
	case info.KeyString == "":
		return fmt.Errorf("%w: empty key_string", repository.ErrInvalidInput)
	case strings.TrimSpace(info.Algorithm) == "":
		return fmt.Errorf("%w: empty algorithm", repository.ErrInvalidInput)
	case len(info.Algorithm) > 10:
		return fmt.Errorf("%w: algorithm longer than 10 chars", repository.ErrInvalidInput)
	}
	return nil
}
