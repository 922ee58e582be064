package pg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
)

// rowScanner cubre pgx.Row y pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSigningKey lee key_id, key_string, algorithm, created_at (en ese orden)
// y reconstruye el tipo concreto por contenido de key_string.
func scanSigningKey(row rowScanner) (repository.SigningKey, error) {
	var (
		info      repository.SigningKeyInfo
		createdAt *int64
	)
	if err := row.Scan(&info.KeyID, &info.KeyString, &info.Algorithm, &createdAt); err != nil {
		return nil, err
	}
	if createdAt != nil {
		info.CreatedAt = *createdAt
	}
	return repository.NewSigningKey(info), nil
}

// queryError envuelve el error del driver conservando el SQLSTATE.
func queryError(op, appID string, err error) error {
	qe := &repository.QueryError{Op: op, AppID: appID, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		qe.Code = pgErr.Code
	}
	return qe
}
