package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
	"github.com/dropDatabas3/jwtkeys/internal/observability/logger"
)

// TableNames es el proveedor de nombres ya resueltos (esquema + prefijo).
// *config.Config lo implementa.
type TableNames interface {
	TableSchema() string
	JWTSigningKeysTable() string
	AppsTable() string
}

// Execer es la mínima interfaz que cumplen *pgxpool.Pool, *pgx.Conn y pgx.Tx para DDL.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema genera y aplica el DDL de la tabla de claves de firma.
type Schema struct {
	schema    string
	table     string
	appsTable string
}

func NewSchema(names TableNames) *Schema {
	return &Schema{
		schema:    names.TableSchema(),
		table:     names.JWTSigningKeysTable(),
		appsTable: names.AppsTable(),
	}
}

// CreateTableQuery devuelve el CREATE TABLE IF NOT EXISTS.
//
// created_at sólo indica qué clave se agregó última; no se usa para validez
// ni expiración (claves definidas por el usuario pueden traer cualquier valor).
func (s *Schema) CreateTableQuery() string {
	return "CREATE TABLE IF NOT EXISTS " + s.table + " (" +
		"app_id VARCHAR(64) DEFAULT '" + repository.PublicAppID + "'," +
		"key_id VARCHAR(255) NOT NULL," +
		"key_string TEXT NOT NULL," +
		"algorithm VARCHAR(10) NOT NULL," +
		"created_at BIGINT," +
		"CONSTRAINT " + constraintName(s.schema, s.table, "", "pkey") +
		" PRIMARY KEY(app_id, key_id)," +
		"CONSTRAINT " + constraintName(s.schema, s.table, "app_id", "fkey") +
		" FOREIGN KEY(app_id)" +
		" REFERENCES " + s.appsTable + " (app_id) ON DELETE CASCADE" +
		");"
}

// CreateAppIDIndexQuery devuelve el índice secundario por app_id.
func (s *Schema) CreateAppIDIndexQuery() string {
	return "CREATE INDEX IF NOT EXISTS jwt_signing_keys_app_id_index ON " + s.table + " (app_id);"
}

// Provision aplica ambas sentencias. Es idempotente; pensado para correr en el boot.
func (s *Schema) Provision(ctx context.Context, db Execer) error {
	log := logger.From(ctx).With(logger.Component("store.pg.schema"), logger.Table(s.table))

	for _, q := range []string{s.CreateTableQuery(), s.CreateAppIDIndexQuery()} {
		if _, err := db.Exec(ctx, q); err != nil {
			log.Error("schema provisioning failed", logger.Err(err))
			return fmt.Errorf("%w: %s: %w", repository.ErrSchema, s.table, err)
		}
	}
	log.Info("signing keys schema ready")
	return nil
}

// constraintName arma <tabla>[_<columna>]_<sufijo> sin el calificador de esquema.
func constraintName(schema, table, column, suffix string) string {
	name := table
	if schema != "" && schema != "public" {
		name = strings.TrimPrefix(name, schema+".")
	}
	if column != "" {
		name += "_" + column
	}
	return name + "_" + suffix
}
