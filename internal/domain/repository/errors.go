package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un conflicto (ej: duplicado, constraint violation).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAppNotFound indica que el app referenciado por la FK no existe.
	ErrAppNotFound = errors.New("app not found")

	// ErrSchema indica que falló el aprovisionamiento del esquema.
	ErrSchema = errors.New("schema provisioning failed")
)

// SQLSTATE relevantes.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
)

// QueryError envuelve cualquier fallo de lectura/escritura del store.
// El caller decide la política (retry, abort); el store no reintenta.
type QueryError struct {
	Op    string
	AppID string
	Code  string // SQLSTATE si vino del servidor
	Err   error
}

func (e *QueryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("storage query %s (app=%s, sqlstate=%s): %v", e.Op, e.AppID, e.Code, e.Err)
	}
	return fmt.Sprintf("storage query %s (app=%s): %v", e.Op, e.AppID, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is mapea SQLSTATE a errores de dominio.
func (e *QueryError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.Code == CodeUniqueViolation
	case ErrAppNotFound:
		return e.Code == CodeForeignKeyViolation
	}
	return false
}

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsQueryError verifica si el error viene del store.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
