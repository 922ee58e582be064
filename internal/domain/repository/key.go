package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

// PublicAppID es el app por defecto cuando no se indica ninguno.
const PublicAppID = "public"

// Delimitadores reservados de key_string. Su presencia marca una clave asimétrica.
const (
	AsymmetricFieldSeparator       = "|"
	LegacyAsymmetricFieldSeparator = ";"
)

// SigningKeyInfo es una fila de la tabla de claves de firma JWT.
//
// CreatedAt solo ordena (la más reciente primero). No indica validez ni
// expiración: claves definidas por el usuario pueden traer cualquier timestamp.
type SigningKeyInfo struct {
	KeyID     string
	KeyString string
	Algorithm string
	CreatedAt int64 // unix millis
}

// Info devuelve la fila cruda.
func (i SigningKeyInfo) Info() SigningKeyInfo { return i }

// SigningKey es la unión {Symmetric, Asymmetric} reconstruida desde la fila.
type SigningKey interface {
	Info() SigningKeyInfo
	isSigningKey()
}

// SymmetricSigningKey: un único secreto compartido (HS256).
type SymmetricSigningKey struct {
	SigningKeyInfo
}

func (*SymmetricSigningKey) isSigningKey() {}

// Secret devuelve el valor del secreto tal como se almacenó.
func (k *SymmetricSigningKey) Secret() string { return k.KeyString }

// AsymmetricSigningKey: key_string con componentes público/privado delimitados.
// La subestructura la interpreta internal/keys, no el store.
type AsymmetricSigningKey struct {
	SigningKeyInfo
}

func (*AsymmetricSigningKey) isSigningKey() {}

// IsAsymmetricKeyString aplica la heurística de contenido: cualquier '|' o ';'
// indica clave asimétrica. Un secreto simétrico que contenga esos caracteres
// se clasificaría mal; los generadores deben evitarlos.
func IsAsymmetricKeyString(keyString string) bool {
	return strings.ContainsAny(keyString, AsymmetricFieldSeparator+LegacyAsymmetricFieldSeparator)
}

// NewSigningKey construye el tipo concreto a partir de la fila.
func NewSigningKey(info SigningKeyInfo) SigningKey {
	if IsAsymmetricKeyString(info.KeyString) {
		return &AsymmetricSigningKey{SigningKeyInfo: info}
	}
	return &SymmetricSigningKey{SigningKeyInfo: info}
}

// NormalizeAppID aplica el default "public" a un app vacío; el resto pasa tal cual.
func NormalizeAppID(appID string) string {
	if appID == "" {
		return PublicAppID
	}
	return appID
}

// JWTSigningRepository define el acceso a la tabla de claves de firma.
// Ambas operaciones corren dentro de una transacción abierta por el caller.
type JWTSigningRepository interface {
	// GetSigningKeys devuelve las claves del app ordenadas por created_at DESC
	// y las bloquea (FOR UPDATE) hasta que la transacción termine.
	GetSigningKeys(ctx context.Context, tx pgx.Tx, appID string) ([]SigningKey, error)

	// InsertSigningKey inserta una fila. Un (app_id, key_id) duplicado
	// devuelve un error que cumple errors.Is(err, ErrConflict).
	InsertSigningKey(ctx context.Context, tx pgx.Tx, appID string, info SigningKeyInfo) error
}

// JWK representa una clave pública en formato JWK (para JWKS endpoint).
type JWK struct {
	KID string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JWKS representa un conjunto de claves públicas.
type JWKS struct {
	Keys []JWK `json:"keys"`
}
