// Package repository define los tipos y contratos de dominio para las claves
// de firma JWT multi-tenant.
//
// La implementación concreta vive en internal/store/pg.
//
//	┌─────────────────────────────────────────────────────┐
//	│     keys.Manager (rotación) / jwt.Issuer            │
//	└─────────────────────────────────────────────────────┘
//	                        │  pgx.Tx del caller
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│   repository.JWTSigningRepository (interface)       │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│   store/pg.SigningKeyStore  (SELECT ... FOR UPDATE) │
//	└─────────────────────────────────────────────────────┘
//
// Convenciones:
//   - AppID vacío equivale a "public"
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
package repository
