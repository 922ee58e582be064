package main

import (
	"time"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
)

func newKeyRow(k repository.SigningKey) keyRow {
	info := k.Info()
	kind := "symmetric"
	if _, ok := k.(*repository.AsymmetricSigningKey); ok {
		kind = "asymmetric"
	}
	return keyRow{
		KeyID:     info.KeyID,
		Algorithm: info.Algorithm,
		Kind:      kind,
		CreatedAt: time.UnixMilli(info.CreatedAt).UTC(),
	}
}
