package keys

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Prefijos de kid: s- estática, d- dinámica (rota por ventana).
const (
	StaticKeyPrefix  = "s-"
	DynamicKeyPrefix = "d-"
)

// keyIDNamespace fija el espacio de los UUIDv5 de kids deterministas.
var keyIDNamespace = uuid.MustParse("6c1e3f5a-8d2b-4e7a-9f10-2b3c4d5e6f70")

// StaticKeyID es el kid de la primera clave estática de un app. Dos procesos que
// la generan a la vez chocan en la PK y uno de los dos pierde.
func StaticKeyID(appID, alg string) string {
	return StaticKeyPrefix + uuid.NewSHA1(keyIDNamespace, []byte(appID+"/"+alg+"/static")).String()
}

// DynamicKeyID es el kid de la ventana de rotación que contiene now.
func DynamicKeyID(appID, alg string, now time.Time, interval time.Duration) string {
	w := WindowIndex(now, interval)
	return DynamicKeyPrefix + uuid.NewSHA1(keyIDNamespace, []byte(appID+"/"+alg+"/"+strconv.FormatInt(w, 10))).String()
}

// RandomKeyID genera un kid aleatorio con el prefijo dado (rotación forzada).
func RandomKeyID(prefix string) string {
	return prefix + uuid.NewString()
}

// WindowIndex numera las ventanas de rotación desde epoch.
func WindowIndex(now time.Time, interval time.Duration) int64 {
	ms := interval.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return now.UnixMilli() / ms
}

// WindowEnd devuelve el instante en que termina la ventana de now.
func WindowEnd(now time.Time, interval time.Duration) time.Time {
	ms := interval.Milliseconds()
	if ms <= 0 {
		return now
	}
	return time.UnixMilli((WindowIndex(now, interval) + 1) * ms)
}
