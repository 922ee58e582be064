package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de claves de firma. Viven en un paquete aparte para que store, keys y
// http puedan usarlas sin ciclos de import.

var (
	SigningKeysReadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jwt_signing_keys_read_duration_seconds",
		Help:    "Latencia del SELECT ... FOR UPDATE (incluye espera de locks)",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	SigningKeysCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jwt_signing_keys_created_total",
		Help: "Claves de firma insertadas por algoritmo",
	}, []string{"algorithm"})

	SigningKeyConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jwt_signing_key_conflicts_total",
		Help: "Inserts rechazados por PK duplicada (otro writer rotó primero)",
	})
)

// Register registra las métricas en el registry dado (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{SigningKeysReadDuration, SigningKeysCreated, SigningKeyConflicts} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func ObserveSigningKeysRead(d time.Duration) {
	SigningKeysReadDuration.Observe(d.Seconds())
}

func IncKeyCreated(algorithm string) {
	SigningKeysCreated.WithLabelValues(algorithm).Inc()
}

func IncKeyConflict() {
	SigningKeyConflicts.Inc()
}
