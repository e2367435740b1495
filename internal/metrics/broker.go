// Package metrics define las métricas Prometheus del broker en un paquete
// standalone para evitar ciclos de import entre HTTP y los services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_login_attempts_total",
		Help: "Intentos de login por provider y resultado",
	}, []string{"provider", "outcome"})

	UsersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_users_created_total",
		Help: "Usuarios creados por first-login",
	})

	TenantCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_tenant_cache_total",
		Help: "Lookups del tenant directory por resultado (hit|miss)",
	}, []string{"result"})

	SessionWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broker_session_writes_total",
		Help: "Escrituras de session documents por scope y modo (merge|replace)",
	}, []string{"scope", "mode"})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "broker_request_duration_ms",
		Help:    "Duración de requests HTTP en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"route", "status"})
)

// Register registra las métricas del broker en el registry dado (o el
// default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		LoginAttempts,
		UsersCreated,
		TenantCacheHits,
		SessionWrites,
		RequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
