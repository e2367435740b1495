// Package http arma el router y el server del broker.
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/brokerjohn/internal/http/handlers"
	mw "github.com/dropDatabas3/brokerjohn/internal/http/middlewares"
	"github.com/dropDatabas3/brokerjohn/internal/rate"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// NewRouter compone middlewares y rutas. Todo lo que no matchea una ruta
// propia cae al motor de protocolo (flows de autenticación), rate-limited.
func NewRouter(deps *handlers.Deps, limiter rate.Limiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(mw.WithRequestID())
	r.Use(mw.WithRecover())
	r.Use(mw.WithLogging())
	r.Use(mw.WithSecurityHeaders())
	r.Use(mw.WithRequestContext(deps.Dir))
	r.Use(mw.WithCORS())

	// ─── Utilitarios ───
	r.Get("/health", deps.Health)
	r.Get("/healthz", deps.Health) // alias para probes
	r.Get("/version", deps.Version)
	r.Get("/cleanup", deps.Cleanup)
	r.Get("/invite", deps.InviteRedirect)
	r.Handle("/metrics", promhttp.Handler())

	// ─── Admin (X-Client-Secret) ───
	r.Route("/user/{clientID}/{userID}", func(r chi.Router) {
		r.Get("/", deps.UserGet)
		r.Put("/", deps.UserUpdate)
		r.Delete("/", deps.UserDelete)
	})
	r.Get("/users/{clientID}", deps.UsersList)

	// ─── Session documents ───
	registerSession := func(prefix string, scope store.SessionScope) {
		r.Route(prefix+"/{clientID}", func(r chi.Router) {
			r.Get("/", deps.SessionGet(scope))
			r.Patch("/", deps.SessionPatch(scope))
			r.Delete("/", deps.SessionDelete(scope))
		})
	}
	registerSession("/session/public", store.SessionPublic)
	registerSession("/session/private", store.SessionPrivate)

	// ─── Fallback: motor de protocolo ───
	authChain := mw.Chain(stdhttp.HandlerFunc(deps.AuthFallback), mw.WithRateLimit(limiter))
	r.NotFound(authChain.ServeHTTP)

	return r
}
