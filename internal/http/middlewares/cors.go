package middlewares

import (
	"net/http"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, X-Client-Secret, X-Request-ID"
)

// WithCORS emite headers CORS scoped al origin registrado del tenant
// resuelto; sin tenant cae al wildcard (solo sirve para los endpoints
// utilitarios, que no llevan credenciales).
//
// Los headers se setean ANTES de ejecutar el handler: una respuesta de
// rechazo (401/403) también tiene que llevar Access-Control-Allow-Origin
// o el browser esconde el error real detrás de un fallo CORS.
func WithCORS() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if t := GetTenant(r.Context()); t != nil && t.OriginURL != "" {
				h.Set("Access-Control-Allow-Origin", t.OriginURL)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			} else {
				h.Set("Access-Control-Allow-Origin", "*")
			}
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
