package middlewares

import (
	"net/http"
	"runtime/debug"

	httperrors "github.com/dropDatabas3/brokerjohn/internal/http/errors"
	"github.com/dropDatabas3/brokerjohn/internal/observability/logger"
)

// WithRecover atrapa panics del handler y responde 500 en vez de voltear
// el proceso.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.L().Error("panic recovered",
						logger.RequestID(GetRequestID(r.Context())),
						logger.Path(r.URL.Path),
						logger.Any("panic", rec),
						logger.String("stack", string(debug.Stack())),
					)
					httperrors.WriteError(w, httperrors.ErrInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
