package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/brokerjohn/internal/reqctx"
	"github.com/dropDatabas3/brokerjohn/internal/tenant"
)

// WithRequestContext resuelve los identificadores del request (tenant,
// copy template, invite), re-emite sus cookies y deja el tenant resuelto
// en el contexto para CORS y handlers.
//
// Un clientID irresoluble NO corta acá: los endpoints utilitarios andan
// sin tenant, y los que lo exigen rechazan con su propio mapeo.
func WithRequestContext(dir *tenant.Directory) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := reqctx.Resolve(r)
			ctx := setReqContext(r.Context(), rc)

			// para resolver el tenant (CORS incluido) las rutas admin y de
			// sesión llevan el clientID en el path; ese fallback no re-emite
			// cookie porque no vino del browser
			cid := rc.ClientID
			if cid == "" {
				cid = clientIDFromPath(r.URL.Path)
			}
			if cid != "" {
				if t, err := dir.Resolve(ctx, cid); err == nil {
					ctx = setTenant(ctx, t)
				}
			}

			// side effect del dispatcher: re-emisión de cookies por cada
			// identificador presente
			reqctx.WriteCookies(w, rc)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIDFromPath extrae el clientID embebido en las rutas que lo llevan
// como segmento: /user/{clientID}/..., /users/{clientID},
// /session/{scope}/{clientID}. Cualquier otra ruta devuelve "".
//
// Corre antes del routing de chi, por eso parsea el path a mano en vez de
// leer los URL params.
func clientIDFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) >= 2 && (parts[0] == "user" || parts[0] == "users"):
		return parts[1]
	case len(parts) >= 3 && parts[0] == "session" && (parts[1] == "public" || parts[1] == "private"):
		return parts[2]
	}
	return ""
}
