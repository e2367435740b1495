package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	httperrors "github.com/dropDatabas3/brokerjohn/internal/http/errors"
	mw "github.com/dropDatabas3/brokerjohn/internal/http/middlewares"
	"github.com/dropDatabas3/brokerjohn/internal/identity"
	"github.com/dropDatabas3/brokerjohn/internal/observability/logger"
	"github.com/dropDatabas3/brokerjohn/internal/reqctx"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// AuthFallback atiende todo lo que no matcheó una ruta propia: los flows
// de autenticación del motor de protocolo. El tenant se resuelve del
// request context y el set de providers se construye fresco por request.
func (d *Deps) AuthFallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := mw.GetReqContext(ctx)

	t := mw.GetTenant(ctx)
	if t == nil || !t.Active {
		// tenant inexistente o inactivo = rechazo equivalente a
		// autorización, nunca un 500 que confirme existencia
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	set, err := d.Factory.Build(t, rc.CopyTemplateID)
	if err != nil {
		// config rota del tenant: error del operador, no del caller
		logger.L().Error("provider build failed",
			logger.Component("http"),
			logger.ClientID(t.ClientID),
			logger.Err(err),
		)
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	onSuccess := d.Identity.SuccessFunc(t, set, rc.InviteID)

	// un invite inválido además borra su cookie: el browser no queda
	// reintentando con un invite muerto
	wrapped := func(ctx context.Context, kind store.ProviderKind, raw map[string]any) (engine.Claims, error) {
		claims, err := onSuccess(ctx, kind, raw)
		if err != nil && errors.Is(err, identity.ErrInviteRequired) {
			reqctx.ClearInviteCookie(w)
		}
		return claims, err
	}

	d.Engine.Dispatch(w, r, set.Flows(), wrapped)
}
