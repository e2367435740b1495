package handlers

import (
	"net/http"
	"net/url"
	"strings"

	httperrors "github.com/dropDatabas3/brokerjohn/internal/http/errors"
	mw "github.com/dropDatabas3/brokerjohn/internal/http/middlewares"
	"github.com/dropDatabas3/brokerjohn/internal/reqctx"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// Health responde liveness.
func (d *Deps) Health(w http.ResponseWriter, r *http.Request) {
	httperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version responde la versión del binario en texto plano.
func (d *Deps) Version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(d.BuildVersion))
}

// Cleanup borra todas las cookies identificadoras (utilidad de test/debug).
func (d *Deps) Cleanup(w http.ResponseWriter, r *http.Request) {
	reqctx.ClearAll(w)
	httperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleaned"})
}

// InviteRedirect valida un invite link y manda el browser al origin del
// tenant con el flujo de invitación marcado. La cookie de invite ya la
// re-emitió el middleware de contexto; si el invite resulta inválido acá
// la pisamos con una de borrado.
func (d *Deps) InviteRedirect(w http.ResponseWriter, r *http.Request) {
	rc := mw.GetReqContext(r.Context())
	if rc.InviteID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invite_id requerido"))
		return
	}

	t := mw.GetTenant(r.Context())
	if t == nil || t.OriginURL == "" {
		// existencia de tenant no se filtra más allá de "inválido"
		httperrors.WriteError(w, httperrors.ErrNotFound)
		return
	}

	inv, err := d.Repos.Invites.Get(r.Context(), rc.InviteID)
	switch {
	case store.IsInviteNotFound(err):
		// inexistente o vencido: mismo rechazo opaco
		reqctx.ClearInviteCookie(w)
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("invite inválido"))
		return
	case err != nil:
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	case inv.ClientID != t.ClientID:
		// un invite de otro tenant no redirige a este origin
		reqctx.ClearInviteCookie(w)
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("invite inválido"))
		return
	}

	q := url.Values{}
	q.Set("invite_flow", "true")
	q.Set("invite_id", rc.InviteID)

	sep := "?"
	if strings.Contains(t.OriginURL, "?") {
		sep = "&"
	}
	http.Redirect(w, r, t.OriginURL+sep+q.Encode(), http.StatusFound)
}
