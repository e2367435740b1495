package embedded

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/security/password"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

func credKey(clientID, email string) string {
	return "cred:" + clientID + ":" + strings.ToLower(email)
}

// handlePassword implementa login-o-registro con password: si el email no
// tiene credencial en este tenant, la primera autenticación la crea (el
// gating por invite lo decide el broker en onSuccess, no acá).
func (e *Engine) handlePassword(w http.ResponseWriter, r *http.Request, flows map[store.ProviderKind]engine.Flow, onSuccess engine.SuccessFunc) {
	spec, ok := flowSpec(flows, store.ProviderPassword)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "provider_not_enabled"})
		return
	}

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(r, &body) || body.Email == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))

	ctx := r.Context()
	key := credKey(spec.ClientID, email)

	stored, err := e.kv.Get(ctx, key)
	switch {
	case err == nil:
		if !password.Verify(body.Password, string(stored)) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_failed"})
			return
		}

	case kv.IsNotFound(err):
		// primera vez: registrar credencial. Si onSuccess después rechaza
		// (invite requerido), la borramos para no dejar credencial huérfana.
		if ok, reasons := e.cfg.Policy.Validate(body.Password); !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":   "weak_password",
				"reasons": reasons,
			})
			return
		}
		if e.cfg.Blacklist.Contains(body.Password) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":   "weak_password",
				"reasons": []string{"blacklisted"},
			})
			return
		}
		phc, herr := password.Hash(password.Default, body.Password)
		if herr != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
			return
		}
		if serr := e.kv.Set(ctx, key, []byte(phc), 0); serr != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
			return
		}
		raw := map[string]any{"email": email}
		if _, ok := e.finish(ctx, w, spec.ClientID, store.ProviderPassword, raw, onSuccess); !ok {
			_ = e.kv.Delete(ctx, key)
		}
		return

	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
		return
	}

	raw := map[string]any{"email": email}
	e.finish(ctx, w, spec.ClientID, store.ProviderPassword, raw, onSuccess)
}
