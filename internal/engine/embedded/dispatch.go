package embedded

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/observability/logger"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// Endpoints del motor embebido (atendidos desde el fallback "*"):
//
//	POST /auth/password          login/signup con password
//	POST /auth/code/start        genera y entrega un one-time code
//	POST /auth/code/verify       canjea el code
//	POST /auth/introspect        valida un token externo por introspection
//	GET  /auth/oauth/start       redirect al vendor (provider=<kind>)
//	GET  /auth/oauth/callback    vuelta del vendor
func (e *Engine) Dispatch(w http.ResponseWriter, r *http.Request, flows map[store.ProviderKind]engine.Flow, onSuccess engine.SuccessFunc) {
	path := strings.TrimRight(r.URL.Path, "/")
	switch {
	case path == "/auth/password" && r.Method == http.MethodPost:
		e.handlePassword(w, r, flows, onSuccess)
	case path == "/auth/code/start" && r.Method == http.MethodPost:
		e.handleCodeStart(w, r, flows)
	case path == "/auth/code/verify" && r.Method == http.MethodPost:
		e.handleCodeVerify(w, r, flows, onSuccess)
	case path == "/auth/introspect" && r.Method == http.MethodPost:
		e.handleIntrospect(w, r, flows, onSuccess)
	case path == "/auth/oauth/start" && r.Method == http.MethodGet:
		e.handleOAuthStart(w, r, flows)
	case path == "/auth/oauth/callback" && r.Method == http.MethodGet:
		e.handleOAuthCallback(w, r, flows, onSuccess)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
	}
}

// authenticate corre onSuccess y emite el access token. Cualquier error
// del pipeline de identidad aborta el login; el detalle ya quedó logueado
// más adentro.
func (e *Engine) authenticate(ctx context.Context, clientID string, kind store.ProviderKind, raw map[string]any, onSuccess engine.SuccessFunc) (string, time.Duration, error) {
	subject, err := onSuccess(ctx, kind, raw)
	if err != nil {
		logger.L().Warn("login aborted",
			logger.Component("embedded"),
			logger.ClientID(clientID),
			logger.Provider(string(kind)),
			logger.Err(err),
		)
		return "", 0, err
	}
	return e.IssueToken(clientID, subject)
}

// finish es authenticate + respuesta JSON (flows sin redirect de browser).
func (e *Engine) finish(ctx context.Context, w http.ResponseWriter, clientID string, kind store.ProviderKind, raw map[string]any, onSuccess engine.SuccessFunc) (string, bool) {
	tok, ttl, err := e.authenticate(ctx, clientID, kind, raw, onSuccess)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_failed"})
		return "", false
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": tok,
		"token_type":   "bearer",
		"expires_in":   int(ttl.Seconds()),
	})
	return tok, true
}

func flowSpec(flows map[store.ProviderKind]engine.Flow, kind store.ProviderKind) (engine.FlowSpec, bool) {
	f, ok := flows[kind]
	if !ok {
		return engine.FlowSpec{}, false
	}
	fl, ok := f.(*flow)
	if !ok {
		return engine.FlowSpec{}, false
	}
	return fl.spec, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, dst any) bool {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 64<<10)).Decode(dst) == nil
}
