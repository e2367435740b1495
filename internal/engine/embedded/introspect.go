package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/observability/logger"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// handleIntrospect valida un token externo contra el introspection
// endpoint del tenant (RFC 7662) y, si está activo, cierra el login con
// la respuesta cruda como payload de éxito.
func (e *Engine) handleIntrospect(w http.ResponseWriter, r *http.Request, flows map[store.ProviderKind]engine.Flow, onSuccess engine.SuccessFunc) {
	spec, ok := flowSpec(flows, store.ProviderIntrospection)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "provider_not_enabled"})
		return
	}

	var body struct {
		Token string `json:"token"`
	}
	if !readJSON(r, &body) || body.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}

	ctx := r.Context()
	raw, err := introspectToken(ctx, spec.Introspect, body.Token)
	if err != nil {
		logger.L().Warn("introspection failed",
			logger.Component("embedded"),
			logger.ClientID(spec.ClientID),
			logger.Err(err),
		)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_failed"})
		return
	}
	if active, _ := raw["active"].(bool); !active {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_failed"})
		return
	}

	e.finish(ctx, w, spec.ClientID, store.ProviderIntrospection, raw, onSuccess)
}

func introspectToken(ctx context.Context, s *store.IntrospectionSettings, token string) (map[string]any, error) {
	form := url.Values{}
	form.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.IntrospectionURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if s.ClientID != "" {
		req.SetBasicAuth(s.ClientID, s.ClientSecret)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("introspection endpoint devolvió %d", resp.StatusCode)
	}

	var out map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 256<<10)).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
