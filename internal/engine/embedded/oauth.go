package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/observability/logger"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// httpClient para hablar con vendors externos (token exchange, userinfo,
// discovery, introspection). Timeout corto: un vendor lento no puede
// colgar el login.
var httpClient = &http.Client{Timeout: 10 * time.Second}

func stateKey(id string) string { return "state:" + id }

// oauthState es lo que persiste entre /auth/oauth/start y el callback.
type oauthState struct {
	Kind        store.ProviderKind `json:"kind"`
	ClientID    string             `json:"clientId"`
	TokenURL    string             `json:"tokenUrl"`
	UserInfoURL string             `json:"userInfoUrl,omitempty"`
}

func (e *Engine) callbackURL() string {
	return strings.TrimRight(e.cfg.Issuer, "/") + "/auth/oauth/callback"
}

// oauthEndpoints resuelve authorize/token/userinfo para el flow pedido.
// Para OIDC tira discovery contra el issuer; para oauth2 puro vienen de
// settings.
func oauthEndpoints(ctx context.Context, spec engine.FlowSpec) (authURL, tokenURL, userInfoURL, vendorClientID string, scopes []string, err error) {
	switch spec.Kind {
	case store.ProviderOIDC:
		disc, derr := discoverOIDC(ctx, spec.OIDC.IssuerURL)
		if derr != nil {
			return "", "", "", "", nil, derr
		}
		scopes = spec.OIDC.Scopes
		if len(scopes) == 0 {
			scopes = []string{"openid", "profile", "email"}
		}
		return disc.AuthorizationEndpoint, disc.TokenEndpoint, disc.UserinfoEndpoint, spec.OIDC.ClientID, scopes, nil

	case store.ProviderOAuth2Vendor, store.ProviderOAuth2Generic:
		return spec.OAuth2.AuthURL, spec.OAuth2.TokenURL, spec.OAuth2.UserInfoURL, spec.OAuth2.ClientID, spec.OAuth2.Scopes, nil
	}
	return "", "", "", "", nil, fmt.Errorf("embedded: kind %q no es un flow oauth", spec.Kind)
}

type oidcDiscovery struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

func discoverOIDC(ctx context.Context, issuer string) (*oidcDiscovery, error) {
	wellKnown := strings.TrimRight(issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedded: discovery %s devolvió %d", wellKnown, resp.StatusCode)
	}
	var d oidcDiscovery
	if err := json.NewDecoder(io.LimitReader(resp.Body, 256<<10)).Decode(&d); err != nil {
		return nil, err
	}
	if d.AuthorizationEndpoint == "" || d.TokenEndpoint == "" {
		return nil, fmt.Errorf("embedded: discovery incompleto de %s", issuer)
	}
	return &d, nil
}

// handleOAuthStart arma el authorize redirect. ?provider= elige el kind
// cuando el tenant tiene más de un provider OAuth habilitado.
func (e *Engine) handleOAuthStart(w http.ResponseWriter, r *http.Request, flows map[store.ProviderKind]engine.Flow) {
	kind := store.ProviderKind(r.URL.Query().Get("provider"))
	if kind == "" {
		for _, k := range []store.ProviderKind{store.ProviderOIDC, store.ProviderOAuth2Vendor, store.ProviderOAuth2Generic} {
			if _, ok := flows[k]; ok {
				kind = k
				break
			}
		}
	}
	spec, ok := flowSpec(flows, kind)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "provider_not_enabled"})
		return
	}

	ctx := r.Context()
	authURL, tokenURL, userInfoURL, vendorClientID, scopes, err := oauthEndpoints(ctx, spec)
	if err != nil {
		logger.L().Error("oauth start failed",
			logger.Component("embedded"),
			logger.ClientID(spec.ClientID),
			logger.Provider(string(kind)),
			logger.Err(err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "provider_unreachable"})
		return
	}

	st := oauthState{Kind: kind, ClientID: spec.ClientID, TokenURL: tokenURL, UserInfoURL: userInfoURL}
	blob, _ := json.Marshal(st)
	stateID := uuid.NewString()
	if err := e.kv.Set(ctx, stateKey(stateID), blob, e.cfg.StateTTL); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
		return
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", vendorClientID)
	q.Set("redirect_uri", e.callbackURL())
	q.Set("state", stateID)
	if len(scopes) > 0 {
		q.Set("scope", strings.Join(scopes, " "))
	}

	sep := "?"
	if strings.Contains(authURL, "?") {
		sep = "&"
	}
	http.Redirect(w, r, authURL+sep+q.Encode(), http.StatusFound)
}

// handleOAuthCallback canjea el code, junta userinfo y cierra el login.
// Si el tenant tiene origin registrado, el token vuelve al browser en el
// fragment; si no, JSON.
func (e *Engine) handleOAuthCallback(w http.ResponseWriter, r *http.Request, flows map[store.ProviderKind]engine.Flow, onSuccess engine.SuccessFunc) {
	q := r.URL.Query()
	stateID, code := q.Get("state"), q.Get("code")
	if stateID == "" || code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}

	ctx := r.Context()
	blob, err := e.kv.Get(ctx, stateKey(stateID))
	if err != nil {
		if kv.IsNotFound(err) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_state"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
		return
	}
	_ = e.kv.Delete(ctx, stateKey(stateID)) // single-use

	var st oauthState
	if err := json.Unmarshal(blob, &st); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
		return
	}

	spec, ok := flowSpec(flows, st.Kind)
	if !ok || spec.ClientID != st.ClientID {
		// el provider se deshabilitó entre start y callback, o el state es
		// de otro tenant
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_state"})
		return
	}

	accessToken, err := e.exchangeCode(ctx, spec, st.TokenURL, code)
	if err != nil {
		logger.L().Warn("oauth exchange failed",
			logger.Component("embedded"),
			logger.ClientID(spec.ClientID),
			logger.Provider(string(st.Kind)),
			logger.Err(err),
		)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_failed"})
		return
	}

	raw := map[string]any{"access_token": accessToken}
	if st.UserInfoURL != "" {
		info, uerr := fetchUserInfo(ctx, st.UserInfoURL, accessToken)
		if uerr != nil {
			logger.L().Warn("userinfo fetch failed",
				logger.Component("embedded"),
				logger.ClientID(spec.ClientID),
				logger.Err(uerr),
			)
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_failed"})
			return
		}
		for k, v := range info {
			raw[k] = v
		}
	}

	tok, ttl, err := e.authenticate(ctx, spec.ClientID, st.Kind, raw, onSuccess)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_failed"})
		return
	}

	if spec.RedirectURL != "" {
		frag := url.Values{}
		frag.Set("access_token", tok)
		frag.Set("token_type", "bearer")
		frag.Set("expires_in", fmt.Sprintf("%d", int(ttl.Seconds())))
		http.Redirect(w, r, strings.TrimRight(spec.RedirectURL, "/")+"/#"+frag.Encode(), http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": tok,
		"token_type":   "bearer",
		"expires_in":   int(ttl.Seconds()),
	})
}

// exchangeCode hace el authorization_code grant contra el token endpoint
// del vendor.
func (e *Engine) exchangeCode(ctx context.Context, spec engine.FlowSpec, tokenURL, code string) (string, error) {
	var clientID, clientSecret string
	switch spec.Kind {
	case store.ProviderOIDC:
		clientID, clientSecret = spec.OIDC.ClientID, spec.OIDC.ClientSecret
	default:
		clientID, clientSecret = spec.OAuth2.ClientID, spec.OAuth2.ClientSecret
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", e.callbackURL())
	form.Set("client_id", clientID)
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint devolvió %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 256<<10)).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint sin access_token")
	}
	return body.AccessToken, nil
}

func fetchUserInfo(ctx context.Context, userInfoURL, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo devolvió %d", resp.StatusCode)
	}

	var info map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 256<<10)).Decode(&info); err != nil {
		return nil, err
	}
	return info, nil
}
