package e2e

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/brokerjohn/internal/delivery"
	"github.com/dropDatabas3/brokerjohn/internal/engine/embedded"
	"github.com/dropDatabas3/brokerjohn/internal/gate"
	brokerhttp "github.com/dropDatabas3/brokerjohn/internal/http"
	"github.com/dropDatabas3/brokerjohn/internal/http/handlers"
	"github.com/dropDatabas3/brokerjohn/internal/identity"
	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/metrics"
	"github.com/dropDatabas3/brokerjohn/internal/provider"
	"github.com/dropDatabas3/brokerjohn/internal/rate"
	"github.com/dropDatabas3/brokerjohn/internal/session"
	"github.com/dropDatabas3/brokerjohn/internal/store"
	kvadapter "github.com/dropDatabas3/brokerjohn/internal/store/adapters/kv"
	"github.com/dropDatabas3/brokerjohn/internal/tenant"
)

/* ============================================================================
   Broker in-process: stack completo sobre KV en memoria
============================================================================ */

type broker struct {
	srv   *httptest.Server
	kvs   kv.Store
	repos store.Repositories
}

func (b *broker) url(path string) string { return b.srv.URL + path }

// newBroker levanta el broker entero (router + middlewares + motor embebido)
// sobre storage en memoria, con los tenants dados ya sembrados.
func newBroker(t *testing.T, tenants ...*store.Tenant) *broker {
	t.Helper()
	return newBrokerWithLimiter(t, rate.NopLimiter{}, tenants...)
}

func newBrokerWithLimiter(t *testing.T, limiter rate.Limiter, tenants ...*store.Tenant) *broker {
	t.Helper()

	kvs := kv.NewMemory("")
	repos := kvadapter.New(kvs)
	for _, tn := range tenants {
		seedTenant(t, kvs, tn)
	}

	eng, err := embedded.New(embedded.Config{
		Issuer:    "http://broker.test",
		Secret:    "e2e-signing-secret",
		AccessTTL: time.Hour,
	}, kvs)
	if err != nil {
		t.Fatalf("embedded engine: %v", err)
	}

	dir := tenant.NewDirectory(repos.Tenants, time.Minute)
	deps := &handlers.Deps{
		Dir:          dir,
		Gate:         gate.New(dir, eng),
		Sessions:     session.NewService(repos.Users),
		Identity:     identity.NewService(repos, nil),
		Factory:      provider.NewFactory(eng, delivery.New(delivery.Config{})),
		Engine:       eng,
		Repos:        repos,
		BuildVersion: "e2e",
	}

	if err := metrics.Register(nil); err != nil {
		t.Fatalf("metrics: %v", err)
	}
	srv := httptest.NewServer(brokerhttp.NewRouter(deps, limiter))
	t.Cleanup(srv.Close)

	return &broker{srv: srv, kvs: kvs, repos: repos}
}

func seedTenant(t *testing.T, kvs kv.Store, tn *store.Tenant) {
	t.Helper()
	b, err := json.Marshal(tn)
	if err != nil {
		t.Fatalf("seed tenant %s: %v", tn.ClientID, err)
	}
	if err := kvs.Set(context.Background(), store.TenantKey(tn.ClientID), b, 0); err != nil {
		t.Fatalf("seed tenant %s: %v", tn.ClientID, err)
	}
}

// passwordTenant arma un tenant mínimo con el provider password habilitado.
func passwordTenant(clientID, secret string) *store.Tenant {
	return &store.Tenant{
		ClientID:  clientID,
		Active:    true,
		Secret:    secret,
		OriginURL: "https://" + clientID + ".example.com",
		Providers: []store.ProviderConfig{
			{Kind: store.ProviderPassword, Enabled: true},
		},
	}
}

/* ============================================================================
   HTTP helpers
============================================================================ */

type apiResp struct {
	status  int
	body    []byte
	headers http.Header
	cookies []*http.Cookie
}

func (r apiResp) json(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(r.body, &out); err != nil {
		t.Fatalf("body no es JSON: %v (%s)", err, r.body)
	}
	return out
}

func doReq(t *testing.T, method, url string, body any, hdr map[string]string) apiResp {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	return apiResp{status: resp.StatusCode, body: raw, headers: resp.Header, cookies: resp.Cookies()}
}

// login hace POST /auth/password y devuelve el access token.
func (b *broker) login(t *testing.T, clientID, email, pwd string) string {
	t.Helper()
	r := doReq(t, http.MethodPost, b.url("/auth/password?client_id="+clientID),
		map[string]string{"email": email, "password": pwd}, nil)
	if r.status != http.StatusOK {
		t.Fatalf("login %s/%s: %d %s", clientID, email, r.status, r.body)
	}
	tok, _ := r.json(t)["access_token"].(string)
	if tok == "" {
		t.Fatalf("login sin access_token: %s", r.body)
	}
	return tok
}

// decodeJWT abre el payload de un JWT sin verificar firma (solo inspección).
func decodeJWT(t *testing.T, token string) map[string]any {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token malformado: %q", token)
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	var claims map[string]any
	if err := json.Unmarshal(raw, &claims); err != nil {
		t.Fatalf("claims: %v", err)
	}
	return claims
}
