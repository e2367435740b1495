package embedded

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/security/password"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

func okSuccess(_ context.Context, _ store.ProviderKind, raw map[string]any) (engine.Claims, error) {
	id, _ := raw["email"].(string)
	return engine.Claims{"sub": "u-1", "identifier": id}, nil
}

func passwordFlows(t *testing.T, e *Engine) map[store.ProviderKind]engine.Flow {
	t.Helper()
	f, err := e.NewFlow(engine.FlowSpec{Kind: store.ProviderPassword, ClientID: "acme"})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	return map[store.ProviderKind]engine.Flow{store.ProviderPassword: f}
}

func postJSON(t *testing.T, e *Engine, path string, body any, flows map[store.ProviderKind]engine.Flow, onSuccess engine.SuccessFunc) *httptest.ResponseRecorder {
	t.Helper()
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	e.Dispatch(rec, req, flows, onSuccess)
	return rec
}

func decodeToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.AccessToken == "" || out.TokenType != "bearer" || out.ExpiresIn <= 0 {
		t.Fatalf("respuesta de token incompleta: %+v", out)
	}
	return out.AccessToken
}

func TestPassword_SignupThenLogin(t *testing.T) {
	e := newEngine(t, "k1")
	flows := passwordFlows(t, e)
	creds := map[string]string{"email": "A@B.C", "password": "hunter2"}

	// primera vez: registra la credencial y emite token
	rec := postJSON(t, e, "/auth/password", creds, flows, okSuccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body)
	}
	tok := decodeToken(t, rec)

	claims, err := e.VerifyToken(context.Background(), tok, engine.IssuerBinding{ClientID: "acme"})
	if err != nil || claims["identifier"] != "a@b.c" {
		t.Fatalf("token emitido: %v, %+v", err, claims)
	}

	// re-login con la misma password
	rec = postJSON(t, e, "/auth/password", creds, flows, okSuccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}

	// password incorrecta
	rec = postJSON(t, e, "/auth/password", map[string]string{"email": "a@b.c", "password": "wrong"}, flows, okSuccess)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("password incorrecta: %d", rec.Code)
	}
}

func TestPassword_RejectedSignupLeavesNoCredential(t *testing.T) {
	e := newEngine(t, "k1")
	flows := passwordFlows(t, e)
	reject := func(context.Context, store.ProviderKind, map[string]any) (engine.Claims, error) {
		return nil, errors.New("invite requerido")
	}

	rec := postJSON(t, e, "/auth/password", map[string]string{"email": "new@b.c", "password": "pw"}, flows, reject)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("signup rechazado: %d", rec.Code)
	}

	// la credencial creada en el intento rechazado no debe sobrevivir
	if _, err := e.kv.Get(context.Background(), credKey("acme", "new@b.c")); !kv.IsNotFound(err) {
		t.Fatalf("credencial huérfana: %v", err)
	}

	// un intento posterior habilitado arranca de cero
	rec = postJSON(t, e, "/auth/password", map[string]string{"email": "new@b.c", "password": "otra"}, flows, okSuccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("reintento: %d %s", rec.Code, rec.Body)
	}
}

func TestPassword_PolicyAppliesOnlyToSignup(t *testing.T) {
	e := newEngine(t, "k1")
	flows := passwordFlows(t, e)

	// credencial previa, registrada sin policy
	rec := postJSON(t, e, "/auth/password", map[string]string{"email": "old@b.c", "password": "corta"}, flows, okSuccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("seed: %d %s", rec.Code, rec.Body)
	}

	e.cfg.Policy = password.Policy{MinLength: 10, RequireDigit: true}

	// signup nuevo con password débil -> 400
	rec = postJSON(t, e, "/auth/password", map[string]string{"email": "new@b.c", "password": "corta"}, flows, okSuccess)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("password débil: %d %s", rec.Code, rec.Body)
	}

	// el login existente no se rompe por endurecer la policy después
	rec = postJSON(t, e, "/auth/password", map[string]string{"email": "old@b.c", "password": "corta"}, flows, okSuccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("login existente con policy nueva: %d %s", rec.Code, rec.Body)
	}
}

func TestPassword_ValidationAndMissingProvider(t *testing.T) {
	e := newEngine(t, "k1")
	flows := passwordFlows(t, e)

	rec := postJSON(t, e, "/auth/password", map[string]string{"email": "a@b.c"}, flows, okSuccess)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("sin password: %d", rec.Code)
	}

	rec = postJSON(t, e, "/auth/password", map[string]string{"email": "a@b.c", "password": "pw"}, map[store.ProviderKind]engine.Flow{}, okSuccess)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("provider deshabilitado: %d", rec.Code)
	}
}

func codeFlows(t *testing.T, e *Engine, send engine.SendCodeFunc) map[store.ProviderKind]engine.Flow {
	t.Helper()
	f, err := e.NewFlow(engine.FlowSpec{
		Kind:         store.ProviderCode,
		ClientID:     "acme",
		CodeDelivery: store.DeliveryEmail,
		SendCode:     send,
	})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	return map[store.ProviderKind]engine.Flow{store.ProviderCode: f}
}

func TestCode_StartAndVerify(t *testing.T) {
	e := newEngine(t, "k1")
	var sentTo, sentCode string
	flows := codeFlows(t, e, func(_ context.Context, dest, code string) error {
		sentTo, sentCode = dest, code
		return nil
	})

	rec := postJSON(t, e, "/auth/code/start", map[string]string{"destination": "A@B.C"}, flows, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}
	if sentTo != "a@b.c" || len(sentCode) != 6 {
		t.Fatalf("entrega: %q %q", sentTo, sentCode)
	}

	// código incorrecto no consume el válido
	rec = postJSON(t, e, "/auth/code/verify", map[string]string{"destination": "a@b.c", "code": "000000x"}, flows, okSuccess)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("código incorrecto: %d", rec.Code)
	}

	rec = postJSON(t, e, "/auth/code/verify", map[string]string{"destination": "a@b.c", "code": sentCode}, flows, okSuccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", rec.Code, rec.Body)
	}
	decodeToken(t, rec)

	// single-use: el mismo código no vale dos veces
	rec = postJSON(t, e, "/auth/code/verify", map[string]string{"destination": "a@b.c", "code": sentCode}, flows, okSuccess)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reuso de código: %d", rec.Code)
	}
}

func TestCode_DeliveryFailureKillsTheCode(t *testing.T) {
	e := newEngine(t, "k1")
	flows := codeFlows(t, e, func(context.Context, string, string) error {
		return fmt.Errorf("smtp down")
	})

	rec := postJSON(t, e, "/auth/code/start", map[string]string{"destination": "a@b.c"}, flows, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("entrega fallida: %d", rec.Code)
	}

	// el código que nunca llegó no debe quedar canjeable
	if _, err := e.kv.Get(context.Background(), otpKey("acme", "a@b.c")); !kv.IsNotFound(err) {
		t.Fatalf("código vivo tras fallo de entrega: %v", err)
	}
}

func TestDispatch_UnknownRoute(t *testing.T) {
	e := newEngine(t, "k1")
	req := httptest.NewRequest(http.MethodGet, "/auth/nope", nil)
	rec := httptest.NewRecorder()
	e.Dispatch(rec, req, map[store.ProviderKind]engine.Flow{}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("ruta desconocida: %d", rec.Code)
	}
}
