package embedded

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/observability/logger"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

func otpKey(clientID, destination string) string {
	return "otp:" + clientID + ":" + strings.ToLower(destination)
}

// genCode produce un código numérico de 6 dígitos con crypto/rand.
func genCode() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return fmt.Sprintf("%06d", n%1000000), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// handleCodeStart genera un one-time code, guarda el hash con TTL y lo
// entrega por el callback del tenant. Si la entrega falla, el intento
// falla: nunca respondemos "enviado" sin haber enviado.
func (e *Engine) handleCodeStart(w http.ResponseWriter, r *http.Request, flows map[store.ProviderKind]engine.Flow) {
	spec, ok := flowSpec(flows, store.ProviderCode)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "provider_not_enabled"})
		return
	}

	var body struct {
		Destination string `json:"destination"`
	}
	if !readJSON(r, &body) || body.Destination == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}
	dest := strings.ToLower(strings.TrimSpace(body.Destination))

	code, err := genCode()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
		return
	}

	ctx := r.Context()
	if err := e.kv.Set(ctx, otpKey(spec.ClientID, dest), []byte(hashCode(code)), e.cfg.CodeTTL); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
		return
	}

	if err := spec.SendCode(ctx, dest, code); err != nil {
		// no dejamos un código vivo que nunca llegó
		_ = e.kv.Delete(ctx, otpKey(spec.ClientID, dest))
		logger.L().Error("code delivery failed",
			logger.Component("embedded"),
			logger.ClientID(spec.ClientID),
			logger.Err(err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "delivery_failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "sent"})
}

// handleCodeVerify canjea el código. Un código válido se consume al primer
// uso, incluso si el pipeline posterior rechaza el login.
func (e *Engine) handleCodeVerify(w http.ResponseWriter, r *http.Request, flows map[store.ProviderKind]engine.Flow, onSuccess engine.SuccessFunc) {
	spec, ok := flowSpec(flows, store.ProviderCode)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "provider_not_enabled"})
		return
	}

	var body struct {
		Destination string `json:"destination"`
		Code        string `json:"code"`
	}
	if !readJSON(r, &body) || body.Destination == "" || body.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}
	dest := strings.ToLower(strings.TrimSpace(body.Destination))

	ctx := r.Context()
	key := otpKey(spec.ClientID, dest)

	stored, err := e.kv.Get(ctx, key)
	if err != nil {
		if kv.IsNotFound(err) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_failed"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
		return
	}

	want := hashCode(body.Code)
	if subtle.ConstantTimeCompare([]byte(want), stored) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_failed"})
		return
	}
	_ = e.kv.Delete(ctx, key) // single-use

	raw := map[string]any{string(spec.CodeDelivery): dest}
	if spec.CodeDelivery == "" {
		raw = map[string]any{"email": dest}
	}
	e.finish(ctx, w, spec.ClientID, store.ProviderCode, raw, onSuccess)
}
