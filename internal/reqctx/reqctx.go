// Package reqctx arma el contexto de request del broker: qué tenant, qué
// copy template y qué invite vienen en el request entrante.
//
// El valor se resuelve UNA vez por request y se pasa explícito por la
// cadena de llamadas; nada aguas abajo vuelve a parsear cookies.
package reqctx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Nombres de cookie / parámetros.
const (
	ParamClientID = "client_id"
	ParamInviteID = "invite_id"

	CookieClientID = "client_id"
	CookieCopyID   = "copy_template_id"
	CookieInviteID = "invite_id"
)

// Context son los tres identificadores multiplexados en el request.
// Cualquiera puede estar vacío.
type Context struct {
	ClientID       string
	CopyTemplateID string
	InviteID       string
}

// Resolve extrae los identificadores con precedencia fija, de mayor a menor:
// query param → campo de form/JSON (solo POST) → cookie existente.
// Un link fresco pisa una cookie vieja; un request solo-cookie sigue andando.
func Resolve(r *http.Request) Context {
	var rc Context

	// 1) query
	q := r.URL.Query()
	rc.ClientID, rc.CopyTemplateID = splitComposite(q.Get(ParamClientID))
	rc.InviteID = strings.TrimSpace(q.Get(ParamInviteID))

	// 2) body (POST): urlencoded o JSON, sin consumir el body
	if r.Method == http.MethodPost {
		if rc.ClientID == "" {
			cid, copyID := splitComposite(peekBodyField(r, ParamClientID))
			rc.ClientID, rc.CopyTemplateID = cid, firstNonEmpty(rc.CopyTemplateID, copyID)
		}
		if rc.InviteID == "" {
			rc.InviteID = peekBodyField(r, ParamInviteID)
		}
	}

	// 3) cookies. net/http ya saltea pares imparseables; un header de
	// cookies roto no voltea el request.
	if rc.ClientID == "" {
		rc.ClientID = cookieValue(r, CookieClientID)
	}
	if rc.CopyTemplateID == "" {
		rc.CopyTemplateID = cookieValue(r, CookieCopyID)
	}
	if rc.InviteID == "" {
		rc.InviteID = cookieValue(r, CookieInviteID)
	}

	return rc
}

// splitComposite parte el formato compuesto "clientId::copyTemplateId".
func splitComposite(v string) (clientID, copyID string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ""
	}
	if i := strings.Index(v, "::"); i >= 0 {
		return v[:i], v[i+2:]
	}
	return v, ""
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

const maxPeekBody = 64 << 10 // 64KB

// peekBodyField lee hasta maxPeekBody del body para extraer un campo y
// REPONE el body para el handler siguiente. Soporta urlencoded y JSON.
func peekBodyField(r *http.Request, field string) string {
	if r.Body == nil {
		return ""
	}
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	isForm := strings.Contains(ct, "application/x-www-form-urlencoded")
	isJSON := strings.Contains(ct, "application/json")
	if !isForm && !isJSON {
		return ""
	}

	var buf bytes.Buffer
	_, _ = io.CopyN(&buf, r.Body, maxPeekBody)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf.Bytes()))

	if isForm {
		vals, err := url.ParseQuery(buf.String())
		if err != nil {
			return ""
		}
		return strings.TrimSpace(vals.Get(field))
	}

	var tmp map[string]any
	if err := json.Unmarshal(buf.Bytes(), &tmp); err == nil {
		if s, ok := tmp[field].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
