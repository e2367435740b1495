package reqctx

import (
	"net/http"
	"time"
)

// Políticas de cookie por identificador.
//
// La cookie de tenant viaja cross-site (el broker se embebe desde el origin
// del proyecto), por eso SameSite=None + Secure. El invite dura 1 día: solo
// tiene que sobrevivir los redirects del flujo de registro.
const (
	tenantCookieTTL = 30 * 24 * time.Hour
	copyCookieTTL   = 30 * 24 * time.Hour
	inviteCookieTTL = 24 * time.Hour
)

func identCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().UTC().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	}
}

func deletionCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	}
}

// WriteCookies re-emite como cookie cada identificador presente en el
// contexto. Los ausentes no se tocan.
func WriteCookies(w http.ResponseWriter, rc Context) {
	if rc.ClientID != "" {
		http.SetCookie(w, identCookie(CookieClientID, rc.ClientID, tenantCookieTTL))
	}
	if rc.CopyTemplateID != "" {
		http.SetCookie(w, identCookie(CookieCopyID, rc.CopyTemplateID, copyCookieTTL))
	}
	if rc.InviteID != "" {
		http.SetCookie(w, identCookie(CookieInviteID, rc.InviteID, inviteCookieTTL))
	}
}

// ClearInviteCookie borra la cookie de invite (tras un invite inválido o
// consumido).
func ClearInviteCookie(w http.ResponseWriter) {
	http.SetCookie(w, deletionCookie(CookieInviteID))
}

// ClearAll borra las tres cookies identificadoras (endpoint /cleanup).
func ClearAll(w http.ResponseWriter) {
	http.SetCookie(w, deletionCookie(CookieClientID))
	http.SetCookie(w, deletionCookie(CookieCopyID))
	http.SetCookie(w, deletionCookie(CookieInviteID))
}
