package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/brokerjohn/internal/gate"
	httperrors "github.com/dropDatabas3/brokerjohn/internal/http/errors"
	"github.com/dropDatabas3/brokerjohn/internal/metrics"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// Endpoints de session documents. El scope public requiere bearer token;
// el private además exige el shared secret del tenant: son dos checks
// independientes, nunca uno en lugar del otro.

// authorizeSession corre el gate para el scope y devuelve el userID del
// token (claim sub).
func (d *Deps) authorizeSession(w http.ResponseWriter, r *http.Request, clientID string, scope store.SessionScope) (string, bool) {
	bearer := gate.BearerFromHeader(r.Header.Get("Authorization"))
	claims, err := d.Gate.VerifyToken(r.Context(), clientID, bearer)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return "", false
	}

	if scope == store.SessionPrivate {
		if err := d.Gate.VerifySecret(r.Context(), clientID, r.Header.Get(headerClientSecret)); err != nil {
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return "", false
		}
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return "", false
	}
	return sub, true
}

// SessionGet maneja GET /session/{public|private}/{clientID}.
func (d *Deps) SessionGet(scope store.SessionScope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		userID, ok := d.authorizeSession(w, r, clientID, scope)
		if !ok {
			return
		}

		doc, err := d.Sessions.Get(r.Context(), clientID, userID, scope)
		if err != nil {
			if store.IsUserNotFound(err) {
				httperrors.WriteError(w, httperrors.ErrNotFound)
				return
			}
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
			return
		}
		if doc == nil {
			doc = map[string]any{}
		}
		httperrors.WriteJSON(w, http.StatusOK, doc)
	}
}

// SessionPatch maneja PATCH: shallow merge top-level (las claves del patch
// ganan). Con ?replace=true el patch reemplaza el documento entero.
func (d *Deps) SessionPatch(scope store.SessionScope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		userID, ok := d.authorizeSession(w, r, clientID, scope)
		if !ok {
			return
		}

		var patch map[string]any
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&patch); err != nil {
			httperrors.WriteError(w, httperrors.ErrInvalidJSON)
			return
		}
		replace := r.URL.Query().Get("replace") == "true"

		doc, err := d.Sessions.Update(r.Context(), clientID, userID, scope, patch, replace)
		if err != nil {
			if store.IsUserNotFound(err) {
				httperrors.WriteError(w, httperrors.ErrNotFound)
				return
			}
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
			return
		}

		mode := "merge"
		if replace {
			mode = "replace"
		}
		metrics.SessionWrites.WithLabelValues(string(scope), mode).Inc()

		if doc == nil {
			doc = map[string]any{}
		}
		httperrors.WriteJSON(w, http.StatusOK, doc)
	}
}

// SessionDelete maneja DELETE: reemplaza el documento con vacío.
func (d *Deps) SessionDelete(scope store.SessionScope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		userID, ok := d.authorizeSession(w, r, clientID, scope)
		if !ok {
			return
		}

		if err := d.Sessions.Clear(r.Context(), clientID, userID, scope); err != nil {
			if store.IsUserNotFound(err) {
				httperrors.WriteError(w, httperrors.ErrNotFound)
				return
			}
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
			return
		}
		metrics.SessionWrites.WithLabelValues(string(scope), "replace").Inc()
		httperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}
