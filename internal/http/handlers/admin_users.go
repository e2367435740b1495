package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/brokerjohn/internal/http/errors"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// Endpoints admin: server-to-server, autenticados con X-Client-Secret.
// El secret ausente o incorrecto, y el tenant inexistente, colapsan en el
// mismo 401.

const headerClientSecret = "X-Client-Secret"

// requireSecret corre el check de shared secret para el clientID del path.
func (d *Deps) requireSecret(w http.ResponseWriter, r *http.Request, clientID string) bool {
	if err := d.Gate.VerifySecret(r.Context(), clientID, r.Header.Get(headerClientSecret)); err != nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return false
	}
	return true
}

// UserGet maneja GET /user/{clientID}/{userID}.
func (d *Deps) UserGet(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	userID := chi.URLParam(r, "userID")
	if !d.requireSecret(w, r, clientID) {
		return
	}

	u, err := d.Repos.Users.Get(r.Context(), clientID, userID)
	if err != nil {
		if store.IsUserNotFound(err) {
			httperrors.WriteError(w, httperrors.ErrNotFound)
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, u)
}

type userUpdateBody struct {
	Identifier     *string        `json:"identifier"`
	Profile        map[string]any `json:"profile"`
	PublicSession  map[string]any `json:"publicSession"`
	PrivateSession map[string]any `json:"privateSession"`
}

// UserUpdate maneja PUT /user/{clientID}/{userID}. Solo los campos
// permitidos; cualquier otro campo del body se ignora.
func (d *Deps) UserUpdate(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	userID := chi.URLParam(r, "userID")
	if !d.requireSecret(w, r, clientID) {
		return
	}

	var body userUpdateBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	u, err := d.Repos.Users.Update(r.Context(), clientID, userID, store.UserPatch{
		Identifier:     body.Identifier,
		Profile:        body.Profile,
		PublicSession:  body.PublicSession,
		PrivateSession: body.PrivateSession,
	})
	if err != nil {
		if store.IsUserNotFound(err) {
			httperrors.WriteError(w, httperrors.ErrNotFound)
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, u)
}

// UserDelete maneja DELETE /user/{clientID}/{userID}.
func (d *Deps) UserDelete(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	userID := chi.URLParam(r, "userID")
	if !d.requireSecret(w, r, clientID) {
		return
	}

	if err := d.Repos.Users.Delete(r.Context(), clientID, userID); err != nil {
		if store.IsUserNotFound(err) {
			httperrors.WriteError(w, httperrors.ErrNotFound)
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UsersList maneja GET /users/{clientID}?page=&limit=. page es 1-based;
// sin limit devuelve el scan completo.
func (d *Deps) UsersList(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if !d.requireSecret(w, r, clientID) {
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page <= 0 {
		page = 1
	}

	users, err := d.Repos.Users.List(r.Context(), clientID, page, limit)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"page":  page,
		"limit": limit,
		"count": len(users),
	})
}
