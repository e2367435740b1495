package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// 04 - Gating por invitación: identificadores nuevos necesitan un invite
// válido; los usuarios existentes entran sin él.
func Test_04_Invite_Gating(t *testing.T) {
	tn := passwordTenant("acme", "s3cret")
	tn.InviteRequired = true
	b := newBroker(t, tn)

	seedInvite := func(id string, exp time.Time) {
		t.Helper()
		err := b.repos.Invites.Create(context.Background(), &store.Invite{
			ID: id, ClientID: "acme", ExpiresAt: exp,
		})
		require.NoError(t, err)
	}

	t.Run("signup sin invite -> 401 y borra la cookie de invite", func(t *testing.T) {
		r := doReq(t, http.MethodPost, b.url("/auth/password?client_id=acme&invite_id=muerto"),
			map[string]string{"email": "new@acme.com", "password": "pw"}, nil)
		require.Equal(t, http.StatusUnauthorized, r.status)

		var cleared bool
		for _, c := range r.cookies {
			if c.Name == "invite_id" && c.MaxAge < 0 {
				cleared = true
			}
		}
		require.True(t, cleared, "el invite inválido debe borrarse del browser")
	})

	t.Run("invite vencido -> 401", func(t *testing.T) {
		seedInvite("inv-old", time.Now().Add(-time.Hour))
		r := doReq(t, http.MethodPost, b.url("/auth/password?client_id=acme&invite_id=inv-old"),
			map[string]string{"email": "new@acme.com", "password": "pw"}, nil)
		require.Equal(t, http.StatusUnauthorized, r.status)
	})

	t.Run("invite válido -> signup OK y se consume", func(t *testing.T) {
		seedInvite("inv-ok", time.Now().Add(time.Hour))

		r := doReq(t, http.MethodPost, b.url("/auth/password?client_id=acme&invite_id=inv-ok"),
			map[string]string{"email": "new@acme.com", "password": "pw"}, nil)
		require.Equal(t, http.StatusOK, r.status, "body=%s", r.body)

		_, err := b.repos.Invites.Get(context.Background(), "inv-ok")
		require.True(t, store.IsInviteNotFound(err), "el invite debe consumirse al primer uso")
	})

	t.Run("usuario existente re-loguea sin invite", func(t *testing.T) {
		tok := b.login(t, "acme", "new@acme.com", "pw")
		require.NotEmpty(t, tok)
	})

	t.Run("invite por cookie también vale", func(t *testing.T) {
		seedInvite("inv-cookie", time.Now().Add(time.Hour))
		r := doReq(t, http.MethodPost, b.url("/auth/password?client_id=acme"),
			map[string]string{"email": "cookie@acme.com", "password": "pw"},
			map[string]string{"Cookie": "invite_id=inv-cookie"})
		require.Equal(t, http.StatusOK, r.status, "body=%s", r.body)
	})
}
