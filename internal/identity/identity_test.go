package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/provider"
	"github.com/dropDatabas3/brokerjohn/internal/store"
	kvrepo "github.com/dropDatabas3/brokerjohn/internal/store/adapters/kv"
)

func emailHandler() *provider.Handler {
	return &provider.Handler{
		Kind: store.ProviderPassword,
		Extract: func(_ context.Context, raw map[string]any) (string, error) {
			email, _ := raw["email"].(string)
			if email == "" {
				return "", errors.New("sin email")
			}
			return email, nil
		},
	}
}

func setup(t *testing.T, admins []string) (*Service, store.Repositories) {
	t.Helper()
	repos := kvrepo.New(kv.NewMemory(""))
	return NewService(repos, admins), repos
}

func TestComplete_CreatesAndThenReplacesProfile(t *testing.T) {
	svc, repos := setup(t, nil)
	ctx := context.Background()
	tn := &store.Tenant{ClientID: "acme", Active: true}

	u1, err := svc.Complete(ctx, tn, emailHandler(), "", map[string]any{"email": "a@b.c", "plan": "free"})
	if err != nil {
		t.Fatalf("Complete 1: %v", err)
	}

	u2, err := svc.Complete(ctx, tn, emailHandler(), "", map[string]any{"email": "a@b.c", "plan": "pro"})
	if err != nil {
		t.Fatalf("Complete 2: %v", err)
	}
	if u2.ID != u1.ID {
		t.Fatal("re-login creó un usuario nuevo")
	}
	if u2.Profile["plan"] != "pro" {
		t.Fatalf("profile no reemplazado: %+v", u2.Profile)
	}

	if _, err := repos.Users.Get(ctx, "acme", u1.ID); err != nil {
		t.Fatalf("usuario no persistido: %v", err)
	}
}

func TestComplete_InviteGatingOnlyForNewIdentifiers(t *testing.T) {
	svc, repos := setup(t, nil)
	ctx := context.Background()
	tn := &store.Tenant{ClientID: "acme", Active: true, InviteRequired: true}

	// nuevo sin invite → rechazo
	if _, err := svc.Complete(ctx, tn, emailHandler(), "", map[string]any{"email": "new@b.c"}); !errors.Is(err, ErrInviteRequired) {
		t.Fatalf("got %v, want ErrInviteRequired", err)
	}

	// invite de otro tenant → rechazo
	_ = repos.Invites.Create(ctx, &store.Invite{ID: "inv-other", ClientID: "globex", ExpiresAt: time.Now().Add(time.Hour)})
	if _, err := svc.Complete(ctx, tn, emailHandler(), "inv-other", map[string]any{"email": "new@b.c"}); !errors.Is(err, ErrInviteRequired) {
		t.Fatalf("invite cross-tenant: got %v", err)
	}

	// invite vencido → rechazo
	_ = repos.Invites.Create(ctx, &store.Invite{ID: "inv-old", ClientID: "acme", ExpiresAt: time.Now().Add(-time.Hour)})
	if _, err := svc.Complete(ctx, tn, emailHandler(), "inv-old", map[string]any{"email": "new@b.c"}); !errors.Is(err, ErrInviteRequired) {
		t.Fatalf("invite vencido: got %v", err)
	}

	// invite válido → crea y consume
	_ = repos.Invites.Create(ctx, &store.Invite{ID: "inv-ok", ClientID: "acme", ExpiresAt: time.Now().Add(time.Hour)})
	u, err := svc.Complete(ctx, tn, emailHandler(), "inv-ok", map[string]any{"email": "new@b.c"})
	if err != nil {
		t.Fatalf("invite válido: %v", err)
	}
	if _, err := repos.Invites.Get(ctx, "inv-ok"); !store.IsInviteNotFound(err) {
		t.Fatalf("invite no consumido: %v", err)
	}

	// usuario existente: el gating ya no aplica aunque no traiga invite
	u2, err := svc.Complete(ctx, tn, emailHandler(), "", map[string]any{"email": "new@b.c"})
	if err != nil {
		t.Fatalf("re-login con gating: %v", err)
	}
	if u2.ID != u.ID {
		t.Fatal("re-login creó otro usuario")
	}
}

func TestComplete_AdminAllowlistCaseInsensitive(t *testing.T) {
	svc, _ := setup(t, []string{" Admin@Corp.com "})
	ctx := context.Background()
	public := &store.Tenant{ClientID: store.PublicClientID, Active: true}

	if _, err := svc.Complete(ctx, public, emailHandler(), "", map[string]any{"email": "ADMIN@corp.COM"}); err != nil {
		t.Fatalf("allowlist case-insensitive: %v", err)
	}
	if _, err := svc.Complete(ctx, public, emailHandler(), "", map[string]any{"email": "other@corp.com"}); err == nil {
		t.Fatal("email fuera del allowlist aceptado")
	}

	// el allowlist solo aplica al tenant público
	tn := &store.Tenant{ClientID: "acme", Active: true}
	if _, err := svc.Complete(ctx, tn, emailHandler(), "", map[string]any{"email": "other@corp.com"}); err != nil {
		t.Fatalf("allowlist aplicado a tenant normal: %v", err)
	}
}

func TestSuccessFunc_ClaimsShape(t *testing.T) {
	svc, _ := setup(t, nil)
	tn := &store.Tenant{ClientID: "acme", Active: true}

	set := provider.NewSet(map[store.ProviderKind]*provider.Handler{
		store.ProviderPassword: emailHandler(),
	})
	fn := svc.SuccessFunc(tn, set, "")

	claims, err := fn(context.Background(), store.ProviderPassword, map[string]any{"email": "a@b.c"})
	if err != nil {
		t.Fatalf("SuccessFunc: %v", err)
	}
	if claims["identifier"] != "a@b.c" || claims["client_id"] != "acme" {
		t.Fatalf("claims: %+v", claims)
	}
	if claims["sub"] == "" {
		t.Fatal("sub vacío")
	}

	if _, err := fn(context.Background(), store.ProviderCode, map[string]any{}); err == nil {
		t.Fatal("kind no habilitado aceptado")
	}
}
