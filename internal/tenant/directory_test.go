package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/brokerjohn/internal/store"
)

type fakeTenantRepo struct {
	tenants map[string]*store.Tenant
	calls   int
}

func (f *fakeTenantRepo) Get(_ context.Context, clientID string) (*store.Tenant, error) {
	f.calls++
	t, ok := f.tenants[clientID]
	if !ok {
		return nil, store.ErrTenantNotFound
	}
	return t, nil
}

func TestResolve_PublicSentinelNeverHitsStorage(t *testing.T) {
	repo := &fakeTenantRepo{tenants: map[string]*store.Tenant{}}
	dir := NewDirectory(repo, time.Minute)

	p1, err := dir.Resolve(context.Background(), store.PublicClientID)
	if err != nil {
		t.Fatalf("Resolve public: %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("el sentinel no debe ir al storage: %d calls", repo.calls)
	}
	if p1.Secret != "" {
		t.Fatal("el tenant público no lleva secret")
	}
	if len(p1.Providers) != 1 || p1.Providers[0].Kind != store.ProviderPassword {
		t.Fatalf("providers del público: %+v", p1.Providers)
	}

	// instancia fresca en cada llamada: mutar una no afecta la otra
	p1.Active = false
	p2, _ := dir.Resolve(context.Background(), store.PublicClientID)
	if !p2.Active {
		t.Fatal("el sentinel se compartió entre llamadas")
	}
}

func TestResolve_CachesByClientID(t *testing.T) {
	repo := &fakeTenantRepo{tenants: map[string]*store.Tenant{
		"acme": {ClientID: "acme", Active: true},
	}}
	dir := NewDirectory(repo, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := dir.Resolve(context.Background(), "acme"); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if repo.calls != 1 {
		t.Fatalf("storage calls: got %d want 1", repo.calls)
	}

	dir.Invalidate("acme")
	if _, err := dir.Resolve(context.Background(), "acme"); err != nil {
		t.Fatalf("Resolve tras Invalidate: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("storage calls tras Invalidate: got %d want 2", repo.calls)
	}
}

func TestResolve_NotFound(t *testing.T) {
	dir := NewDirectory(&fakeTenantRepo{tenants: map[string]*store.Tenant{}}, time.Minute)

	if _, err := dir.Resolve(context.Background(), "nope"); !store.IsTenantNotFound(err) {
		t.Fatalf("got %v, want ErrTenantNotFound", err)
	}
	if _, err := dir.Resolve(context.Background(), ""); !store.IsTenantNotFound(err) {
		t.Fatalf("clientID vacío: got %v", err)
	}
}
