package kv

import (
	"context"
	"testing"

	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

func newRepos(t *testing.T) store.Repositories {
	t.Helper()
	return New(kv.NewMemory(""))
}

func TestUpsert_CreateThenReplaceProfile(t *testing.T) {
	repos := newRepos(t)
	ctx := context.Background()

	u1, created, err := repos.Users.Upsert(ctx, "acme", "a@b.c", map[string]any{"name": "Ana", "age": 30})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Fatal("primer Upsert debe crear")
	}
	if u1.ID == "" {
		t.Fatal("ID vacío")
	}

	// re-login: el profile se REEMPLAZA, no se mergea
	u2, created, err := repos.Users.Upsert(ctx, "acme", "a@b.c", map[string]any{"name": "Ana B"})
	if err != nil {
		t.Fatalf("Upsert 2: %v", err)
	}
	if created {
		t.Fatal("segundo Upsert no debe crear")
	}
	if u2.ID != u1.ID {
		t.Fatalf("ID cambió: %s != %s", u2.ID, u1.ID)
	}
	if _, ok := u2.Profile["age"]; ok {
		t.Fatal("el profile viejo sobrevivió al replace")
	}
	if u2.Profile["name"] != "Ana B" {
		t.Fatalf("profile: %+v", u2.Profile)
	}
}

func TestUpsert_TenantNamespacesAreIsolated(t *testing.T) {
	repos := newRepos(t)
	ctx := context.Background()

	ua, _, _ := repos.Users.Upsert(ctx, "acme", "a@b.c", nil)
	ub, _, _ := repos.Users.Upsert(ctx, "globex", "a@b.c", nil)

	if ua.ID == ub.ID {
		t.Fatal("mismo identifier en tenants distintos debe dar usuarios distintos")
	}
	if _, err := repos.Users.Get(ctx, "acme", ub.ID); !store.IsUserNotFound(err) {
		t.Fatalf("cross-tenant Get: got %v", err)
	}
}

func TestFindByIdentifier(t *testing.T) {
	repos := newRepos(t)
	ctx := context.Background()

	created, _, _ := repos.Users.Upsert(ctx, "acme", "a@b.c", nil)

	got, err := repos.Users.FindByIdentifier(ctx, "acme", "a@b.c")
	if err != nil {
		t.Fatalf("FindByIdentifier: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("got %s want %s", got.ID, created.ID)
	}

	if _, err := repos.Users.FindByIdentifier(ctx, "acme", "nope@b.c"); !store.IsUserNotFound(err) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
}

func TestUpdate_PatchSemantics(t *testing.T) {
	repos := newRepos(t)
	ctx := context.Background()

	u, _, _ := repos.Users.Upsert(ctx, "acme", "a@b.c", map[string]any{"name": "Ana"})

	newIdent := "ana@b.c"
	got, err := repos.Users.Update(ctx, "acme", u.ID, store.UserPatch{
		Identifier:    &newIdent,
		PublicSession: map[string]any{"theme": "dark"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Identifier != "ana@b.c" {
		t.Fatalf("identifier: %q", got.Identifier)
	}
	// campo no tocado por el patch se conserva
	if got.Profile["name"] != "Ana" {
		t.Fatalf("profile perdido: %+v", got.Profile)
	}
	if got.PublicSession["theme"] != "dark" {
		t.Fatalf("publicSession: %+v", got.PublicSession)
	}

	// el índice viejo no debe resolver más
	if _, err := repos.Users.FindByIdentifier(ctx, "acme", "a@b.c"); !store.IsUserNotFound(err) {
		t.Fatalf("índice viejo vivo: %v", err)
	}
	if _, err := repos.Users.FindByIdentifier(ctx, "acme", "ana@b.c"); err != nil {
		t.Fatalf("índice nuevo: %v", err)
	}
}

func TestDelete(t *testing.T) {
	repos := newRepos(t)
	ctx := context.Background()

	u, _, _ := repos.Users.Upsert(ctx, "acme", "a@b.c", nil)
	if err := repos.Users.Delete(ctx, "acme", u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repos.Users.Delete(ctx, "acme", u.ID); !store.IsUserNotFound(err) {
		t.Fatalf("segundo Delete: got %v", err)
	}
}

func TestList_StableOrderAndPagination(t *testing.T) {
	repos := newRepos(t)
	ctx := context.Background()

	var ids []string
	for _, ident := range []string{"a@x", "b@x", "c@x", "d@x", "e@x"} {
		u, _, err := repos.Users.Upsert(ctx, "acme", ident, nil)
		if err != nil {
			t.Fatalf("Upsert %s: %v", ident, err)
		}
		ids = append(ids, u.ID)
	}

	// limit<=0: scan completo en orden de inserción
	all, err := repos.Users.List(ctx, "acme", 1, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d users", len(all))
	}
	for i, u := range all {
		if u.ID != ids[i] {
			t.Fatalf("orden inestable en %d: got %s want %s", i, u.ID, ids[i])
		}
	}

	// paginado 1-based
	page2, err := repos.Users.List(ctx, "acme", 2, 2)
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(page2) != 2 || page2[0].ID != ids[2] || page2[1].ID != ids[3] {
		t.Fatalf("page 2 incorrecta: %+v", page2)
	}

	// página fuera de rango: vacía, no error
	page9, err := repos.Users.List(ctx, "acme", 9, 2)
	if err != nil || len(page9) != 0 {
		t.Fatalf("page 9: %v, %d", err, len(page9))
	}
}

func TestSetSessionDoc_ReturnsPostImage(t *testing.T) {
	repos := newRepos(t)
	ctx := context.Background()

	u, _, _ := repos.Users.Upsert(ctx, "acme", "a@b.c", nil)

	got, err := repos.Users.SetSessionDoc(ctx, "acme", u.ID, store.SessionPrivate, map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("SetSessionDoc: %v", err)
	}
	if got.PrivateSession["k"] != "v" {
		t.Fatalf("post-image: %+v", got.PrivateSession)
	}
	if len(got.PublicSession) != 0 {
		t.Fatalf("el scope público no debía tocarse: %+v", got.PublicSession)
	}

	if _, err := repos.Users.SetSessionDoc(ctx, "acme", "nope", store.SessionPublic, nil); !store.IsUserNotFound(err) {
		t.Fatalf("user inexistente: got %v", err)
	}
}
