package session

import (
	"context"
	"testing"

	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/store"
	kvrepo "github.com/dropDatabas3/brokerjohn/internal/store/adapters/kv"
)

func setup(t *testing.T) (*Service, string) {
	t.Helper()
	repos := kvrepo.New(kv.NewMemory(""))
	u, _, err := repos.Users.Upsert(context.Background(), "acme", "a@b.c", nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewService(repos.Users), u.ID
}

func TestUpdate_ShallowMergeTopLevel(t *testing.T) {
	svc, userID := setup(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "acme", userID, store.SessionPublic, map[string]any{
		"theme": "dark",
		"cart":  map[string]any{"items": 2},
	}, false); err != nil {
		t.Fatalf("Update 1: %v", err)
	}

	// merge shallow: patch keys ganan, las no mencionadas se conservan
	doc, err := svc.Update(ctx, "acme", userID, store.SessionPublic, map[string]any{
		"cart": map[string]any{"items": 3},
	}, false)
	if err != nil {
		t.Fatalf("Update 2: %v", err)
	}
	if doc["theme"] != "dark" {
		t.Fatalf("clave no mencionada perdida: %+v", doc)
	}
	cart, _ := doc["cart"].(map[string]any)
	if len(cart) != 1 {
		t.Fatalf("el merge debe ser shallow: %+v", cart)
	}
}

func TestUpdate_ReplaceVerbatim(t *testing.T) {
	svc, userID := setup(t)
	ctx := context.Background()

	_, _ = svc.Update(ctx, "acme", userID, store.SessionPublic, map[string]any{"a": 1, "b": 2}, false)

	doc, err := svc.Update(ctx, "acme", userID, store.SessionPublic, map[string]any{"c": 3}, true)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(doc) != 1 || doc["c"] == nil {
		t.Fatalf("replace no fue verbatim: %+v", doc)
	}
}

func TestClear_EmptiesDocument(t *testing.T) {
	svc, userID := setup(t)
	ctx := context.Background()

	_, _ = svc.Update(ctx, "acme", userID, store.SessionPrivate, map[string]any{"secret": "x"}, false)

	if err := svc.Clear(ctx, "acme", userID, store.SessionPrivate); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	doc, err := svc.Get(ctx, "acme", userID, store.SessionPrivate)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(doc) != 0 {
		t.Fatalf("documento no vacío: %+v", doc)
	}
}

func TestScopesAreIndependent(t *testing.T) {
	svc, userID := setup(t)
	ctx := context.Background()

	_, _ = svc.Update(ctx, "acme", userID, store.SessionPublic, map[string]any{"pub": true}, false)
	_, _ = svc.Update(ctx, "acme", userID, store.SessionPrivate, map[string]any{"priv": true}, false)

	pub, _ := svc.Get(ctx, "acme", userID, store.SessionPublic)
	priv, _ := svc.Get(ctx, "acme", userID, store.SessionPrivate)

	if _, ok := pub["priv"]; ok {
		t.Fatal("scope público contaminado")
	}
	if _, ok := priv["pub"]; ok {
		t.Fatal("scope privado contaminado")
	}
}

func TestOperations_UserNotFound(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "acme", "nope", store.SessionPublic); !store.IsUserNotFound(err) {
		t.Fatalf("Get: %v", err)
	}
	if _, err := svc.Update(ctx, "acme", "nope", store.SessionPublic, map[string]any{"a": 1}, false); !store.IsUserNotFound(err) {
		t.Fatalf("Update merge: %v", err)
	}
	if _, err := svc.Update(ctx, "acme", "nope", store.SessionPublic, nil, true); !store.IsUserNotFound(err) {
		t.Fatalf("Update replace: %v", err)
	}
	if err := svc.Clear(ctx, "acme", "nope", store.SessionPublic); !store.IsUserNotFound(err) {
		t.Fatalf("Clear: %v", err)
	}
}
