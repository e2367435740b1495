package embedded

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/kv"
)

func newEngine(t *testing.T, secret string) *Engine {
	t.Helper()
	e, err := New(Config{
		Issuer:    "http://broker.test",
		Secret:    secret,
		AccessTTL: time.Hour,
	}, kv.NewMemory(""))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	e := newEngine(t, "k1")
	ctx := context.Background()

	tok, ttl, err := e.IssueToken("acme", engine.Claims{"sub": "u-1", "identifier": "a@b.c"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if ttl != time.Hour {
		t.Fatalf("ttl: %v", ttl)
	}

	claims, err := e.VerifyToken(ctx, tok, engine.IssuerBinding{ClientID: "acme"})
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims["sub"] != "u-1" || claims["identifier"] != "a@b.c" {
		t.Fatalf("claims: %+v", claims)
	}
	if claims["iss"] != "http://broker.test/acme" {
		t.Fatalf("iss: %v", claims["iss"])
	}
}

func TestVerify_AllFailuresCollapse(t *testing.T) {
	e := newEngine(t, "k1")
	ctx := context.Background()

	tok, _, _ := e.IssueToken("acme", engine.Claims{"sub": "u-1"})

	// token de otro tenant
	if _, err := e.VerifyToken(ctx, tok, engine.IssuerBinding{ClientID: "globex"}); !errors.Is(err, engine.ErrInvalidToken) {
		t.Fatalf("cross-tenant: %v", err)
	}

	// firmado con otra clave
	other := newEngine(t, "k2")
	if _, err := other.VerifyToken(ctx, tok, engine.IssuerBinding{ClientID: "acme"}); !errors.Is(err, engine.ErrInvalidToken) {
		t.Fatalf("otra clave: %v", err)
	}

	// basura
	if _, err := e.VerifyToken(ctx, "no.un.jwt", engine.IssuerBinding{ClientID: "acme"}); !errors.Is(err, engine.ErrInvalidToken) {
		t.Fatalf("malformado: %v", err)
	}

	// token manipulado
	if _, err := e.VerifyToken(ctx, tok+"x", engine.IssuerBinding{ClientID: "acme"}); !errors.Is(err, engine.ErrInvalidToken) {
		t.Fatalf("manipulado: %v", err)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	e := newEngine(t, "k1")
	e.cfg.AccessTTL = -2 * time.Minute // emite ya vencido, fuera del leeway

	tok, _, _ := e.IssueToken("acme", engine.Claims{"sub": "u-1"})
	if _, err := e.VerifyToken(context.Background(), tok, engine.IssuerBinding{ClientID: "acme"}); !errors.Is(err, engine.ErrInvalidToken) {
		t.Fatalf("vencido: %v", err)
	}
}

func TestNew_RequiresSecret(t *testing.T) {
	if _, err := New(Config{}, kv.NewMemory("")); err == nil {
		t.Fatal("secret vacío aceptado")
	}
}
