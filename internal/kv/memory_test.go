package kv

import (
	"context"
	"testing"
	"time"
)

func TestNew_DriverSelection(t *testing.T) {
	if _, err := New(Config{Driver: "memory"}); err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, err := New(Config{}); err != nil {
		t.Fatalf("driver vacío debe defaultear a memory: %v", err)
	}
	if _, err := New(Config{Driver: "rediss"}); err == nil {
		t.Fatal("driver desconocido debe ser error, no memory")
	}
}

func TestMemory_SetGetDelete(t *testing.T) {
	s := NewMemory("")
	ctx := context.Background()

	if err := s.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("got %q", got)
	}

	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k1"); !IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}

	// delete idempotente
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete inexistente: %v", err)
	}
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	s := NewMemory("")
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("abc"), 0)
	v1, _ := s.Get(ctx, "k")
	v1[0] = 'X'

	v2, _ := s.Get(ctx, "k")
	if string(v2) != "abc" {
		t.Fatalf("el valor almacenado fue mutado: %q", v2)
	}
}

func TestMemory_ScanPrefixSorted(t *testing.T) {
	s := NewMemory("")
	ctx := context.Background()

	_ = s.Set(ctx, "user:t1:b", []byte("2"), 0)
	_ = s.Set(ctx, "user:t1:a", []byte("1"), 0)
	_ = s.Set(ctx, "user:t2:c", []byte("3"), 0)
	_ = s.Set(ctx, "other", []byte("x"), 0)

	entries, err := s.Scan(ctx, "user:t1:")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Key != "user:t1:a" || entries[1].Key != "user:t1:b" {
		t.Fatalf("orden incorrecto: %v, %v", entries[0].Key, entries[1].Key)
	}
}

func TestMemory_TTLExpires(t *testing.T) {
	s := NewMemory("")
	ctx := context.Background()

	_ = s.Set(ctx, "ephemeral", []byte("v"), 20*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	if _, err := s.Get(ctx, "ephemeral"); !IsNotFound(err) {
		t.Fatalf("got %v, want not found tras TTL", err)
	}
	entries, _ := s.Scan(ctx, "ephemeral")
	if len(entries) != 0 {
		t.Fatalf("Scan devolvió entradas expiradas: %d", len(entries))
	}
}
