package kv

import (
	"context"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryStore implementa Store sobre go-cache.
// Útil para desarrollo y testing; la expiración la maneja go-cache.
type memoryStore struct {
	prefix string
	c      *gocache.Cache
}

// NewMemory crea un Store en memoria.
func NewMemory(prefix string) Store {
	return &memoryStore{
		prefix: prefix,
		c:      gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (m *memoryStore) key(k string) string {
	if m.prefix == "" {
		return k
	}
	return m.prefix + ":" + k
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		return nil, ErrNotFound
	}
	b, _ := v.([]byte)
	return b, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	// copia defensiva: go-cache guarda la referencia
	b := make([]byte, len(value))
	copy(b, value)
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(m.key(key), b, ttl)
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.c.Delete(m.key(key))
	return nil
}

func (m *memoryStore) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	full := m.key(prefix)
	var out []Entry
	for k, item := range m.c.Items() {
		if !strings.HasPrefix(k, full) {
			continue
		}
		b, _ := item.Object.([]byte)
		// devolvemos la key lógica, sin el prefijo global
		logical := k
		if m.prefix != "" {
			logical = strings.TrimPrefix(k, m.prefix+":")
		}
		out = append(out, Entry{Key: logical, Value: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Ping(ctx context.Context) error { return nil }

func (m *memoryStore) Close() error {
	m.c.Flush()
	return nil
}
