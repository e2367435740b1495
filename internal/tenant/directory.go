// Package tenant implementa el Tenant Directory: resolución de clientID a
// configuración de tenant, con cache acotado por TTL.
package tenant

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/brokerjohn/internal/metrics"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// Directory resuelve tenants con read-through cache.
//
// El cache tiene TTL y limpieza periódica (go-cache): una edición de tenant
// se vuelve visible como mucho después de una ventana de TTL, en lugar de
// requerir reinicio del proceso. Los valores cacheados se tratan como
// inmutables una vez computados; dos requests pueden correr a poblar la
// misma key y gana el último, lo cual es inocuo.
type Directory struct {
	repo  store.TenantRepository
	cache *gocache.Cache
}

// DefaultTTL es la ventana de staleness aceptada para config de tenant.
const DefaultTTL = 2 * time.Minute

// NewDirectory crea el directorio. Si ttl <= 0 usa DefaultTTL.
func NewDirectory(repo store.TenantRepository, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Directory{
		repo:  repo,
		cache: gocache.New(ttl, 5*time.Minute),
	}
}

// Resolve retorna el tenant para el clientID dado, o store.ErrTenantNotFound.
//
// El clientID reservado "public" se sintetiza en memoria: nunca se persiste
// ni se cachea. Los callers deben mapear NotFound a un rechazo equivalente a
// autorización, no a un error genérico del server (no filtrar existencia).
func (d *Directory) Resolve(ctx context.Context, clientID string) (*store.Tenant, error) {
	if clientID == store.PublicClientID {
		return publicTenant(), nil
	}
	if clientID == "" {
		return nil, store.ErrTenantNotFound
	}

	if v, ok := d.cache.Get(clientID); ok {
		metrics.TenantCacheHits.WithLabelValues("hit").Inc()
		return v.(*store.Tenant), nil
	}
	metrics.TenantCacheHits.WithLabelValues("miss").Inc()

	t, err := d.repo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	d.cache.Set(clientID, t, gocache.DefaultExpiration)
	return t, nil
}

// Invalidate desaloja un tenant del cache (lo usa el tooling de tests).
func (d *Directory) Invalidate(clientID string) {
	d.cache.Delete(clientID)
}

// publicTenant sintetiza el tenant reservado: un solo provider password
// habilitado, sin secret. Se construye en cada llamada para que nadie pueda
// mutar un singleton compartido.
func publicTenant() *store.Tenant {
	return &store.Tenant{
		ClientID: store.PublicClientID,
		Active:   true,
		Providers: []store.ProviderConfig{
			{Kind: store.ProviderPassword, Enabled: true},
		},
	}
}
