package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

type tenantRepo struct{ kv kv.Store }

func (r *tenantRepo) Get(ctx context.Context, clientID string) (*store.Tenant, error) {
	b, err := r.kv.Get(ctx, store.TenantKey(clientID))
	if err != nil {
		if kv.IsNotFound(err) {
			return nil, store.ErrTenantNotFound
		}
		return nil, err
	}
	var t store.Tenant
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("kv: tenant %s corrupto: %w", clientID, err)
	}
	return &t, nil
}
