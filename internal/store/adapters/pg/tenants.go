package pg

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/brokerjohn/internal/store"
)

type tenantRepo struct{ pool *pgxpool.Pool }

func (r *tenantRepo) Get(ctx context.Context, clientID string) (*store.Tenant, error) {
	var (
		t         store.Tenant
		providers []byte
		metadata  []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT client_id, active, created_at, providers, secret,
		       theme_id, code_delivery, email_template, invite_required,
		       metadata, origin_url
		  FROM tenant
		 WHERE client_id = $1`, clientID,
	).Scan(&t.ClientID, &t.Active, &t.CreatedAt, &providers, &t.Secret,
		&t.ThemeID, &t.CodeDelivery, &t.EmailTemplate, &t.InviteRequired,
		&metadata, &t.OriginURL)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, store.ErrTenantNotFound
		}
		return nil, err
	}
	if len(providers) > 0 {
		if err := json.Unmarshal(providers, &t.Providers); err != nil {
			return nil, err
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
