package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/brokerjohn/internal/store"
)

type inviteRepo struct{ pool *pgxpool.Pool }

func (r *inviteRepo) Get(ctx context.Context, id string) (*store.Invite, error) {
	var inv store.Invite
	err := r.pool.QueryRow(ctx,
		`SELECT id, client_id, expires_at FROM invite WHERE id=$1`, id,
	).Scan(&inv.ID, &inv.ClientID, &inv.ExpiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, store.ErrInviteNotFound
		}
		return nil, err
	}
	if inv.Expired(time.Now().UTC()) {
		return nil, store.ErrInviteNotFound
	}
	return &inv, nil
}

func (r *inviteRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM invite WHERE id=$1`, id)
	return err
}

func (r *inviteRepo) Create(ctx context.Context, inv *store.Invite) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO invite (id, client_id, expires_at) VALUES ($1, $2, $3)`,
		inv.ID, inv.ClientID, inv.ExpiresAt)
	return err
}
