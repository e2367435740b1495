package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

type inviteRepo struct{ kv kv.Store }

func (r *inviteRepo) Get(ctx context.Context, id string) (*store.Invite, error) {
	b, err := r.kv.Get(ctx, store.InviteKey(id))
	if err != nil {
		if kv.IsNotFound(err) {
			return nil, store.ErrInviteNotFound
		}
		return nil, err
	}
	var inv store.Invite
	if err := json.Unmarshal(b, &inv); err != nil {
		return nil, fmt.Errorf("kv: invite %s corrupto: %w", id, err)
	}
	// el TTL del motor ya expira la key, pero chequeamos igual por si el
	// backend no lo aplicó todavía
	if inv.Expired(time.Now().UTC()) {
		return nil, store.ErrInviteNotFound
	}
	return &inv, nil
}

func (r *inviteRepo) Delete(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, store.InviteKey(id))
}

func (r *inviteRepo) Create(ctx context.Context, inv *store.Invite) error {
	b, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !inv.ExpiresAt.IsZero() {
		if d := time.Until(inv.ExpiresAt); d > 0 {
			ttl = d
		}
		// ya vencido: se persiste sin TTL igual, Get lo filtra por ExpiresAt
	}
	return r.kv.Set(ctx, store.InviteKey(inv.ID), b, ttl)
}
