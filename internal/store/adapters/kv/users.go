package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

type userRepo struct{ kv kv.Store }

func (r *userRepo) load(ctx context.Context, key string) (*store.User, error) {
	b, err := r.kv.Get(ctx, key)
	if err != nil {
		if kv.IsNotFound(err) {
			return nil, store.ErrUserNotFound
		}
		return nil, err
	}
	var u store.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("kv: user %s corrupto: %w", key, err)
	}
	return &u, nil
}

func (r *userRepo) save(ctx context.Context, clientID string, u *store.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, store.UserKey(clientID, u.ID), b, 0)
}

func (r *userRepo) Get(ctx context.Context, clientID, userID string) (*store.User, error) {
	return r.load(ctx, store.UserKey(clientID, userID))
}

func (r *userRepo) FindByIdentifier(ctx context.Context, clientID, identifier string) (*store.User, error) {
	idb, err := r.kv.Get(ctx, store.IdentifierKey(clientID, identifier))
	if err != nil {
		if kv.IsNotFound(err) {
			return nil, store.ErrUserNotFound
		}
		return nil, err
	}
	return r.load(ctx, store.UserKey(clientID, string(idb)))
}

func (r *userRepo) Upsert(ctx context.Context, clientID, identifier string, profile map[string]any) (*store.User, bool, error) {
	existing, err := r.FindByIdentifier(ctx, clientID, identifier)
	switch {
	case err == nil:
		// re-login: el profile se REEMPLAZA con lo que trajo el provider ahora
		existing.Profile = profile
		if err := r.save(ctx, clientID, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil

	case store.IsUserNotFound(err):
		u := &store.User{
			ID:         uuid.NewString(),
			Identifier: identifier,
			Profile:    profile,
			CreatedAt:  time.Now().UTC(),
		}
		if err := r.save(ctx, clientID, u); err != nil {
			return nil, false, err
		}
		if err := r.kv.Set(ctx, store.IdentifierKey(clientID, identifier), []byte(u.ID), 0); err != nil {
			return nil, false, err
		}
		return u, true, nil

	default:
		return nil, false, err
	}
}

func (r *userRepo) Update(ctx context.Context, clientID, userID string, patch store.UserPatch) (*store.User, error) {
	u, err := r.Get(ctx, clientID, userID)
	if err != nil {
		return nil, err
	}

	if patch.Identifier != nil && *patch.Identifier != u.Identifier {
		// reindexar: borrar índice viejo, escribir el nuevo
		if err := r.kv.Delete(ctx, store.IdentifierKey(clientID, u.Identifier)); err != nil {
			return nil, err
		}
		u.Identifier = *patch.Identifier
		if err := r.kv.Set(ctx, store.IdentifierKey(clientID, u.Identifier), []byte(u.ID), 0); err != nil {
			return nil, err
		}
	}
	if patch.Profile != nil {
		u.Profile = patch.Profile
	}
	if patch.PublicSession != nil {
		u.PublicSession = patch.PublicSession
	}
	if patch.PrivateSession != nil {
		u.PrivateSession = patch.PrivateSession
	}

	if err := r.save(ctx, clientID, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepo) Delete(ctx context.Context, clientID, userID string) error {
	u, err := r.Get(ctx, clientID, userID)
	if err != nil {
		return err
	}
	if err := r.kv.Delete(ctx, store.UserKey(clientID, userID)); err != nil {
		return err
	}
	return r.kv.Delete(ctx, store.IdentifierKey(clientID, u.Identifier))
}

func (r *userRepo) List(ctx context.Context, clientID string, page, limit int) ([]store.User, error) {
	entries, err := r.kv.Scan(ctx, store.UserPrefix(clientID))
	if err != nil {
		return nil, err
	}

	users := make([]store.User, 0, len(entries))
	for _, e := range entries {
		var u store.User
		if err := json.Unmarshal(e.Value, &u); err != nil {
			// fila corrupta: no tumbamos el listado completo
			continue
		}
		users = append(users, u)
	}

	// orden de inserción estable: CreatedAt con desempate por ID
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	if limit <= 0 {
		return users, nil
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(users) {
		return []store.User{}, nil
	}
	end := start + limit
	if end > len(users) {
		end = len(users)
	}
	return users[start:end], nil
}

func (r *userRepo) SetSessionDoc(ctx context.Context, clientID, userID string, scope store.SessionScope, doc map[string]any) (*store.User, error) {
	u, err := r.Get(ctx, clientID, userID)
	if err != nil {
		return nil, err
	}
	if scope == store.SessionPrivate {
		u.PrivateSession = doc
	} else {
		u.PublicSession = doc
	}
	if err := r.save(ctx, clientID, u); err != nil {
		return nil, err
	}
	// readback = el post-image que acabamos de escribir
	return u, nil
}
