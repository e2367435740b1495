package pg

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/brokerjohn/internal/store"
)

type userRepo struct{ pool *pgxpool.Pool }

const userCols = `id, identifier, profile, public_session, private_session, created_at`

func scanUser(row pgx.Row) (*store.User, error) {
	var (
		u                     store.User
		profile, pub, private []byte
	)
	if err := row.Scan(&u.ID, &u.Identifier, &profile, &pub, &private, &u.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, store.ErrUserNotFound
		}
		return nil, err
	}
	for _, pair := range []struct {
		raw []byte
		dst *map[string]any
	}{{profile, &u.Profile}, {pub, &u.PublicSession}, {private, &u.PrivateSession}} {
		if len(pair.raw) > 0 {
			if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
				return nil, err
			}
		}
	}
	return &u, nil
}

func marshalDoc(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return json.Marshal(m)
}

func (r *userRepo) Get(ctx context.Context, clientID, userID string) (*store.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE client_id=$1 AND id=$2`,
		clientID, userID)
	return scanUser(row)
}

func (r *userRepo) FindByIdentifier(ctx context.Context, clientID, identifier string) (*store.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE client_id=$1 AND identifier=$2`,
		clientID, identifier)
	return scanUser(row)
}

func (r *userRepo) Upsert(ctx context.Context, clientID, identifier string, profile map[string]any) (*store.User, bool, error) {
	pb, err := marshalDoc(profile)
	if err != nil {
		return nil, false, err
	}
	// (xmax = 0) distingue insert de update en el RETURNING
	row := r.pool.QueryRow(ctx, `
		INSERT INTO app_user (id, client_id, identifier, profile, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (client_id, identifier)
		DO UPDATE SET profile = EXCLUDED.profile
		RETURNING `+userCols+`, (xmax = 0) AS inserted`,
		uuid.NewString(), clientID, identifier, pb)

	var (
		u                     store.User
		profileB, pubB, privB []byte
		inserted              bool
	)
	if err := row.Scan(&u.ID, &u.Identifier, &profileB, &pubB, &privB, &u.CreatedAt, &inserted); err != nil {
		return nil, false, err
	}
	for _, pair := range []struct {
		raw []byte
		dst *map[string]any
	}{{profileB, &u.Profile}, {pubB, &u.PublicSession}, {privB, &u.PrivateSession}} {
		if len(pair.raw) > 0 {
			if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
				return nil, false, err
			}
		}
	}
	return &u, inserted, nil
}

func (r *userRepo) Update(ctx context.Context, clientID, userID string, patch store.UserPatch) (*store.User, error) {
	u, err := r.Get(ctx, clientID, userID)
	if err != nil {
		return nil, err
	}
	if patch.Identifier != nil {
		u.Identifier = *patch.Identifier
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

	pb, err := marshalDoc(u.Profile)
	if err != nil {
		return nil, err
	}
	pubB, err := marshalDoc(u.PublicSession)
	if err != nil {
		return nil, err
	}
	privB, err := marshalDoc(u.PrivateSession)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE app_user
		   SET identifier=$3, profile=$4, public_session=$5, private_session=$6
		 WHERE client_id=$1 AND id=$2
		RETURNING `+userCols,
		clientID, userID, u.Identifier, pb, pubB, privB)
	return scanUser(row)
}

func (r *userRepo) Delete(ctx context.Context, clientID, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM app_user WHERE client_id=$1 AND id=$2`, clientID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, clientID string, page, limit int) ([]store.User, error) {
	q := `SELECT ` + userCols + ` FROM app_user WHERE client_id=$1 ORDER BY created_at, id`
	args := []any{clientID}
	if limit > 0 {
		if page < 1 {
			page = 1
		}
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, (page-1)*limit)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []store.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *userRepo) SetSessionDoc(ctx context.Context, clientID, userID string, scope store.SessionScope, doc map[string]any) (*store.User, error) {
	col := "public_session"
	if scope == store.SessionPrivate {
		col = "private_session"
	}
	db, err := marshalDoc(doc)
	if err != nil {
		return nil, err
	}
	// una sola fila, una sola sentencia, readback vía RETURNING
	row := r.pool.QueryRow(ctx, `
		UPDATE app_user SET `+col+` = $3
		 WHERE client_id=$1 AND id=$2
		RETURNING `+userCols,
		clientID, userID, db)
	return scanUser(row)
}
