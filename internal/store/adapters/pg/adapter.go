// Package pg implementa los repositorios del broker sobre PostgreSQL.
// Usa pgxpool directamente. El upsert de usuarios se apoya en
// ON CONFLICT + RETURNING para que la escritura y el readback sean una
// sola sentencia (mismo límite de atomicidad que pide el core).
package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/brokerjohn/internal/store"
	migrations "github.com/dropDatabas3/brokerjohn/migrations/postgres"
)

// Config del adapter PostgreSQL.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Conn agrupa el pool y los repos.
type Conn struct {
	pool *pgxpool.Pool
}

// Connect abre el pool y verifica la conexión.
func Connect(ctx context.Context, cfg Config) (*Conn, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	c := &Conn{pool: pool}
	if err := c.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

// migrate aplica las migraciones embebidas pendientes, en orden lexical.
// El registro en schema_migrations hace la operación idempotente entre
// reinicios; dos réplicas arrancando a la vez no chocan porque el DDL
// entero es IF NOT EXISTS.
func (c *Conn) migrate(ctx context.Context) error {
	const bookkeeping = `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename   TEXT        PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := c.pool.Exec(ctx, bookkeeping); err != nil {
		return fmt.Errorf("pg: schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrations.BrokerFS, migrations.BrokerDir)
	if err != nil {
		return fmt.Errorf("pg: leer migraciones: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var applied bool
		err := c.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)`, name,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("pg: migración %s: %w", name, err)
		}
		if applied {
			continue
		}

		sql, err := fs.ReadFile(migrations.BrokerFS, migrations.BrokerDir+"/"+name)
		if err != nil {
			return fmt.Errorf("pg: migración %s: %w", name, err)
		}
		if _, err := c.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("pg: aplicar %s: %w", name, err)
		}
		if _, err := c.pool.Exec(ctx,
			`INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("pg: registrar %s: %w", name, err)
		}
	}
	return nil
}

// Repositories arma los repos sobre la conexión.
func (c *Conn) Repositories() store.Repositories {
	return store.Repositories{
		Tenants: &tenantRepo{pool: c.pool},
		Users:   &userRepo{pool: c.pool},
		Invites: &inviteRepo{pool: c.pool},
	}
}

// Close cierra el pool.
func (c *Conn) Close() { c.pool.Close() }
