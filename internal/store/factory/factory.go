// Package factory selecciona el adapter de storage según configuración.
package factory

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/store"
	kvrepo "github.com/dropDatabas3/brokerjohn/internal/store/adapters/kv"
	"github.com/dropDatabas3/brokerjohn/internal/store/adapters/pg"
)

// Config del factory.
type Config struct {
	// Driver: "memory" | "redis" | "postgres"
	Driver string

	KV       kv.Config
	Postgres pg.Config
}

// Open arma los repositorios del driver elegido.
// El cleanup devuelto cierra las conexiones subyacentes.
func Open(ctx context.Context, cfg Config) (store.Repositories, func(), error) {
	switch cfg.Driver {
	case "postgres":
		conn, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return store.Repositories{}, nil, err
		}
		return conn.Repositories(), conn.Close, nil

	case "memory", "redis", "":
		kvCfg := cfg.KV
		kvCfg.Driver = cfg.Driver
		s, err := kv.New(kvCfg)
		if err != nil {
			return store.Repositories{}, nil, err
		}
		return kvrepo.New(s), func() { _ = s.Close() }, nil

	default:
		return store.Repositories{}, nil, fmt.Errorf("store: driver desconocido %q", cfg.Driver)
	}
}
