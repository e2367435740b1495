// Package kv implementa los repositorios del broker sobre el motor KV
// externo (memory o redis). Es el adapter por defecto.
//
// Consistencia: el motor garantiza atomicidad por key. Las operaciones que
// tocan fila + índice (Upsert, Update con cambio de identifier, Delete) no
// son transaccionales entre keys; el modelo de un-escritor-por-request del
// broker hace que eso alcance.
package kv

import (
	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// New arma los repositorios sobre el Store KV dado.
func New(s kv.Store) store.Repositories {
	return store.Repositories{
		Tenants: &tenantRepo{kv: s},
		Users:   &userRepo{kv: s},
		Invites: &inviteRepo{kv: s},
	}
}
