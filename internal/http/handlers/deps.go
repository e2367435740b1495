// Package handlers implementa los endpoints HTTP del broker.
package handlers

import (
	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/gate"
	"github.com/dropDatabas3/brokerjohn/internal/identity"
	"github.com/dropDatabas3/brokerjohn/internal/provider"
	"github.com/dropDatabas3/brokerjohn/internal/session"
	"github.com/dropDatabas3/brokerjohn/internal/store"
	"github.com/dropDatabas3/brokerjohn/internal/tenant"
)

// Deps agrupa las dependencias compartidas por todos los handlers.
type Deps struct {
	Dir      *tenant.Directory
	Gate     *gate.Gate
	Sessions *session.Service
	Identity *identity.Service
	Factory  *provider.Factory
	Engine   engine.Protocol
	Repos    store.Repositories

	// BuildVersion es lo que responde GET /version.
	BuildVersion string
}
