// Package gate implementa los dos chequeos de credencial del broker:
// shared secret (server-to-server) y bearer token (end-user). Son checks
// independientes que nunca se mezclan, stateless y fail-closed.
package gate

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/tenant"
)

// ErrUnauthorized es el único error que sale del gate. Secret ausente,
// secret incorrecto, tenant inexistente, token vencido o malformado:
// todos colapsan acá para no regalar un oráculo.
var ErrUnauthorized = errors.New("gate: unauthorized")

// Gate resuelve tenants y delega la verificación de tokens al motor.
type Gate struct {
	dir      *tenant.Directory
	verifier engine.TokenVerifier
}

func New(dir *tenant.Directory, verifier engine.TokenVerifier) *Gate {
	return &Gate{dir: dir, verifier: verifier}
}

// VerifySecret exige match exacto contra el secret del tenant. Un secret
// ausente rechaza ANTES del lookup: la latencia de respuesta no cuenta si
// el tenant existe.
func (g *Gate) VerifySecret(ctx context.Context, clientID, presented string) error {
	if presented == "" {
		return ErrUnauthorized
	}
	t, err := g.dir.Resolve(ctx, clientID)
	if err != nil {
		return ErrUnauthorized
	}
	// el tenant público no tiene secret: nunca pasa este check
	if t.Secret == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(t.Secret), []byte(presented)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// VerifyToken delega en el motor con el issuer binding del tenant.
// Cualquier fallo de verificación es el mismo ErrUnauthorized genérico.
func (g *Gate) VerifyToken(ctx context.Context, clientID, bearer string) (engine.Claims, error) {
	if bearer == "" {
		return nil, ErrUnauthorized
	}
	claims, err := g.verifier.VerifyToken(ctx, bearer, engine.IssuerBinding{ClientID: clientID})
	if err != nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// BearerFromHeader extrae el token del header Authorization. Devuelve ""
// si no es un bearer.
func BearerFromHeader(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
