// Package embedded es el adapter por defecto del motor de protocolo: corre
// dentro del proceso del broker, guarda credenciales/códigos/state en el KV
// y emite access tokens HS256. Alcanza para desarrollo y para los flows
// password/code/OAuth2 básicos; un deployment serio enchufa un motor real
// detrás de engine.Protocol.
package embedded

import (
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/security/password"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// Config del motor embebido.
type Config struct {
	// Issuer base; el issuer efectivo por tenant es "<Issuer>/<clientID>".
	Issuer string

	// Secret es la clave HS256 para firmar access tokens.
	Secret string

	AccessTTL time.Duration
	CodeTTL   time.Duration
	StateTTL  time.Duration

	// Policy se evalúa solo al registrar una credencial nueva; la policy
	// cero acepta todo (el gating real del signup es el invite).
	Policy password.Policy

	// Blacklist opcional de passwords prohibidas (nil = sin chequeo).
	Blacklist *password.Blacklist
}

// Engine implementa engine.Protocol.
type Engine struct {
	cfg Config
	kv  kv.Store
}

// New crea el motor embebido.
func New(cfg Config, kvs kv.Store) (*Engine, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("embedded: secret requerido")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "http://localhost:8080"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	return &Engine{cfg: cfg, kv: kvs}, nil
}

func (e *Engine) issuerFor(clientID string) string {
	return strings.TrimRight(e.cfg.Issuer, "/") + "/" + clientID
}

// flow es la implementación opaca de engine.Flow: spec validado + kind.
type flow struct {
	spec engine.FlowSpec
}

func (f *flow) Kind() store.ProviderKind { return f.spec.Kind }

// NewFlow valida settings por kind. El switch es exhaustivo sobre el
// conjunto cerrado: un kind nuevo que llegue acá sin rama es un bug de
// configuración, no un fallthrough silencioso.
func (e *Engine) NewFlow(spec engine.FlowSpec) (engine.Flow, error) {
	switch spec.Kind {
	case store.ProviderPassword:
		// sin settings propios

	case store.ProviderCode:
		if spec.SendCode == nil {
			return nil, fmt.Errorf("embedded: flow code sin callback de entrega")
		}

	case store.ProviderOIDC:
		if spec.OIDC == nil || spec.OIDC.IssuerURL == "" || spec.OIDC.ClientID == "" {
			return nil, fmt.Errorf("embedded: flow oidc incompleto")
		}

	case store.ProviderIntrospection:
		if spec.Introspect == nil || spec.Introspect.IntrospectionURL == "" {
			return nil, fmt.Errorf("embedded: flow introspection incompleto")
		}

	case store.ProviderOAuth2Vendor, store.ProviderOAuth2Generic:
		if spec.OAuth2 == nil || spec.OAuth2.AuthURL == "" || spec.OAuth2.TokenURL == "" {
			return nil, fmt.Errorf("embedded: flow oauth2 incompleto")
		}

	default:
		return nil, fmt.Errorf("embedded: provider kind desconocido %q", spec.Kind)
	}
	return &flow{spec: spec}, nil
}
