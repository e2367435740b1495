// Package engine define la superficie del motor de protocolo externo
// (OAuth2/OIDC, password, one-time codes).
//
// El broker NO implementa intercambio de tokens, PKCE ni firmado: eso es
// del motor, consumido como capacidad a través de estas interfaces. El
// paquete embedded trae un adapter mínimo para correr standalone.
package engine

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// Claims son claims verificadas/emitidas por el motor.
type Claims map[string]any

// IssuerBinding ata una verificación de token a un tenant concreto.
type IssuerBinding struct {
	ClientID string
	Issuer   string
}

// ErrInvalidToken es el único error que sale de VerifyToken: expirado,
// malformado o de otro tenant colapsan acá para no dar un oráculo sobre
// la estructura del token.
var ErrInvalidToken = errors.New("engine: invalid token")

// TokenVerifier es la capacidad de verificación de bearer tokens.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string, b IssuerBinding) (Claims, error)
}

// SendCodeFunc entrega un one-time code (email o SMS). Si falla, el login
// entero falla: al usuario no se le dice "código enviado" si no se envió.
type SendCodeFunc func(ctx context.Context, destination, code string) error

// FlowSpec describe el flow de protocolo que el Provider Factory pide
// instanciar para un provider habilitado del tenant.
type FlowSpec struct {
	Kind     store.ProviderKind
	ClientID string

	// Settings tipados según Kind (los mismos variants del tenant record).
	OIDC       *store.OIDCSettings
	Introspect *store.IntrospectionSettings
	OAuth2     *store.OAuth2Settings

	// Callbacks tenant-scoped.
	SendCode     SendCodeFunc
	CodeDelivery store.CodeDeliveryMode

	// RedirectURL al que vuelve el browser tras un flow OAuth (origin
	// registrado del tenant).
	RedirectURL string
}

// Flow es un handler de protocolo opaco instanciado por el motor.
// El broker no mira adentro: solo lo pasa de vuelta en Dispatch.
type Flow interface {
	Kind() store.ProviderKind
}

// SuccessFunc se invoca cuando un flow completa autenticación. raw es el
// payload crudo de éxito del motor; retorna las claims de sujeto a embeber
// en la sesión emitida, o error para abortar el login completo.
type SuccessFunc func(ctx context.Context, kind store.ProviderKind, raw map[string]any) (Claims, error)

// Protocol es la superficie completa del motor.
type Protocol interface {
	TokenVerifier

	// NewFlow instancia el handler para un provider habilitado.
	NewFlow(spec FlowSpec) (Flow, error)

	// Dispatch atiende los endpoints estándar de autenticación (el
	// fallback "*" del dispatcher) con el set de flows del request.
	Dispatch(w http.ResponseWriter, r *http.Request, flows map[store.ProviderKind]Flow, onSuccess SuccessFunc)
}
