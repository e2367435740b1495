// Package provider arma, por request, el set de handlers de autenticación
// habilitados para un tenant: el flow de protocolo (instanciado por el
// motor) más la regla de extracción de identidad de cada kind.
//
// Los handlers se construyen frescos en cada request: un cambio de config
// del tenant aplica apenas el directory refresca, sin estado colgado.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/brokerjohn/internal/delivery"
	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// ErrConfig marca errores de configuración del tenant (path inválido,
// settings rotos). Se distingue de un fallo de autenticación: esto es un
// bug del operador, no un credential inválido.
var ErrConfig = errors.New("provider: invalid configuration")

// ExtractFunc saca el identificador estable del payload de éxito del
// motor. Error = el login entero falla.
type ExtractFunc func(ctx context.Context, raw map[string]any) (string, error)

// Handler es un provider habilitado listo para despachar.
type Handler struct {
	Kind    store.ProviderKind
	Flow    engine.Flow
	Extract ExtractFunc
}

// Set es el resultado de Build para un request.
type Set struct {
	handlers map[store.ProviderKind]*Handler
}

// NewSet arma un Set a partir de handlers ya construidos.
func NewSet(handlers map[store.ProviderKind]*Handler) *Set {
	return &Set{handlers: handlers}
}

// Flows devuelve el mapa kind→flow que espera engine.Dispatch.
func (s *Set) Flows() map[store.ProviderKind]engine.Flow {
	out := make(map[store.ProviderKind]engine.Flow, len(s.handlers))
	for k, h := range s.handlers {
		out[k] = h.Flow
	}
	return out
}

// Get devuelve el handler del kind, si está habilitado.
func (s *Set) Get(kind store.ProviderKind) (*Handler, bool) {
	h, ok := s.handlers[kind]
	return h, ok
}

// Factory construye sets de providers contra un motor concreto.
type Factory struct {
	engine   engine.Protocol
	delivery *delivery.Service
}

func NewFactory(eng engine.Protocol, dlv *delivery.Service) *Factory {
	return &Factory{engine: eng, delivery: dlv}
}

// Build instancia los handlers de los providers habilitados del tenant.
// copyTemplateID elige la variante de copy para emails, si el tenant
// define variantes en metadata.
func (f *Factory) Build(t *store.Tenant, copyTemplateID string) (*Set, error) {
	set := &Set{handlers: make(map[store.ProviderKind]*Handler)}

	for _, pc := range t.EnabledProviders() {
		if !pc.Kind.Valid() {
			return nil, fmt.Errorf("%w: kind desconocido %q", ErrConfig, pc.Kind)
		}

		spec := engine.FlowSpec{
			Kind:         pc.Kind,
			ClientID:     t.ClientID,
			OIDC:         pc.OIDC,
			Introspect:   pc.Introspect,
			OAuth2:       pc.OAuth2,
			CodeDelivery: t.CodeDelivery,
			RedirectURL:  t.OriginURL,
		}
		if pc.Kind == store.ProviderCode {
			spec.SendCode = f.sendCodeFunc(t, copyTemplateID)
		}

		flow, err := f.engine.NewFlow(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}

		extract, err := extractorFor(pc)
		if err != nil {
			return nil, err
		}

		set.handlers[pc.Kind] = &Handler{Kind: pc.Kind, Flow: flow, Extract: extract}
	}
	return set, nil
}

// sendCodeFunc resuelve la entrega de códigos para el tenant, aplicando
// la variante de copy pedida por cookie si existe en metadata.
func (f *Factory) sendCodeFunc(t *store.Tenant, copyTemplateID string) engine.SendCodeFunc {
	tenant := *t
	if copyTemplateID != "" {
		if variants, ok := t.Metadata["copyTemplates"].(map[string]any); ok {
			if tmpl, ok := variants[copyTemplateID].(string); ok && tmpl != "" {
				tenant.EmailTemplate = &tmpl
			}
		}
	}
	send := f.delivery.ForTenant(&tenant)
	return func(ctx context.Context, destination, code string) error {
		return send(ctx, destination, code)
	}
}
