// Package delivery implementa la entrega de one-time codes por canal:
// email (SMTP) o SMS (vendor HTTP). El canal lo elige la config del tenant;
// las credenciales del transporte son globales del broker.
package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// CodeSender entrega un código a un destino. Error = el código NO llegó,
// y el flow de login debe fallar.
type CodeSender interface {
	SendCode(ctx context.Context, destination, code string) error
}

// Config agrupa los transportes disponibles.
type Config struct {
	Email SMTPConfig `yaml:"email"`
	SMS   SMSConfig  `yaml:"sms"`
}

// Service resuelve el sender correcto por tenant.
type Service struct {
	email *SMTPSender
	sms   *SMSSender
}

// New arma el servicio con los transportes configurados. Un transporte
// sin configurar queda nil y falla en el primer uso, no en el arranque:
// un broker solo-email no necesita credenciales de SMS.
func New(cfg Config) *Service {
	s := &Service{}
	if cfg.Email.Host != "" {
		s.email = NewSMTPSender(cfg.Email)
	}
	if cfg.SMS.VendorURL != "" {
		s.sms = NewSMSSender(cfg.SMS)
	}
	return s
}

// ForTenant devuelve la función de entrega para el canal del tenant,
// con su template de email aplicado si tiene uno.
func (s *Service) ForTenant(t *store.Tenant) func(ctx context.Context, destination, code string) error {
	mode := t.CodeDelivery
	if mode == "" {
		mode = store.DeliveryEmail
	}

	switch mode {
	case store.DeliveryPhone:
		return func(ctx context.Context, destination, code string) error {
			if s.sms == nil {
				return fmt.Errorf("delivery: canal sms no configurado")
			}
			return s.sms.SendCode(ctx, destination, code)
		}

	default:
		var tmpl string
		if t.EmailTemplate != nil {
			tmpl = *t.EmailTemplate
		}
		clientID := t.ClientID
		return func(ctx context.Context, destination, code string) error {
			if s.email == nil {
				return fmt.Errorf("delivery: canal email no configurado")
			}
			return s.email.SendCodeTemplate(ctx, destination, code, clientID, tmpl)
		}
	}
}

// renderTemplate expande los placeholders soportados. Template vacío usa
// el default.
func renderTemplate(tmpl, code, clientID string) string {
	if tmpl == "" {
		tmpl = defaultEmailTemplate
	}
	out := strings.ReplaceAll(tmpl, "{{code}}", code)
	out = strings.ReplaceAll(out, "{{client_id}}", clientID)
	return out
}

const defaultEmailTemplate = `<html><body>
<p>Tu código de acceso es:</p>
<p style="font-size:28px;font-weight:bold;letter-spacing:4px">{{code}}</p>
<p>Si no pediste este código, ignorá este mensaje.</p>
</body></html>`
