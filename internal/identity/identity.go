// Package identity es el tramo final del pipeline de login: extracción de
// identificador, gating por invite y upsert del usuario. Corre como el
// callback de éxito que el motor invoca al completar un flow.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
	"github.com/dropDatabas3/brokerjohn/internal/metrics"
	"github.com/dropDatabas3/brokerjohn/internal/observability/logger"
	"github.com/dropDatabas3/brokerjohn/internal/provider"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// ErrInviteRequired: el tenant exige invite y el identificador es nuevo
// sin invite válido. El handler HTTP limpia la cookie de invite al verlo.
var ErrInviteRequired = errors.New("identity: invite required")

// Service resuelve identidades contra el storage.
type Service struct {
	repos store.Repositories
	now   func() time.Time

	// allowlist de admins del tenant público, normalizado a lowercase.
	// Vacío = el tenant público acepta cualquier login (solo dev).
	adminEmails map[string]struct{}
}

func NewService(repos store.Repositories, adminEmails []string) *Service {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			allow[e] = struct{}{}
		}
	}
	return &Service{repos: repos, now: time.Now, adminEmails: allow}
}

// normalizeEmail recorta espacios y baja a minúsculas: el allowlist se
// compara case-insensitive porque la parte local case-sensitive de RFC
// 5321 no existe en la práctica.
func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// SuccessFunc arma el callback de éxito para un request concreto: tenant,
// set de providers ya construido e invite (si vino en el request context).
func (s *Service) SuccessFunc(t *store.Tenant, set *provider.Set, inviteID string) engine.SuccessFunc {
	return func(ctx context.Context, kind store.ProviderKind, raw map[string]any) (engine.Claims, error) {
		h, ok := set.Get(kind)
		if !ok {
			return nil, fmt.Errorf("identity: provider %q no habilitado", kind)
		}
		u, err := s.Complete(ctx, t, h, inviteID, raw)
		if err != nil {
			metrics.LoginAttempts.WithLabelValues(string(kind), "failure").Inc()
			return nil, err
		}
		metrics.LoginAttempts.WithLabelValues(string(kind), "success").Inc()
		return engine.Claims{
			"sub":        u.ID,
			"identifier": u.Identifier,
			"client_id":  t.ClientID,
		}, nil
	}
}

// Complete corre extracción → gating → upsert. El gating por invite aplica
// SOLO a identificadores nuevos: un usuario existente entra aunque el
// tenant haya prendido inviteRequired después de su registro.
func (s *Service) Complete(ctx context.Context, t *store.Tenant, h *provider.Handler, inviteID string, raw map[string]any) (*store.User, error) {
	identifier, err := h.Extract(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("identity: extract (%s): %w", h.Kind, err)
	}

	// tenant público: solo el allowlist de admins entra
	if t.ClientID == store.PublicClientID && len(s.adminEmails) > 0 {
		if _, ok := s.adminEmails[normalizeEmail(identifier)]; !ok {
			return nil, fmt.Errorf("identity: %q no está en el allowlist de admins", identifier)
		}
	}

	_, ferr := s.repos.Users.FindByIdentifier(ctx, t.ClientID, identifier)
	isNew := store.IsUserNotFound(ferr)
	if ferr != nil && !isNew {
		return nil, ferr
	}

	var burnedInvite string
	if isNew && t.InviteRequired {
		inv, verr := s.validInvite(ctx, t.ClientID, inviteID)
		if verr != nil {
			return nil, verr
		}
		burnedInvite = inv.ID
	}

	u, created, err := s.repos.Users.Upsert(ctx, t.ClientID, identifier, raw)
	if err != nil {
		return nil, err
	}

	// el invite se consume best-effort: si el delete falla, el login ya
	// pasó y el invite queda reusable hasta que venza (single-use es una
	// garantía blanda, no transaccional)
	if created && burnedInvite != "" {
		if derr := s.repos.Invites.Delete(ctx, burnedInvite); derr != nil {
			logger.L().Warn("invite burn failed",
				logger.Component("identity"),
				logger.ClientID(t.ClientID),
				logger.InviteID(burnedInvite),
				logger.Err(derr),
			)
		}
	}

	if created {
		metrics.UsersCreated.Inc()
	}

	logger.L().Info("login completed",
		logger.Component("identity"),
		logger.ClientID(t.ClientID),
		logger.UserID(u.ID),
		logger.Provider(string(h.Kind)),
		logger.Bool("created", created),
	)
	return u, nil
}

// validInvite valida existencia, tenant y vencimiento. Todos los fallos
// colapsan en ErrInviteRequired: al browser no se le cuenta si el invite
// existía, venció o era de otro tenant.
func (s *Service) validInvite(ctx context.Context, clientID, inviteID string) (*store.Invite, error) {
	if inviteID == "" {
		return nil, ErrInviteRequired
	}
	inv, err := s.repos.Invites.Get(ctx, inviteID)
	if err != nil {
		if store.IsInviteNotFound(err) {
			return nil, ErrInviteRequired
		}
		return nil, err
	}
	if inv.ClientID != clientID || inv.Expired(s.now()) {
		return nil, ErrInviteRequired
	}
	return inv, nil
}
