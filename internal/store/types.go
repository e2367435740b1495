package store

import "time"

// =================================================================================
// TENANT (PROJECT)
// =================================================================================

// PublicClientID es el clientID reservado del tenant "público/admin".
// Nunca se persiste: el Tenant Directory lo sintetiza en memoria.
const PublicClientID = "public"

// CodeDeliveryMode indica el canal de entrega de one-time codes.
type CodeDeliveryMode string

const (
	DeliveryEmail CodeDeliveryMode = "email"
	DeliveryPhone CodeDeliveryMode = "phone"
)

// ProviderKind es el conjunto cerrado de tipos de provider conocidos.
// Agregar un kind implica agregar la variante acá, su settings tipado,
// y la rama correspondiente en provider.Build (que es exhaustivo).
type ProviderKind string

const (
	ProviderPassword      ProviderKind = "password"
	ProviderCode          ProviderKind = "code"
	ProviderOIDC          ProviderKind = "oidc"
	ProviderIntrospection ProviderKind = "introspection"
	ProviderOAuth2Vendor  ProviderKind = "oauth2_vendor"
	ProviderOAuth2Generic ProviderKind = "oauth2_generic"
)

// Valid reporta si el kind pertenece al conjunto cerrado.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderPassword, ProviderCode, ProviderOIDC,
		ProviderIntrospection, ProviderOAuth2Vendor, ProviderOAuth2Generic:
		return true
	}
	return false
}

// OIDCSettings configura un provider OIDC estándar.
type OIDCSettings struct {
	IssuerURL    string   `json:"issuerUrl"`
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// IntrospectionSettings configura un provider basado en token introspection.
type IntrospectionSettings struct {
	IntrospectionURL string `json:"introspectionUrl"`
	ClientID         string `json:"clientId,omitempty"`
	ClientSecret     string `json:"clientSecret,omitempty"`
}

// OAuth2Settings configura providers OAuth2 puros (vendor y genérico).
type OAuth2Settings struct {
	AuthURL      string   `json:"authUrl"`
	TokenURL     string   `json:"tokenUrl"`
	UserInfoURL  string   `json:"userInfoUrl,omitempty"`
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`

	// Vendor (oauth2_vendor): endpoint "who am i" autenticado con el access
	// token recién obtenido, y el campo que trae el id estable del usuario.
	WhoAmIURL string `json:"whoAmIUrl,omitempty"`
	IDField   string `json:"idField,omitempty"`

	// Genérico (oauth2_generic): path configurable dentro del JSON de userinfo
	// para extraer el identificador (sintaxis jmespath, los dot-paths son un
	// subconjunto).
	IdentifierPath string `json:"identifierPath,omitempty"`
}

// ProviderConfig es una variante etiquetada: Kind decide cuál de los
// settings tipados aplica. Exactamente uno debería estar presente para
// los kinds que requieren settings (password y code no llevan).
type ProviderConfig struct {
	Kind    ProviderKind `json:"kind"`
	Enabled bool         `json:"enabled"`

	OIDC       *OIDCSettings          `json:"oidc,omitempty"`
	Introspect *IntrospectionSettings `json:"introspect,omitempty"`
	OAuth2     *OAuth2Settings        `json:"oauth2,omitempty"`
}

// Tenant es el registro de configuración de un proyecto cliente.
// ClientID es inmutable y además funciona como namespace de storage.
type Tenant struct {
	ClientID       string           `json:"clientId"`
	Active         bool             `json:"active"`
	CreatedAt      time.Time        `json:"createdAt"`
	Providers      []ProviderConfig `json:"providers"`
	Secret         string           `json:"secret,omitempty"`
	ThemeID        *string          `json:"themeId,omitempty"`
	CodeDelivery   CodeDeliveryMode `json:"codeDelivery,omitempty"`
	EmailTemplate  *string          `json:"emailTemplate,omitempty"`
	InviteRequired bool             `json:"inviteRequired"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	OriginURL      string           `json:"originUrl,omitempty"`
}

// EnabledProviders filtra la lista de providers a los habilitados.
func (t *Tenant) EnabledProviders() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(t.Providers))
	for _, p := range t.Providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// =================================================================================
// USER
// =================================================================================

// SessionScope distingue los dos documentos de sesión por usuario.
type SessionScope string

const (
	SessionPublic  SessionScope = "public"
	SessionPrivate SessionScope = "private"
)

// User es la fila de usuario, única por (tenant, Identifier).
// Profile es el payload opaco que devolvió el provider; en re-login se
// REEMPLAZA, no se mergea (el merge aplica solo a los session documents).
type User struct {
	ID             string         `json:"id"`
	Identifier     string         `json:"identifier"`
	Profile        map[string]any `json:"profile,omitempty"`
	PublicSession  map[string]any `json:"publicSession,omitempty"`
	PrivateSession map[string]any `json:"privateSession,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// SessionDoc devuelve el documento del scope pedido.
func (u *User) SessionDoc(scope SessionScope) map[string]any {
	if scope == SessionPrivate {
		return u.PrivateSession
	}
	return u.PublicSession
}

// UserPatch son los campos que el admin API permite actualizar.
// Los punteros/nil distinguen "no tocar" de "setear".
type UserPatch struct {
	Identifier     *string
	Profile        map[string]any
	PublicSession  map[string]any
	PrivateSession map[string]any
}

// =================================================================================
// INVITE LINK
// =================================================================================

// Invite es un link de invitación con vencimiento, atado a un tenant.
type Invite struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reporta si el invite ya venció.
func (i *Invite) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}
