package store

import "context"

// TenantRepository resuelve registros de tenant por clientID.
// La creación/edición de tenants es del management plane externo; el core
// solo lee.
type TenantRepository interface {
	// Get retorna el tenant o ErrTenantNotFound.
	Get(ctx context.Context, clientID string) (*Tenant, error)
}

// UserRepository maneja la tabla de usuarios, namespaced por tenant.
type UserRepository interface {
	// Get retorna el usuario o ErrUserNotFound.
	Get(ctx context.Context, clientID, userID string) (*User, error)

	// FindByIdentifier busca por el identificador estable dentro del tenant.
	FindByIdentifier(ctx context.Context, clientID, identifier string) (*User, error)

	// Upsert inserta (id nuevo) o, si el identifier ya existe en el tenant,
	// REEMPLAZA el profile de la fila existente. Nunca duplica.
	// created=true si la fila es nueva.
	Upsert(ctx context.Context, clientID, identifier string, profile map[string]any) (u *User, created bool, err error)

	// Update aplica un patch de campos permitidos (admin API).
	Update(ctx context.Context, clientID, userID string, patch UserPatch) (*User, error)

	// Delete borra la fila; ErrUserNotFound si no existe.
	Delete(ctx context.Context, clientID, userID string) error

	// List devuelve usuarios en orden de inserción estable.
	// page es 1-based; limit<=0 significa sin paginar (scan completo).
	List(ctx context.Context, clientID string, page, limit int) ([]User, error)

	// SetSessionDoc escribe el documento de sesión completo (una sola
	// escritura de fila con readback). El merge lo calcula el caller:
	// acá solo se persiste el post-image.
	SetSessionDoc(ctx context.Context, clientID, userID string, scope SessionScope, doc map[string]any) (*User, error)
}

// InviteRepository maneja los invite links.
type InviteRepository interface {
	// Get retorna el invite o ErrInviteNotFound (inexistente o vencido).
	Get(ctx context.Context, id string) (*Invite, error)

	// Delete consume el invite. Borrar uno inexistente no es error.
	Delete(ctx context.Context, id string) error

	// Create persiste un invite nuevo (lo usa el tooling/tests; la emisión
	// real es del management plane).
	Create(ctx context.Context, inv *Invite) error
}

// Repositories agrupa los repos concretos elegidos por el factory.
type Repositories struct {
	Tenants TenantRepository
	Users   UserRepository
	Invites InviteRepository
}
