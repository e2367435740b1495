package store

import "errors"

// Errores comunes de los repositorios.
var (
	// ErrTenantNotFound indica que el tenant no existe.
	ErrTenantNotFound = errors.New("store: tenant not found")

	// ErrUserNotFound indica que el usuario no existe en el namespace del tenant.
	ErrUserNotFound = errors.New("store: user not found")

	// ErrInviteNotFound indica que el invite no existe o ya venció.
	ErrInviteNotFound = errors.New("store: invite not found")
)

// IsTenantNotFound helper para verificar si el error es por tenant inexistente.
func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

// IsUserNotFound helper para verificar si el error es por usuario inexistente.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsInviteNotFound helper para verificar si el error es por invite inexistente.
func IsInviteNotFound(err error) bool {
	return errors.Is(err, ErrInviteNotFound)
}
