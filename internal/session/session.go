// Package session implementa el merge engine de los documentos de sesión
// por usuario (public/private).
//
// El update es read-modify-write SIN transacción: dos PATCH concurrentes
// al mismo documento pueden pisarse (last-writer-wins). Es política
// aceptada, no un bug: la frontera de atomicidad es la escritura única de
// fila con readback, no un read+write serializado.
package session

import (
	"context"

	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// Service expone las cuatro operaciones de sesión. La autorización
// (bearer para public, bearer+secret para private) ya la hizo el gate:
// acá solo se asume scope resuelto.
type Service struct {
	users store.UserRepository
}

func NewService(users store.UserRepository) *Service {
	return &Service{users: users}
}

// Get devuelve el documento del scope. ErrUserNotFound si la fila no existe.
func (s *Service) Get(ctx context.Context, clientID, userID string, scope store.SessionScope) (map[string]any, error) {
	u, err := s.users.Get(ctx, clientID, userID)
	if err != nil {
		return nil, err
	}
	return u.SessionDoc(scope), nil
}

// Update aplica el patch. replace=false: shallow merge de claves top-level
// (las del patch ganan, las no mencionadas se conservan). replace=true: el
// patch reemplaza el documento entero — con patch vacío/nil implementa
// "clear".
func (s *Service) Update(ctx context.Context, clientID, userID string, scope store.SessionScope, patch map[string]any, replace bool) (map[string]any, error) {
	var doc map[string]any

	if replace {
		doc = patch
	} else {
		u, err := s.users.Get(ctx, clientID, userID)
		if err != nil {
			return nil, err
		}
		existing := u.SessionDoc(scope)
		doc = make(map[string]any, len(existing)+len(patch))
		for k, v := range existing {
			doc[k] = v
		}
		for k, v := range patch {
			doc[k] = v
		}
	}

	u, err := s.users.SetSessionDoc(ctx, clientID, userID, scope, doc)
	if err != nil {
		return nil, err
	}
	return u.SessionDoc(scope), nil
}

// Clear deja el documento vacío (DELETE del REST).
func (s *Service) Clear(ctx context.Context, clientID, userID string, scope store.SessionScope) error {
	_, err := s.Update(ctx, clientID, userID, scope, nil, true)
	return err
}
