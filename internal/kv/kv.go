// Package kv abstrae el motor de almacenamiento key-value subyacente.
//
// El broker asume un KV externo con scan por prefijo y expiración TTL.
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (para producción)
//
// La atomicidad por fila del motor es el único límite de consistencia:
// no hay transacciones multi-key (ver Session Merge Engine).
package kv

import (
	"context"
	"fmt"
	"time"
)

// Entry es un par clave/valor devuelto por Scan.
type Entry struct {
	Key   string
	Value []byte
}

// Store define las operaciones del motor KV.
type Store interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set guarda un valor con TTL opcional. Si ttl es 0, no expira.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete elimina una key. Borrar una key inexistente no es error.
	Delete(ctx context.Context, key string) error

	// Scan devuelve todas las entradas cuyo key empieza con prefix,
	// ordenadas por key. Las entradas expiradas no se incluyen.
	Scan(ctx context.Context, prefix string) ([]Entry, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configuración para crear un Store.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string // Prefijo para todas las keys
}

// Errores del KV.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (e errNotFound) Error() string { return "kv: key not found" }

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New crea un Store según la configuración. Un driver desconocido es
// error de arranque, nunca fallback a memory.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("kv: driver %q desconocido", cfg.Driver)
	}
}
