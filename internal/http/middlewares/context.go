package middlewares

import (
	"context"

	"github.com/dropDatabas3/brokerjohn/internal/reqctx"
	"github.com/dropDatabas3/brokerjohn/internal/store"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	reqContextKey
	tenantKey
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// GetRequestID retorna el request ID del contexto, o "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func setReqContext(ctx context.Context, rc reqctx.Context) context.Context {
	return context.WithValue(ctx, reqContextKey, rc)
}

// GetReqContext retorna el request context resuelto (tenant/copy/invite).
func GetReqContext(ctx context.Context) reqctx.Context {
	v, _ := ctx.Value(reqContextKey).(reqctx.Context)
	return v
}

func setTenant(ctx context.Context, t *store.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// GetTenant retorna el tenant resuelto, o nil si no resolvió.
func GetTenant(ctx context.Context) *store.Tenant {
	v, _ := ctx.Value(tenantKey).(*store.Tenant)
	return v
}
