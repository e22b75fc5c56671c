package middlewares

import "context"

type ctxKey int

const (
	ctxRequestIDKey ctxKey = iota
	ctxClientIDKey
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, rid)
}

// GetRequestID devuelve el request id del contexto ("" si no hay).
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestIDKey).(string)
	return v
}

func setClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ctxClientIDKey, clientID)
}

// GetClientID devuelve el cliente autenticado por WithClientAuth.
func GetClientID(ctx context.Context) string {
	v, _ := ctx.Value(ctxClientIDKey).(string)
	return v
}
