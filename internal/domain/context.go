package domain

import "context"

type ctxKey string

const exchangeCtxKey ctxKey = "exchange_id"

// ContextWithExchangeID returns a new context carrying the exchange ID.
func ContextWithExchangeID(ctx context.Context, exchangeID string) context.Context {
	return context.WithValue(ctx, exchangeCtxKey, exchangeID)
}

// ExchangeIDFromContext extracts the exchange ID from the context.
// Returns empty string if not set.
func ExchangeIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(exchangeCtxKey).(string); ok {
		return v
	}
	return ""
}
