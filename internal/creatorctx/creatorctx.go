// Package creatorctx carries the acting creator through a request context.
package creatorctx

import "context"

type contextKey struct{}

var creatorIDKey contextKey

func WithCreatorID(ctx context.Context, creatorID int64) context.Context {
	return context.WithValue(ctx, creatorIDKey, creatorID)
}

func CreatorIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(creatorIDKey).(int64)
	return id, ok
}
