package middleware

import (
	"context"

	"github.com/muxdry/storefront-backend/pkg/auth"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the authenticated caller placed by Auth.
func ActorFromContext(ctx context.Context) (auth.Actor, bool) {
	if ctx == nil {
		return auth.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(auth.Actor)
	return actor, ok
}

func UserIDFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return actor.UserID.String()
}

// WithActor injects the caller into the context.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
