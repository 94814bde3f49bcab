package middleware

import (
	"context"

	"github.com/google/uuid"
)

// caller is the authenticated identity Auth attaches to a request.
type caller struct {
	id     string
	seller bool
}

type callerKey struct{}

func callerFrom(ctx context.Context) caller {
	if ctx == nil {
		return caller{}
	}
	c, _ := ctx.Value(callerKey{}).(caller)
	return c
}

func withCaller(ctx context.Context, update func(*caller)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := callerFrom(ctx)
	update(&c)
	return context.WithValue(ctx, callerKey{}, c)
}

// UserIDFromContext returns the raw subject of the caller's token.
func UserIDFromContext(ctx context.Context) string {
	return callerFrom(ctx).id
}

// ActorIDFromContext returns the caller's id, or uuid.Nil when the request is
// anonymous or the subject is not a UUID.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(callerFrom(ctx).id)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func IsSellerFromContext(ctx context.Context) bool {
	return callerFrom(ctx).seller
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return withCaller(ctx, func(c *caller) { c.id = userID })
}

func WithSeller(ctx context.Context, seller bool) context.Context {
	return withCaller(ctx, func(c *caller) { c.seller = seller })
}
