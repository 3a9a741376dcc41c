// Package actorctx carries the authenticated user on a context.Context so
// code below the HTTP layer can see who is acting without importing gin.
package actorctx

import (
	"context"

	"github.com/geocoder89/taskmanager/internal/domain/user"
)

type ctxKey struct{}

func WithUser(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFrom(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(user.User)

	return u, ok && u.ID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	u, ok := UserFrom(ctx)

	return u.ID, ok
}
