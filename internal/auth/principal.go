package auth

import (
	"context"

	"classquiz/internal/models"
)

// Principal is the caller resolved from a bearer token.
type Principal struct {
	ID   uint
	Role models.Role
}

func (p Principal) IsTeacher() bool { return p.Role == models.RoleTeacher }
func (p Principal) IsStudent() bool { return p.Role == models.RoleStudent }

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
