package auditlog

import "context"

// Roles known to the access checks.
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleBuyer  = "buyer"
	RoleSystem = "system"
)

// Actor identifies who performed an operation.
type Actor struct {
	ID        string
	Role      string
	BuyerID   int64
	IP        string
	UserAgent string
}

type actorKey struct{}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the actor stored in ctx, or a system actor.
func ActorFromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}

	return Actor{ID: RoleSystem, Role: RoleSystem}
}

// IsBuyer reports whether the actor is scoped to a single buyer.
func (a Actor) IsBuyer() bool {
	return a.Role == RoleBuyer
}

// CanAccessBuyer reports whether the actor may see data owned by buyerID.
func (a Actor) CanAccessBuyer(buyerID int64) bool {
	return !a.IsBuyer() || a.BuyerID == buyerID
}
