package tenancy

import "context"

type ctxKey string

const ownerKey ctxKey = "leadmanager.owner"

// Owner identifies the authenticated user every read and write is scoped to.
type Owner struct {
	ID       int64
	Username string
}

// WithOwner stores the authenticated owner in context.
func WithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFromContext extracts the owner if present.
func OwnerFromContext(ctx context.Context) (Owner, bool) {
	val := ctx.Value(ownerKey)
	if val == nil {
		return Owner{}, false
	}
	owner, ok := val.(Owner)
	return owner, ok && owner.ID > 0
}
