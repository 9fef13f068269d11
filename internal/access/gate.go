package access

import (
	"context"
	"log/slog"

	"github.com/socialchef/scribe/internal/errors"
)

// Gate answers authorization questions against the admin id and a Store.
// Every question reads the store so additions take effect immediately.
type Gate struct {
	adminID int64
	store   Store
}

func NewGate(adminID int64, store Store) *Gate {
	return &Gate{adminID: adminID, store: store}
}

func (g *Gate) AdminID() int64 {
	return g.adminID
}

func (g *Gate) IsAdmin(userID int64) bool {
	return userID == g.adminID
}

// IsAuthorized denies everyone but the admin when the store cannot be read.
func (g *Gate) IsAuthorized(ctx context.Context, userID int64) bool {
	if g.IsAdmin(userID) {
		return true
	}
	ids, err := g.store.Load(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Allow-list unavailable, denying access", "user_id", userID, "error", err)
		return false
	}
	return ids.Contains(userID)
}

// Grant adds userID to the allow-list and reports whether it was new.
func (g *Gate) Grant(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, errors.NewValidationError("user id must be a positive integer", "INVALID_USER_ID", "Use the numeric Telegram id, e.g. 12345678")
	}
	return g.store.Append(ctx, userID)
}

// List returns the allow-list in ascending order. The admin is implicit and
// only listed when stored explicitly.
func (g *Gate) List(ctx context.Context) ([]int64, error) {
	ids, err := g.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return ids.Sorted(), nil
}
