// internal/quota/quota.go
package quota

import (
	"context"

	"pr-review-service/internal/database"
	"pr-review-service/internal/model"
)

// Guard adjudicates repository-connection attempts against the user's
// subscription tier. It has no side effects; the authoritative reservation
// happens later in the store's connect transaction. The pre-check exists so a
// plainly over-quota user is refused before any remote call is made.
type Guard struct {
	db            database.Querier
	freeTierLimit int
}

// NewGuard creates a Guard. freeTierLimit is the maximum number of connected
// repositories for FREE-tier users; PRO is unbounded.
func NewGuard(db database.Querier, freeTierLimit int) *Guard {
	return &Guard{db: db, freeTierLimit: freeTierLimit}
}

// CanConnectRepository reports whether the user may connect another
// repository. It reads fresh state on every call; the result must not be
// cached across the check-then-act window.
func (g *Guard) CanConnectRepository(ctx context.Context, userID string) (bool, error) {
	user, err := g.db.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.SubscriptionTier == model.TierPro {
		return true, nil
	}
	return user.RepositoryCount < g.freeTierLimit, nil
}
