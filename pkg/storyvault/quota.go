package storyvault

import (
	"context"
	"fmt"
)

// Quotas holds the configured per-user entity limits. A zero or negative
// limit means unlimited.
type Quotas struct {
	SessionLimit int
	StoryLimit   int
}

// LimitFor returns the configured limit for an entity type.
func (q Quotas) LimitFor(entityType EntityType) int {
	switch entityType {
	case EntityTypeSession:
		return q.SessionLimit
	case EntityTypeStory:
		return q.StoryLimit
	}
	return 0
}

// EntityCounter counts live entities of a type for an owner.
type EntityCounter interface {
	Count(ctx context.Context, entityType EntityType, ownerID string) (int, error)
}

// QuotaGuard enforces per-user object-count ceilings against live storage
// state. Each check recounts the owner's objects rather than consulting a
// cached counter, trading read amplification for correctness under
// interleaved creates and deletes.
//
// Two concurrent creates by the same user can both pass the check before
// either commits, overshooting the limit by the degree of concurrency. The
// backing store offers no atomic check-and-increment, so this transient
// overshoot is an accepted weak consistency guarantee.
type QuotaGuard struct {
	counter EntityCounter
	quotas  Quotas
}

// NewQuotaGuard creates a guard over the given counter and limits.
func NewQuotaGuard(counter EntityCounter, quotas Quotas) *QuotaGuard {
	return &QuotaGuard{counter: counter, quotas: quotas}
}

// Check returns a QuotaExceededError once the owner's live count has reached
// the configured limit for the type. It must run before the save of a create
// operation.
func (g *QuotaGuard) Check(ctx context.Context, ownerID string, entityType EntityType) error {
	limit := g.quotas.LimitFor(entityType)
	if limit <= 0 {
		return nil
	}

	count, err := g.counter.Count(ctx, entityType, ownerID)
	if err != nil {
		return fmt.Errorf("counting %s objects for quota check: %w", entityType, err)
	}
	if count >= limit {
		return &QuotaExceededError{OwnerID: ownerID, Type: entityType, Limit: limit, Count: count}
	}
	return nil
}
