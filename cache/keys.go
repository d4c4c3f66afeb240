package cache

import (
	"context"
	"fmt"
	"time"
)

// Key names and channels.
const (
	// PicksKey is a hash of character id → times chosen.
	PicksKey = "charselect:picks"
	// SelectionChannel carries a JSON event per confirmed selection.
	SelectionChannel = "charselect"
)

// LeaseKey is the key guarding which connection drives a save.
func LeaseKey(saveID int64) string {
	return fmt.Sprintf("charselect:lease:%d", saveID)
}

// AcquireLease takes key for owner if it is free or already owner's.
func AcquireLease(ctx context.Context, c Cache, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.SetNX(ctx, key, owner, ttl)
	if err != nil || ok {
		return ok, err
	}
	cur, err := c.Get(ctx, key)
	if IsNotFound(err) {
		return c.SetNX(ctx, key, owner, ttl)
	}
	if err != nil {
		return false, err
	}
	if cur != owner {
		return false, nil
	}
	return true, c.Expire(ctx, key, ttl)
}

// ReleaseLease deletes key if owner still holds it.
func ReleaseLease(ctx context.Context, c Cache, key, owner string) error {
	cur, err := c.Get(ctx, key)
	if IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if cur != owner {
		return nil
	}
	return c.Del(ctx, key)
}
