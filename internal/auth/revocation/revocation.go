// Package revocation keeps the list of access tokens that were logged out
// before they expired.
package revocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"datatrail/pkg/platform/sentinel"
)

// List records revoked token ids until their natural expiry.
type List interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Clock returns the current time.
type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// InMemoryTRL is a single-process revocation list for development and tests.
type InMemoryTRL struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	clock   Clock
}

var _ List = (*InMemoryTRL)(nil)

// NewInMemoryTRL creates an empty in-memory list.
func NewInMemoryTRL(clock Clock) *InMemoryTRL {
	if clock == nil {
		clock = time.Now
	}
	return &InMemoryTRL{revoked: make(map[string]time.Time), clock: clock}
}

// RevokeToken marks jti revoked for ttl.
func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = t.clock().Add(ttl)
	return nil
}

// IsTokenRevoked reports whether jti is revoked and not yet expired.
func (t *InMemoryTRL) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	if !t.clock().Before(until) {
		delete(t.revoked, jti)
		return false, nil
	}
	return true, nil
}
