// Package lock provides a Redis-backed lease so only one provisioning run
// mutates a given engine at a time.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/search-provisioner/pkg/errors"
)

const keyPrefix = "searchprov:lease:"

// releaseScript deletes the lease only if it is still held by the releasing
// owner, so an expired lease re-acquired by someone else is never clobbered.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Manager acquires leases against a single Redis instance.
type Manager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewManager creates a lease manager. ttl bounds how long a crashed run can
// keep the lease.
func NewManager(client *redis.Client, ttl time.Duration) *Manager {
	return &Manager{client: client, ttl: ttl}
}

// Lease is one acquired lease. Release it when the run finishes.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lease named by scope (typically the engine URL or index
// UID). Returns a pkg/errors LeaseHeld error when another holder owns it.
func (m *Manager) Acquire(ctx context.Context, scope, owner string) (*Lease, error) {
	key := keyPrefix + scope
	token := owner + ":" + uuid.New().String()

	ok, err := m.client.SetNX(ctx, key, token, m.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", scope, err)
	}
	if !ok {
		holder, err := m.client.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("read lease holder %s: %w", scope, err)
		}
		return nil, apperrors.LeaseHeld(holder)
	}

	return &Lease{client: m.client, key: key, token: token}, nil
}

// Release gives the lease back. Releasing a lease that already expired (and
// may belong to someone else now) is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}
