package relay

import (
	"context"
	"sync"

	"github.com/purpleshop/filebridge/pkg/platform"
)

// identityName is the fixed name of the per-channel relay webhook.
const identityName = "filebridge-relay"

// IdentityRegistry caches the per-channel impersonation identity. Lookups
// are read-mostly; a create race at worst produces a duplicate identity on
// the platform, which EnsureIdentity resolves by reusing the existing one
// on the next miss.
type IdentityRegistry struct {
	client platform.Client

	mu        sync.RWMutex
	byChannel map[string]platform.Identity
}

func NewIdentityRegistry(client platform.Client) *IdentityRegistry {
	return &IdentityRegistry{
		client:    client,
		byChannel: make(map[string]platform.Identity),
	}
}

// Lookup returns the cached identity for a channel, creating it on first
// use.
func (r *IdentityRegistry) Lookup(ctx context.Context, channelID string) (platform.Identity, error) {
	r.mu.RLock()
	id, ok := r.byChannel[channelID]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := r.client.EnsureIdentity(ctx, channelID, identityName)
	if err != nil {
		return platform.Identity{}, err
	}

	r.mu.Lock()
	r.byChannel[channelID] = id
	r.mu.Unlock()
	return id, nil
}
