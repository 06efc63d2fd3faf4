// Package identity hands out the stable per-install client id.
package identity

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/store"
)

const KeyClientID = "clientid"

type Provider struct {
	mu    sync.Mutex
	store store.Store
	newID func() string
}

func NewProvider(s store.Store) *Provider {
	return &Provider{store: s, newID: uuid.NewString}
}

// GetOrCreate returns the persisted client id, minting and saving one on
// first use.
func (p *Provider) GetOrCreate() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.store.Get(KeyClientID); ok && id != "" {
		return id, nil
	}
	id := p.newID()
	if err := p.store.Set(KeyClientID, id); err != nil {
		return "", fmt.Errorf("identity: persist client id: %w", err)
	}
	logs.Infof("identity.Provider.GetOrCreate minted client=%s", id)
	return id, nil
}
