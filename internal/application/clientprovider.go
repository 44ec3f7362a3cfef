package application

import (
	"sync"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// GatewayProvider enables runtime hot-swap of the notification gateway. The
// poll loop reads the current gateway at the start of every cycle, so a new
// token takes effect without restarting the process.
type GatewayProvider struct {
	mu      sync.RWMutex
	gateway driven.NotificationGateway
	repo    model.Repository
}

// NewGatewayProvider creates a provider holding gateway for repo. gateway may
// be nil when no credentials are available at startup.
func NewGatewayProvider(gateway driven.NotificationGateway, repo model.Repository) *GatewayProvider {
	return &GatewayProvider{gateway: gateway, repo: repo}
}

// Get returns the current gateway, or nil.
func (p *GatewayProvider) Get() driven.NotificationGateway {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gateway
}

// Repository returns the repository the current gateway serves.
func (p *GatewayProvider) Repository() model.Repository {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.repo
}

// Replace swaps the current gateway. The next cycle uses the new value.
func (p *GatewayProvider) Replace(gateway driven.NotificationGateway, repo model.Repository) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gateway = gateway
	p.repo = repo
}

// HasGateway returns true if a non-nil gateway is currently held.
func (p *GatewayProvider) HasGateway() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gateway != nil
}
