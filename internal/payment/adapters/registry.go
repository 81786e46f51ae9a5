package adapters

import (
	"strings"

	"github.com/smallbiznis/bizcore/internal/payment/domain"
)

// Registry maps the gateways that post webhooks to their adapter factories.
// Manual payments never arrive by webhook, so a manual factory is ignored.
type Registry struct {
	factories map[domain.Provider]domain.AdapterFactory
}

func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	r := &Registry{factories: make(map[domain.Provider]domain.AdapterFactory, len(factories))}
	for _, f := range factories {
		if f == nil {
			continue
		}
		provider := domain.Provider(f.Provider())
		if !provider.Valid() || provider == domain.ProviderManual {
			continue
		}
		r.factories[provider] = f
	}
	return r
}

// Resolve turns the gateway segment of a webhook URL into a registered provider.
func (r *Registry) Resolve(name string) (domain.Provider, error) {
	provider := domain.Provider(strings.ToLower(strings.TrimSpace(name)))
	if r == nil || r.factories[provider] == nil {
		return "", domain.ErrInvalidProvider
	}
	return provider, nil
}

// NewAdapter builds a verifying adapter for provider using its signing secret.
func (r *Registry) NewAdapter(provider domain.Provider, secret string) (domain.Adapter, error) {
	if _, err := r.Resolve(string(provider)); err != nil {
		return nil, err
	}
	return r.factories[provider].NewAdapter(domain.AdapterConfig{
		Provider:      string(provider),
		WebhookSecret: secret,
	})
}
