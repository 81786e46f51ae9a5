package payment

import (
	"github.com/smallbiznis/bizcore/internal/payment/adapters"
	"github.com/smallbiznis/bizcore/internal/payment/adapters/generic"
	"github.com/smallbiznis/bizcore/internal/payment/adapters/stripe"
	"github.com/smallbiznis/bizcore/internal/payment/domain"
	"github.com/smallbiznis/bizcore/internal/payment/repository"
	paymentservice "github.com/smallbiznis/bizcore/internal/payment/service"
	"github.com/smallbiznis/bizcore/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(NewRegistry),
	fx.Provide(paymentservice.New),
	fx.Provide(webhook.NewService),
)

// NewRegistry wires every gateway that can post webhooks.
func NewRegistry() *adapters.Registry {
	return adapters.NewRegistry(
		stripe.NewFactory(),
		generic.NewFactory(domain.ProviderPayPal),
		generic.NewFactory(domain.ProviderMercadoPago),
		generic.NewFactory(domain.ProviderOther),
	)
}
