package adapters_test

import (
	"testing"

	"github.com/smallbiznis/bizcore/internal/payment/adapters"
	"github.com/smallbiznis/bizcore/internal/payment/adapters/generic"
	"github.com/smallbiznis/bizcore/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/bizcore/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesWebhookGateways(t *testing.T) {
	registry := adapters.NewRegistry(
		stripe.NewFactory(),
		generic.NewFactory(paymentdomain.ProviderPayPal),
		generic.NewFactory(paymentdomain.ProviderManual),
		generic.NewFactory("bitcoin"),
		nil,
	)

	provider, err := registry.Resolve(" PayPal ")
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.ProviderPayPal, provider)

	for _, name := range []string{"manual", "bitcoin", "mercadopago", ""} {
		_, err := registry.Resolve(name)
		assert.ErrorIs(t, err, paymentdomain.ErrInvalidProvider, name)
	}
}

func TestRegistryNewAdapterNeedsSecret(t *testing.T) {
	registry := adapters.NewRegistry(stripe.NewFactory())

	adapter, err := registry.NewAdapter(paymentdomain.ProviderStripe, "whsec_test")
	require.NoError(t, err)
	assert.NotNil(t, adapter)

	_, err = registry.NewAdapter(paymentdomain.ProviderStripe, " ")
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)

	_, err = registry.NewAdapter(paymentdomain.ProviderOther, "s3cret")
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidProvider)
}

func TestNilRegistryResolvesNothing(t *testing.T) {
	var registry *adapters.Registry
	_, err := registry.Resolve("stripe")
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidProvider)
}
