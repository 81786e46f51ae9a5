package generic

import (
	"context"
	"net/http"
	"testing"

	paymentdomain "github.com/smallbiznis/bizcore/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAndParse(t *testing.T) {
	adapter, err := NewFactory(paymentdomain.ProviderMercadoPago).NewAdapter(paymentdomain.AdapterConfig{WebhookSecret: "s3cret"})
	require.NoError(t, err)

	payload := []byte(`{"id":"evt_9","type":"payment.refunded","created":1740819600,"data":{"reference":"mp-77","amount":"12.50"}}`)
	headers := http.Header{}
	headers.Set(SignatureHeader, Sign("s3cret", payload))
	require.NoError(t, adapter.Verify(context.Background(), payload, headers))

	headers.Set(SignatureHeader, Sign("other", payload))
	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, headers), paymentdomain.ErrInvalidSignature)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "mercadopago", event.Provider)
	assert.Equal(t, "evt_9", event.ExternalID)
	assert.Equal(t, paymentdomain.EventRefunded, event.Type)
	assert.Equal(t, "mp-77", event.ProviderReference)
	assert.Equal(t, "12.50", event.Amount.StringFixed(2))
	assert.Equal(t, int64(1740819600), event.OccurredAt.Unix())
}

func TestParseIgnoresUnknownTypes(t *testing.T) {
	adapter := &Adapter{provider: paymentdomain.ProviderPayPal, secret: "x"}
	_, err := adapter.Parse(context.Background(), []byte(`{"id":"evt_1","type":"payout.sent"}`))
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)

	_, err = adapter.Parse(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}

func TestFactoryRequiresSecret(t *testing.T) {
	_, err := NewFactory(paymentdomain.ProviderOther).NewAdapter(paymentdomain.AdapterConfig{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)
}
