package webhook

import (
	"context"
	"net/http"
	"testing"

	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/internal/payment/adapters"
	"github.com/smallbiznis/bizcore/internal/payment/adapters/generic"
	paymentdomain "github.com/smallbiznis/bizcore/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPayments struct {
	paymentdomain.Service
	events []*paymentdomain.Event
}

func (r *recordingPayments) ProcessEvent(ctx context.Context, event *paymentdomain.Event, payload []byte) (*paymentdomain.WebhookEvent, error) {
	r.events = append(r.events, event)
	return &paymentdomain.WebhookEvent{Provider: event.Provider, ExternalID: event.ExternalID, EventType: event.Type}, nil
}

func newIngester(payments paymentdomain.Service) paymentdomain.Ingester {
	return NewService(Params{
		Log:      zap.NewNop(),
		Payments: payments,
		Adapters: adapters.NewRegistry(generic.NewFactory(paymentdomain.ProviderPayPal), generic.NewFactory(paymentdomain.ProviderOther)),
		Cfg:      config.Config{PaymentWebhookSecrets: map[string]string{"paypal": "pp-secret"}},
	})
}

func signed(secret string, payload []byte) http.Header {
	headers := http.Header{}
	headers.Set(generic.SignatureHeader, generic.Sign(secret, payload))
	return headers
}

func TestIngestWebhook(t *testing.T) {
	payments := &recordingPayments{}
	ingester := newIngester(payments)
	payload := []byte(`{"id":"WH-1","type":"payment.captured","data":{"reference":"PAYID-9"}}`)

	record, err := ingester.IngestWebhook(context.Background(), "PayPal", payload, signed("pp-secret", payload))
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "WH-1", record.ExternalID)
	require.Len(t, payments.events, 1)
	assert.Equal(t, "paypal", payments.events[0].Provider)
	assert.Equal(t, "PAYID-9", payments.events[0].ProviderReference)
}

func TestIngestWebhookRejects(t *testing.T) {
	payments := &recordingPayments{}
	ingester := newIngester(payments)
	payload := []byte(`{"id":"WH-2","type":"payment.failed","data":{"reference":"PAYID-9"}}`)
	ctx := context.Background()

	_, err := ingester.IngestWebhook(ctx, "paypal", payload, signed("wrong", payload))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	_, err = ingester.IngestWebhook(ctx, "square", payload, signed("pp-secret", payload))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidProvider)

	// Registered but no secret configured.
	_, err = ingester.IngestWebhook(ctx, "other", payload, signed("", payload))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)

	_, err = ingester.IngestWebhook(ctx, "paypal", []byte(`{broken`), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	assert.Empty(t, payments.events)
}

func TestIngestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	payments := &recordingPayments{}
	ingester := newIngester(payments)
	payload := []byte(`{"id":"WH-3","type":"customer.updated"}`)

	record, err := ingester.IngestWebhook(context.Background(), "paypal", payload, signed("pp-secret", payload))
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, payments.events)
}
