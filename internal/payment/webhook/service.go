package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/bizcore/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Payments paymentdomain.Service
	Adapters *adapters.Registry
	Cfg      config.Config
}

type Service struct {
	log      *zap.Logger
	payments paymentdomain.Service
	adapters *adapters.Registry
	secrets  map[string]string
}

func NewService(p Params) paymentdomain.Ingester {
	return &Service{
		log:      p.Log.Named("payment.webhook"),
		payments: p.Payments,
		adapters: p.Adapters,
		secrets:  p.Cfg.PaymentWebhookSecrets,
	}
}

// IngestWebhook verifies and parses a gateway webhook and hands it to the
// payment service. Events the gateway sends that carry no payment meaning
// return a nil event and no error.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*paymentdomain.WebhookEvent, error) {
	gateway, err := s.adapters.Resolve(provider)
	if err != nil {
		return nil, err
	}
	if !json.Valid(payload) {
		return nil, paymentdomain.ErrInvalidPayload
	}

	provider = string(gateway)
	adapter, err := s.adapters.NewAdapter(gateway, s.secrets[provider])
	if err != nil {
		s.log.Warn("payment webhook adapter unavailable", zap.String("provider", provider), zap.Error(err))
		return nil, err
	}
	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("payment webhook rejected", zap.String("provider", provider), zap.Error(err))
		return nil, err
	}

	event, err := adapter.Parse(ctx, payload)
	if errors.Is(err, paymentdomain.ErrEventIgnored) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	event.Provider = provider
	return s.payments.ProcessEvent(ctx, event, payload)
}
