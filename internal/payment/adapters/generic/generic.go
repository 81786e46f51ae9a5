// Package generic reads the provider-neutral webhook envelope used for
// gateways without a dedicated adapter:
//
//	{"id":"evt_1","type":"payment.refunded","created":1700000000,
//	 "data":{"reference":"ref-9","amount":"12.50","reason":""}}
//
// Requests are signed with a hex HMAC-SHA256 of the raw body in X-Webhook-Signature.
package generic

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/bizcore/internal/payment/domain"
)

const SignatureHeader = "X-Webhook-Signature"

type Factory struct {
	provider paymentdomain.Provider
}

func NewFactory(provider paymentdomain.Provider) *Factory {
	return &Factory{provider: provider}
}

func (f *Factory) Provider() string {
	return string(f.provider)
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.Adapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Adapter{provider: f.provider, secret: secret}, nil
}

type Adapter struct {
	provider paymentdomain.Provider
	secret   string
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	signature := strings.ToLower(strings.TrimSpace(headers.Get(SignatureHeader)))
	if signature == "" {
		return paymentdomain.ErrInvalidSignature
	}
	if !hmac.Equal([]byte(signature), []byte(Sign(a.secret, payload))) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

type envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Reference string          `json:"reference"`
		Amount    decimal.Decimal `json:"amount"`
		Reason    string          `json:"reason"`
	} `json:"data"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	switch env.Type {
	case paymentdomain.EventCaptured, paymentdomain.EventFailed, paymentdomain.EventRefunded:
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
	occurred := time.Now().UTC()
	if env.Created > 0 {
		occurred = time.Unix(env.Created, 0).UTC()
	}
	return &paymentdomain.Event{
		Provider:          string(a.provider),
		ExternalID:        env.ID,
		Type:              env.Type,
		ProviderReference: env.Data.Reference,
		Amount:            env.Data.Amount,
		Reason:            env.Data.Reason,
		OccurredAt:        occurred,
	}, nil
}

// Sign returns the signature a sender must put in SignatureHeader.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
