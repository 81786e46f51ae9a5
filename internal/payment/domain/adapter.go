package domain

import (
	"context"
	"net/http"
)

type AdapterConfig struct {
	Provider      string
	WebhookSecret string
}

// Adapter turns one gateway's webhook format into Events.
type Adapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Event, error)
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Adapter, error)
}
