package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/internal/payment/domain"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *Service) ProcessEvent(ctx context.Context, event *domain.Event, payload []byte) (*domain.WebhookEvent, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	if !json.Valid(payload) {
		return nil, domain.ErrInvalidPayload
	}

	record := &domain.WebhookEvent{
		ID:         s.genID.Generate(),
		Provider:   event.Provider,
		ExternalID: event.ExternalID,
		EventType:  event.Type,
		Payload:    datatypes.JSON(payload),
		ReceivedAt: s.clock.Now(),
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, record)
	if err != nil {
		return nil, err
	}
	if !inserted {
		stored, err := s.repo.FindEvent(ctx, s.db, event.Provider, event.ExternalID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, domain.ErrInvalidEvent
		}
		s.log.Info("duplicate payment webhook ignored",
			zap.String("provider", event.Provider),
			zap.String("external_id", event.ExternalID),
		)
		return stored, nil
	}

	// Failures to apply are kept on the event; the gateway gets a 2xx either way.
	if err := s.applyEvent(ctx, record, event); err != nil {
		record.Error = eventError(err)
		s.log.Warn("payment webhook not applied",
			zap.String("provider", event.Provider),
			zap.String("external_id", event.ExternalID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
	} else {
		now := s.clock.Now()
		record.Processed = true
		record.ProcessedAt = &now
	}
	if err := s.repo.SaveEventResult(ctx, s.db, record); err != nil {
		return nil, err
	}
	return record, nil
}

func validateEvent(event *domain.Event) error {
	if event == nil {
		return domain.ErrInvalidEvent
	}
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	if !domain.Provider(event.Provider).Valid() {
		return domain.ErrInvalidProvider
	}
	event.ExternalID = strings.TrimSpace(event.ExternalID)
	event.Type = strings.TrimSpace(event.Type)
	event.ProviderReference = strings.TrimSpace(event.ProviderReference)
	if event.ExternalID == "" || event.ProviderReference == "" {
		return domain.ErrInvalidEvent
	}
	switch event.Type {
	case domain.EventCaptured, domain.EventFailed:
	case domain.EventRefunded:
		if event.Amount.IsNegative() {
			return domain.ErrInvalidAmount
		}
	default:
		return domain.ErrInvalidEvent
	}
	return nil
}

func (s *Service) applyEvent(ctx context.Context, record *domain.WebhookEvent, event *domain.Event) error {
	pay, err := s.repo.FindByReference(ctx, s.db, domain.Provider(event.Provider), event.ProviderReference)
	if err != nil {
		return err
	}
	if pay == nil {
		return domain.ErrUnknownReference
	}
	record.BusinessID = &pay.BusinessID
	record.PaymentID = &pay.ID

	// Gateways are not members; the payment's business scopes the work.
	ctx = bizcontext.WithBusiness(ctx, pay.BusinessID, nil)
	var fn applyFunc
	switch event.Type {
	case domain.EventCaptured:
		fn = s.capture
	case domain.EventFailed:
		fn = func(ctx context.Context, tx *gorm.DB, p *domain.Payment) error {
			return s.close(ctx, tx, p, domain.StatusFailed, event.Reason)
		}
	case domain.EventRefunded:
		fn = func(ctx context.Context, tx *gorm.DB, p *domain.Payment) error {
			return s.refund(ctx, tx, p, event.Amount)
		}
	}
	_, err = s.transition(ctx, pay.ID, event.Type, fn)
	return err
}

func eventError(err error) string {
	if appErr, ok := apperror.As(err); ok {
		return appErr.Code
	}
	return err.Error()
}

func (s *Service) Events(ctx context.Context, page pagination.Pagination) ([]*domain.WebhookEvent, *pagination.PageInfo, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, nil, crud.ErrInvalidBusiness
	}
	afterID, pageSize, err := page.Normalize()
	if err != nil {
		return nil, nil, apperror.Validation("page_token", "invalid_page_token", "invalid page token")
	}
	events, err := s.repo.ListEvents(ctx, s.db, businessID, afterID, pageSize)
	if err != nil {
		return nil, nil, err
	}
	events, info := pagination.BuildCursorPageInfo(events, pageSize, func(e *domain.WebhookEvent) snowflake.ID { return e.ID })
	return events, info, nil
}
