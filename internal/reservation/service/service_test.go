package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/bizcore/internal/auth/domain"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	catalogdomain "github.com/smallbiznis/bizcore/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/bizcore/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/bizcore/internal/catalog/service"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/config"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
	customerrepo "github.com/smallbiznis/bizcore/internal/customer/repository"
	customerservice "github.com/smallbiznis/bizcore/internal/customer/service"
	notificationdomain "github.com/smallbiznis/bizcore/internal/notification/domain"
	notificationrepo "github.com/smallbiznis/bizcore/internal/notification/repository"
	notificationservice "github.com/smallbiznis/bizcore/internal/notification/service"
	"github.com/smallbiznis/bizcore/internal/reference"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	"github.com/smallbiznis/bizcore/internal/reservation/domain"
	"github.com/smallbiznis/bizcore/internal/reservation/repository"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	pkgrepository "github.com/smallbiznis/bizcore/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const business = snowflake.ID(77)

var day = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC) // a Monday

type fixture struct {
	conn      *gorm.DB
	svc       domain.Service
	catalog   catalogdomain.Service
	customers customerdomain.Service
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest(
		&authdomain.User{}, &businessdomain.Business{}, &businessdomain.BusinessMember{},
		&referencedomain.Sequence{}, &customerdomain.Customer{},
		&catalogdomain.Category{}, &catalogdomain.Product{}, &catalogdomain.ProductVariant{},
		&catalogdomain.Attribute{}, &catalogdomain.AttributeValue{}, &catalogdomain.ProductAttribute{},
		&notificationdomain.Notification{}, &notificationdomain.NotificationPreference{},
		&domain.ServiceProvider{}, &domain.Reservation{}, &domain.ReservationService{},
		&domain.ReservationStatusHistory{}, &domain.ProviderAvailability{}, &domain.WaitingListEntry{},
	)
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(day.Add(8 * time.Hour))
	now := clk.Now()

	require.NoError(t, conn.Create(&businessdomain.Business{
		ID: business, Name: "Barberia Central", Slug: "barberia-central",
		Currency: "COP", Timezone: "America/Bogota", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, conn.Create(&businessdomain.BusinessMember{
		ID: node.Generate(), BusinessID: business, UserID: 20, Role: businessdomain.RoleEmployee,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	refs := reference.NewGenerator(reference.NewRepository(), zap.NewNop())
	catalog := catalogservice.New(catalogservice.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: catalogrepo.Provide(),
	})
	customers := customerservice.New(customerservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     customerrepo.Provide(),
		Store:    pkgrepository.ProvideStore[customerdomain.Customer](conn),
		Refs:     refs,
		Tunables: config.NewStaticTunables(config.DefaultTunables()),
	})
	notifier := notificationservice.New(notificationservice.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: notificationrepo.Provide(),
	})
	svc := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      repository.Provide(),
		Catalog:   catalog,
		Customers: customers,
		Refs:      refs,
		Notifier:  notifier,
	})
	ctx := bizcontext.WithBusiness(bizcontext.WithActor(context.Background(), bizcontext.Actor{UserID: 10}), business, nil)
	return &fixture{conn: conn, svc: svc, catalog: catalog, customers: customers, ctx: ctx}
}

func (f *fixture) provider(t *testing.T, name string, mutate func(*domain.ServiceProvider)) *domain.ServiceProvider {
	t.Helper()
	p := f.svc.Providers().New()
	p.Name = name
	if mutate != nil {
		mutate(p)
	}
	created, err := f.svc.Providers().Create(f.ctx, p)
	require.NoError(t, err)
	return created
}

func (f *fixture) book(providerID snowflake.ID, from, to string, mutate func(*domain.Reservation)) (*domain.Reservation, error) {
	r := f.svc.Reservations().New()
	r.CustomerName = "Walk-in"
	r.ServiceProviderID = &providerID
	r.StartDatetime = at(from)
	r.EndDatetime = at(to)
	if mutate != nil {
		mutate(r)
	}
	return f.svc.Reservations().Create(f.ctx, r)
}

func at(hm string) time.Time {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		panic(err)
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func TestOverlapUsesHalfOpenIntervals(t *testing.T) {
	f := newFixture(t)
	x := f.provider(t, "Carlos", nil)

	a, err := f.book(x.ID, "10:00", "11:00", nil)
	require.NoError(t, err)
	assert.Equal(t, "RES-20250303-0001", a.ReservationNumber)
	assert.Equal(t, int64(60), a.DurationMinutes)
	_, err = f.svc.Confirm(f.ctx, a.ID, "")
	require.NoError(t, err)

	_, err = f.book(x.ID, "10:30", "11:30", nil)
	assert.ErrorIs(t, err, domain.ErrOverlap)

	c, err := f.book(x.ID, "11:00", "12:00", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, c.Status)

	other := f.provider(t, "Maria", nil)
	_, err = f.book(other.ID, "10:30", "11:30", nil)
	assert.NoError(t, err)
}

func TestOverlapIgnoresClientOffset(t *testing.T) {
	f := newFixture(t)
	x := f.provider(t, "Carlos", nil)
	bogota := time.FixedZone("COT", -5*60*60)

	a, err := f.book(x.ID, "10:00", "11:00", func(r *domain.Reservation) {
		r.StartDatetime = r.StartDatetime.In(bogota)
		r.EndDatetime = r.EndDatetime.In(bogota)
	})
	require.NoError(t, err)

	stored, err := f.svc.Reservations().Get(f.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartDatetime.Equal(at("10:00")))
	_, offset := stored.StartDatetime.Zone()
	assert.Zero(t, offset)

	_, err = f.book(x.ID, "10:30", "11:30", nil)
	assert.ErrorIs(t, err, domain.ErrOverlap)

	_, err = f.book(x.ID, "09:30", "10:15", func(r *domain.Reservation) {
		r.StartDatetime = r.StartDatetime.In(bogota)
		r.EndDatetime = r.EndDatetime.In(bogota)
	})
	assert.ErrorIs(t, err, domain.ErrOverlap)
}

func TestOverlapRecheckedOnMoveAndReopen(t *testing.T) {
	f := newFixture(t)
	x := f.provider(t, "Carlos", nil)
	a, err := f.book(x.ID, "10:00", "11:00", nil)
	require.NoError(t, err)
	b, err := f.book(x.ID, "11:00", "12:00", nil)
	require.NoError(t, err)

	_, err = f.svc.Reservations().Update(f.ctx, b.ID, map[string]json.RawMessage{
		"start_datetime": json.RawMessage(`"` + at("10:45").Format(time.RFC3339) + `"`),
	})
	assert.ErrorIs(t, err, domain.ErrOverlap)

	_, err = f.svc.ChangeStatus(f.ctx, a.ID, domain.StatusChange{Status: domain.StatusCancelled, Notes: "enfermo"})
	require.NoError(t, err)
	moved, err := f.svc.Reservations().Update(f.ctx, b.ID, map[string]json.RawMessage{
		"start_datetime": json.RawMessage(`"` + at("10:30").Format(time.RFC3339) + `"`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(90), moved.DurationMinutes)

	_, err = f.svc.ChangeStatus(f.ctx, a.ID, domain.StatusChange{Status: domain.StatusPending})
	assert.ErrorIs(t, err, domain.ErrOverlap)
	got, err := f.svc.Reservations().Get(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.Equal(t, "enfermo", got.CancellationReason)
}

func TestConfirmRequiresPaidDeposit(t *testing.T) {
	f := newFixture(t)
	x := f.provider(t, "Carlos", func(p *domain.ServiceProvider) {
		uid := snowflake.ID(20)
		p.UserID = &uid
	})
	r, err := f.book(x.ID, "10:00", "11:00", func(r *domain.Reservation) {
		r.RequiresDeposit = true
		r.DepositAmount = decimal.NewFromInt(20000)
	})
	require.NoError(t, err)

	_, err = f.svc.Confirm(f.ctx, r.ID, "")
	assert.ErrorIs(t, err, domain.ErrDepositRequired)
	got, err := f.svc.Reservations().Get(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	_, err = f.svc.MarkDepositPaid(f.ctx, r.ID)
	require.NoError(t, err)
	confirmed, err := f.svc.Confirm(f.ctx, r.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, snowflake.ID(10), *confirmed.ConfirmedBy)
	assert.True(t, confirmed.IsUpcoming)

	_, err = f.svc.Confirm(f.ctx, r.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotPending)

	history, _, err := f.svc.History().List(f.ctx, pagination.Pagination{}, option.WithWhere("reservation_id = ?", r.ID))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusPending, history[0].PreviousStatus)
	assert.Equal(t, domain.StatusConfirmed, history[0].NewStatus)

	var notes []notificationdomain.Notification
	require.NoError(t, f.conn.Where("user_id = ?", 20).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, notificationdomain.TypeReservation, notes[0].Type)
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t)
	x := f.provider(t, "Carlos", nil)
	r, err := f.book(x.ID, "10:00", "11:00", nil)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(f.ctx, r.ID, domain.StatusChange{Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = f.svc.ChangeStatus(f.ctx, r.ID, domain.StatusChange{Status: domain.StatusCompleted})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	for _, s := range []domain.Status{domain.StatusConfirmed, domain.StatusInProgress, domain.StatusCompleted} {
		_, err = f.svc.ChangeStatus(f.ctx, r.ID, domain.StatusChange{Status: s})
		require.NoError(t, err, s)
	}
	_, err = f.svc.ChangeStatus(f.ctx, r.ID, domain.StatusChange{Status: domain.StatusCancelled})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Reservations().Update(f.ctx, r.ID, map[string]json.RawMessage{"notes": json.RawMessage(`"late"`)})
	assert.ErrorIs(t, err, domain.ErrReservationClosed)
}

func TestReservationRules(t *testing.T) {
	f := newFixture(t)
	x := f.provider(t, "Carlos", func(p *domain.ServiceProvider) { p.AcceptsWalkIns = false })
	off := f.provider(t, "Luis", func(p *domain.ServiceProvider) { p.IsActive = false })

	_, err := f.book(x.ID, "11:00", "10:00", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTimes)
	_, err = f.book(x.ID, "10:00", "11:00", func(r *domain.Reservation) { r.CustomerName = "" })
	assert.ErrorIs(t, err, domain.ErrCustomerRequired)
	_, err = f.book(x.ID, "10:00", "11:00", nil)
	assert.ErrorIs(t, err, domain.ErrNoWalkIns)
	_, err = f.book(off.ID, "10:00", "11:00", nil)
	assert.ErrorIs(t, err, domain.ErrInactiveProvider)
	_, err = f.book(snowflake.ID(12345), "10:00", "11:00", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	c := f.customers.New()
	c.FirstName = "Ana"
	c.LastName = "Gomez"
	c, err = f.customers.Create(f.ctx, c)
	require.NoError(t, err)
	r, err := f.book(x.ID, "10:00", "11:00", func(r *domain.Reservation) {
		r.CustomerID = &c.ID
		r.CustomerName = ""
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Gomez", r.CustomerName)
}

func TestAvailabilityBlocksSlots(t *testing.T) {
	f := newFixture(t)
	x := f.provider(t, "Carlos", nil)
	monday := int(time.Monday)

	_, err := f.svc.Availability().Create(f.ctx, &domain.ProviderAvailability{
		ServiceProviderID: x.ID, AvailabilityType: domain.AvailabilityBreak,
		Weekday: &monday, StartTime: "13:00", EndTime: "14:00", Reason: "almuerzo",
	})
	require.NoError(t, err)
	_, err = f.svc.Availability().Create(f.ctx, &domain.ProviderAvailability{
		ServiceProviderID: x.ID, AvailabilityType: domain.AvailabilityUnavailable,
		Date: db.DatePtr(day.AddDate(0, 0, 1)), StartTime: "00:00", EndTime: "23:59",
	})
	require.NoError(t, err)

	_, err = f.book(x.ID, "12:30", "13:30", nil)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	_, err = f.book(x.ID, "12:00", "13:00", nil)
	assert.NoError(t, err)
	_, err = f.book(x.ID, "14:00", "15:00", nil)
	assert.NoError(t, err)
	_, err = f.book(x.ID, "14:00", "15:00", func(r *domain.Reservation) {
		r.StartDatetime = r.StartDatetime.AddDate(0, 0, 1)
		r.EndDatetime = r.EndDatetime.AddDate(0, 0, 1)
	})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	_, err = f.svc.Availability().Create(f.ctx, &domain.ProviderAvailability{
		ServiceProviderID: x.ID, AvailabilityType: domain.AvailabilityBreak, StartTime: "13:00", EndTime: "14:00",
	})
	assert.ErrorIs(t, err, domain.ErrAvailabilityDay)
	_, err = f.svc.Availability().Create(f.ctx, &domain.ProviderAvailability{
		ServiceProviderID: x.ID, AvailabilityType: domain.AvailabilityBreak, Weekday: &monday, StartTime: "14:00", EndTime: "13:00",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAvailabilitySpan)
}

func TestServicesResumTotal(t *testing.T) {
	f := newFixture(t)
	x := f.provider(t, "Carlos", nil)
	r, err := f.book(x.ID, "10:00", "11:00", nil)
	require.NoError(t, err)

	cut := f.catalog.Products().New()
	cut.Name = "Corte"
	cut.SKU = "CORTE"
	cut.BasePrice = decimal.NewFromInt(25000)
	cut.TrackInventory = false
	cut, err = f.catalog.Products().Create(f.ctx, cut)
	require.NoError(t, err)

	first, err := f.svc.Services().Create(f.ctx, &domain.ReservationService{ReservationID: r.ID, ProductID: cut.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "25000.00", first.Total.StringFixed(2))
	_, err = f.svc.Services().Create(f.ctx, &domain.ReservationService{
		ReservationID: r.ID, ProductID: cut.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(10000), DiscountAmount: decimal.NewFromInt(5000),
	})
	require.NoError(t, err)

	got, err := f.svc.Reservations().Get(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "40000.00", got.TotalAmount.StringFixed(2))

	require.NoError(t, f.svc.Services().Delete(f.ctx, first.ID))
	got, err = f.svc.Reservations().Get(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "15000.00", got.TotalAmount.StringFixed(2))

	_, err = f.svc.Services().Create(f.ctx, &domain.ReservationService{
		ReservationID: r.ID, ProductID: cut.ID, Quantity: 1, DiscountAmount: decimal.NewFromInt(30000),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)
}

func TestProviderWorkingHoursValidated(t *testing.T) {
	f := newFixture(t)
	p := f.svc.Providers().New()
	p.Name = "Carlos"
	p.WorkingHours = datatypes.NewJSONType(domain.WorkingHours{
		"monday": {Span: domain.Span{Start: "09:00", End: "18:00"}, Breaks: []domain.Span{{Start: "13:00", End: "14:00"}}},
	})
	_, err := f.svc.Providers().Create(f.ctx, p)
	require.NoError(t, err)

	p = f.svc.Providers().New()
	p.Name = "Luis"
	p.WorkingHours = datatypes.NewJSONType(domain.WorkingHours{
		"funday": {Span: domain.Span{Start: "09:00", End: "18:00"}},
	})
	_, err = f.svc.Providers().Create(f.ctx, p)
	assert.ErrorIs(t, err, domain.ErrInvalidWorkingHours)

	p.WorkingHours = datatypes.NewJSONType(domain.WorkingHours{
		"monday": {Span: domain.Span{Start: "09:00", End: "18:00"}, Breaks: []domain.Span{{Start: "17:30", End: "19:00"}}},
	})
	_, err = f.svc.Providers().Create(f.ctx, p)
	assert.ErrorIs(t, err, domain.ErrInvalidWorkingHours)
}

func TestWaitingListNotifiedStamp(t *testing.T) {
	f := newFixture(t)
	entry, err := f.svc.WaitingList().Create(f.ctx, &domain.WaitingListEntry{CustomerName: "Pedro", Status: domain.WaitingOpen})
	require.NoError(t, err)
	assert.Nil(t, entry.NotifiedAt)

	entry, err = f.svc.WaitingList().Update(f.ctx, entry.ID, map[string]json.RawMessage{"status": json.RawMessage(`"notified"`)})
	require.NoError(t, err)
	require.NotNil(t, entry.NotifiedAt)

	_, err = f.svc.WaitingList().Update(f.ctx, entry.ID, map[string]json.RawMessage{"status": json.RawMessage(`"lost"`)})
	assert.ErrorIs(t, err, domain.ErrInvalidWaitingStatus)
}
