package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/auth/domain"
	"github.com/smallbiznis/bizcore/internal/auth/repository"
	"github.com/smallbiznis/bizcore/internal/auth/token"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	logs  *observer.ObservedLogs
	node  *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest(
		&domain.User{}, &domain.RefreshToken{}, &domain.PasswordResetToken{},
		&businessdomain.Business{}, &businessdomain.BusinessMember{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))
	cfg := config.Config{AuthJWTSecret: "test-secret", AuthJWTIssuer: "bizcore"}
	core, logs := observer.New(zapcore.DebugLevel)

	svc := New(Params{
		DB:     conn,
		Log:    zap.New(core),
		GenID:  node,
		Repo:   repository.Provide(),
		Tokens: token.NewManager(cfg, clk),
		Clock:  clk,
		Config: cfg,
	})
	return &fixture{svc: svc, db: conn, clock: clk, logs: logs, node: node}
}

func (f *fixture) register(t *testing.T, email string) *domain.AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Email:     email,
		Password:  "correct-password",
		FirstName: "Ana",
		LastName:  "Gomez",
	})
	require.NoError(t, err)
	return res
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "Ana@Example.com")

	assert.Equal(t, "ana@example.com", res.User.Email)
	assert.Equal(t, domain.UserTypeBusinessOwner, res.User.UserType)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)

	login, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: "ana@example.com", Password: "correct-password"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
	assert.Empty(t, login.Memberships)
	assert.NotNil(t, login.User.LastLoginAt)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dup@example.com")

	_, err := f.svc.Register(context.Background(), domain.RegisterRequest{Email: "dup@example.com", Password: "another-password"})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = f.svc.Register(context.Background(), domain.RegisterRequest{Email: "short@example.com", Password: "1234567"})
	assert.ErrorIs(t, err, domain.ErrPasswordTooShort)

	_, err = f.svc.Register(context.Background(), domain.RegisterRequest{Email: "not-an-email", Password: "long-enough"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestLoginWrongPasswordAndUnknownUser(t *testing.T) {
	f := newFixture(t)
	f.register(t, "bob@example.com")

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: "bob@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), domain.LoginRequest{Email: "nobody@example.com", Password: "whatever-pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "inactive@example.com")
	require.NoError(t, f.db.Model(&domain.User{}).Where("id = ?", res.User.ID).Update("is_active", false).Error)

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: "inactive@example.com", Password: "correct-password"})
	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestLoginReturnsMemberships(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "owner@example.com")

	now := f.clock.Now()
	business := businessdomain.Business{
		ID: f.node.Generate(), Name: "Cafe Uno", Slug: "cafe-uno", Currency: "COP",
		Timezone: "America/Bogota", SubscriptionStatus: businessdomain.SubscriptionTrial,
		IsActive: true, CreatedBy: res.User.ID, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&business).Error)
	require.NoError(t, f.db.Create(&businessdomain.BusinessMember{
		ID: f.node.Generate(), BusinessID: business.ID, UserID: res.User.ID,
		Role: businessdomain.RoleOwner, Permissions: datatypes.NewJSONType(map[string]bool{}),
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	login, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: "owner@example.com", Password: "correct-password"})
	require.NoError(t, err)
	require.Len(t, login.Memberships, 1)
	assert.Equal(t, business.ID, login.Memberships[0].BusinessID)
	assert.Equal(t, "cafe-uno", login.Memberships[0].Slug)
	assert.Equal(t, "owner", login.Memberships[0].Role)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "rotate@example.com")

	pair, err := f.svc.Refresh(context.Background(), domain.RefreshRequest{RefreshToken: res.Tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, res.Tokens.RefreshToken, pair.RefreshToken)

	_, err = f.svc.Refresh(context.Background(), domain.RefreshRequest{RefreshToken: res.Tokens.RefreshToken})
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "logout@example.com")

	require.NoError(t, f.svc.Logout(context.Background(), res.Tokens.RefreshToken))
	_, err := f.svc.Refresh(context.Background(), domain.RefreshRequest{RefreshToken: res.Tokens.RefreshToken})
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)

	assert.ErrorIs(t, f.svc.Logout(context.Background(), "garbage"), domain.ErrInvalidToken)
}

func TestAuthenticateAndMe(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "me@example.com")

	user, err := f.svc.Authenticate(context.Background(), res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)

	_, err = f.svc.Authenticate(context.Background(), res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	ctx := bizcontext.WithActor(context.Background(), bizcontext.Actor{UserID: user.ID})
	phone := " 3001234567 "
	updated, err := f.svc.UpdateMe(ctx, domain.UpdateProfileRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "3001234567", updated.Phone)

	me, err := f.svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3001234567", me.Phone)
	assert.Equal(t, "Ana Gomez", me.FullName())
}

func TestChangePasswordRevokesEarlierTokens(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "change@example.com")
	ctx := bizcontext.WithActor(context.Background(), bizcontext.Actor{UserID: res.User.ID})

	_, err := f.svc.ChangePassword(ctx, domain.ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "brand-new-pass"})
	assert.ErrorIs(t, err, domain.ErrWrongPassword)

	f.clock.Advance(2 * time.Second)
	pair, err := f.svc.ChangePassword(ctx, domain.ChangePasswordRequest{CurrentPassword: "correct-password", NewPassword: "brand-new-pass"})
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), res.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
	_, err = f.svc.Authenticate(context.Background(), pair.AccessToken)
	assert.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), domain.RefreshRequest{RefreshToken: res.Tokens.RefreshToken})
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)

	_, err = f.svc.Login(context.Background(), domain.LoginRequest{Email: "change@example.com", Password: "brand-new-pass"})
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	f.register(t, "reset@example.com")

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "reset@example.com"))

	entries := f.logs.FilterMessage("password reset token issued").All()
	require.Len(t, entries, 1)
	raw := entries[0].ContextMap()["reset_token"].(string)

	err := f.svc.ConfirmPasswordReset(context.Background(), raw, "short")
	require.Error(t, err)

	require.NoError(t, f.svc.ConfirmPasswordReset(context.Background(), raw, "reset-password-1"))
	assert.ErrorIs(t, f.svc.ConfirmPasswordReset(context.Background(), raw, "reset-password-2"), domain.ErrInvalidResetToken)

	_, err = f.svc.Login(context.Background(), domain.LoginRequest{Email: "reset@example.com", Password: "reset-password-1"})
	assert.NoError(t, err)
}

func TestPasswordResetTokenExpires(t *testing.T) {
	f := newFixture(t)
	f.register(t, "late@example.com")
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "late@example.com"))
	raw := f.logs.FilterMessage("password reset token issued").All()[0].ContextMap()["reset_token"].(string)

	f.clock.Advance(2 * time.Hour)
	assert.ErrorIs(t, f.svc.ConfirmPasswordReset(context.Background(), raw, "reset-password-1"), domain.ErrInvalidResetToken)
}

type fakeMailer struct {
	to       []string
	template string
	data     map[string]any
}

func (m *fakeMailer) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (m *fakeMailer) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	m.to, m.template, m.data = to, templateName, data
	return nil
}

func TestPasswordResetEmailCarriesLink(t *testing.T) {
	f := newFixture(t)
	f.register(t, "mail@example.com")

	cfg := config.Config{
		AuthJWTSecret:        "test-secret",
		AuthJWTIssuer:        "bizcore",
		AuthPasswordResetURL: "https://app.example.com/reset?lang=es",
	}
	mailer := &fakeMailer{}
	svc := New(Params{
		DB:     f.db,
		Log:    zap.NewNop(),
		GenID:  f.node,
		Repo:   repository.Provide(),
		Tokens: token.NewManager(cfg, f.clock),
		Clock:  f.clock,
		Config: cfg,
		Mailer: mailer,
	})

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Nil(t, mailer.to)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "mail@example.com"))
	assert.Equal(t, []string{"mail@example.com"}, mailer.to)
	assert.Equal(t, "password_reset", mailer.template)
	raw := mailer.data["token"].(string)
	assert.Equal(t, "https://app.example.com/reset?lang=es&token="+raw, mailer.data["reset_url"])

	require.NoError(t, svc.ConfirmPasswordReset(context.Background(), raw, "reset-password-1"))
}
