package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/bizcore/internal/auth/domain"
	"github.com/smallbiznis/bizcore/internal/auth/password"
	"github.com/smallbiznis/bizcore/internal/auth/token"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/internal/observability/metrics"
	"github.com/smallbiznis/bizcore/internal/providers/email"
	"github.com/smallbiznis/bizcore/internal/ratelimit"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultResetTTL = time.Hour

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Tokens  *token.Manager
	Clock   clock.Clock
	Config  config.Config
	Limiter *ratelimit.LoginLimiter `optional:"true"`
	Metrics *metrics.Metrics        `optional:"true"`
	Mailer  email.Provider          `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	tokens   *token.Manager
	clock    clock.Clock
	limiter  *ratelimit.LoginLimiter
	metrics  *metrics.Metrics
	mailer   email.Provider
	resetTTL time.Duration
	resetURL string
}

func New(p Params) domain.Service {
	resetTTL := p.Config.AuthPasswordResetTTL
	if resetTTL <= 0 {
		resetTTL = defaultResetTTL
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("auth.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		tokens:   p.Tokens,
		clock:    p.Clock,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
		mailer:   p.Mailer,
		resetTTL: resetTTL,
		resetURL: p.Config.AuthPasswordResetURL,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(req.Password) < password.MinLength {
		return nil, domain.ErrPasswordTooShort
	}
	userType := req.UserType
	if userType == "" {
		userType = domain.UserTypeBusinessOwner
	}
	if !userType.Valid() || userType == domain.UserTypeAdmin {
		return nil, domain.ErrInvalidUserType
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:                s.genID.Generate(),
		Email:             email,
		PasswordHash:      hashed,
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		Phone:             strings.TrimSpace(req.Phone),
		UserType:          userType,
		IsActive:          true,
		PasswordChangedAt: &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var result *domain.AuthResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.FindByEmail(ctx, tx, email); err == nil {
			return domain.ErrUserExists
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		if err := s.repo.Create(ctx, tx, user); err != nil {
			return err
		}
		pair, err := s.issuePair(ctx, tx, user, req.UserAgent, req.IPAddress)
		if err != nil {
			return err
		}
		result = &domain.AuthResult{User: user, Tokens: *pair, Memberships: []domain.MembershipSummary{}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return result, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.limiter.Allow(ctx, email, req.IPAddress); err != nil {
		s.metrics.RecordLogin(ctx, "rate_limited")
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			password.VerifyDummy(req.Password)
			s.metrics.RecordLogin(ctx, "failure")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		s.metrics.RecordLogin(ctx, "failure")
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.metrics.RecordLogin(ctx, "inactive")
		return nil, domain.ErrUserInactive
	}

	var result *domain.AuthResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		fields := map[string]any{"last_login_at": now}
		if password.NeedsRehash(user.PasswordHash) {
			if rehashed, err := password.Hash(req.Password); err == nil {
				fields["password_hash"] = rehashed
			}
		}
		if err := s.repo.UpdateFields(ctx, tx, user.ID, fields); err != nil {
			return err
		}
		user.LastLoginAt = &now

		pair, err := s.issuePair(ctx, tx, user, req.UserAgent, req.IPAddress)
		if err != nil {
			return err
		}
		memberships, err := s.repo.ListMemberships(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if memberships == nil {
			memberships = []domain.MembershipSummary{}
		}
		result = &domain.AuthResult{User: user, Tokens: *pair, Memberships: memberships}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin(ctx, "success")
	return result, nil
}

func (s *Service) Refresh(ctx context.Context, req domain.RefreshRequest) (*domain.TokenPair, error) {
	claims, err := s.tokens.Parse(req.RefreshToken, token.TypeRefresh)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	var pair *domain.TokenPair
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := s.repo.FindRefreshToken(ctx, tx, claims.ID)
		if err != nil {
			return err
		}
		if stored.UserID != userID || stored.RevokedAt != nil || !s.clock.Now().Before(stored.ExpiresAt) {
			return domain.ErrTokenRevoked
		}

		user, err := s.activeUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		revoked, err := s.repo.RevokeRefreshToken(ctx, tx, claims.ID, s.clock.Now())
		if err != nil {
			return err
		}
		if !revoked {
			return domain.ErrTokenRevoked
		}
		pair, err = s.issuePair(ctx, tx, user, req.UserAgent, req.IPAddress)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, token.TypeRefresh)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if _, err := s.repo.RevokeRefreshToken(ctx, s.db, claims.ID, s.clock.Now()); err != nil {
		return err
	}
	return nil
}

func (s *Service) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.Parse(accessToken, token.TypeAccess)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.activeUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	// Tokens minted before the last password change are dead.
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil &&
		claims.IssuedAt.Time.Before(user.PasswordChangedAt.Truncate(time.Second)) {
		return nil, domain.ErrTokenRevoked
	}
	return user, nil
}

func (s *Service) Me(ctx context.Context) (*domain.User, error) {
	actor, ok := bizcontext.ActorFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	return s.repo.FindByID(ctx, s.db, actor.UserID)
}

func (s *Service) UpdateMe(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.Me(ctx)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	set := func(column string, value *string, target *string) {
		if value == nil {
			return
		}
		*target = strings.TrimSpace(*value)
		fields[column] = *target
	}
	set("first_name", req.FirstName, &user.FirstName)
	set("last_name", req.LastName, &user.LastName)
	set("phone", req.Phone, &user.Phone)
	set("avatar_url", req.AvatarURL, &user.AvatarURL)
	if len(fields) == 0 {
		return user, nil
	}
	if err := crud.Validate(user); err != nil {
		return nil, err
	}

	user.UpdatedAt = s.clock.Now()
	fields["updated_at"] = user.UpdatedAt
	if err := s.repo.UpdateFields(ctx, s.db, user.ID, fields); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) (*domain.TokenPair, error) {
	user, err := s.Me(ctx)
	if err != nil {
		return nil, err
	}
	if !password.Verify(req.CurrentPassword, user.PasswordHash) {
		return nil, domain.ErrWrongPassword
	}
	if len(req.NewPassword) < password.MinLength {
		return nil, apperror.Validation("new_password", "password_too_short", "password must be at least 8 characters")
	}

	var pair *domain.TokenPair
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.setPassword(ctx, tx, user.ID, req.NewPassword); err != nil {
			return err
		}
		pair, err = s.issuePair(ctx, tx, user, "", "")
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("password changed", zap.String("user_id", user.ID.String()))
	return pair, nil
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil
	}
	user, err := s.repo.FindByEmail(ctx, s.db, normalized)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}

	raw := uuid.NewString()
	now := s.clock.Now()
	reset := &domain.PasswordResetToken{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreateResetToken(ctx, s.db, reset); err != nil {
		return err
	}

	s.log.Debug("password reset token issued",
		zap.String("user_id", user.ID.String()),
		zap.String("reset_token", raw),
	)
	s.sendResetEmail(ctx, user, raw)
	return nil
}

// sendResetEmail is best effort; a delivery failure must not reveal whether the account exists.
func (s *Service) sendResetEmail(ctx context.Context, user *domain.User, raw string) {
	if s.mailer == nil {
		return
	}
	data := map[string]any{
		"name":       strings.TrimSpace(user.FirstName + " " + user.LastName),
		"expires_in": s.resetTTL.String(),
		"token":      raw,
	}
	if s.resetURL != "" {
		if u, err := url.Parse(s.resetURL); err == nil {
			q := u.Query()
			q.Set("token", raw)
			u.RawQuery = q.Encode()
			data["reset_url"] = u.String()
		}
	}
	if err := s.mailer.SendTemplate(ctx, []string{user.Email}, "password_reset", data); err != nil {
		s.log.Warn("password reset email failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.ErrInvalidResetToken
	}
	if len(newPassword) < password.MinLength {
		return apperror.Validation("new_password", "password_too_short", "password must be at least 8 characters")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reset, err := s.repo.FindResetToken(ctx, tx, hashToken(rawToken))
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if reset.UsedAt != nil || !now.Before(reset.ExpiresAt) {
			return domain.ErrInvalidResetToken
		}
		used, err := s.repo.MarkResetTokenUsed(ctx, tx, reset.ID, now)
		if err != nil {
			return err
		}
		if !used {
			return domain.ErrInvalidResetToken
		}
		return s.setPassword(ctx, tx, reset.UserID, newPassword)
	})
}

func (s *Service) GetUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	return s.repo.FindByEmail(ctx, s.db, normalized)
}

// setPassword stores the new hash and revokes every outstanding refresh token.
func (s *Service) setPassword(ctx context.Context, tx *gorm.DB, userID snowflake.ID, newPassword string) error {
	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, tx, userID, map[string]any{
		"password_hash":       hashed,
		"password_changed_at": now,
		"updated_at":          now,
	}); err != nil {
		return err
	}
	return s.repo.RevokeUserRefreshTokens(ctx, tx, userID, now)
}

func (s *Service) issuePair(ctx context.Context, tx *gorm.DB, user *domain.User, userAgent, ip string) (*domain.TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccess(user.ID, user.IsStaff)
	if err != nil {
		return nil, err
	}
	refresh, jti, refreshExp, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRefreshToken(ctx, tx, &domain.RefreshToken{
		ID:        jti,
		UserID:    user.ID,
		UserAgent: strings.TrimSpace(userAgent),
		IPAddress: strings.TrimSpace(ip),
		ExpiresAt: refreshExp,
		CreatedAt: s.clock.Now(),
	}); err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		TokenType:        "Bearer",
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *Service) activeUser(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
