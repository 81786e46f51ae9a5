package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"go.uber.org/zap"
)

const keyLoginAttempt = "auth:login:%s:%s"

var ErrTooManyAttempts = apperror.RateLimited("too_many_login_attempts")

// LoginLimiter throttles credential checks per email and client address.
// It fails open when Redis is unreachable so an outage never locks users out.
type LoginLimiter struct {
	bucket   *TokenBucket
	tunables *config.TunablesHolder
	log      *zap.Logger
}

func NewLoginLimiter(bucket *TokenBucket, tunables *config.TunablesHolder, log *zap.Logger) *LoginLimiter {
	return &LoginLimiter{bucket: bucket, tunables: tunables, log: log.Named("ratelimit.login")}
}

func (l *LoginLimiter) Allow(ctx context.Context, email, clientIP string) error {
	if l == nil || l.bucket == nil {
		return nil
	}
	t := l.tunables.Get()
	key := fmt.Sprintf(keyLoginAttempt, strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(clientIP))

	res, err := l.bucket.Allow(ctx, key, t.LoginRatePerSecond, t.LoginBurst)
	if err != nil {
		l.log.Warn("login rate limit check failed", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		return ErrTooManyAttempts
	}
	return nil
}
