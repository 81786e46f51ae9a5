package token

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(clk clock.Clock) *Manager {
	return NewManager(config.Config{
		AuthJWTSecret:      "test-secret",
		AuthJWTIssuer:      "bizcore-test",
		AuthAccessTokenTTL: time.Minute,
	}, clk)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	m := newManager(clk)

	signed, expires, err := m.IssueAccess(snowflake.ID(42), true)
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(time.Minute), expires)

	claims, err := m.Parse(signed, TypeAccess)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(42), id)
	assert.True(t, claims.Staff)
}

func TestParseRejectsWrongType(t *testing.T) {
	m := newManager(clock.NewFakeClock(time.Now()))

	refresh, jti, _, err := m.IssueRefresh(snowflake.ID(7))
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	_, err = m.Parse(refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalid)

	claims, err := m.Parse(refresh, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.ID)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	m := newManager(clk)

	signed, _, err := m.IssueAccess(snowflake.ID(1), false)
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = m.Parse(signed, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalid)

	other := NewManager(config.Config{AuthJWTSecret: "other", AuthJWTIssuer: "bizcore-test"}, clk)
	foreign, _, err := other.IssueAccess(snowflake.ID(1), false)
	require.NoError(t, err)
	_, err = m.Parse(foreign, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalid)
}
