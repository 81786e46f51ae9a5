package bizcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessScope(t *testing.T) {
	ctx := context.Background()
	_, ok := BusinessIDFromContext(ctx)
	assert.False(t, ok)

	ctx = WithActor(ctx, Actor{UserID: 7, IsStaff: true})
	ctx = WithBusiness(ctx, snowflake.ID(42), nil)

	id, ok := BusinessIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), id)

	_, ok = MembershipFromContext(ctx)
	assert.False(t, ok)

	actor, ok := ActorFromContext(ctx)
	assert.True(t, ok)
	assert.True(t, actor.IsStaff)
}

func TestZeroActorIsAnonymous(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{})
	_, ok := ActorFromContext(ctx)
	assert.False(t, ok)
}

func TestActorID(t *testing.T) {
	assert.Nil(t, ActorID(context.Background()))

	id := ActorID(WithActor(context.Background(), Actor{UserID: 9}))
	require.NotNil(t, id)
	assert.Equal(t, snowflake.ID(9), *id)
}
