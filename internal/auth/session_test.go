package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-credit/meridian/internal/shared"
)

func testSessionManager(t *testing.T, ttl time.Duration) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, ttl), mr
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := testSessionManager(t, time.Hour)
	ctx := context.Background()

	actor := shared.Actor{ID: 9, Name: "Efua Analyst", Role: "Credit Risk Analyst"}
	token, err := sm.Create(ctx, actor)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := sm.Get(ctx, token)
	require.NoError(t, err)
	require.Equal(t, actor, *got)
}

func TestSessionUnknownToken(t *testing.T) {
	sm, _ := testSessionManager(t, time.Hour)

	_, err := sm.Get(context.Background(), "nope")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestSessionExpires(t *testing.T) {
	sm, mr := testSessionManager(t, time.Minute)
	ctx := context.Background()

	token, err := sm.Create(ctx, shared.Actor{ID: 1, Name: "Ama", Role: "Call Center"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = sm.Get(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestSessionDestroy(t *testing.T) {
	sm, _ := testSessionManager(t, time.Hour)
	ctx := context.Background()

	token, err := sm.Create(ctx, shared.Actor{ID: 1, Name: "Ama", Role: "Call Center"})
	require.NoError(t, err)

	require.NoError(t, sm.Destroy(ctx, token))

	_, err = sm.Get(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestSessionTokensAreUnique(t *testing.T) {
	sm, _ := testSessionManager(t, time.Hour)
	ctx := context.Background()

	actor := shared.Actor{ID: 1, Name: "Ama", Role: "Call Center"}
	first, err := sm.Create(ctx, actor)
	require.NoError(t, err)
	second, err := sm.Create(ctx, actor)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
