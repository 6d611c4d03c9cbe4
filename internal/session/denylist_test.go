package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/idempotency"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDenylist(t *testing.T) {
	ctx := context.Background()
	d := session.NewMemoryDenylist()

	revoked, err := d.Revoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "tok-1", time.Now().Add(time.Hour)))
	revoked, err = d.Revoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Already expired tokens need no entry.
	require.NoError(t, d.Revoke(ctx, "tok-2", time.Now().Add(-time.Minute)))
	revoked, err = d.Revoked(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

// Runs against a live server only when REDIS_ADDR is set.
func TestRedisDenylist(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := idempotency.NewRedisClient(ctx, addr)
	require.NoError(t, err)
	defer rdb.Close()

	d := session.NewRedisDenylist(rdb)
	id := uuid.NewString()

	revoked, err := d.Revoked(ctx, id)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, id, time.Now().Add(time.Minute)))
	revoked, err = d.Revoked(ctx, id)
	require.NoError(t, err)
	assert.True(t, revoked)
}
